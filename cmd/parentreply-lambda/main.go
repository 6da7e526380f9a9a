// Command parentreply-lambda serves the draft endpoint from AWS Lambda
// behind an API Gateway HTTP API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kalambet/parentreply/internal/app"
	"github.com/kalambet/parentreply/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	app.SetupLogging(cfg.Log.Level)

	if cfg.Storage.HistoryEnabled {
		slog.Warn("draft history is not supported on Lambda, disabling")
		cfg.Storage.HistoryEnabled = false
	}

	a, err := app.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	lambda.Start(newAdapter(a.Handler()).Handle)
}
