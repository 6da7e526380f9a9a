package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/parentreply/internal/config"
	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/extract"
	"github.com/kalambet/parentreply/internal/personality"
	"github.com/kalambet/parentreply/internal/storage"
)

// maxConcurrentDrafts bounds parallel generation requests for --type lists.
const maxConcurrentDrafts = 3

// --- draft ---

var draftCmd = &cobra.Command{
	Use:   "draft",
	Short: "Draft a reply through a running server",
	Long: `Draft a reply through a running server.

Examples:
  parentreply draft --type driver --email-text "Why did Maya fail?" --situation "Maya skipped the review."
  parentreply draft --type driver,amiable --email-file ./email.pdf --situation "Maya skipped the review."`,
	RunE: func(cmd *cobra.Command, args []string) error {
		typesStr, _ := cmd.Flags().GetString("type")
		text, _ := cmd.Flags().GetString("email-text")
		file, _ := cmd.Flags().GetString("email-file")
		situation, _ := cmd.Flags().GetString("situation")

		if typesStr == "" {
			return fmt.Errorf("--type is required (one of %s)", strings.Join(personality.Names(), ", "))
		}
		if (text == "") == (file == "") {
			return fmt.Errorf("exactly one of --email-text or --email-file is required")
		}
		if situation == "" {
			return fmt.Errorf("--situation is required")
		}

		if file != "" {
			var err error
			text, err = extract.FromFile(file)
			if err != nil {
				return err
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		results := draftAll(cmd.Context(), client, splitTypes(typesStr), text, situation)
		return printResults(os.Stdout, results)
	},
}

func init() {
	draftCmd.Flags().String("type", "", "parent type, or a comma-separated list of types")
	draftCmd.Flags().String("email-text", "", "the parent's email")
	draftCmd.Flags().String("email-file", "", "file with the parent's email (.txt, .html, .pdf)")
	draftCmd.Flags().String("situation", "", "your account of the situation")
}

type draftResult struct {
	ParentType string
	Email      string
	Err        error
}

func splitTypes(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// draftAll requests one draft per parent type concurrently. Results keep the
// order of types; a failed type does not cancel the others.
func draftAll(ctx context.Context, c *apiClient, types []string, email, situation string) []draftResult {
	results := make([]draftResult, len(types))

	var g errgroup.Group
	g.SetLimit(maxConcurrentDrafts)
	for i, t := range types {
		g.Go(func() error {
			results[i] = draftOne(ctx, c, drafting.Request{
				ParentType:       t,
				EmailContext:     email,
				SituationContext: situation,
			})
			return nil
		})
	}
	g.Wait()
	return results
}

func draftOne(ctx context.Context, c *apiClient, req drafting.Request) draftResult {
	res := draftResult{ParentType: req.ParentType}
	resp, err := c.post(ctx, "/api/generate-email", req)
	if err != nil {
		res.Err = err
		return res
	}
	var body struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		res.Err = err
		return res
	}
	res.Email = body.Email
	return res
}

func printResults(w io.Writer, results []draftResult) error {
	var failed int
	for i, r := range results {
		if len(results) > 1 {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, colorize(colorBold, "== "+r.ParentType+" =="))
		}
		if r.Err != nil {
			failed++
			printError("%s: %v", r.ParentType, r.Err)
			continue
		}
		fmt.Fprintln(w, r.Email)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d drafts failed", failed, len(results))
	}
	return nil
}

// --- personalities ---

var personalitiesCmd = &cobra.Command{
	Use:   "personalities",
	Short: "List parent communication styles",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, p := range personality.All() {
			fmt.Printf("%s  %s\n", colorize(colorCyan, fmt.Sprintf("%-11s", p.Name)), p.Label)
		}
		return nil
	},
}

// --- drafts ---

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect draft history",
}

var draftsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", fmt.Sprint(limit))
		q.Set("offset", fmt.Sprint(offset))
		resp, err := client.get(cmd.Context(), "/drafts?"+q.Encode())
		if err != nil {
			return err
		}

		var drafts []storage.Draft
		if err := decodeJSON(resp, &drafts); err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("No drafts found.")
			return nil
		}
		for _, d := range drafts {
			fmt.Println(formatDraftLine(d))
		}
		return nil
	},
}

func formatDraftLine(d storage.Draft) string {
	id := d.ID
	if len(id) > 8 {
		id = id[:8]
	}
	status := colorize(colorGreen, d.Status)
	if d.Status != storage.StatusCompleted {
		status = colorize(colorRed, d.Status)
		if d.StatusCode != 0 {
			status += fmt.Sprintf(" (%d)", d.StatusCode)
		}
	}
	return fmt.Sprintf("%s  %s  %-10s  %s",
		colorize(colorCyan, id),
		d.CreatedAt.Local().Format(time.DateTime),
		d.ParentType,
		status,
	)
}

var draftsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single draft",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/drafts/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var d storage.Draft
		if err := decodeJSON(resp, &d); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	},
}

var draftsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete drafts older than a given age from the local history database",
	RunE: func(cmd *cobra.Command, args []string) error {
		olderThan, _ := cmd.Flags().GetDuration("older-than")
		if olderThan <= 0 {
			return fmt.Errorf("--older-than must be positive")
		}

		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}
		if !cfg.Storage.HistoryEnabled {
			printError("draft history is disabled (set storage.history_enabled to true)")
			return nil
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer store.Close()

		n, err := store.DeleteDraftsBefore(cmd.Context(), time.Now().Add(-olderThan))
		if err != nil {
			return err
		}
		printSuccess("Deleted %d drafts", n)
		return nil
	},
}

func init() {
	draftsListCmd.Flags().Int("limit", 20, "maximum number of drafts to list")
	draftsListCmd.Flags().Int("offset", 0, "number of drafts to skip")
	draftsPruneCmd.Flags().Duration("older-than", 30*24*time.Hour, "delete drafts older than this")
	draftsCmd.AddCommand(draftsListCmd)
	draftsCmd.AddCommand(draftsShowCmd)
	draftsCmd.AddCommand(draftsPruneCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadClient()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nKeys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
