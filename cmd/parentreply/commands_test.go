package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/parentreply/internal/config"
	"github.com/kalambet/parentreply/internal/drafting"
	"github.com/kalambet/parentreply/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})
		ts.mu.Unlock()

		r.Body = io.NopCloser(strings.NewReader(body.String()))
		handler(w, r)
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

// echoGenerate answers generation requests with the requested parent type.
func echoGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParentType string `json:"parentType"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	w.Header().Set("Content-Type", "application/json")
	if req.ParentType == "tyrant" {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Unknown parent type"}`))
		return
	}
	fmt.Fprintf(w, `{"email":"Dear %s parent"}`, req.ParentType)
}

func TestDraftOne(t *testing.T) {
	ts := newTestServer(t, echoGenerate)

	res := draftOne(ctx, ts.client(), draftRequest("driver"))
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Email != "Dear driver parent" {
		t.Errorf("email = %q", res.Email)
	}

	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/api/generate-email" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["parentType"] != "driver" || body["emailContext"] != "email" || body["situationContext"] != "situation" {
		t.Errorf("body = %v", body)
	}
}

func TestDraftAll_PreservesOrder(t *testing.T) {
	var inFlight, peak atomic.Int32
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		echoGenerate(w, r)
	})

	types := []string{"balanced", "driver", "tyrant", "analytical", "expressive", "amiable"}
	results := draftAll(ctx, ts.client(), types, "email", "situation")

	if len(results) != len(types) {
		t.Fatalf("got %d results, want %d", len(results), len(types))
	}
	for i, r := range results {
		if r.ParentType != types[i] {
			t.Errorf("result %d type = %q, want %q", i, r.ParentType, types[i])
		}
		if types[i] == "tyrant" {
			if r.Err == nil || !strings.Contains(r.Err.Error(), "Unknown parent type") {
				t.Errorf("tyrant err = %v", r.Err)
			}
			continue
		}
		if r.Err != nil || r.Email != "Dear "+types[i]+" parent" {
			t.Errorf("result %d = %+v", i, r)
		}
	}
	if p := peak.Load(); p > maxConcurrentDrafts {
		t.Errorf("peak concurrency = %d, want <= %d", p, maxConcurrentDrafts)
	}
}

func TestPrintResults(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	err := printResults(&buf, []draftResult{
		{ParentType: "driver", Email: "Short reply."},
		{ParentType: "amiable", Err: fmt.Errorf("server returned 429: API request failed")},
	})
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("err = %v, want 1 of 2 failed", err)
	}
	out := buf.String()
	if !strings.Contains(out, "== driver ==\nShort reply.") {
		t.Errorf("output = %q", out)
	}

	buf.Reset()
	if err := printResults(&buf, []draftResult{{ParentType: "driver", Email: "Only"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.String() != "Only\n" {
		t.Errorf("single output = %q, want no header", buf.String())
	}
}

func TestSplitTypes(t *testing.T) {
	got := splitTypes(" driver, ,amiable ,")
	if strings.Join(got, "|") != "driver|amiable" {
		t.Errorf("splitTypes = %v", got)
	}
}

func TestDraftCommand_MissingArgs(t *testing.T) {
	cases := [][]string{
		{"draft", "--email-text", "x", "--situation", "y"},
		{"draft", "--type", "driver", "--situation", "y"},
		{"draft", "--type", "driver", "--email-text", "x", "--email-file", "f", "--situation", "y"},
		{"draft", "--type", "driver", "--email-text", "x"},
	}
	for _, args := range cases {
		for _, f := range []string{"type", "email-text", "email-file", "situation"} {
			draftCmd.Flags().Set(f, "")
		}
		rootCmd.SetArgs(args)
		if err := rootCmd.Execute(); err == nil {
			t.Errorf("args %v: expected error", args)
		}
	}
	rootCmd.SetArgs(nil)
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	client := ts.client()
	client.token = "my-secret-token"
	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.token = ""
	if _, err := client.get(ctx, "/health"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
	if ts.requests[1].Auth != "" {
		t.Errorf("auth = %q, want none without token", ts.requests[1].Auth)
	}
}

func TestAPIClient_ServerStopped(t *testing.T) {
	ts := newTestServer(t, echoGenerate)
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":"Unauthorized"}`))
	})

	resp, err := ts.client().get(ctx, "/drafts")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if err.Error() != "server returned 401: Unauthorized" {
		t.Errorf("error = %q", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestFormatDraftLine(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	line := formatDraftLine(storage.Draft{
		ID:         "0123456789abcdef",
		CreatedAt:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		ParentType: "driver",
		Status:     storage.StatusFailed,
		StatusCode: 429,
	})
	if !strings.HasPrefix(line, "01234567  ") {
		t.Errorf("line = %q, want short id prefix", line)
	}
	if !strings.HasSuffix(line, "failed (429)") {
		t.Errorf("line = %q, want failed status", line)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4000
	cfg.Provider.APIKey = "sk-secret"

	keys := config.ShowAll(cfg)
	var foundPort bool
	for _, k := range keys {
		if k.Key == "server.port" && k.Value == "4000" {
			foundPort = true
		}
		if strings.Contains(k.Value, "sk-secret") {
			t.Errorf("secret leaked in %s", k.Key)
		}
	}
	if !foundPort {
		t.Error("expected to find server.port=4000 in ShowAll output")
	}
}

func draftRequest(parentType string) drafting.Request {
	return drafting.Request{ParentType: parentType, EmailContext: "email", SituationContext: "situation"}
}

func runPrune(t *testing.T, historyEnabled string) string {
	t.Helper()
	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	t.Setenv("PARENTREPLY_CONFIG", filepath.Join(dir, "config.json"))
	t.Setenv("PARENTREPLY_STORAGE_DATA_DIR", dataDir)
	t.Setenv("PARENTREPLY_STORAGE_HISTORY_ENABLED", historyEnabled)

	rootCmd.SetArgs([]string{"drafts", "prune", "--older-than", "24h"})
	defer rootCmd.SetArgs(nil)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("prune: %v", err)
	}
	return filepath.Join(dataDir, "parentreply.db")
}

func TestDraftsPrune_HistoryDisabledCreatesNoDatabase(t *testing.T) {
	db := runPrune(t, "false")
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Errorf("database %s exists (err=%v), want none", db, err)
	}
}

func TestDraftsPrune_HistoryEnabled(t *testing.T) {
	db := runPrune(t, "true")
	if _, err := os.Stat(db); err != nil {
		t.Errorf("database not opened: %v", err)
	}
}
