package app_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/venturhq/ventur-connector/internal/app"
	"github.com/venturhq/ventur-connector/internal/config"
	"github.com/venturhq/ventur-connector/internal/logger"
	"github.com/venturhq/ventur-connector/pkg/mockventur"
	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
	"github.com/venturhq/ventur-connector/pkg/ventur/client"
	"github.com/venturhq/ventur-connector/pkg/ventur/credentials"
)

const itemsCSV = "endpoint,webSearchQuery,companySnapshotQuery\n" +
	"webSearch,AI agents,\n" +
	"webSearch,,\n" +
	"companySnapshot,,Monzo\n"

type outRecord struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

func startMock(t *testing.T, key string) (*mockventur.Server, *httptest.Server) {
	t.Helper()
	srv := mockventur.New()
	srv.RequireAPIKey(key)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func envFrom(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func readRecords(t *testing.T, path string) []outRecord {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var out []outRecord
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		var rec outRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestRun_PartialOutputAgainstMock(t *testing.T) {
	t.Parallel()

	srv, ts := startMock(t, "vk_test")
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input = writeFile(t, dir, "items.csv", itemsCSV)
	cfg.Output = filepath.Join(dir, "out.jsonl")

	var logs bytes.Buffer
	summary, err := app.Run(context.Background(), cfg, app.Options{
		Logger: logger.New(&logs),
		Getenv: envFrom(map[string]string{"VENTUR_API_KEY": "vk_test", "VENTUR_BASE_URL": ts.URL}),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Produced != 3 || summary.OK != 2 || summary.Failed != 1 || summary.RunID == "" {
		t.Fatalf("unexpected summary: %#v", summary)
	}

	recs := readRecords(t, cfg.Output)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	if !recs[0].OK || recs[1].OK || !recs[2].OK {
		t.Fatalf("unexpected ok flags: %#v", recs)
	}
	if recs[1].Error != "missing required field webSearchQuery" {
		t.Fatalf("unexpected error: %q", recs[1].Error)
	}
	var resp mockventur.Response
	if err := json.Unmarshal(recs[2].Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Endpoint != "companySnapshot" || resp.Request["query"] != "Monzo" {
		t.Fatalf("unexpected response: %#v", resp)
	}

	calls := srv.Calls()
	if len(calls) != 2 || calls[0].Path != "/api/v1/web-search" || calls[1].Path != "/api/v1/company-snapshot" {
		t.Fatalf("unexpected calls: %#v", calls)
	}

	if !strings.Contains(logs.String(), `"run":"`+summary.RunID+`"`) {
		t.Fatalf("expected run id in logs:\n%s", logs.String())
	}
	if strings.Contains(logs.String(), "vk_test") {
		t.Fatalf("api key leaked into logs:\n%s", logs.String())
	}
}

func TestRun_FailFastLeavesNoOutput(t *testing.T) {
	t.Parallel()

	srv, ts := startMock(t, "")
	srv.FailOn("Monzo", http.StatusBadGateway, `{"error":"upstream unavailable"}`)
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input = writeFile(t, dir, "items.jsonl",
		`{"endpoint":"webSearch","webSearchQuery":"AI agents"}`+"\n"+
			`{"endpoint":"companySnapshot","companySnapshotQuery":"Monzo"}`+"\n"+
			`{"endpoint":"webSearch","webSearchQuery":"never sent"}`+"\n")
	cfg.Output = filepath.Join(dir, "out.json")
	cfg.FailFast = true

	_, err := app.Run(context.Background(), cfg, app.Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Getenv: envFrom(map[string]string{"VENTUR_API_KEY": "vk_test", "VENTUR_BASE_URL": ts.URL}),
	})
	var re *core.RemoteError
	if !errors.As(err, &re) {
		t.Fatalf("expected RemoteError, got %T %v", err, err)
	}
	if _, statErr := os.Stat(cfg.Output); !os.IsNotExist(statErr) {
		t.Fatalf("expected no output file, stat err=%v", statErr)
	}
	if n := len(srv.Calls()); n != 2 {
		t.Fatalf("expected 2 calls before abort, got %d", n)
	}
}

func TestRun_MissingAPIKeyFailsBeforeAnyRequest(t *testing.T) {
	t.Parallel()

	srv, _ := startMock(t, "")
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input = writeFile(t, dir, "items.csv", itemsCSV)
	cfg.Output = filepath.Join(dir, "out.jsonl")

	_, err := app.Run(context.Background(), cfg, app.Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Getenv: envFrom(nil),
	})
	if err == nil || !strings.Contains(err.Error(), "VENTUR_API_KEY is required") {
		t.Fatalf("expected missing key error, got %v", err)
	}
	if len(srv.Calls()) != 0 {
		t.Fatalf("expected no calls")
	}
}

func TestRun_NamedCredentialFromFile(t *testing.T) {
	t.Parallel()

	srv, ts := startMock(t, "vk_staging")
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input = writeFile(t, dir, "items.yaml", "- webSearchQuery: AI agents\n")
	cfg.Output = filepath.Join(dir, "out.json")
	cfg.Endpoint = "webSearch"
	cfg.Credential = "staging"
	cfg.CredentialsFile = writeFile(t, dir, "creds.yaml",
		"credentials:\n  staging:\n    apiKey: vk_staging\n    baseUrl: "+ts.URL+"\n")

	summary, err := app.Run(context.Background(), cfg, app.Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Getenv: envFrom(nil),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.OK != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	calls := srv.Calls()
	if len(calls) != 1 || calls[0].APIKey != "vk_staging" {
		t.Fatalf("unexpected calls: %#v", calls)
	}

	b, err := os.ReadFile(cfg.Output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	var recs []outRecord
	if err := json.Unmarshal(b, &recs); err != nil || len(recs) != 1 || !recs[0].OK {
		t.Fatalf("unexpected output %s (err=%v)", b, err)
	}
}

// observingDoer records how many output lines exist on disk when each request starts.
type observingDoer struct {
	next   client.Doer
	output string
	lines  []int
}

func (d *observingDoer) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	b, _ := os.ReadFile(d.output)
	d.lines = append(d.lines, strings.Count(string(b), "\n"))
	return d.next.Post(ctx, path, body)
}

func TestRun_PartialJSONLStreamsRecords(t *testing.T) {
	t.Parallel()

	_, ts := startMock(t, "vk_test")
	dir := t.TempDir()

	cfg := config.Default()
	cfg.Input = writeFile(t, dir, "items.csv", "webSearchQuery,source\nAI agents,\n,\nfintech,\n")
	cfg.Output = filepath.Join(dir, "out.jsonl")
	cfg.Endpoint = "companySnapshot"
	cfg.Defaults = map[string]any{"companySnapshotQuery": "Monzo", "source": "crm-sync"}

	c, err := client.New(credentials.Credentials{APIKey: "vk_test", BaseURL: ts.URL}, "", client.WithHTTPClient(ts.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	doer := &observingDoer{next: c, output: cfg.Output}

	summary, err := app.Run(context.Background(), cfg, app.Options{
		Logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Getenv: envFrom(map[string]string{"VENTUR_API_KEY": "vk_test", "VENTUR_BASE_URL": ts.URL}),
		Doer:   doer,
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Produced != 3 || summary.OK != 3 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if got := fmt.Sprint(doer.lines); got != "[0 1 2]" {
		t.Fatalf("expected records on disk before each later request, got %s", got)
	}

	recs := readRecords(t, cfg.Output)
	if len(recs) != 3 {
		t.Fatalf("expected 3 records, got %d", len(recs))
	}
	var resp mockventur.Response
	if err := json.Unmarshal(recs[0].Data, &resp); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if resp.Request["query"] != "Monzo" || resp.Request["source"] != "crm-sync" {
		t.Fatalf("expected defaults in request body, got %#v", resp.Request)
	}
}
