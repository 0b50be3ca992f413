package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/venturhq/ventur-connector/internal/app"
	"github.com/venturhq/ventur-connector/internal/config"
	"github.com/venturhq/ventur-connector/internal/logger"
	"github.com/venturhq/ventur-connector/internal/version"
	"github.com/venturhq/ventur-connector/pkg/pipeline/redact"
	"github.com/venturhq/ventur-connector/pkg/ventur/catalog"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	switch os.Args[1] {
	case "help", "-h", "--help":
		usage(os.Stdout)
		return
	case "version", "--version":
		_, _ = fmt.Fprintln(os.Stdout, version.Current)
		return
	case "run":
		os.Exit(runBatch(ctx, os.Args[2:]))
	case "endpoints":
		os.Exit(listEndpoints(os.Stdout, os.Args[2:]))
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		usage(os.Stderr)
		os.Exit(2)
	}
}

func runBatch(ctx context.Context, args []string) int {
	if err := loadDotEnv(".env"); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	// --config is read ahead of the other flags so file values become flag defaults.
	cfg, err := config.Load(configPath(args))
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	var configFile string
	fs.StringVar(&configFile, "config", "", "Optional YAML config file")
	fs.StringVar(&cfg.Input, "input", cfg.Input, "Input items file (csv, json, jsonl or yaml)")
	fs.StringVar(&cfg.InputFormat, "input-format", cfg.InputFormat, "Input format; inferred from the file extension when empty")
	fs.StringVar(&cfg.Output, "output", cfg.Output, "Output records file")
	fs.StringVar(&cfg.OutputFormat, "output-format", cfg.OutputFormat, "Output format: json or jsonl (env: OUTPUT_FORMAT)")
	fs.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "Endpoint for items without an 'endpoint' field (env: VENTUR_ENDPOINT)")
	fs.StringVar(&cfg.Scheme, "scheme", cfg.Scheme, "Field naming scheme: per-endpoint or shared (env: VENTUR_SCHEME)")
	fs.StringVar(&cfg.Credential, "credential", cfg.Credential, "Credential set name (env: VENTUR_CREDENTIAL)")
	fs.StringVar(&cfg.CredentialsFile, "credentials-file", cfg.CredentialsFile, "YAML file of named credential sets (env: VENTUR_CREDENTIALS_FILE)")
	fs.BoolVar(&cfg.FailFast, "fail-fast", cfg.FailFast, "Abort on the first failing item (env: FAIL_FAST)")
	fs.BoolVar(&cfg.Simplify, "simplify", cfg.Simplify, "Wrap responses as {simplified,data} (env: VENTUR_SIMPLIFY)")
	fs.Float64Var(&cfg.RateLimitRPS, "rate-limit-rps", cfg.RateLimitRPS, "Request rate limit (RPS), 0 disables (env: RATE_LIMIT_RPS)")
	logLevel := fs.String("log-level", "", "Log level override: TRACE, DEBUG, INFO, WARN or ERROR (env: LOG_LEVEL)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	var levelOverride *logger.Level
	if *logLevel != "" {
		lvl, err := logger.ParseLevel(*logLevel)
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
			return 2
		}
		levelOverride = &lvl
	}
	if err := cfg.Validate(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", redact.Secrets(err.Error()))
		return 2
	}

	log := logger.Setup(os.Stdout)
	if levelOverride != nil {
		logger.SetLevel(*levelOverride)
	}
	summary, err := app.Run(ctx, cfg, app.Options{Logger: log})
	if err != nil {
		log.Error("ventur run failed", "run", summary.RunID, "error", redact.Secrets(err.Error()))
		_, _ = fmt.Fprintf(os.Stderr, "run failed: %s\n", redact.Secrets(err.Error()))
		return 1
	}
	return 0
}

func listEndpoints(w io.Writer, args []string) int {
	fs := flag.NewFlagSet("endpoints", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	schemeName := fs.String("scheme", "", "Field naming scheme: per-endpoint or shared")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	scheme, err := catalog.ParseScheme(*schemeName)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "config error: %s\n", err)
		return 2
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ENDPOINT\tNAME\tPATH\tFIELDS\tMETADATA")
	for _, spec := range catalog.New(scheme).Endpoints() {
		metadata := "-"
		if spec.HasMetadata() {
			metadata = spec.TimestampField + "," + spec.SourceField
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", spec.Endpoint, spec.DisplayName, spec.Path, requiredFields(spec), metadata)
	}
	if err := tw.Flush(); err != nil {
		return 1
	}
	return 0
}

func requiredFields(spec catalog.Spec) string {
	names := make([]string, len(spec.Required))
	for i, f := range spec.Required {
		names[i] = f.Name
	}
	return strings.Join(names, ",")
}

// configPath scans args for --config without consuming them.
func configPath(args []string) string {
	for i, a := range args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(a, "-"), "=")
		if !strings.HasPrefix(a, "-") || name != "config" {
			continue
		}
		if hasValue {
			return value
		}
		if i+1 < len(args) {
			return args[i+1]
		}
	}
	return strings.TrimSpace(os.Getenv("VENTUR_CONFIG"))
}

// loadDotEnv loads path into the environment without overriding set variables. A
// missing file is not an error.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintf(w, `ventur %s: batch connector for the Ventur intelligence API

Usage:
  ventur <command> [flags]

Commands:
  run        Send every item in --input to its endpoint and write one record per item
  endpoints  List the endpoint catalog
  version    Print the version

Examples:
  ventur run --input companies.csv --output reports.jsonl --endpoint companySnapshot
  ventur run --config ventur.yaml --fail-fast
  ventur endpoints --scheme shared

Environment:
  VENTUR_API_KEY           API key for the default credential set (required unless a file provides it)
  VENTUR_BASE_URL          Base URL override (default https://api.venturhq.com)
  VENTUR_<NAME>_API_KEY    API key for the credential set <NAME>
  VENTUR_CA_PATH           Optional CA bundle for TLS
  LOG_LEVEL                TRACE, DEBUG, INFO, WARN or ERROR (--log-level overrides)

`, version.Current)
}
