// Package app wires a batch run: read items, resolve credentials, dispatch, write
// records.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/venturhq/ventur-connector/internal/config"
	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
	"github.com/venturhq/ventur-connector/pkg/pipeline/io/local"
	"github.com/venturhq/ventur-connector/pkg/ventur/catalog"
	"github.com/venturhq/ventur-connector/pkg/ventur/client"
	"github.com/venturhq/ventur-connector/pkg/ventur/credentials"
	"github.com/venturhq/ventur-connector/pkg/ventur/dispatch"
)

// Options carries collaborators that tests replace.
type Options struct {
	Logger *slog.Logger
	// Getenv defaults to os.Getenv and backs the environment credential store.
	Getenv func(string) string
	// Doer replaces the HTTP client built from the resolved credentials.
	Doer client.Doer
	Now  func() time.Time
}

// Summary describes a finished run.
type Summary struct {
	RunID    string
	Produced int
	OK       int
	Failed   int
	Duration time.Duration
}

// Run executes one batch described by cfg. Records are written to cfg.Output only
// when the batch completes; a fail-fast abort leaves no output file.
func Run(ctx context.Context, cfg config.Config, opts Options) (Summary, error) {
	runStart := time.Now()
	runID := uuid.NewString()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run", runID)
	summary := Summary{RunID: runID}

	if err := cfg.Validate(); err != nil {
		return summary, err
	}
	scheme, err := catalog.ParseScheme(cfg.Scheme)
	if err != nil {
		return summary, err
	}

	creds, err := resolveCredentials(cfg, opts.Getenv)
	if err != nil {
		return summary, err
	}

	readStart := time.Now()
	var source core.InputAdapter[local.Item] = local.FileSource{Path: cfg.Input, Format: cfg.ResolvedInputFormat()}
	items, err := source.Load(ctx)
	if err != nil {
		return summary, err
	}
	logger.Info("ventur run start",
		"items", len(items),
		"input", cfg.Input,
		"endpoint", cfg.Endpoint,
		"scheme", scheme.Name,
		"credential", cfg.Credential,
		"baseUrl", creds.BaseURL,
		"failurePolicy", cfg.FailurePolicy().String(),
		"rateLimitRPS", cfg.RateLimitRPS,
		"readDuration", time.Since(readStart).Round(time.Millisecond).String(),
	)

	resolver := local.ItemResolver{Items: items, Defaults: cfg.Defaults}
	dispatchOpts := dispatch.Options{
		Catalog:       catalog.New(scheme),
		Doer:          opts.Doer,
		CAPath:        cfg.CAPath,
		FailurePolicy: cfg.FailurePolicy(),
		RateLimitRPS:  cfg.RateLimitRPS,
		Simplify:      cfg.Simplify,
		Now:           opts.Now,
		Logger:        opts.loggerOrDefault(),
		RunID:         runID,
	}

	// Partial-output jsonl runs stream each record as it completes; every other
	// combination writes once the batch has finished.
	var stream *os.File
	var rw *local.RecordWriter
	if cfg.StreamsOutput() {
		stream, err = os.Create(cfg.Output)
		if err != nil {
			return summary, err
		}
		defer func() {
			_ = stream.Close()
		}()
		rw = local.NewRecordWriter(stream)
		dispatchOpts.OnRecord = func(rec dispatch.Record) error {
			return rw.Write(rec)
		}
	}

	dispatchStart := time.Now()
	records, err := dispatch.Run(ctx, items,
		dispatch.FromField(resolver, dispatch.EndpointField, cfg.Endpoint),
		resolver,
		creds,
		dispatchOpts,
	)
	if err != nil {
		summary.Duration = time.Since(runStart)
		return summary, err
	}

	summary.Produced = len(records)
	summary.OK, summary.Failed = dispatch.Counts(records)
	logger.Info("dispatch complete",
		"produced", summary.Produced,
		"ok", summary.OK,
		"error", summary.Failed,
		"duration", time.Since(dispatchStart).Round(time.Millisecond).String(),
	)

	writeStart := time.Now()
	if stream != nil {
		if err := stream.Close(); err != nil {
			return summary, err
		}
		logger.Debug("streamed records", "output", cfg.Output, "records", rw.Count())
	} else {
		var sink core.OutputAdapter[dispatch.Record] = local.FileSink[dispatch.Record]{Path: cfg.Output, Format: cfg.ResolvedOutputFormat()}
		if err := sink.Store(ctx, records); err != nil {
			return summary, err
		}
	}
	summary.Duration = time.Since(runStart)
	logger.Info("ventur run complete",
		"output", cfg.Output,
		"writeDuration", time.Since(writeStart).Round(time.Millisecond).String(),
		"totalDuration", summary.Duration.Round(time.Millisecond).String(),
	)
	return summary, nil
}

func (o Options) loggerOrDefault() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// resolveCredentials looks the named set up in the credentials file first, then in
// the environment.
func resolveCredentials(cfg config.Config, getenv func(string) string) (credentials.Credentials, error) {
	var chain credentials.Chain
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		fs, err := credentials.LoadFile(path)
		if err != nil {
			return credentials.Credentials{}, err
		}
		chain = append(chain, fs)
	}
	chain = append(chain, credentials.EnvStore{Getenv: getenv})
	creds, err := chain.Get(cfg.Credential)
	if err != nil {
		return credentials.Credentials{}, fmt.Errorf("credentials: %w", err)
	}
	return creds, nil
}
