// Package dispatch drives a batch of items through the endpoint catalog and the
// Ventur API, one item at a time, producing one Record per item.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
	"github.com/venturhq/ventur-connector/pkg/pipeline/redact"
	"github.com/venturhq/ventur-connector/pkg/pipeline/worker"
	"github.com/venturhq/ventur-connector/pkg/ventur/catalog"
	"github.com/venturhq/ventur-connector/pkg/ventur/client"
	"github.com/venturhq/ventur-connector/pkg/ventur/credentials"
)

// EndpointField is the host parameter that selects the endpoint for an item.
const EndpointField = "endpoint"

// Record is the outcome for one input item: {ok:true,data} or {ok:false,error}.
type Record struct {
	OK    bool            `json:"ok"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error string          `json:"error,omitempty"`

	Index    int              `json:"-"`
	Endpoint catalog.Endpoint `json:"-"`
	Err      error            `json:"-"`
}

// Selector returns the endpoint identifier for the item at index.
type Selector func(index int) (string, error)

// Fixed selects the same endpoint for every item.
func Fixed(endpoint string) Selector {
	return func(int) (string, error) { return endpoint, nil }
}

// FromField reads the endpoint for each item from a resolver field, falling back to
// def when the field is absent.
func FromField(resolver core.FieldResolver, field, def string) Selector {
	return func(index int) (string, error) {
		v, err := resolver.Field(field, index)
		if err != nil {
			return "", &core.FieldError{Field: field, Err: err}
		}
		if s := strings.TrimSpace(stringValue(v)); s != "" {
			return s, nil
		}
		return def, nil
	}
}

// Options configures a batch run.
type Options struct {
	// Catalog defaults to catalog.Default.
	Catalog *catalog.Catalog

	// Doer overrides the HTTP client built from the credentials.
	Doer client.Doer
	// CAPath is passed to client.New when Doer is nil.
	CAPath string

	FailurePolicy worker.FailurePolicy
	RateLimitRPS  float64

	// Simplify applies when the naming scheme has no simplify field or the item leaves it unset.
	Simplify bool

	Now    func() time.Time
	Logger *slog.Logger
	RunID  string

	// OnRecord is called for each record in input order: as each item completes under
	// FailurePolicyPartialOutput, and only after the whole batch succeeds under
	// FailurePolicyFailFast.
	OnRecord func(Record) error
}

// Run processes items sequentially. Output is index-aligned with items.
//
// With worker.FailurePolicyPartialOutput every failure becomes an {ok:false} record
// and processing continues. With worker.FailurePolicyFailFast the first failure is
// returned and no records are.
func Run[In any](
	ctx context.Context,
	items []In,
	sel Selector,
	resolver core.FieldResolver,
	creds credentials.Credentials,
	opts Options,
) ([]Record, error) {
	d, err := New(creds, opts)
	if err != nil {
		return nil, err
	}
	return RunWith(ctx, d, items, sel, resolver)
}

// RunWith processes items with an existing dispatcher.
func RunWith[In any](ctx context.Context, d *Dispatcher, items []In, sel Selector, resolver core.FieldResolver) ([]Record, error) {
	processor := func(ctx context.Context, index int, _ In) (Record, error) {
		return d.Process(ctx, index, sel, resolver)
	}

	// Fail-fast runs hold records back until the batch succeeds, so an abort never
	// hands out partial output.
	streaming := d.opts.OnRecord != nil && d.opts.FailurePolicy != worker.FailurePolicyFailFast
	var onResult func(worker.Result[In, Record]) error
	if streaming {
		onResult = func(res worker.Result[In, Record]) error {
			return d.opts.OnRecord(res.Output)
		}
	}

	out, err := worker.ProcessAllWithCallback(ctx, items, processor, onResult, worker.Options{
		RateLimitRPS:  d.opts.RateLimitRPS,
		FailurePolicy: d.opts.FailurePolicy,
	})
	if err != nil {
		return nil, err
	}

	records := make([]Record, len(out))
	for i, res := range out {
		records[i] = res.Output
	}
	if d.opts.OnRecord != nil && !streaming {
		for _, rec := range records {
			if err := d.opts.OnRecord(rec); err != nil {
				return nil, err
			}
		}
	}
	return records, nil
}

// Dispatcher holds the per-batch state shared by all items: the catalog, the client
// and the read-only credentials behind it.
type Dispatcher struct {
	catalog *catalog.Catalog
	doer    client.Doer
	opts    Options
	logger  *slog.Logger
	apiKey  string
}

// New builds a dispatcher for one batch.
func New(creds credentials.Credentials, opts Options) (*Dispatcher, error) {
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	doer := opts.Doer
	if doer == nil {
		c, err := client.New(creds, opts.CAPath)
		if err != nil {
			return nil, err
		}
		doer = c
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.RunID != "" {
		logger = logger.With("run", opts.RunID)
	}
	return &Dispatcher{
		catalog: opts.Catalog,
		doer:    doer,
		opts:    opts,
		logger:  logger,
		apiKey:  creds.APIKey,
	}, nil
}

// Process handles the item at index. The returned Record is always populated; the
// error is non-nil exactly when Record.OK is false.
func (d *Dispatcher) Process(ctx context.Context, index int, sel Selector, resolver core.FieldResolver) (Record, error) {
	start := time.Now()
	rec, err := d.process(ctx, index, sel, resolver)
	rec.Index = index
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		msg := redact.Value(redact.Secrets(err.Error()), d.apiKey)
		rec.OK = false
		rec.Data = nil
		rec.Error = msg
		rec.Err = err
		d.logger.Warn("ventur item failed",
			"item", index,
			"endpoint", string(rec.Endpoint),
			"duration", elapsed.String(),
			"error", msg,
		)
		return rec, err
	}

	rec.OK = true
	d.logger.Info("ventur item ok",
		"item", index,
		"endpoint", string(rec.Endpoint),
		"duration", elapsed.String(),
		"bytes", len(rec.Data),
	)
	return rec, nil
}

func (d *Dispatcher) process(ctx context.Context, index int, sel Selector, resolver core.FieldResolver) (Record, error) {
	var rec Record

	id, err := sel(index)
	if err != nil {
		return rec, err
	}
	spec, err := d.catalog.Resolve(id)
	if err != nil {
		return rec, err
	}
	rec.Endpoint = spec.Endpoint

	simplify, err := d.simplify(index, resolver)
	if err != nil {
		return rec, err
	}

	values := make(map[string]core.Value, len(spec.Inputs()))
	for _, name := range spec.Inputs() {
		v, err := resolver.Field(name, index)
		if err != nil {
			return rec, &core.FieldError{Field: name, Err: err}
		}
		values[name] = v
	}

	body, err := catalog.BuildBody(spec, values, d.opts.Now())
	if err != nil {
		return rec, err
	}
	d.logger.Debug("ventur request", "item", index, "endpoint", string(spec.Endpoint), "path", spec.Path)

	raw, err := d.doer.Post(ctx, spec.Path, body)
	if err != nil {
		return rec, err
	}

	if simplify {
		wrapped, err := json.Marshal(struct {
			Simplified bool            `json:"simplified"`
			Data       json.RawMessage `json:"data"`
		}{Simplified: true, Data: raw})
		if err != nil {
			return rec, fmt.Errorf("wrap response: %w", err)
		}
		raw = wrapped
	}
	rec.Data = raw
	return rec, nil
}

func (d *Dispatcher) simplify(index int, resolver core.FieldResolver) (bool, error) {
	field := d.catalog.Scheme().SimplifyField
	if field == "" {
		return d.opts.Simplify, nil
	}
	v, err := resolver.Field(field, index)
	if err != nil {
		return false, &core.FieldError{Field: field, Err: err}
	}
	switch t := v.(type) {
	case nil:
		return d.opts.Simplify, nil
	case bool:
		return t, nil
	default:
		s := strings.TrimSpace(stringValue(v))
		if s == "" {
			return d.opts.Simplify, nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid %s=%q: %w", field, s, err)
		}
		return b, nil
	}
}

// Counts returns the number of successful and failed records.
func Counts(records []Record) (ok int, failed int) {
	for _, r := range records {
		if r.OK {
			ok++
			continue
		}
		failed++
	}
	return ok, failed
}

func stringValue(v core.Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
