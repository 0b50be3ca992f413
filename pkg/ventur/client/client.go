package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/venturhq/ventur-connector/pkg/pipeline/core"
	"github.com/venturhq/ventur-connector/pkg/ventur/credentials"
)

// Doer sends one JSON POST to a path under the configured base URL and returns the
// raw JSON response.
type Doer interface {
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// Client is a minimal HTTP client for the Ventur API.
type Client struct {
	baseURL *url.URL
	apiKey  string
	http    *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (tests use httptest.Server.Client()).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New constructs a client for the credential set.
//
// caPath is optional and, when provided, will be used as the trust store for TLS.
func New(creds credentials.Credentials, caPath string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(creds.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	base, err := parseBaseURL(creds.BaseURL)
	if err != nil {
		return nil, err
	}
	hc, err := newHTTPClient(caPath)
	if err != nil {
		return nil, err
	}
	c := &Client{
		baseURL: base,
		apiKey:  strings.TrimSpace(creds.APIKey),
		http:    hc,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL must include a host (got %q)", raw)
	}
	// Endpoint paths are absolute (/api/v1/...); keep any base prefix without a trailing slash.
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

func newHTTPClient(caPath string) (*http.Client, error) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if strings.TrimSpace(caPath) != "" {
		b, err := os.ReadFile(strings.TrimSpace(caPath))
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		pool := x509.NewCertPool()
		if ok := pool.AppendCertsFromPEM(b); !ok {
			return nil, fmt.Errorf("parse CA bundle PEM: no certs found")
		}
		tr.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	}
	return &http.Client{
		Transport: tr,
		Timeout:   60 * time.Second,
	}, nil
}

// URL returns the absolute URL for an endpoint path.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// Post sends body as JSON to path. Transport failures come back as *core.NetworkError;
// non-2xx responses and bodies that are not JSON come back as *core.RemoteError.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	op := strings.TrimSpace(path)
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: stripURL(err)}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode/100 != 2 {
		return nil, &core.RemoteError{Err: newHTTPError(op, resp, b)}
	}

	trimmed := bytes.TrimSpace(b)
	// A 2xx with no body (204 and friends) is an empty success.
	if len(trimmed) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(trimmed) {
		return nil, &core.RemoteError{Err: fmt.Errorf("ventur api: op=%s: response is not valid JSON (body=%s)", op, redactAndTruncate(b))}
	}
	return json.RawMessage(trimmed), nil
}

// stripURL drops the *url.Error wrapper so messages read "connection refused" rather
// than repeating the full request URL.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) && ue.Err != nil {
		return ue.Err
	}
	return err
}
