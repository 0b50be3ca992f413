// Package mockventur is an in-process stand-in for the Ventur API used by tests and
// local runs. Every catalog endpoint echoes the request it received.
package mockventur

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/venturhq/ventur-connector/pkg/ventur/catalog"
)

// Call records a request made to the mock service.
type Call struct {
	Method      string
	Path        string
	APIKey      string
	ContentType string
	Body        map[string]any
}

// Response is the payload every endpoint returns on success.
type Response struct {
	Endpoint string         `json:"endpoint"`
	Status   string         `json:"status"`
	Request  map[string]any `json:"request"`
}

type failure struct {
	status int
	body   string
}

// Server implements the Ventur endpoint surface.
type Server struct {
	mu    sync.Mutex
	calls []Call

	expectedAPIKey string

	// failures is keyed by the primary input value (query, company_name or search_input).
	failures map[string]failure
	// raw overrides the response body for a primary input value.
	raw map[string]string
}

// New constructs a new mock server.
func New() *Server {
	return &Server{
		failures: make(map[string]failure),
		raw:      make(map[string]string),
	}
}

// RequireAPIKey enforces that requests carry X-API-Key equal to key.
// If key is empty, the header is not checked.
func (s *Server) RequireAPIKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expectedAPIKey = strings.TrimSpace(key)
}

// FailOn makes requests whose primary input equals value fail with status and body.
func (s *Server) FailOn(value string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[value] = failure{status: status, body: body}
}

// RespondRaw makes requests whose primary input equals value receive body verbatim
// with a 200 status.
func (s *Server) RespondRaw(value string, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[value] = body
}

// Handler returns an http.Handler that serves the mock API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.authorize)

	for _, spec := range catalog.Default.Endpoints() {
		r.Post(spec.Path, s.handleEndpoint(spec.Endpoint))
	}
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.recordCall(r, nil)
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such endpoint: " + r.URL.Path})
	})
	return r
}

// Calls returns a snapshot of calls made to the server.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Server) recordCall(r *http.Request, body map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, Call{
		Method:      r.Method,
		Path:        r.URL.Path,
		APIKey:      r.Header.Get("X-API-Key"),
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
}

func (s *Server) authorize(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		expected := s.expectedAPIKey
		s.mu.Unlock()

		if expected != "" && r.Header.Get("X-API-Key") != expected {
			s.recordCall(r, nil)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid API key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleEndpoint(endpoint catalog.Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			s.recordCall(r, nil)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "read body"})
			return
		}
		var body map[string]any
		if err := json.Unmarshal(b, &body); err != nil {
			s.recordCall(r, nil)
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		s.recordCall(r, body)

		key := primaryInput(body)
		s.mu.Lock()
		f, failing := s.failures[key]
		raw, hasRaw := s.raw[key]
		s.mu.Unlock()

		if failing {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, f.body)
			return
		}
		if hasRaw {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, raw)
			return
		}

		writeJSON(w, http.StatusOK, Response{
			Endpoint: string(endpoint),
			Status:   "ok",
			Request:  body,
		})
	}
}

func primaryInput(body map[string]any) string {
	for _, k := range []string{"query", "company_name", "search_input"} {
		if v, ok := body[k].(string); ok {
			return v
		}
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
