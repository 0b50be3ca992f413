package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/venturhq/ventur-connector/pkg/mockventur"
)

func main() {
	addr := defaultString("MOCK_VENTUR_ADDR", ":8080")
	apiKey := defaultString("MOCK_VENTUR_API_KEY", "")

	fs := flag.NewFlagSet("mock-ventur", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&apiKey, "api-key", apiKey, "Required X-API-Key value; empty accepts any key (env: MOCK_VENTUR_API_KEY)")
	_ = fs.Parse(os.Args[1:])

	srv := mockventur.New()
	srv.RequireAPIKey(apiKey)

	_, _ = fmt.Fprintf(os.Stdout, "mock-ventur listening on %s (api key required=%t)\n", addr, apiKey != "")
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func defaultString(envVar string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(envVar))
	if v == "" {
		return fallback
	}
	return v
}
