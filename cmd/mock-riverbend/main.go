package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/riverbend-io/riverbend-client-go/internal/mockengine"
)

func main() {
	addr := defaultString("MOCK_RIVERBEND_ADDR", ":8080")
	inputDir := defaultString("MOCK_RIVERBEND_INPUT_DIR", "/data/inputs")
	token := defaultString("MOCK_RIVERBEND_TOKEN", "")

	fs := flag.NewFlagSet("mock-riverbend", flag.ExitOnError)
	fs.StringVar(&addr, "addr", addr, "Listen address")
	fs.StringVar(&inputDir, "input-dir", inputDir, "Directory containing input JSONL files named <source>.jsonl")
	fs.StringVar(&token, "token", token, "Bearer token to require (empty disables auth)")
	_ = fs.Parse(os.Args[1:])

	srv := mockengine.New(inputDir)
	if strings.TrimSpace(token) != "" {
		srv.RequireBearerToken(token)
	}

	_, _ = fmt.Fprintf(os.Stdout, "mock-riverbend listening on %s (input=%s)\n", addr, inputDir)
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
