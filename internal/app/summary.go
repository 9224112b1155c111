package app

import (
	"fmt"
	"io"
	"os"
	"strings"

	"stockdash/internal/config"
)

// StartupSummary is printed once before the server starts.
type StartupSummary struct {
	Env            string
	BaseURL        string
	BaseURLSource  config.BaseURLSource
	TimeoutSeconds int
	Circuit        string
	HTTPAddr       string
	JournalPath    string
	StrategyTypes  []string
	DefaultType    string

	out io.Writer
}

func newStartupSummary(cfg *config.Config, baseURL string, source config.BaseURLSource, types []string) *StartupSummary {
	circuit := "off"
	if cfg.API.CircuitThreshold > 0 {
		circuit = fmt.Sprintf("%d failures / %ds cooldown", cfg.API.CircuitThreshold, cfg.API.CircuitCooldownSeconds)
	}
	journalPath := ""
	if cfg.Journal.Enabled {
		journalPath = cfg.Journal.Path
	}
	return &StartupSummary{
		Env:            cfg.App.Env,
		BaseURL:        baseURL,
		BaseURLSource:  source,
		TimeoutSeconds: cfg.API.TimeoutSeconds,
		Circuit:        circuit,
		HTTPAddr:       cfg.App.HTTPAddr,
		JournalPath:    journalPath,
		StrategyTypes:  types,
		DefaultType:    cfg.Strategy.DefaultType,
	}
}

func (s *StartupSummary) Print() {
	w := s.out
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "STOCKDASH STARTUP SUMMARY")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "  env:            %s\n", orDash(s.Env))
	fmt.Fprintf(w, "  backend:        %s (%s)\n", s.BaseURL, s.BaseURLSource)
	fmt.Fprintf(w, "  timeout:        %ds\n", s.TimeoutSeconds)
	fmt.Fprintf(w, "  circuit:        %s\n", s.Circuit)
	fmt.Fprintf(w, "  view server:    http://%s\n", s.HTTPAddr)
	fmt.Fprintf(w, "  journal:        %s\n", orDash(s.JournalPath))
	fmt.Fprintf(w, "  strategy types: %s (default %s)\n", formatList(s.StrategyTypes), orDash(s.DefaultType))
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
