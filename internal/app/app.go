// Package app contains the core application logic for the tally CLI tool.
// It handles the main business logic separated from CLI concerns.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/fetch"
	"github.com/chriscorrea/tally/internal/spinner"
)

// OutputFormat defines the output format for results
type OutputFormat int

const (
	// markdown table output format (default)
	Markdown OutputFormat = iota
	// plaintext output format
	Text
	// JSON output format
	JSON
)

// String returns the string representation of the output
func (f OutputFormat) String() string {
	switch f {
	case Markdown:
		return "Markdown"
	case Text:
		return "Text"
	case JSON:
		return "JSON"
	default:
		return "Unknown"
	}
}

// Config holds all configuration options for the tally application.
type Config struct {
	Sources      []string      // URLs, file paths, or "-" for stdin
	Engine       engine.Config // scope, order, unit, limit and enrichment options
	Fetch        fetch.Options // document checks, HTML extraction, loader parallelism
	OutputFormat OutputFormat  // output format (md/txt/json)
	SkipInvalid  bool          // drop invalid documents with a warning instead of failing
	Quiet        bool          // suppress info messages
	Debug        bool

	// Stderr receives warnings; os.Stderr when nil.
	Stderr io.Writer
}

// Run executes the main tally application logic with the given configuration.
//
// Processing Pipeline:
// 1. Load every source concurrently, keeping input order (fetch.LoadAll)
// 2. Apply the invalid-document policy
// 3. Count and rank (engine.Run), then render in the requested format
//
// ctx allows for cancellation of in-flight loads.
func Run(ctx context.Context, cfg Config) (string, error) {
	if len(cfg.Sources) == 0 {
		return "", fmt.Errorf("no sources provided")
	}
	stderr := cfg.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	// step 1: load sources
	docs, err := loadSources(ctx, cfg, stderr)
	if err != nil {
		return "", err
	}

	// step 2: invalid-document policy
	if cfg.SkipInvalid {
		var dropped []string
		docs, dropped = fetch.ValidOnly(docs)
		if !cfg.Quiet {
			for _, name := range dropped {
				fmt.Fprintf(stderr, "Warning: skipping invalid document %q\n", name)
			}
		}
	} else if err := fetch.CheckAll(docs); err != nil {
		return "", err
	}

	// step 3: count, rank and render
	out, err := engine.Run(docs, cfg.Engine)
	if err != nil {
		return "", err
	}
	slog.Debug("Ranked tallies", "documents", len(docs), "lists", len(out.Lists))

	return Format(out, docs, cfg.Engine, cfg.OutputFormat)
}

// loadSources fetches every source behind a spinner on terminals.
func loadSources(ctx context.Context, cfg Config, stderr io.Writer) ([]engine.Document, error) {
	opts := cfg.Fetch
	var sp *spinner.Spinner
	if !cfg.Quiet {
		sp = spinner.ForTerminal(ctx, stderr, "Loading sources...", len(cfg.Sources))
		opts.Progress = sp.Done
	}
	defer sp.Stop()

	docs, err := fetch.LoadAll(ctx, cfg.Sources, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	return docs, nil
}
