package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/chriscorrea/tally/internal/app"
	"github.com/chriscorrea/tally/internal/config"
	"github.com/chriscorrea/tally/internal/counter"
	"github.com/chriscorrea/tally/internal/engine"
	"github.com/chriscorrea/tally/internal/server"
	"github.com/chriscorrea/tally/internal/tally"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

// buildConfig constructs an app.Config from command flags and arguments
func buildConfig(cmd *cobra.Command, args []string) (app.Config, error) {
	// get flag values
	per, _ := cmd.Flags().GetBool("per")
	asc, _ := cmd.Flags().GetBool("asc")
	sentences, _ := cmd.Flags().GetBool("sentences")
	tokens, _ := cmd.Flags().GetBool("tokens")
	chars, _ := cmd.Flags().GetBool("chars")
	top, _ := cmd.Flags().GetInt("top")
	match, _ := cmd.Flags().GetString("match")
	keywords, _ := cmd.Flags().GetInt("keywords")
	skipNotices, _ := cmd.Flags().GetBool("skip-notices")
	skipInvalid, _ := cmd.Flags().GetBool("skip-invalid")
	selector, _ := cmd.Flags().GetString("selector")
	readable, _ := cmd.Flags().GetBool("readable")
	mdFlag, _ := cmd.Flags().GetBool("md")
	textFlag, _ := cmd.Flags().GetBool("text")
	jsonFlag, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	debug, _ := cmd.Flags().GetBool("debug")
	configPath, _ := cmd.Flags().GetString("config")

	// determine unit
	unit := counter.Words
	switch {
	case sentences:
		unit = counter.Sentences
	case tokens:
		unit = counter.Tokens
	case chars:
		unit = counter.Characters
	}

	scope := engine.All
	if per {
		scope = engine.Per
	}
	order := tally.Desc
	if asc {
		order = tally.Asc
	}

	engineCfg := engine.Config{
		Scope:       scope,
		Order:       order,
		Unit:        unit,
		Limit:       top,
		Match:       match,
		Keywords:    keywords,
		SkipNotices: skipNotices,
	}
	if err := engineCfg.Validate(); err != nil {
		return app.Config{}, err
	}

	// determine output format
	var outputFormat app.OutputFormat
	switch {
	case textFlag:
		outputFormat = app.Text
	case jsonFlag:
		outputFormat = app.JSON
	case mdFlag:
		outputFormat = app.Markdown
	default:
		outputFormat = app.Markdown // default if no format flag
	}

	// document limits come from the config file and environment
	settings, err := config.Load(configPath)
	if err != nil {
		return app.Config{}, err
	}
	fetchOpts := settings.Documents.FetchOptions()
	fetchOpts.HTML.Selector = selector
	fetchOpts.HTML.Readable = readable

	// no arguments provided - use stdin
	sources := args
	if len(sources) == 0 {
		sources = []string{"-"}
	}

	return app.Config{
		Sources:      sources,
		Engine:       engineCfg,
		Fetch:        fetchOpts,
		OutputFormat: outputFormat,
		SkipInvalid:  skipInvalid,
		Quiet:        quiet,
		Debug:        debug,
	}, nil
}

// setupLogger configures the default slog logger; quiet is the level used
// without --debug
func setupLogger(debug bool, quiet slog.Level) {
	level := quiet
	if debug {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	slog.SetDefault(slog.New(handler))
}

var rootCmd = &cobra.Command{
	Use:   "tally [sources...]",
	Short: "Count and rank who said the most in chat logs",
	Long: `Tally reads chat or message logs where each line looks like "name: message"
and ranks users by how many words (or sentences, tokens, characters) they wrote.
Sources may include local files, URLs, or standard input.

Examples:
  tally day1.txt day2.txt
  tally --per --asc -k 3 logs/*.log
  tally --sentences https://example.com/export.html
  cat irc.log | tally --skip-notices --json`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug, slog.LevelError)

		// build config from flags and arguments
		cfg, err := buildConfig(cmd, args)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}

		// create context with signal handling for graceful shutdown
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := app.Run(ctx, cfg)
		if err != nil {
			return fmt.Errorf("tally failed: %w", err)
		}

		fmt.Print(result)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tally engine over HTTP",
	Long: `Serve starts an HTTP server with POST /all and POST /per multipart endpoints,
a GET /ws websocket session and GET /healthz.

Settings are read from --config (or tally.yaml), then TALLY_* environment variables.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		setupLogger(debug, slog.LevelInfo)

		configPath, _ := cmd.Flags().GetString("config")
		settings, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if port, _ := cmd.Flags().GetString("port"); port != "" {
			settings.Server.Port = port
		}

		srv, err := server.New(settings)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		slog.Info("Shutting down", "addr", srv.Addr())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return <-errCh
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Config file (default: tally.yaml in the working directory)")
	rootCmd.PersistentFlags().BoolP("debug", "D", false, "Enable debug logging")
	_ = rootCmd.PersistentFlags().MarkHidden("debug")

	// engine flags
	rootCmd.Flags().Bool("per", false, "Rank each document separately")
	rootCmd.Flags().Bool("asc", false, "Rank from fewest to most")
	rootCmd.Flags().IntP("top", "k", 0, "Keep only the top K users per list (0 keeps all)")

	// unit flags are mutually exclusive; words are counted by default
	rootCmd.Flags().Bool("sentences", false, "Count sentences")
	rootCmd.Flags().Bool("tokens", false, "Count cl100k_base tokens")
	rootCmd.Flags().Bool("chars", false, "Count characters")
	rootCmd.MarkFlagsMutuallyExclusive("sentences", "tokens", "chars")

	rootCmd.Flags().String("match", "", "Only count messages relevant to this query")
	rootCmd.Flags().Int("keywords", 0, "Show up to N signature keywords per user")
	rootCmd.Flags().Bool("skip-notices", false, "Ignore join, part and topic notices")
	rootCmd.Flags().Bool("skip-invalid", false, "Skip invalid documents with a warning instead of failing")

	// HTML extraction
	rootCmd.Flags().StringP("selector", "s", "", "CSS selector; each match in HTML sources becomes one line")
	rootCmd.Flags().Bool("readable", false, "Extract the main content of HTML sources first")

	// output format flags are mutually exclusive
	rootCmd.Flags().Bool("md", false, "Output a Markdown table (default)")
	rootCmd.Flags().Bool("text", false, "Output a plain text list")
	rootCmd.Flags().Bool("json", false, "Output JSON")
	rootCmd.MarkFlagsMutuallyExclusive("md", "text", "json")

	rootCmd.Flags().BoolP("quiet", "q", false, "Suppress output messages")

	serveCmd.Flags().String("port", "", "Listen address, overrides server.port (e.g. :3000)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
