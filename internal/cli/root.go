// Package cli implements reportctl, the command-line front end for source
// extraction, report inspection, editing, decks and snapshots.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dgallion1/reportsmith/internal/config"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// app holds state shared by all subcommands.
type app struct {
	overlay string
	verbose bool
	jsonOut bool

	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger

	// newLLM builds the generation client; tests replace it.
	newLLM func(cfg config.Config, log *slog.Logger) llm
}

// llm is what the AI-backed commands need from the generation client.
type llm interface {
	Generate(ctx context.Context, req genai.Request) (string, error)
	Classify(ctx context.Context, req genai.ToolRequest) (*genai.ToolResponse, error)
}

// NewRootCmd builds the reportctl command tree.
func NewRootCmd() *cobra.Command {
	a := &app{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		newLLM: func(cfg config.Config, log *slog.Logger) llm {
			return genai.NewClient(genai.Options{
				APIKey:     cfg.AnthropicAPIKey,
				Model:      cfg.AnthropicModel,
				BaseURL:    cfg.AnthropicBaseURL,
				Timeout:    cfg.GenerationTimeout,
				MaxRetries: cfg.GenerationMaxRetries,
				MaxTokens:  cfg.EditMaxTokens,
				Logger:     log,
			})
		},
	}
	return a.rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reportctl",
		Short: "Inspect, edit and present HTML reports",
		Long: `reportctl works on HTML reports from the command line: extract text from
source documents, list sections and cards, apply edit operators, build a
slide deck, run a visual enhancement round, and capture PNG snapshots.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stdout = cmd.OutOrStdout()
			a.stderr = cmd.ErrOrStderr()
			a.stdin = cmd.InOrStdin()
			level := slog.LevelWarn
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&a.overlay, "config", "c", "", "YAML overlay file (palette, report templates)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print machine-readable JSON")

	root.AddCommand(
		a.extractCmd(),
		a.sectionsCmd(),
		a.cardsCmd(),
		a.deckCmd(),
		a.applyCmd(),
		a.enhanceCmd(),
		a.snapshotCmd(),
	)
	return root
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// config loads the environment, .env and the optional overlay.
func (a *app) config() (config.Config, error) {
	_ = godotenv.Load()
	cfg := config.Load()
	if a.overlay != "" {
		cfg.OverlayPath = a.overlay
	}
	if err := cfg.LoadOverlay(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// client returns a generation client, failing early without an API key.
func (a *app) client(cfg config.Config) (llm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return a.newLLM(cfg, a.log), nil
}

// readInput reads a file argument, or stdin for "-".
func (a *app) readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(a.stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// writeOutput writes to path, or stdout when path is empty.
func (a *app) writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := a.stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	a.log.Info("wrote output", "path", path, "bytes", len(data))
	return nil
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
