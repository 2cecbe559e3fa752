package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"github.com/FrenchMajesty/comment-labeler/internal/config"
	"github.com/FrenchMajesty/comment-labeler/internal/metrics"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runOptions holds the flags of `labeler run`
type runOptions struct {
	file        string
	prompt      string
	promptSet   bool
	promptFile  string
	out         string
	apiKey      string
	model       string
	provider    string
	sheet       string
	metricsFile string
}

var runOpts runOptions

// runCmd labels one spreadsheet
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Label every comment of a spreadsheet",
	Long: `Reads --file (.xlsx, .xlsm, .csv or .tsv), classifies every comment in
order and writes ID, Comment and Sentiment columns to --out.

A row whose classification call fails is labeled "Error" and the run goes on.`,
	Example: `  labeler run --file comments.xlsx
  labeler run --file comments.csv --prompt "Is this comment spam? Answer yes or no." --out -`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		runOpts.promptSet = cmd.Flags().Changed("prompt")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runLabel(ctx, appConfig, runOpts, nil, cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.file, "file", "f", "", "Spreadsheet to label")
	f.StringVarP(&runOpts.prompt, "prompt", "p", "", "Instruction template (default from config)")
	f.StringVar(&runOpts.promptFile, "prompt-file", "", "Read the instruction template from a file")
	f.StringVarP(&runOpts.out, "out", "o", "", "Output CSV path, - for stdout (default from config)")
	f.StringVar(&runOpts.apiKey, "api-key", "", "Provider API key (default from config or environment)")
	f.StringVar(&runOpts.model, "model", "", "Chat model")
	f.StringVar(&runOpts.provider, "provider", "", "Provider: openai or anthropic")
	f.StringVar(&runOpts.sheet, "sheet", "", "Worksheet to read from workbook files")
	f.StringVar(&runOpts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	runCmd.MarkFlagsMutuallyExclusive("prompt", "prompt-file")
}

// runLabel applies flag overrides, runs the labeler and writes the results
func runLabel(ctx context.Context, cfg *config.Config, opts runOptions, newClient labeler.ClientFactory, stdout, stderr io.Writer) error {
	if opts.provider != "" {
		cfg.LLM.Provider = opts.provider
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	if opts.sheet != "" {
		cfg.Input.Sheet = opts.sheet
	}
	if opts.out != "" {
		cfg.Output.Path = opts.out
	}
	if opts.metricsFile != "" {
		cfg.Metrics.Textfile = opts.metricsFile
	}

	// Resolved after the provider override so the key matches the provider
	apiKey := opts.apiKey
	if apiKey == "" {
		apiKey = cfg.ResolveAPIKey()
	}
	if strings.TrimSpace(apiKey) == "" {
		return &labeler.MissingInputError{Input: labeler.InputAPIKey}
	}

	file, err := loadFile(opts.file, cfg.Input.Sheet)
	if err != nil {
		return err
	}

	prompt, err := resolvePrompt(cfg, opts)
	if err != nil {
		return err
	}

	log := logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", uuid.NewString()))
	recorder := metrics.NewRecorder()

	lc := cfg.LabelerConfig(apiKey, file, prompt)
	lc.NewClient = newClient
	lc.Logger = log
	lc.Reporter = labeler.Reporters{labeler.NewLogReporter(log), recorder}

	table, err := labeler.Run(ctx, lc)
	if err != nil {
		return err
	}

	if err := writeResults(table, cfg.Output.Path, stdout); err != nil {
		return err
	}

	if cfg.Metrics.Textfile != "" {
		if err := recorder.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}

	fmt.Fprintf(stderr, "Labeled %d rows (%d failed) -> %s\n", table.Len(), table.Failed(), outputName(cfg.Output.Path))
	return nil
}

// resolvePrompt picks the template from --prompt-file, --prompt, then config
func resolvePrompt(cfg *config.Config, opts runOptions) (string, error) {
	switch {
	case opts.promptFile != "":
		data, err := os.ReadFile(opts.promptFile)
		if err != nil {
			return "", fmt.Errorf("failed to read prompt file: %w", err)
		}
		return string(data), nil
	case opts.promptSet:
		return opts.prompt, nil
	default:
		return cfg.Prompt.Template, nil
	}
}

// loadFile reads the input spreadsheet. An empty path yields nil so the run reports it as missing;
// an unreadable one is a *labeler.ParseError.
func loadFile(path, sheet string) (*labeler.File, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &labeler.ParseError{Name: path, Err: err}
	}

	return &labeler.File{Name: filepath.Base(path), Data: data, Sheet: sheet}, nil
}

func writeResults(table *labeler.OutputTable, path string, stdout io.Writer) error {
	if path == "-" {
		return table.WriteCSV(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if err := table.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputName(path string) string {
	if path == "-" {
		return "stdout"
	}
	return path
}
