package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/FrenchMajesty/comment-labeler/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	configPath string
	verbose    bool

	appConfig *config.Config
	logger    *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "labeler",
	Short: "Label spreadsheet comments with an LLM",
	Long: `labeler sends every comment of a spreadsheet to a chat model with an
instruction prompt and writes the returned labels to a CSV file.

Input files have no header row: column 1 is the ID, column 2 the comment.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		appConfig = cfg

		logger, err = buildLogger(cfg.Logging.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// buildLogger creates the production logger at the configured level
func buildLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()

	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	return cfg.Build()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "labeler.yaml", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
