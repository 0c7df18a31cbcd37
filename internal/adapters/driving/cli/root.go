// Package cli provides the htp command line interface.
package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/htp-rag/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	configDir string
	verbose   bool
)

var rootCmd = &cobra.Command{
	Use:   "htp",
	Short: "Interpret House-Tree-Person drawing observations",
	Long: `htp answers questions about House-Tree-Person (HTP) drawings.

Each observation is checked for relevance, split into sub-questions,
matched against a pool of interpretation passages with hybrid
(BM25 + semantic) retrieval, answered by an LLM and checked for
unsupported claims before it is returned.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return loadDotEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "config directory (default ~/.htp)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log workflow progress to stderr")
	rootCmd.Version = version
}

// Execute runs the root command and releases any services it built.
func Execute() error {
	defer closeServices()
	return rootCmd.Execute()
}

// loadDotEnv reads .env from the working directory. Variables already set
// in the environment win.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
