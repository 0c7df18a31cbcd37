package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/htp-rag/internal/adapters/driving/tui"
	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

var tuiCategory string

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interpret observations interactively",
	Long: `Opens an interactive terminal interface for interpreting observations.

Pick the drawing with tab, type an observation and press enter.
Toggle trace mode with ctrl+t to see the workflow steps and the
passages each answer is grounded on. Press f1 for help.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiCategory, "category", "c", "", "initial drawing category (HOME, TREE, PERSON1, PERSON2)")
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	category := domain.CategoryHome
	if tuiCategory != "" {
		c, ok := domain.ParseCategory(tuiCategory)
		if !ok {
			return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidInput, tuiCategory)
		}
		category = c
	}

	svc, err := requireAnalysis(cmd.Context())
	if err != nil {
		return err
	}

	app, err := tui.NewApp(tui.NewPorts(svc))
	if err != nil {
		return err
	}
	return app.WithContext(cmd.Context()).WithCategory(category).Run()
}
