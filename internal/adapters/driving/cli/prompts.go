package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Inspect the prompt catalog",
	Long: `Inspect the prompt templates used by the workflow.

Templates come from prompts.path (or HTP_PROMPTS_PATH) when set, and from
the built-in catalog otherwise. Dump the built-in catalog to start a
custom one:

  htp prompts dump > ~/.htp/prompts.yaml`,
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List template names",
	Args:  cobra.NoArgs,
	RunE:  runPromptsList,
}

var promptsDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Write the effective catalog as YAML",
	Args:  cobra.NoArgs,
	RunE:  runPromptsDump,
}

func init() {
	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsDumpCmd)
	rootCmd.AddCommand(promptsCmd)
}

func runPromptsList(cmd *cobra.Command, _ []string) error {
	catalog, err := requirePrompts()
	if err != nil {
		return err
	}
	for _, name := range catalog.Names() {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runPromptsDump(cmd *cobra.Command, _ []string) error {
	catalog, err := requirePrompts()
	if err != nil {
		return err
	}

	// Catalogs that know their YAML form keep block scalars.
	var doc any = catalog
	if _, ok := catalog.(yaml.Marshaler); !ok {
		templates := make(map[string]string, len(catalog.Names()))
		for _, name := range catalog.Names() {
			text, _ := catalog.Template(name)
			templates[name] = text
		}
		doc = templates
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal prompts: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
