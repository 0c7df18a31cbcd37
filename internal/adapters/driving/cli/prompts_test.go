package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/htp-rag/internal/adapters/driven/config/file"
)

func executePrompts(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(append([]string{"prompts"}, args...))
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestPromptsList(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executePrompts(t, "list")

	require.NoError(t, err)
	assert.Equal(t, "generate_answer\nrelevance_check\n", out)
}

func TestPromptsDump_PlainCatalog(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executePrompts(t, "dump")

	require.NoError(t, err)
	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, promptCatalog.(*mockPromptCatalog).templates, got)
}

func TestPromptsDump_FileCatalogRoundTrips(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	catalog, err := file.LoadPromptCatalog("")
	require.NoError(t, err)
	promptCatalog = catalog

	out, err := executePrompts(t, "dump")

	require.NoError(t, err)
	assert.Contains(t, out, "relevance_check: |")

	var got map[string]string
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	for _, name := range catalog.Names() {
		want, _ := catalog.Template(name)
		assert.Equal(t, want, got[name], name)
	}
}

func TestPromptsList_BuiltinWithoutInjectedCatalog(t *testing.T) {
	defer resetServices()
	t.Setenv("HTP_PROMPTS_PATH", "")

	out, err := executePrompts(t, "list", "--config", t.TempDir())

	require.NoError(t, err)
	assert.ElementsMatch(t, file.RequiredPrompts, splitLines(out))
}

func splitLines(s string) []string {
	var lines []string
	for _, line := range bytes.Split(bytes.TrimRight([]byte(s), "\n"), []byte("\n")) {
		lines = append(lines, string(line))
	}
	return lines
}
