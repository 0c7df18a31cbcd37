package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/htp-rag/internal/core/domain"
)

func TestTUICmd_Use(t *testing.T) {
	assert.Equal(t, "tui", tuiCmd.Use)
	assert.Contains(t, tuiCmd.Long, "ctrl+t")
}

func TestTUICmd_HasCategoryFlag(t *testing.T) {
	flag := tuiCmd.Flags().Lookup("category")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestTUICmd_RejectsUnknownCategory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	rootCmd.SetArgs([]string{"tui", "--category", "PERSON3"})
	err := rootCmd.Execute()

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Contains(t, err.Error(), "PERSON3")
}
