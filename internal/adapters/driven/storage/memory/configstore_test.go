package memory

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore(t *testing.T) {
	store := NewConfigStore()
	require.NotNil(t, store)
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Set_Update(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("llm.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("llm.model", "gpt-4o"))

	val, ok := store.Get("llm.model")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o", val)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("retrieval.k", 3)
	_ = store.Set("retrieval.weight_lexical", 0.3)
	_ = store.Set("engine.max_steps", int64(15))
	_ = store.Set("llm.provider", "openai")

	assert.Equal(t, 3, store.GetInt("retrieval.k"))
	assert.InDelta(t, 0.3, store.GetFloat("retrieval.weight_lexical"), 1e-12)
	assert.InDelta(t, 3.0, store.GetFloat("retrieval.k"), 1e-12)
	assert.Equal(t, 15, store.GetInt("engine.max_steps"))
	assert.Equal(t, "openai", store.GetString("llm.provider"))
}

func TestConfigStore_MissingOrWrongType(t *testing.T) {
	store := NewConfigStore()
	_ = store.Set("retrieval.k", "three")

	assert.Equal(t, 0, store.GetInt("retrieval.k"))
	assert.Equal(t, 0.0, store.GetFloat("retrieval.k"))
	assert.Equal(t, "", store.GetString("missing"))
	assert.Equal(t, 0, store.GetInt("missing"))
}

func TestConfigStore_SaveLoadNoop(t *testing.T) {
	store := NewConfigStore()
	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := NewConfigStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("engine.max_steps", n)
		}(i)
		go func() {
			defer wg.Done()
			_ = store.GetInt("engine.max_steps")
		}()
	}
	wg.Wait()

	_, ok := store.Get("engine.max_steps")
	assert.True(t, ok)
}
