package modules_test

import (
	"testing"

	"github.com/caralabs/carad/internal/modules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAll(t *testing.T) {
	all := modules.All()
	require.Len(t, all, 6)

	seen := map[string]bool{}
	for _, m := range all {
		assert.NotEmpty(t, m.ID)
		assert.NotEmpty(t, m.Name)
		assert.NotEmpty(t, m.Collection)
		assert.NotEmpty(t, m.SystemPrompt)
		assert.False(t, seen[m.Collection], "duplicate collection %s", m.Collection)
		seen[m.Collection] = true
	}
}

func TestLookup(t *testing.T) {
	m, ok := modules.Lookup("1")
	require.True(t, ok)
	assert.Equal(t, "ISO Bot", m.Name)

	_, ok = modules.Lookup("99")
	assert.False(t, ok)
}

func TestCollectionFor(t *testing.T) {
	assert.Equal(t, "iso_bot", modules.CollectionFor("1"))
	assert.Equal(t, "security_advisor", modules.CollectionFor("6"))
	assert.Equal(t, modules.DefaultCollection, modules.CollectionFor(""))
	assert.Equal(t, modules.DefaultCollection, modules.CollectionFor("unknown"))
}

func TestPromptFor(t *testing.T) {
	assert.Contains(t, modules.PromptFor("2"), "RiskBot")
	assert.Equal(t, modules.BasePrompt, modules.PromptFor(""))
	assert.Equal(t, modules.BasePrompt, modules.PromptFor("99"))
}
