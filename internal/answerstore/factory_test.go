package answerstore_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caralabs/carad/internal/answerstore"
	"github.com/caralabs/carad/internal/config"
)

func TestNewStore_UnsupportedBackend(t *testing.T) {
	embedder, err := answerstore.NewOpenAIEmbedder(answerstore.OpenAIEmbedderConfig{
		BaseURL: "http://localhost:8080/v1",
		Model:   "text-embedding-3-small",
	})
	require.NoError(t, err)

	_, err = answerstore.NewStore(config.StoreConfig{Backend: "redis"}, embedder, nil)
	assert.ErrorIs(t, err, answerstore.ErrInvalidConfig)
}

func TestNewStore_Chromem(t *testing.T) {
	embedder, err := answerstore.NewOpenAIEmbedder(answerstore.OpenAIEmbedderConfig{
		BaseURL: "http://localhost:8080/v1",
		Model:   "text-embedding-3-small",
	})
	require.NoError(t, err)

	store, err := answerstore.NewStore(config.StoreConfig{
		Backend: "chromem",
		Path:    t.TempDir(),
	}, embedder, nil)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &answerstore.ChromemStore{}, store)
}

func TestOpenAIEmbedderConfig_Validate(t *testing.T) {
	err := answerstore.OpenAIEmbedderConfig{Model: "m"}.Validate()
	assert.ErrorIs(t, err, answerstore.ErrInvalidConfig)

	err = answerstore.OpenAIEmbedderConfig{BaseURL: "http://localhost"}.Validate()
	assert.ErrorIs(t, err, answerstore.ErrInvalidConfig)

	err = answerstore.OpenAIEmbedderConfig{BaseURL: "http://localhost", Model: "m"}.Validate()
	assert.NoError(t, err)
}
