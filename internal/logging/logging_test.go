package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("builds json logger", func(t *testing.T) {
		logger, err := New("info", "json")
		require.NoError(t, err)
		require.NotNil(t, logger)
		assert.False(t, logger.Core().Enabled(-1)) // debug disabled at info level
	})

	t.Run("builds console logger at debug level", func(t *testing.T) {
		logger, err := New("debug", "console")
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(-1))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		_, err := New("verbose", "json")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		_, err := New("info", "logfmt")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log format")
	})
}

func TestSync(t *testing.T) {
	logger, err := New("info", "json")
	require.NoError(t, err)

	// Syncing a stderr-backed logger must not surface EINVAL/ENOTTY.
	assert.NoError(t, Sync(logger))
}
