package answerstore

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/caralabs/carad/internal/config"
)

// NewStore creates a Store based on the configuration.
//
// The Backend field selects the implementation:
//   - "chromem" (default): embedded ChromemStore, no external services
//   - "qdrant": QdrantStore against an external Qdrant server
func NewStore(cfg config.StoreConfig, embedder *OpenAIEmbedder, logger *zap.Logger) (Store, error) {
	switch cfg.Backend {
	case "chromem", "":
		return NewChromemStore(ChromemConfig{Path: cfg.Path}, embedder, logger)
	case "qdrant":
		return NewQdrantStore(QdrantConfig{
			URL:              cfg.QdrantURL,
			CollectionPrefix: cfg.CollectionPrefix,
		}, embedder.Langchain(), logger)
	default:
		return nil, fmt.Errorf("%w: unsupported store backend %q (supported: chromem, qdrant)", ErrInvalidConfig, cfg.Backend)
	}
}
