package coordinator

import (
	"fmt"
	"sync/atomic"

	"github.com/caralabs/carad/internal/fingerprint"
)

// taskIDGenerator issues task ids unique for the process lifetime.
//
// Ids combine a monotonic counter with a fingerprint-derived salt, so they
// stay unique under concurrency where a wall-clock scheme would collide.
// Callers must treat them as opaque.
type taskIDGenerator struct {
	counter atomic.Uint64
}

func (g *taskIDGenerator) next(fp fingerprint.Fingerprint) string {
	return fmt.Sprintf("task_%d_%s", g.counter.Add(1), fp.Short())
}
