package driven

import (
	"context"
	"time"
)

// AnswerCache stores final answers keyed by request fingerprint.
// A miss is reported by ok == false, not by an error.
type AnswerCache interface {
	// Get returns a cached answer.
	Get(ctx context.Context, key string) (answer string, ok bool, err error)

	// Set stores an answer for ttl.
	Set(ctx context.Context, key, answer string, ttl time.Duration) error

	// Close releases resources.
	Close() error
}
