package idgen

import (
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULID generates lexicographically sortable identifiers. Ids generated in the
// same millisecond by one generator are strictly increasing.
type ULID struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

// NewULID creates a new ULID generator.
func NewULID() *ULID {
	return &ULID{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Generate returns the next ULID string.
func (g *ULID) Generate() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(g.now()), g.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate ULID: %w", err)
	}
	return id.String(), nil
}
