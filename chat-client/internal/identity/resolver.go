// Package identity maps account identifiers to display names for the chat
// client. Lookups go to the identity store once per account; accounts the
// store cannot answer for get the deterministic generated name.
package identity

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/names"
)

// ErrNotFound is returned by a Store that has no display name for an account.
var ErrNotFound = errors.New("display name not found")

// Store looks up registered display names.
type Store interface {
	FindDisplayName(ctx context.Context, accountID string) (string, error)
}

// Resolver caches display names for the lifetime of a session. Entries are
// never invalidated.
type Resolver struct {
	store  Store
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]string
	sf    singleflight.Group
}

// NewResolver creates a resolver backed by store.
func NewResolver(store Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		cache:  make(map[string]string),
	}
}

// Resolve returns the display name of accountID. It never fails: when the
// store has no entry or cannot be reached the generated name is cached and
// returned instead.
func (r *Resolver) Resolve(ctx context.Context, accountID string) string {
	if name, ok := r.Cached(accountID); ok {
		return name
	}

	v, _, _ := r.sf.Do(accountID, func() (interface{}, error) {
		// A concurrent Seed or lookup may have filled the entry meanwhile.
		if name, ok := r.Cached(accountID); ok {
			return name, nil
		}
		return r.remember(accountID, r.lookup(ctx, accountID)), nil
	})
	return v.(string)
}

func (r *Resolver) lookup(ctx context.Context, accountID string) string {
	name, err := r.store.FindDisplayName(ctx, accountID)
	if err == nil {
		name = strings.TrimSpace(name)
	}
	switch {
	case err == nil && name != "":
		return name
	case err == nil, errors.Is(err, ErrNotFound):
		r.logger.Debug().Str(log.FieldAccount, accountID).Msg("no registered display name, using generated name")
	default:
		r.logger.Warn().Err(err).Str(log.FieldAccount, accountID).Msg("display name lookup failed, using generated name")
	}
	return names.Generate(accountID)
}

// remember records name unless another writer got there first, and returns the
// name that ended up cached.
func (r *Resolver) remember(accountID, name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.cache[accountID]; ok {
		return existing
	}
	r.cache[accountID] = name
	return name
}

// Seed records a name learned elsewhere (history, presence data, message
// metadata). Existing entries win and blank names are ignored.
func (r *Resolver) Seed(accountID, name string) {
	name = strings.TrimSpace(name)
	if accountID == "" || name == "" {
		return
	}
	r.remember(accountID, name)
}

// Cached returns the cached name without any I/O.
func (r *Resolver) Cached(accountID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.cache[accountID]
	return name, ok
}
