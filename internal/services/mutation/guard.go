package mutation

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrInFlight is returned when the same control already has a request outstanding.
var ErrInFlight = errors.New("request already in flight")

// Guard allows one outstanding request per control key.
type Guard struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{inflight: make(map[string]struct{})}
}

// Do runs fn unless key is busy. The key is released when fn returns,
// whether it succeeded or not.
func (g *Guard) Do(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	if !g.acquire(key) {
		return errors.Wrap(ErrInFlight, key)
	}
	defer g.release(key)

	return fn(ctx)
}

// InFlight reports whether key has a request outstanding.
func (g *Guard) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.inflight[key]
	return ok
}

func (g *Guard) acquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.inflight[key]; ok {
		return false
	}
	g.inflight[key] = struct{}{}
	return true
}

func (g *Guard) release(key string) {
	g.mu.Lock()
	delete(g.inflight, key)
	g.mu.Unlock()
}
