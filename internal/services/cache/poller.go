package cache

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/banksim/internal/domain"
)

// DefaultPollInterval is how often a registered resource is refetched.
const DefaultPollInterval = 5 * time.Second

// FetchFunc loads the current value of a resource from the backend.
type FetchFunc func(ctx context.Context) (any, error)

type resource struct {
	key      Key
	fetch    FetchFunc
	interval time.Duration
}

// Poller refetches registered resources on a fixed interval and whenever
// they are invalidated. Each resource is polled by its own goroutine.
type Poller struct {
	store    *Store
	logger   *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	resources map[Key]resource
	order     []Key
}

// NewPoller creates a poller writing into store.
func NewPoller(store *Store, logger *zap.Logger, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		store:     store,
		logger:    logger,
		interval:  interval,
		resources: make(map[Key]resource),
	}
}

// Register adds a resource polled at the poller's interval. Registering the
// same key again replaces its fetch function.
func (p *Poller) Register(key Key, fetch FetchFunc) {
	p.RegisterEvery(key, p.interval, fetch)
}

// RegisterEvery adds a resource with its own poll interval.
func (p *Poller) RegisterEvery(key Key, interval time.Duration, fetch FetchFunc) {
	if interval <= 0 {
		interval = p.interval
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.resources[key]; !ok {
		p.order = append(p.order, key)
	}
	p.resources[key] = resource{key: key, fetch: fetch, interval: interval}
}

// Register is a typed helper around Poller.Register.
func Register[T any](p *Poller, key Key, fetch func(ctx context.Context) (T, error)) {
	p.Register(key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
}

// Keys lists the registered resources in registration order.
func (p *Poller) Keys() []Key {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]Key(nil), p.order...)
}

// Refresh fetches one resource now and commits the result.
func (p *Poller) Refresh(ctx context.Context, key Key) error {
	p.mu.Lock()
	res, ok := p.resources[key]
	p.mu.Unlock()
	if !ok {
		return errors.Errorf("resource %q is not registered", key)
	}

	return p.refresh(ctx, res)
}

func (p *Poller) refresh(ctx context.Context, res resource) error {
	seq := p.store.Begin(res.key)

	value, err := res.fetch(ctx)
	if err != nil {
		return errors.Wrapf(err, "fetch %s", res.key)
	}

	if !p.store.Commit(res.key, seq, value) {
		p.logger.Debug("discarded out-of-order response", zap.String("key", string(res.key)), zap.Uint64("seq", seq))
	}

	return nil
}

// Run polls every registered resource until ctx is cancelled. It returns
// early with domain.ErrUnauthorized when the backend rejects the session.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	resources := make([]resource, 0, len(p.order))
	for _, key := range p.order {
		resources = append(resources, p.resources[key])
	}
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, res := range resources {
		g.Go(func() error {
			return p.poll(ctx, res)
		})
	}

	p.logger.Info("polling started", zap.Int("resources", len(resources)), zap.Duration("interval", p.interval))

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Poller) poll(ctx context.Context, res resource) error {
	wake := p.store.Watch(res.key)

	ticker := time.NewTicker(res.interval)
	defer ticker.Stop()

	for {
		if err := p.refresh(ctx, res); err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, domain.ErrUnauthorized):
				p.logger.Warn("session rejected, stopping pollers", zap.String("key", string(res.key)))
				return err
			default:
				p.logger.Warn("poll failed", zap.String("key", string(res.key)), zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-wake:
			p.logger.Debug("refetching invalidated resource", zap.String("key", string(res.key)))
		}
	}
}
