package clock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/events"
)

// DefaultTickInterval is how often the projected game date is recomputed.
const DefaultTickInterval = 500 * time.Millisecond

// Reading is the projected game clock at one tick.
type Reading struct {
	At                    time.Time `json:"at"`
	Slot                  int       `json:"slot"`
	GameDay               float64   `json:"game_day"`
	Label                 string    `json:"label"`
	SecondsUntilNextMonth int       `json:"seconds_until_next_month"`
	Known                 bool      `json:"known"`
}

// SnapshotSource returns the latest bank snapshot, or nil before the first poll.
type SnapshotSource func() *domain.BankSnapshot

// Ticker projects the game clock between polls. It reads only cached
// snapshots, so a slow backend never delays a tick.
type Ticker struct {
	source   SnapshotSource
	out      *events.Broadcaster[Reading]
	interval time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewTicker creates a ticker publishing to out.
func NewTicker(source SnapshotSource, out *events.Broadcaster[Reading], interval time.Duration, logger *zap.Logger) *Ticker {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ticker{
		source:   source,
		out:      out,
		interval: interval,
		now:      time.Now,
		logger:   logger,
	}
}

// Read computes the current reading without publishing it.
func (t *Ticker) Read() Reading {
	return Project(t.source(), t.now())
}

// Run publishes a reading on every tick until ctx is cancelled.
func (t *Ticker) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	t.logger.Debug("game clock started", zap.Duration("interval", t.interval))
	t.out.Publish(t.Read())

	for {
		select {
		case <-ctx.Done():
			t.logger.Debug("game clock stopped")
			return nil
		case <-ticker.C:
			t.out.Publish(t.Read())
		}
	}
}

// Project builds a reading for the given snapshot at now.
func Project(snapshot *domain.BankSnapshot, now time.Time) Reading {
	r := Reading{At: now, Label: domain.GameDatePlaceholder}
	if snapshot != nil {
		r.Slot = snapshot.SlotID
	}

	day, ok := domain.ProjectedGameDay(snapshot, now)
	if !ok {
		return r
	}

	r.Known = true
	r.GameDay = day
	r.Label = domain.GameDateString(day)
	if secs, ok := domain.SecondsUntilNextMonth(day); ok {
		r.SecondsUntilNextMonth = secs
	}

	return r
}
