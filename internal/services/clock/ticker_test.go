package clock

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/banksim/internal/domain"
	"github.com/vadiminshakov/banksim/internal/events"
)

func TestProject(t *testing.T) {
	observed := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	snapshot := &domain.BankSnapshot{SlotID: 2, GameDay: 13.5, ObservedAt: observed}

	r := Project(snapshot, observed.Add(15*time.Second))
	assert.True(t, r.Known)
	assert.Equal(t, 2, r.Slot)
	assert.InDelta(t, 13.75, r.GameDay, 1e-9)
	assert.Equal(t, "Y2 M2", r.Label)
	assert.Equal(t, 15, r.SecondsUntilNextMonth)

	empty := Project(nil, observed)
	assert.False(t, empty.Known)
	assert.Equal(t, "---", empty.Label)
}

func TestTicker_RunPublishesAndStops(t *testing.T) {
	var snap atomic.Pointer[domain.BankSnapshot]
	out := events.NewBroadcaster[Reading](16)
	sub := out.Subscribe()

	ticker := NewTicker(func() *domain.BankSnapshot { return snap.Load() }, out, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ticker.Run(ctx) }()

	first := <-sub
	assert.False(t, first.Known)

	snap.Store(&domain.BankSnapshot{GameDay: 5, ObservedAt: time.Now()})
	require.Eventually(t, func() bool {
		select {
		case r := <-sub:
			return r.Known && r.Label == "Y1 M6"
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ticker did not stop")
	}
}
