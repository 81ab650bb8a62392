package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/banksim/internal/domain"
)

func TestStore_OutOfOrderResponsesAreDiscarded(t *testing.T) {
	s := NewStore()
	key := BankKey(1)

	older := s.Begin(key)
	newer := s.Begin(key)

	require.True(t, s.Commit(key, newer, &domain.BankSnapshot{GameDay: 20}))
	assert.False(t, s.Commit(key, older, &domain.BankSnapshot{GameDay: 10}))

	bank, ok := Get[*domain.BankSnapshot](s, key)
	require.True(t, ok)
	assert.Equal(t, 20.0, bank.GameDay)
}

func TestStore_GetTypeMismatch(t *testing.T) {
	s := NewStore()
	s.Set(ClientsKey(1), []domain.ClientAccount{{ID: 1}})

	_, ok := Get[[]domain.PropertyProduct](s, ClientsKey(1))
	assert.False(t, ok)

	clients, ok := Get[[]domain.ClientAccount](s, ClientsKey(1))
	require.True(t, ok)
	assert.Len(t, clients, 1)

	_, ok = Get[[]domain.ClientAccount](s, ClientsKey(2))
	assert.False(t, ok)
}

func TestStore_FreshnessAndInvalidate(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore()
	s.now = func() time.Time { return now }

	key := ProductsKey(1)
	assert.False(t, s.Fresh(key, time.Minute))

	s.Set(key, []domain.PropertyProduct{})
	assert.True(t, s.Fresh(key, time.Minute))
	assert.True(t, s.Fresh(key, 0))

	now = now.Add(2 * time.Minute)
	assert.False(t, s.Fresh(key, time.Minute))
	assert.True(t, s.Fresh(key, 0))

	s.Invalidate(key)
	assert.False(t, s.Fresh(key, 0))
	_, ok := Get[[]domain.PropertyProduct](s, key)
	assert.True(t, ok, "stale values stay readable")

	s.Set(key, []domain.PropertyProduct{})
	assert.True(t, s.Fresh(key, 0))
}

func TestStore_InvalidateWakesWatcher(t *testing.T) {
	s := NewStore()
	key := MortgagesKey(3)
	wake := s.Watch(key)

	s.Invalidate(key)
	s.Invalidate(key)

	select {
	case <-wake:
	default:
		t.Fatal("expected wake-up")
	}
	select {
	case <-wake:
		t.Fatal("wake-ups must coalesce")
	default:
	}
}

func TestClientKeys(t *testing.T) {
	assert.Equal(t, []Key{"slot/2/clients", "slot/2/clients/5/transactions", "slot/2/bank"}, ClientKeys(2, 5))
}
