package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_PublishSubscribe(t *testing.T) {
	b := NewBroadcaster[int](4)
	a := b.Subscribe()
	c := b.Subscribe()
	require.Equal(t, 2, b.Subscribers())

	b.Publish(7)

	assert.Equal(t, 7, <-a)
	assert.Equal(t, 7, <-c)
}

func TestBroadcaster_DropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster[string](1)
	ch := b.Subscribe()

	b.Publish("first")
	b.Publish("second")

	assert.Equal(t, "first", <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected value %q", v)
	default:
	}
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	b := NewBroadcaster[int](0)
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	b.Unsubscribe(ch)

	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	b.Publish(1)
}
