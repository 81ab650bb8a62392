package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEvents(t *testing.T) {
	body := "event: clock\ndata: {\"label\":\"Y1 M1\"}\n\n" +
		": ping\n\n" +
		"event: funding\r\ndata: {\"phase\":\"IDLE\"}\r\n\r\n" +
		"data: a\ndata: b\n\n"

	var got []event
	err := readEvents(strings.NewReader(body), func(ev event) { got = append(got, ev) })
	require.NoError(t, err)

	require.Len(t, got, 4)
	assert.Equal(t, event{name: "clock", data: `{"label":"Y1 M1"}`}, got[0])
	assert.True(t, got[1].heartbeat)
	assert.Equal(t, "funding", got[2].name)
	assert.Equal(t, `{"phase":"IDLE"}`, got[2].data)
	assert.Equal(t, "a\nb", got[3].data)
}

func TestReadEvents_IncompleteTrailingMessage(t *testing.T) {
	var n int
	err := readEvents(strings.NewReader("event: clock\ndata: {}"), func(event) { n++ })
	require.NoError(t, err)
	assert.Zero(t, n)
}
