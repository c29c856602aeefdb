package countdown

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoard_TrackReplacesTicker(t *testing.T) {
	b := NewBoard(WithInterval(time.Millisecond))
	defer b.Close()

	first, ok := b.Track("g1", time.Now().Add(time.Hour))
	require.True(t, ok)
	<-first

	second, ok := b.Track("g1", time.Now().Add(2*time.Hour))
	require.True(t, ok)
	assert.Equal(t, 1, b.Len())

	// The replaced ticker's channel is closed.
	for range first {
	}

	st := <-second
	assert.Equal(t, 1, st.Hours)
}

func TestBoard_TrackWithoutDeadlineStopsExisting(t *testing.T) {
	b := NewBoard(WithInterval(time.Millisecond))
	defer b.Close()

	ch, ok := b.Track("g1", time.Now().Add(time.Hour))
	require.True(t, ok)

	_, ok = b.Track("g1", nil)
	assert.False(t, ok)
	assert.Zero(t, b.Len())
	for range ch {
	}
}

func TestBoard_UntrackAndClose(t *testing.T) {
	b := NewBoard(WithInterval(time.Millisecond))

	a, _ := b.Track("a", time.Now().Add(time.Hour))
	c, _ := b.Track("c", time.Now().Add(time.Hour))
	require.Equal(t, 2, b.Len())

	b.Untrack("a")
	b.Untrack("missing")
	for range a {
	}
	assert.Equal(t, 1, b.Len())

	b.Close()
	b.Close()
	for range c {
	}
	assert.Zero(t, b.Len())

	_, ok := b.Track("d", time.Now().Add(time.Hour))
	assert.False(t, ok)
}
