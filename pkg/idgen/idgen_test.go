package idgen

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflake_MonotonicWithinMillisecond(t *testing.T) {
	g, err := NewSnowflake(7, DefaultEpoch)
	require.NoError(t, err)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli()
	g.now = func() int64 { return fixed }

	var prev int64
	for i := 0; i < 100; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		n, err := strconv.ParseInt(id, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, n, prev)
		prev = n
	}

	ts, err := g.Time(strconv.FormatInt(prev, 10))
	require.NoError(t, err)
	assert.Equal(t, fixed, ts.UnixMilli())
}

func TestSnowflake_Errors(t *testing.T) {
	_, err := NewSnowflake(1024, DefaultEpoch)
	assert.Error(t, err)

	g, err := NewSnowflake(1, DefaultEpoch)
	require.NoError(t, err)

	g.now = func() int64 { return DefaultEpoch - 1 }
	_, err = g.Generate()
	assert.Error(t, err)

	g.now = func() int64 { return DefaultEpoch + 10 }
	_, err = g.Generate()
	require.NoError(t, err)
	g.now = func() int64 { return DefaultEpoch + 5 }
	_, err = g.Generate()
	assert.ErrorContains(t, err, "clock moved backwards")

	_, err = g.Time("abc")
	assert.Error(t, err)
}

func TestULID_SortedAndUnique(t *testing.T) {
	g := NewULID()
	seen := make(map[string]struct{})
	prev := ""
	for i := 0; i < 200; i++ {
		id, err := g.Generate()
		require.NoError(t, err)
		assert.Len(t, id, 26)
		assert.Greater(t, id, prev)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
		prev = id
	}
}
