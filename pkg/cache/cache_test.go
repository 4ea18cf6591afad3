package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimed(t *testing.T) {
	c, err := NewTimed(16, 5*time.Minute)
	require.NoError(t, err)

	tstart := time.Now()

	c.set("key", []byte("value"), tstart)

	_, ok := c.get("key", tstart.Add(time.Minute))
	if !ok {
		t.Errorf("failed to get key that should not be expired")
	}

	_, ok = c.get("key", tstart.Add(10*time.Minute))
	if ok {
		t.Errorf("succeeded in getting expired key")
	}

	_, ok = c.get("key", tstart.Add(time.Minute))
	if ok {
		t.Errorf("succeeded in getting key that was previously evicted")
	}
}

func TestTimedEvictsOldest(t *testing.T) {
	c, err := NewTimed(2, time.Hour)
	require.NoError(t, err)
	ctx := t.Context()

	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("2"))
	c.Set(ctx, "c", []byte("3"))

	_, ok := c.Get(ctx, "a")
	assert.False(t, ok)
	got, ok := c.Get(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, "3", string(got))
	assert.Equal(t, 2, c.Len())
}

func TestTimedDelete(t *testing.T) {
	c, err := NewTimed(8, time.Hour)
	require.NoError(t, err)
	ctx := t.Context()

	for _, key := range GraphKeys(4, "m", "ft") {
		c.Set(ctx, key, []byte("[]"))
	}
	c.Set(ctx, GraphKey(5, "ft"), []byte("[]"))

	c.Delete(ctx, GraphKeys(4, "m", "ft")...)
	_, ok := c.Get(ctx, "graph:4:ft")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "graph:5:ft")
	assert.True(t, ok)
}

func TestNewTimedRejectsZeroSize(t *testing.T) {
	_, err := NewTimed(0, time.Hour)
	assert.Error(t, err)
}

func TestRedisNilClientMisses(t *testing.T) {
	r := NewRedisFromClient(nil, time.Hour)
	ctx := t.Context()
	r.Set(ctx, "key", []byte("value"))
	_, ok := r.Get(ctx, "key")
	assert.False(t, ok)
	r.Delete(ctx, "key")
	assert.NoError(t, r.Close())

	var missing *Redis
	_, ok = missing.Get(ctx, "key")
	assert.False(t, ok)
}
