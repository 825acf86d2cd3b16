package freshness

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkerRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "last_update.json")
	m := NewMarker(path)

	_, err := m.Read()
	assert.ErrorIs(t, err, ErrNoMarker)
	assert.Equal(t, "", m.Stamp())

	when := time.Date(2026, 2, 1, 12, 30, 0, 0, time.FixedZone("x", 3600))
	require.NoError(t, m.Write(when))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"last_update":"2026-02-01T11:30:00Z"}`, string(data))

	got, err := m.Read()
	require.NoError(t, err)
	assert.True(t, got.Equal(when))
	assert.Equal(t, "2026-02-01T11:30:00Z", m.Stamp())

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMarkerOverwrite(t *testing.T) {
	m := NewMarker(filepath.Join(t.TempDir(), "last_update.json"))
	require.NoError(t, m.Write(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, m.Write(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2026-01-02T00:00:00Z", m.Stamp())
}

func TestMarkerSubSecondWritesChangeStamp(t *testing.T) {
	m := NewMarker(filepath.Join(t.TempDir(), "last_update.json"))
	base := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Write(base.Add(100*time.Millisecond)))
	first := m.Stamp()
	require.NoError(t, m.Write(base.Add(700*time.Millisecond)))
	second := m.Stamp()

	assert.Equal(t, "2030-01-01T00:00:00.1Z", first)
	assert.Equal(t, "2030-01-01T00:00:00.7Z", second)
	assert.NotEqual(t, first, second)

	got, err := m.Read()
	require.NoError(t, err)
	assert.True(t, got.Equal(base.Add(700*time.Millisecond)))
}

func TestMarkerCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_update.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	_, err := NewMarker(path).Read()
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNoMarker))
}

func TestCacheStampInvalidation(t *testing.T) {
	c, err := NewCache(4, time.Minute)
	require.NoError(t, err)

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	v, err := c.GetOrSet("a1", "s1", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.GetOrSet("a1", "s1", compute)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = c.GetOrSet("a1", "s2", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestCacheTTL(t *testing.T) {
	c, err := NewCache(4, time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "s", "v")
	_, ok := c.Get("k", "s")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok = c.Get("k", "s")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCacheBounded(t *testing.T) {
	c, err := NewCache(2, time.Minute)
	require.NoError(t, err)

	c.Set("a", "", 1)
	c.Set("b", "", 2)
	c.Set("c", "", 3)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Get("a", "")
	assert.False(t, ok)
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	c, err := NewCache(2, time.Minute)
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = c.GetOrSet("k", "", func() (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestNewCacheRejectsZeroSize(t *testing.T) {
	_, err := NewCache(0, time.Minute)
	assert.Error(t, err)
}
