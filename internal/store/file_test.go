package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	require.NoError(t, s.Ensure())
	return s
}

func TestEnsure_CreatesNestedDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "data")
	s, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Ensure())
	require.NoError(t, s.Ensure())

	fi, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())
	assert.Equal(t, dir, s.Dir())
}

func TestSave_IndentsAndRoundTrips(t *testing.T) {
	s := newStore(t)
	payload := json.RawMessage(`{"hourly":{"time":["2025-01-01T00:00"],"temperature_2m":[12.5]}}`)

	require.NoError(t, s.Save("oneonta_forecast.json", payload))

	data, err := os.ReadFile(filepath.Join(s.Dir(), "oneonta_forecast.json"))
	require.NoError(t, err)

	expected := "{\n  \"hourly\": {\n    \"time\": [\n      \"2025-01-01T00:00\"\n    ],\n    \"temperature_2m\": [\n      12.5\n    ]\n  }\n}"
	assert.Equal(t, expected, string(data))
	assert.JSONEq(t, string(payload), string(data))

	loaded, err := s.Load("oneonta_forecast.json")
	require.NoError(t, err)
	assert.JSONEq(t, string(payload), string(loaded))
}

func TestSave_OverwritesIdempotently(t *testing.T) {
	s := newStore(t)

	require.NoError(t, s.Save("greenville_historical.json", json.RawMessage(`{"v":1}`)))
	require.NoError(t, s.Save("greenville_historical.json", json.RawMessage(`{"v":2}`)))
	first, err := s.Load("greenville_historical.json")
	require.NoError(t, err)

	require.NoError(t, s.Save("greenville_historical.json", json.RawMessage(`{"v":2}`)))
	second, err := s.Load("greenville_historical.json")
	require.NoError(t, err)

	assert.JSONEq(t, `{"v":2}`, string(second))
	assert.Equal(t, first, second)

	entries, err := os.ReadDir(s.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestSave_InvalidPayloadKeepsPreviousFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("oneonta_forecast.json", json.RawMessage(`{"ok":true}`)))

	err := s.Save("oneonta_forecast.json", json.RawMessage(`{"ok":`))
	require.Error(t, err)

	data, err := s.Load("oneonta_forecast.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(data))
}

func TestSave_UnwritableDir(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "data")
	require.NoError(t, os.WriteFile(blocker, []byte("not a dir"), 0o644))

	s, err := NewFileStore(blocker)
	require.NoError(t, err)

	err = s.Save("oneonta_forecast.json", json.RawMessage(`{}`))
	assert.Error(t, err)
}

func TestLoadAndStat_NotFound(t *testing.T) {
	s := newStore(t)

	_, err := s.Load("oneonta_yearly_daily.json")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Stat("oneonta_yearly_daily.json")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStat(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Save("oneonta_forecast.json", json.RawMessage(`{"a":1}`)))

	info, err := s.Stat("oneonta_forecast.json")
	require.NoError(t, err)
	assert.Equal(t, "oneonta_forecast.json", info.Name)
	assert.Equal(t, int64(len("{\n  \"a\": 1\n}")), info.Size)
	assert.False(t, info.UpdatedAt.IsZero())
}

func TestPath_RejectsEscapes(t *testing.T) {
	s := newStore(t)

	for _, name := range []string{"", "../secret.json", "sub/file.json", ".hidden.json"} {
		_, err := s.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}
