package audit

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords(base time.Time) []Record {
	return []Record{
		{Timestamp: base, Kind: KindAdmitted, UserID: "RFID-1", StationID: "IST-001", SessionID: "s1"},
		{Timestamp: base.Add(time.Minute), Kind: KindRejected, UserID: "RFID-1", StationID: "ANK-002",
			Reason: "identity_conflict", ConflictSessionID: "s1", ConflictStationID: "IST-001"},
		{Timestamp: base.Add(2 * time.Minute), Kind: KindRejected, UserID: "RFID-2", StationID: "IST-001", Reason: "station_busy"},
		{Timestamp: base.Add(time.Hour), Kind: KindStopped, UserID: "RFID-1", StationID: "IST-001", SessionID: "s1", DurationSeconds: 3600},
	}
}

// exerciseStore runs the same query expectations against any Store.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, r := range sampleRecords(base) {
		require.NoError(t, store.Append(ctx, r))
	}

	all, err := store.Query(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, KindAdmitted, all[0].Kind)
	assert.True(t, all[0].Timestamp.Equal(base))

	conflicts, err := store.Query(ctx, Query{Reason: "identity_conflict"})
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "IST-001", conflicts[0].ConflictStationID)

	// a station filter also matches conflicts naming it as the held station
	ist, err := store.Query(ctx, Query{StationID: "IST-001"})
	require.NoError(t, err)
	assert.Len(t, ist, 4)

	user2, err := store.Query(ctx, Query{UserID: "RFID-2"})
	require.NoError(t, err)
	assert.Len(t, user2, 1)

	window, err := store.Query(ctx, Query{Start: base.Add(30 * time.Second), End: base.Add(10 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	stopped, err := store.Query(ctx, Query{Kind: KindStopped})
	require.NoError(t, err)
	require.Len(t, stopped, 1)
	assert.Equal(t, 3600.0, stopped[0].DurationSeconds)
}

func TestJSONLStore(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "sessions.log"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestJSONLStore_CanceledContext(t *testing.T) {
	store, err := NewJSONLStore(filepath.Join(t.TempDir(), "sessions.log"))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, store.Append(ctx, Record{}))
}

func TestRotatingJSONLStore(t *testing.T) {
	store, err := NewRotatingJSONLStore(filepath.Join(t.TempDir(), "audit", "sessions.jsonl"), 1, 3, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestRotatingJSONLStore_Rotation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.jsonl")
	store, err := NewRotatingJSONLStore(path, 1, 5, 1)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	msg := strings.Repeat("x", 16*1024)
	base := time.Now()
	const n = 100
	for i := 0; i < n; i++ {
		rec := Record{Timestamp: base.Add(time.Duration(i) * time.Second), Kind: KindRejected, UserID: fmt.Sprintf("u%d", i), Message: msg}
		require.NoError(t, store.Append(context.Background(), rec))
	}
	backups, err := filepath.Glob(filepath.Join(dir, "sessions-*.jsonl"))
	require.NoError(t, err)
	assert.NotEmpty(t, backups, "expected rotated files")

	out, err := store.Query(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, out, n)
	assert.Equal(t, "u0", out[0].UserID)
	assert.Equal(t, fmt.Sprintf("u%d", n-1), out[n-1].UserID)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	exerciseStore(t, store)
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	assert.NoError(t, s.Append(context.Background(), Record{}))
	out, err := s.Query(context.Background(), Query{})
	assert.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, s.Close())
}

func TestConfig(t *testing.T) {
	var c Config
	c.SetDefaults()
	assert.Equal(t, "jsonl", c.Backend)
	assert.Equal(t, "sessions.log", c.Path)
	assert.NoError(t, c.Validate())

	c = Config{Backend: "sqlite"}
	c.SetDefaults()
	assert.Equal(t, "sessions.db", c.Path)

	c = Config{Backend: "none"}
	c.SetDefaults()
	assert.Empty(t, c.Path)
	assert.NoError(t, c.Validate())

	assert.Error(t, Config{Backend: "kafka", Path: "x"}.Validate())
	assert.Error(t, Config{Backend: "jsonl"}.Validate())
	assert.Error(t, Config{Backend: "jsonl", Path: "x", MaxSizeMB: -1}.Validate())
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		cfg  Config
		want any
	}{
		{Config{Backend: "none"}, NopStore{}},
		{Config{Backend: "jsonl", Path: filepath.Join(dir, "a.log")}, &JSONLStore{}},
		{Config{Backend: "jsonl", Path: filepath.Join(dir, "b.log"), MaxSizeMB: 1}, &RotatingJSONLStore{}},
		{Config{Backend: "sqlite", Path: filepath.Join(dir, "c.db")}, &SQLiteStore{}},
	}
	for _, c := range cases {
		s, err := NewStore(c.cfg)
		require.NoError(t, err, c.cfg.Backend)
		assert.IsType(t, c.want, s)
		assert.NoError(t, s.Close())
	}
	_, err := NewStore(Config{Backend: "kafka"})
	assert.Error(t, err)
}
