package store

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(io.Discard, "error")
}

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleSession(id string) *domain.Session {
	s := domain.NewSession(id, 3, time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC))
	s.Adopt(domain.IntentPharmacy, 3)
	s.SetSlot(domain.SlotArea, "Ρίο")
	s.Booking.Origin = "Ζαΐμη 2"
	s.LastOffered = domain.OfferTripQuote
	s.PushContext("γεια", "καλησπέρα", 10)
	return s
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db.SQL())
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)
	require.NoError(t, db.migrate())

	var count int
	require.NoError(t, db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, len(migrations), count)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"sessions", "bookings"} {
		var name string
		err := db.sql.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

// --- SessionStore contract, run against each local backend ---

func backends(t *testing.T, ttl time.Duration) map[string]SessionStore {
	return map[string]SessionStore{
		"memory": NewMemoryStore(ttl),
		"sqlite": NewSQLiteSessionStore(testDB(t), ttl),
	}
}

func TestSessionStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t, time.Hour) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			want := sampleSession("web:abc")
			require.NoError(t, s.Set(ctx, want))

			got, err := s.Get(ctx, "web:abc")
			require.NoError(t, err)
			assert.Equal(t, domain.IntentPharmacy, got.Intent)
			assert.Equal(t, "Ρίο", got.Slot(domain.SlotArea))
			assert.Equal(t, "Ζαΐμη 2", got.Booking.Origin)
			assert.Equal(t, domain.OfferTripQuote, got.LastOffered)
			assert.Equal(t, []string{"U: γεια", "A: καλησπέρα"}, got.ContextTurns)

			// Returned sessions are copies.
			got.SetSlot(domain.SlotArea, "Πάτρα")
			again, err := s.Get(ctx, "web:abc")
			require.NoError(t, err)
			assert.Equal(t, "Ρίο", again.Slot(domain.SlotArea))

			require.NoError(t, s.Delete(ctx, "web:abc"))
			_, err = s.Get(ctx, "web:abc")
			assert.ErrorIs(t, err, ErrNotFound)
			require.NoError(t, s.Delete(ctx, "web:abc"))
		})
	}
}

func TestMemoryStore_TTL(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, sampleSession("a")))
	now = now.Add(59 * time.Minute)
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.Count())
}

func TestMemoryStore_EvictKeepsRefreshedSession(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := NewMemoryStore(time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, sampleSession("a")))
	now = now.Add(2 * time.Hour)
	// A Set racing in between the expired read and the eviction.
	require.NoError(t, s.Set(ctx, sampleSession("a")))

	assert.False(t, s.evict("a"))
	_, err := s.Get(ctx, "a")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	assert.True(t, s.evict("a"))
	assert.False(t, s.evict("a"))
}

func TestSQLiteSessionStore_TTLAndPurge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	s := NewSQLiteSessionStore(testDB(t), 24*time.Hour)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Set(ctx, sampleSession("old")))
	now = now.Add(23 * time.Hour)
	require.NoError(t, s.Set(ctx, sampleSession("new")))

	list, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, domain.IntentPharmacy, list[0].Intent)

	now = now.Add(2 * time.Hour)
	n, err := s.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = s.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestNew(t *testing.T) {
	s, err := New(Options{Backend: BackendMemory, TTL: time.Minute}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = New(Options{Backend: BackendSQLite, DB: testDB(t)}, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &SQLiteSessionStore{}, s)

	_, err = New(Options{Backend: BackendSQLite}, testLogger())
	assert.Error(t, err)
	_, err = New(Options{Backend: BackendRedis}, testLogger())
	assert.Error(t, err)
	_, err = New(Options{Backend: BackendRedis, RedisURL: "not a url"}, testLogger())
	assert.Error(t, err)
	_, err = New(Options{Backend: "etcd"}, testLogger())
	assert.Error(t, err)
}

// --- Booking records ---

func TestBookingStore(t *testing.T) {
	ctx := context.Background()
	b := NewBookingStore(testDB(t))

	_, err := b.GetBooking(ctx, "BK-NOPE")
	assert.ErrorIs(t, err, ErrBookingNotFound)

	first := domain.BookingRecord{
		Code: "BK-20261016-AAAA", SessionID: "web:1", PickupAt: "2026-10-16 18:30:00",
		Slots:     domain.BookingSlots{Origin: "Ζαΐμη 2", Destination: "ΚΤΕΛ", Name: "Μαρία", Phone: "6912345678"},
		CreatedAt: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC),
	}
	second := first
	second.Code = "BK-20261016-BBBB"
	second.CreatedAt = first.CreatedAt.Add(time.Minute)

	require.NoError(t, b.SaveBooking(ctx, first))
	require.NoError(t, b.SaveBooking(ctx, second))

	first.CreatedRemote = true
	require.NoError(t, b.SaveBooking(ctx, first))

	got, err := b.GetBooking(ctx, first.Code)
	require.NoError(t, err)
	assert.True(t, got.CreatedRemote)
	assert.Equal(t, "Μαρία", got.Slots.Name)

	list, err := b.ListBookings(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Code, list[0].Code)
}

// --- Redis, only against a live server ---

func TestRedisStore_Live(t *testing.T) {
	url := os.Getenv("MRBOOKY_TEST_REDIS_URL")
	if url == "" {
		t.Skip("MRBOOKY_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	s, err := NewRedisStoreFromURL(url, "mrbooky:test:", time.Minute, testLogger())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	require.NoError(t, s.Set(ctx, sampleSession("r1")))
	got, err := s.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Ρίο", got.Slot(domain.SlotArea))

	require.NoError(t, s.Delete(ctx, "r1"))
	_, err = s.Get(ctx, "r1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	s := NewRedisStore(nil, "", time.Minute)
	assert.Equal(t, DefaultKeyPrefix+"web:abc", s.key("web:abc"))
	s = NewRedisStore(nil, "x:", time.Minute)
	assert.Equal(t, "x:1", s.key("1"))
}
