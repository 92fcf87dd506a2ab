package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
)

// ErrBookingNotFound is returned when a booking code is unknown.
var ErrBookingNotFound = errors.New("booking not found")

// BookingStore keeps a local record of every finalized booking, whether or
// not the dispatch system accepted it.
type BookingStore struct {
	db *DB
}

// NewBookingStore creates a booking store using the given database.
func NewBookingStore(db *DB) *BookingStore {
	return &BookingStore{db: db}
}

// SaveBooking inserts or replaces a booking record.
func (b *BookingStore) SaveBooking(ctx context.Context, rec domain.BookingRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding booking %s: %w", rec.Code, err)
	}
	created := rec.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err = b.db.sql.ExecContext(ctx,
		`INSERT INTO bookings (code, session_id, origin, destination, pickup_at, name, phone, created_remote, payload, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(code) DO UPDATE SET
		   created_remote = excluded.created_remote,
		   payload = excluded.payload`,
		rec.Code, rec.SessionID, rec.Slots.Origin, rec.Slots.Destination, rec.PickupAt,
		rec.Slots.Name, rec.Slots.Phone, rec.CreatedRemote, string(payload),
		created.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("saving booking %s: %w", rec.Code, err)
	}
	b.db.log.Debug().Str("code", rec.Code).Msg("booking recorded")
	return nil
}

// GetBooking loads a booking by code.
func (b *BookingStore) GetBooking(ctx context.Context, code string) (*domain.BookingRecord, error) {
	var payload string
	err := b.db.sql.QueryRowContext(ctx, `SELECT payload FROM bookings WHERE code = ?`, code).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading booking %s: %w", code, err)
	}
	var rec domain.BookingRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decoding booking %s: %w", code, err)
	}
	return &rec, nil
}

// ListBookings returns the newest bookings first.
func (b *BookingStore) ListBookings(ctx context.Context, limit int) ([]domain.BookingRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := b.db.sql.QueryContext(ctx,
		`SELECT payload FROM bookings ORDER BY created_at DESC, code DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bookings: %w", err)
	}
	defer rows.Close()

	var out []domain.BookingRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var rec domain.BookingRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decoding booking: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
