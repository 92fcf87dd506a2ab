package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create dialogue sessions",
		SQL: `
			CREATE TABLE sessions (
				id          TEXT PRIMARY KEY,
				intent      TEXT NOT NULL DEFAULT '',
				payload     TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  INTEGER NOT NULL
			);

			CREATE INDEX idx_sessions_updated ON sessions (updated_at);
		`,
	},
	{
		Version: 2,
		Name:    "create bookings",
		SQL: `
			CREATE TABLE bookings (
				code            TEXT PRIMARY KEY,
				session_id      TEXT NOT NULL,
				origin          TEXT NOT NULL,
				destination     TEXT NOT NULL,
				pickup_at       TEXT NOT NULL,
				name            TEXT NOT NULL,
				phone           TEXT NOT NULL,
				created_remote  INTEGER NOT NULL DEFAULT 0,
				payload         TEXT NOT NULL,
				created_at      TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_bookings_session ON bookings (session_id);
			CREATE INDEX idx_bookings_created ON bookings (created_at);
		`,
	},
}
