package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/homedeck/homedeck-core/internal/infrastructure/database"
)

// SQLiteHistoryRepository persists history rows in the temperature_history
// and activity_log tables created by the initial schema migration.
type SQLiteHistoryRepository struct {
	db *database.DB
}

// NewSQLiteHistoryRepository creates a repository over an open database.
func NewSQLiteHistoryRepository(db *database.DB) *SQLiteHistoryRepository {
	return &SQLiteHistoryRepository{db: db}
}

// InsertTemperature appends one temperature sample.
func (r *SQLiteHistoryRepository) InsertTemperature(ctx context.Context, room string, p TemperaturePoint) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO temperature_history (room, temp_c, recorded_at) VALUES (?, ?, ?)`,
		room, p.Temp, p.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting temperature row: %w", err)
	}
	return nil
}

// PruneTemperature deletes samples recorded at or before the cutoff and
// returns the number of rows removed.
func (r *SQLiteHistoryRepository) PruneTemperature(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM temperature_history WHERE recorded_at <= ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning temperature rows: %w", err)
	}
	return res.RowsAffected()
}

// TemperatureSince returns a room's samples newer than since, oldest first.
func (r *SQLiteHistoryRepository) TemperatureSince(ctx context.Context, room string, since time.Time) ([]TemperaturePoint, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT temp_c, recorded_at FROM temperature_history
		 WHERE room = ? AND recorded_at > ?
		 ORDER BY recorded_at ASC`,
		room, since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("querying temperature rows: %w", err)
	}
	defer rows.Close()

	var points []TemperaturePoint
	for rows.Next() {
		var (
			temp float64
			ts   string
		)
		if err := rows.Scan(&temp, &ts); err != nil {
			return nil, fmt.Errorf("scanning temperature row: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing temperature timestamp %q: %w", ts, err)
		}
		points = append(points, TemperaturePoint{Time: at, Temp: temp})
	}
	return points, rows.Err()
}

// InsertActivity appends one activity entry.
func (r *SQLiteHistoryRepository) InsertActivity(ctx context.Context, e ActivityEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (entry_type, location, detail, recorded_at) VALUES (?, ?, ?, ?)`,
		e.Type, e.Location, e.Detail, e.Time.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting activity row: %w", err)
	}
	return nil
}

// PruneActivity deletes entries recorded at or before the cutoff and
// returns the number of rows removed.
func (r *SQLiteHistoryRepository) PruneActivity(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM activity_log WHERE recorded_at <= ?`,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning activity rows: %w", err)
	}
	return res.RowsAffected()
}

// ActivitySince returns entries newer than since, oldest first.
func (r *SQLiteHistoryRepository) ActivitySince(ctx context.Context, since time.Time) ([]ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT entry_type, location, detail, recorded_at FROM activity_log
		 WHERE recorded_at > ?
		 ORDER BY recorded_at ASC`,
		since.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("querying activity rows: %w", err)
	}
	defer rows.Close()

	var entries []ActivityEntry
	for rows.Next() {
		var (
			e  ActivityEntry
			ts string
		)
		if err := rows.Scan(&e.Type, &e.Location, &e.Detail, &ts); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		at, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing activity timestamp %q: %w", ts, err)
		}
		e.Time = at
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// compile-time interface check
var _ HistoryRepository = (*SQLiteHistoryRepository)(nil)

// SQLiteLayoutRepository persists draggable UI element positions in the
// ui_layout table. Positions are upserted per element.
type SQLiteLayoutRepository struct {
	db *database.DB
}

// NewSQLiteLayoutRepository creates a repository over an open database.
func NewSQLiteLayoutRepository(db *database.DB) *SQLiteLayoutRepository {
	return &SQLiteLayoutRepository{db: db}
}

// Put stores the position for an element, replacing any previous value.
func (r *SQLiteLayoutRepository) Put(ctx context.Context, elementID string, pos Position) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ui_layout (element_id, x, y, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(element_id) DO UPDATE SET x = excluded.x, y = excluded.y, updated_at = excluded.updated_at`,
		elementID, pos.X, pos.Y, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting layout row: %w", err)
	}
	return nil
}

// Get returns the stored position for an element, or ErrNotFound.
func (r *SQLiteLayoutRepository) Get(ctx context.Context, elementID string) (Position, error) {
	var pos Position
	err := r.db.QueryRowContext(ctx,
		`SELECT x, y FROM ui_layout WHERE element_id = ?`, elementID,
	).Scan(&pos.X, &pos.Y)
	if err == sql.ErrNoRows {
		return Position{}, ErrNotFound
	}
	if err != nil {
		return Position{}, fmt.Errorf("querying layout row: %w", err)
	}
	return pos, nil
}

// List returns every stored element position.
func (r *SQLiteLayoutRepository) List(ctx context.Context) (map[string]Position, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT element_id, x, y FROM ui_layout`)
	if err != nil {
		return nil, fmt.Errorf("querying layout rows: %w", err)
	}
	defer rows.Close()

	out := make(map[string]Position)
	for rows.Next() {
		var (
			id  string
			pos Position
		)
		if err := rows.Scan(&id, &pos.X, &pos.Y); err != nil {
			return nil, fmt.Errorf("scanning layout row: %w", err)
		}
		out[id] = pos
	}
	return out, rows.Err()
}
