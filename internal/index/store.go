// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/lticast/internal/persistence/sqlite"
	"github.com/ManuGH/lticast/internal/workflow"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	organization    TEXT NOT NULL,
	mediapackage_id TEXT NOT NULL,
	title           TEXT NOT NULL,
	series_id       TEXT NOT NULL DEFAULT '',
	series_name     TEXT NOT NULL DEFAULT '',
	creator         TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	workflow_id     TEXT NOT NULL DEFAULT '',
	workflow_state  TEXT NOT NULL DEFAULT '',
	published       INTEGER NOT NULL DEFAULT 0,
	metadata        TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_events_creator ON events(organization, creator, created_at);
CREATE INDEX IF NOT EXISTS idx_events_series ON events(organization, series_id);
CREATE INDEX IF NOT EXISTS idx_events_mp ON events(mediapackage_id);
`

// Store persists event projections in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the index at path.
func OpenStore(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate event index: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Upsert writes ev, replacing an existing row with the same id.
func (s *Store) Upsert(ctx context.Context, ev Event) error {
	meta, err := json.Marshal(ev.Metadata)
	if err != nil {
		return fmt.Errorf("encode event metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, organization, mediapackage_id, title, series_id, series_name, creator, created_at, workflow_id, workflow_state, published, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			series_id = excluded.series_id,
			series_name = excluded.series_name,
			workflow_id = excluded.workflow_id,
			workflow_state = excluded.workflow_state,
			published = excluded.published,
			metadata = excluded.metadata`,
		ev.ID, ev.Organization, ev.MediaPackageID, ev.Title, ev.SeriesID, ev.SeriesName, ev.Creator,
		ev.Created.UnixNano(), ev.WorkflowID, string(ev.WorkflowState), boolToInt(ev.Published), string(meta))
	return err
}

// SetWorkflow records the current workflow of the event built from mediaPackageID.
func (s *Store) SetWorkflow(ctx context.Context, mediaPackageID, workflowID string, state workflow.State, published bool) (bool, error) {
	query := `UPDATE events SET workflow_id = ?, workflow_state = ?`
	args := []any{workflowID, string(state)}
	if published {
		query += `, published = 1`
	}
	query += ` WHERE mediapackage_id = ?`
	args = append(args, mediaPackageID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Delete removes the event row.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, id)
	return err
}

const selectEvent = `SELECT id, organization, mediapackage_id, title, series_id, series_name, creator, created_at, workflow_id, workflow_state, published, metadata FROM events`

// Get returns the event with id.
func (s *Store) Get(ctx context.Context, id string) (Event, error) {
	ev, err := scanEvent(s.db.QueryRowContext(ctx, selectEvent+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Event{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	return ev, err
}

// Find returns events matching q, newest first.
func (s *Store) Find(ctx context.Context, q Query) ([]Event, error) {
	var (
		where []string
		args  []any
	)
	add := func(clause, value string) {
		if value != "" {
			where = append(where, clause)
			args = append(args, value)
		}
	}
	add("organization = ?", q.Organization)
	add("creator = ?", q.Creator)
	add("series_id = ?", q.SeriesID)
	add("series_name = ?", q.SeriesName)

	query := selectEvent
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (Event, error) {
	var (
		ev        Event
		created   int64
		state     string
		published int
		meta      string
	)
	if err := row.Scan(&ev.ID, &ev.Organization, &ev.MediaPackageID, &ev.Title, &ev.SeriesID, &ev.SeriesName,
		&ev.Creator, &created, &ev.WorkflowID, &state, &published, &meta); err != nil {
		return Event{}, err
	}
	ev.Created = time.Unix(0, created).UTC()
	ev.WorkflowState = workflow.State(state)
	ev.Published = published != 0
	if err := json.Unmarshal([]byte(meta), &ev.Metadata); err != nil {
		return Event{}, fmt.Errorf("decode metadata of event %s: %w", ev.ID, err)
	}
	return ev, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
