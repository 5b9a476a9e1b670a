// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/lticast/internal/persistence/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS workflow_instances (
	id              TEXT PRIMARY KEY,
	definition_id   TEXT NOT NULL,
	mediapackage_id TEXT NOT NULL,
	organization    TEXT NOT NULL,
	creator         TEXT NOT NULL,
	state           TEXT NOT NULL,
	parameters      TEXT NOT NULL,
	created_at      INTEGER NOT NULL,
	updated_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_workflow_instances_mp ON workflow_instances(mediapackage_id, created_at);
`

// Store persists workflow instances in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens or creates the instance database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate workflow store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) insert(ctx context.Context, inst Instance) error {
	params, err := json.Marshal(inst.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflow_instances (id, definition_id, mediapackage_id, organization, creator, state, parameters, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inst.ID, inst.DefinitionID, inst.MediaPackageID, inst.Organization, inst.Creator,
		string(inst.State), string(params), inst.Created.UnixNano(), inst.Updated.UnixNano())
	return err
}

// transition moves id from one state to another atomically and returns the
// updated instance.
func (s *Store) transition(ctx context.Context, id string, to State, now time.Time) (Instance, State, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Instance{}, "", err
	}
	defer func() { _ = tx.Rollback() }()

	inst, err := scanInstance(tx.QueryRowContext(ctx, selectInstance+` WHERE id = ?`, id))
	if err != nil {
		return Instance{}, "", err
	}
	from := inst.State
	if !CanTransition(from, to) {
		return Instance{}, from, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE workflow_instances SET state = ?, updated_at = ? WHERE id = ?`,
		string(to), now.UnixNano(), id); err != nil {
		return Instance{}, from, err
	}
	if err := tx.Commit(); err != nil {
		return Instance{}, from, err
	}
	inst.State = to
	inst.Updated = now
	return inst, from, nil
}

const selectInstance = `SELECT id, definition_id, mediapackage_id, organization, creator, state, parameters, created_at, updated_at FROM workflow_instances`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstance(row rowScanner) (Instance, error) {
	var (
		inst             Instance
		state, params    string
		created, updated int64
	)
	err := row.Scan(&inst.ID, &inst.DefinitionID, &inst.MediaPackageID, &inst.Organization, &inst.Creator,
		&state, &params, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Instance{}, ErrNotFound
	}
	if err != nil {
		return Instance{}, err
	}
	inst.State = State(state)
	if err := json.Unmarshal([]byte(params), &inst.Parameters); err != nil {
		return Instance{}, fmt.Errorf("decode parameters of %s: %w", inst.ID, err)
	}
	inst.Created = time.Unix(0, created).UTC()
	inst.Updated = time.Unix(0, updated).UTC()
	return inst, nil
}

// Get returns the instance with id.
func (s *Store) Get(ctx context.Context, id string) (Instance, error) {
	return scanInstance(s.db.QueryRowContext(ctx, selectInstance+` WHERE id = ?`, id))
}

// ByMediaPackage returns the package's instances, newest first.
func (s *Store) ByMediaPackage(ctx context.Context, mediaPackageID string) ([]Instance, error) {
	rows, err := s.db.QueryContext(ctx, selectInstance+` WHERE mediapackage_id = ? ORDER BY created_at DESC, rowid DESC`, mediaPackageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

// ByState returns instances in any of states, oldest first.
func (s *Store) ByState(ctx context.Context, states ...State) ([]Instance, error) {
	if len(states) == 0 {
		return nil, nil
	}
	query := selectInstance + ` WHERE state IN (?` + repeatPlaceholders(len(states)-1) + `) ORDER BY created_at ASC`
	args := make([]any, len(states))
	for i, st := range states {
		args[i] = string(st)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Instance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func repeatPlaceholders(n int) string {
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		out = append(out, ", ?"...)
	}
	return string(out)
}
