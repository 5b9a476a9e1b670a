// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package series

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/lticast/internal/persistence/sqlite"
	"github.com/ManuGH/lticast/internal/security"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS series (
	key          INTEGER PRIMARY KEY AUTOINCREMENT,
	title        TEXT NOT NULL,
	title_norm   TEXT NOT NULL,
	organization TEXT NOT NULL,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_series_title ON series(organization, title_norm);

CREATE TABLE IF NOT EXISTS series_identifiers (
	series_key INTEGER NOT NULL REFERENCES series(key) ON DELETE CASCADE,
	identifier TEXT NOT NULL,
	PRIMARY KEY (series_key, identifier)
);
CREATE INDEX IF NOT EXISTS idx_series_identifier ON series_identifiers(identifier);
`

// Store is the SQLite series directory. Queries are scoped to the
// organisation of the caller on the context; anonymous callers see all.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// OpenStore opens or creates the directory at path.
func OpenStore(path string) (*Store, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	if err := sqlite.Migrate(db, schemaVersion, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate series store: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Create adds a series with a fresh identifier.
func (s *Store) Create(ctx context.Context, organization, title string) (Record, error) {
	return s.CreateWithIdentifiers(ctx, organization, title, uuid.NewString())
}

// CreateWithIdentifiers adds a series carrying exactly the given
// identifiers. Directory imports may produce records with none or several.
func (s *Store) CreateWithIdentifiers(ctx context.Context, organization, title string, identifiers ...string) (Record, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Record{}, errors.New("series title is empty")
	}
	now := s.now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO series (title, title_norm, organization, created_at) VALUES (?, ?, ?, ?)`,
		title, NormalizeTitle(title), organization, now.UnixNano())
	if err != nil {
		return Record{}, err
	}
	key, err := res.LastInsertId()
	if err != nil {
		return Record{}, err
	}
	for _, id := range identifiers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO series_identifiers (series_key, identifier) VALUES (?, ?)`, key, id); err != nil {
			return Record{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return Record{Title: title, Organization: organization, Identifiers: identifiers, Created: now}, nil
}

// FindByTitle returns every series whose normalised title equals title.
func (s *Store) FindByTitle(ctx context.Context, title string) ([]Record, error) {
	query := `SELECT key, title, organization, created_at FROM series WHERE title_norm = ?`
	args := []any{NormalizeTitle(title)}
	if org := security.OrganizationFromContext(ctx); org != "" {
		query += ` AND organization = ?`
		args = append(args, org)
	}
	return s.query(ctx, query+` ORDER BY key`, args...)
}

// Get returns the series carrying identifier.
func (s *Store) Get(ctx context.Context, identifier string) (Record, error) {
	query := `SELECT s.key, s.title, s.organization, s.created_at FROM series s
		JOIN series_identifiers i ON i.series_key = s.key WHERE i.identifier = ?`
	args := []any{identifier}
	if org := security.OrganizationFromContext(ctx); org != "" {
		query += ` AND s.organization = ?`
		args = append(args, org)
	}
	records, err := s.query(ctx, query, args...)
	if err != nil {
		return Record{}, err
	}
	if len(records) == 0 {
		return Record{}, fmt.Errorf("%w: %s", ErrSeriesNotFound, identifier)
	}
	return records[0], nil
}

// Title returns the title of the series with identifier.
func (s *Store) Title(ctx context.Context, identifier string) (string, error) {
	rec, err := s.Get(ctx, identifier)
	if err != nil {
		return "", err
	}
	return rec.Title, nil
}

// List returns the series visible to the caller, by title.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	query := `SELECT key, title, organization, created_at FROM series`
	var args []any
	if org := security.OrganizationFromContext(ctx); org != "" {
		query += ` WHERE organization = ?`
		args = append(args, org)
	}
	return s.query(ctx, query+` ORDER BY title_norm, key`, args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	type keyed struct {
		key int64
		rec Record
	}
	var found []keyed
	for rows.Next() {
		var (
			k       keyed
			created int64
		)
		if err := rows.Scan(&k.key, &k.rec.Title, &k.rec.Organization, &created); err != nil {
			_ = rows.Close()
			return nil, err
		}
		k.rec.Created = time.Unix(0, created).UTC()
		found = append(found, k)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	out := make([]Record, 0, len(found))
	for _, k := range found {
		ids, err := s.identifiers(ctx, k.key)
		if err != nil {
			return nil, err
		}
		k.rec.Identifiers = ids
		out = append(out, k.rec)
	}
	return out, nil
}

func (s *Store) identifiers(ctx context.Context, key int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identifier FROM series_identifiers WHERE series_key = ? ORDER BY identifier`, key)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
