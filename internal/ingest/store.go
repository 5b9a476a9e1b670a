// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/lticast/internal/mediapackage"
)

// ErrPackageNotFound is returned for unknown package ids.
var ErrPackageNotFound = errors.New("media package not found")

const packagePrefix = "mp:"

// PackageStore keeps media packages as JSON documents in Badger
// under "mp:<id>".
type PackageStore struct {
	db *badger.DB
}

// OpenPackageStore opens a store at path. An empty path keeps data in memory.
func OpenPackageStore(path string) (*PackageStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open package store: %w", err)
	}
	return &PackageStore{db: db}, nil
}

func (s *PackageStore) Close() error { return s.db.Close() }

// Put stores mp, replacing any previous version.
func (s *PackageStore) Put(_ context.Context, mp *mediapackage.MediaPackage) error {
	buf, err := json.Marshal(mp)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(packagePrefix+mp.ID), buf)
	})
}

// Get loads the package with id.
func (s *PackageStore) Get(_ context.Context, id string) (*mediapackage.MediaPackage, error) {
	var out mediapackage.MediaPackage
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(packagePrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Update applies fn to the stored package inside one transaction.
func (s *PackageStore) Update(_ context.Context, id string, fn func(*mediapackage.MediaPackage) error) (*mediapackage.MediaPackage, error) {
	key := []byte(packagePrefix + id)
	var out mediapackage.MediaPackage
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		}); err != nil {
			return err
		}
		if err := fn(&out); err != nil {
			return err
		}
		buf, err := json.Marshal(&out)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPackageNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the package. Deleting an unknown id is not an error.
func (s *PackageStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(packagePrefix + id))
	})
}

// IDs lists stored package ids.
func (s *PackageStore) IDs(_ context.Context) ([]string, error) {
	var ids []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(packagePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(packagePrefix):]))
		}
		return nil
	})
	return ids, err
}
