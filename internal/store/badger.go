// SPDX-License-Identifier: MIT

package store

import (
	"context"
	"encoding/json"
	"errors"
	"sort"

	"github.com/dgraph-io/badger/v4"
)

// Key layout: "run:<id>" -> JSON-encoded Run.
const runKeyPrefix = "run:"

// BadgerStore keeps run history in a Badger key-value database.
type BadgerStore struct {
	db *badger.DB
}

func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error { return s.db.Close() }

func (s *BadgerStore) PutRun(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("store: run id is required")
	}
	buf, err := json.Marshal(run)
	if err != nil {
		return err
	}
	key := []byte(runKeyPrefix + run.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, buf)
	})
}

func (s *BadgerStore) GetRun(ctx context.Context, id string) (*Run, error) {
	key := []byte(runKeyPrefix + id)
	var out Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &out)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func (s *BadgerStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	prefix := []byte(runKeyPrefix)
	var list []*Run
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			var run Run
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			}); err != nil {
				continue
			}
			list = append(list, &run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Keys order by id; history wants newest first.
	sort.Slice(list, func(i, j int) bool {
		if !list[i].StartedAt.Equal(list[j].StartedAt) {
			return list[i].StartedAt.After(list[j].StartedAt)
		}
		return list[i].ID < list[j].ID
	})
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

var _ Store = (*BadgerStore)(nil)
