package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"spaceapps-board/internal/domain"
)

const (
	badgerRecordPrefix = "rec:"
	badgerIndexPrefix  = "idx:"
	// InMemoryPath opens a throwaway in-memory database.
	InMemoryPath = ":memory:"
)

// BadgerStore keeps records in an embedded BadgerDB.
//
// Records live under "rec:{unix_nano_padded}:{id}" so a reverse prefix scan yields
// newest first; "idx:{id}" points back at the record key for lookups by id.
type BadgerStore struct {
	db   *badger.DB
	log  *slog.Logger
	opts options
}

type diskRecord struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"createdAt"`
}

// OpenBadger opens a database at path, or an in-memory one for InMemoryPath.
func OpenBadger(path string) (*badger.DB, error) {
	var opts badger.Options
	if path == InMemoryPath {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	db, err := badger.Open(opts.WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("repository: open badger %q: %w", path, err)
	}
	return db, nil
}

// NewBadgerStore creates a BadgerDB backed Store.
func NewBadgerStore(db *badger.DB, log *slog.Logger, opts ...Option) (*BadgerStore, error) {
	if db == nil {
		return nil, errors.New("repository: badger db must not be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BadgerStore{db: db, log: log, opts: buildOptions(opts)}, nil
}

func badgerRecordKey(rec domain.Record) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", badgerRecordPrefix, rec.CreatedAt.UnixNano(), rec.ID))
}

func badgerIndexKey(id string) []byte {
	return []byte(badgerIndexPrefix + id)
}

// List scans the record prefix backwards.
func (s *BadgerStore) List(ctx context.Context) ([]domain.Record, error) {
	records := make([]domain.Record, 0)
	err := s.db.View(func(txn *badger.Txn) error {
		prefix := []byte(badgerRecordPrefix)
		it := txn.NewIterator(badger.IteratorOptions{
			PrefetchValues: true,
			PrefetchSize:   100,
			Reverse:        true,
			Prefix:         prefix,
		})
		defer it.Close()

		for it.Seek(append(prefix, 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := readRecord(it.Item())
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("repository: List scan: %w", err)
	}
	s.log.Debug("badger list", "count", len(records))
	return records, nil
}

// Create writes the record and its id index in one transaction.
func (s *BadgerStore) Create(_ context.Context, name, message string) (domain.Record, error) {
	rec := domain.Record{
		ID:        s.opts.newID(),
		Name:      name,
		Message:   message,
		CreatedAt: s.opts.now().UTC(),
	}
	value, err := json.Marshal(diskRecord{
		ID:        rec.ID,
		Name:      rec.Name,
		Message:   rec.Message,
		CreatedAt: rec.CreatedAt.UnixNano(),
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Create marshal: %w", err)
	}

	key := badgerRecordKey(rec)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(badgerIndexKey(rec.ID)); err == nil {
			return fmt.Errorf("id %s already assigned", rec.ID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(badgerIndexKey(rec.ID), key)
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Create: %w", err)
	}
	return rec, nil
}

// Get resolves the id index, then reads the record.
func (s *BadgerStore) Get(_ context.Context, id string) (domain.Record, error) {
	if err := checkID(id); err != nil {
		return domain.Record{}, err
	}
	var rec domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := lookup(txn, id)
		if err != nil {
			return err
		}
		rec, err = readRecord(item)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return domain.Record{}, ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Get: %w", err)
	}
	return rec, nil
}

// Delete removes both the record and its index entry.
func (s *BadgerStore) Delete(_ context.Context, id string) (domain.Record, error) {
	if err := checkID(id); err != nil {
		return domain.Record{}, err
	}
	var rec domain.Record
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := lookup(txn, id)
		if err != nil {
			return err
		}
		rec, err = readRecord(item)
		if err != nil {
			return err
		}
		if err := txn.Delete(item.KeyCopy(nil)); err != nil {
			return err
		}
		return txn.Delete(badgerIndexKey(id))
	})
	if errors.Is(err, ErrNotFound) {
		return domain.Record{}, ErrNotFound
	}
	if err != nil {
		return domain.Record{}, fmt.Errorf("repository: Delete: %w", err)
	}
	return rec, nil
}

func lookup(txn *badger.Txn, id string) (*badger.Item, error) {
	idx, err := txn.Get(badgerIndexKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	key, err := idx.ValueCopy(nil)
	if err != nil {
		return nil, err
	}
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	return item, err
}

func readRecord(item *badger.Item) (domain.Record, error) {
	var d diskRecord
	err := item.Value(func(v []byte) error {
		return json.Unmarshal(v, &d)
	})
	if err != nil {
		return domain.Record{}, fmt.Errorf("decode %q: %w", item.Key(), err)
	}
	return domain.Record{
		ID:        d.ID,
		Name:      d.Name,
		Message:   d.Message,
		CreatedAt: time.Unix(0, d.CreatedAt).UTC(),
	}, nil
}
