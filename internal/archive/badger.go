package archive

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/park285/cheese-peerchess/internal/domain"
)

const (
	prefixGame   = "game/"
	prefixActive = "active/"
)

// BadgerStore is the embedded on-disk archive used when no Redis is
// configured.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the archive in dir. An empty dir keeps
// everything in memory.
func OpenBadger(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	if strings.TrimSpace(dir) == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) Save(_ context.Context, rec domain.GameRecord) error {
	id := strings.TrimSpace(rec.ID)
	if id == "" {
		return ErrNoGameID
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(prefixGame+id), data); err != nil {
			return err
		}
		if rec.Finished() {
			return txn.Delete([]byte(prefixActive + id))
		}
		return txn.Set([]byte(prefixActive+id), []byte{1})
	})
}

func (s *BadgerStore) Load(_ context.Context, id string) (*domain.GameRecord, error) {
	var out *domain.GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := getRecord(txn, strings.TrimSpace(id))
		out = rec
		return err
	})
	return out, err
}

func (s *BadgerStore) Active(_ context.Context) ([]domain.GameRecord, error) {
	var out []domain.GameRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixActive)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			id := strings.TrimPrefix(string(it.Item().Key()), prefixActive)
			rec, err := getRecord(txn, id)
			if err != nil {
				return err
			}
			if rec != nil {
				out = append(out, *rec)
			}
		}
		return nil
	})
	sortByUpdated(out)
	return out, err
}

func (s *BadgerStore) Finish(ctx context.Context, rec domain.GameRecord) error {
	if err := s.Save(ctx, rec); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(prefixActive + strings.TrimSpace(rec.ID)))
	})
}

func getRecord(txn *badger.Txn, id string) (*domain.GameRecord, error) {
	item, err := txn.Get([]byte(prefixGame + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var rec domain.GameRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, err
	}
	return &rec, nil
}
