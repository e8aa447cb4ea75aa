package orphans

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/logging"
	"github.com/dmitrijs2005/drivegate/internal/server/models"
	"github.com/fxamacker/cbor/v2"
)

const keyPrefix = "orphan/"

// cbor's default time encoding is whole seconds; keep nanoseconds.
var encMode = mustEncMode()

func mustEncMode() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}

// BadgerRepository keeps orphans in an embedded badger database, one
// cbor-encoded value per orphan under "orphan/<id>".
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadger opens (or creates) the ledger in dir. An empty dir opens an
// in-memory database. Badger's own log lines go to log.
func OpenBadger(dir string, log logging.Logger) (*BadgerRepository, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{log: log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

// Close flushes and closes the database.
func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

func (r *BadgerRepository) Record(_ context.Context, o *models.Orphan) error {
	val, err := encMode.Marshal(o)
	if err != nil {
		return fmt.Errorf("encode orphan: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+o.ID), val)
	})
}

func (r *BadgerRepository) List(_ context.Context, limit int) ([]*models.Orphan, error) {
	var res []*models.Orphan
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			o := &models.Orphan{}
			if err := it.Item().Value(func(v []byte) error {
				return cbor.Unmarshal(v, o)
			}); err != nil {
				return fmt.Errorf("decode orphan %s: %w", it.Item().Key(), err)
			}
			res = append(res, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newestFirst(res, limit), nil
}

// Resolve deletes the orphan and returns what was stored.
func (r *BadgerRepository) Resolve(_ context.Context, id string) (*models.Orphan, error) {
	o := &models.Orphan{}
	err := r.db.Update(func(txn *badger.Txn) error {
		key := []byte(keyPrefix + id)
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		if err := item.Value(func(v []byte) error {
			return cbor.Unmarshal(v, o)
		}); err != nil {
			return fmt.Errorf("decode orphan %s: %w", id, err)
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// badgerLogger adapts logging.Logger to badger.Logger.
type badgerLogger struct {
	log logging.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug(context.Background(), "badger: "+fmt.Sprintf(format, args...))
}
