// Package embedded persists the repositories in a local Badger database, for
// single-node deployments without Postgres.
//
// Key layout:
//
//	conversation:<seq>:<id>  conversation JSON, seq gives load order
//	conversation_id:<id>     the conversation key above
//	message:<seq>:<id>       message JSON
//	message_id:<id>          the message key above
//	user:<name>              user record
//	profile:<name>           profile JSON
package embedded

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

const (
	conversationPrefix  = "conversation:"
	conversationIDIndex = "conversation_id:"
	messagePrefix       = "message:"
	messageIDIndex      = "message_id:"
	userPrefix          = "user:"
	profilePrefix       = "profile:"

	seqBandwidth = 100
)

// Store implements every persister of the repository package on one Badger
// database.
type Store struct {
	db      *badger.DB
	convSeq *badger.Sequence
	msgSeq  *badger.Sequence
}

// Open opens (or creates) the database in dir. An empty dir opens an
// in-memory database.
func Open(dir string, log *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{log: log})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return newStore(db)
}

func newStore(db *badger.DB) (*Store, error) {
	convSeq, err := db.GetSequence([]byte("seq:conversation"), seqBandwidth)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to allocate conversation sequence: %w", err)
	}
	msgSeq, err := db.GetSequence([]byte("seq:message"), seqBandwidth)
	if err != nil {
		convSeq.Release()
		db.Close()
		return nil, fmt.Errorf("failed to allocate message sequence: %w", err)
	}
	return &Store{db: db, convSeq: convSeq, msgSeq: msgSeq}, nil
}

func (s *Store) Close() error {
	return errors.Join(s.convSeq.Release(), s.msgSeq.Release(), s.db.Close())
}

func sequencedKey(prefix string, seq uint64, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", prefix, seq, id))
}

// upsertSequenced writes value under the key indexed for id, allocating a new
// sequenced key on first write. With overwrite false an existing entry is kept.
func (s *Store) upsertSequenced(seq *badger.Sequence, prefix, index string, id uuid.UUID, value []byte, overwrite bool) error {
	indexKey := []byte(index + id.String())

	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(indexKey)
		switch {
		case err == nil:
			if !overwrite {
				return nil
			}
			key, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			return txn.Set(key, value)
		case errors.Is(err, badger.ErrKeyNotFound):
			n, err := seq.Next()
			if err != nil {
				return fmt.Errorf("failed to allocate sequence: %w", err)
			}
			key := sequencedKey(prefix, n, id)
			if err := txn.Set(key, value); err != nil {
				return err
			}
			return txn.Set(indexKey, key)
		default:
			return err
		}
	})
}

func (s *Store) deleteIndexed(index string, ids []uuid.UUID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			indexKey := []byte(index + id.String())
			item, err := txn.Get(indexKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			key, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := txn.Delete(key); err != nil {
				return err
			}
			if err := txn.Delete(indexKey); err != nil {
				return err
			}
		}
		return nil
	})
}

// scan calls fn with every value under prefix, in key order.
func (s *Store) scan(prefix string, fn func(value []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// badgerLogger routes Badger's own logging into slog. Info and debug chatter
// is dropped to debug level.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...any) {
	l.log.Error("badger", "detail", fmt.Sprintf(format, args...))
}

func (l badgerLogger) Warningf(format string, args ...any) {
	l.log.Warn("badger", "detail", fmt.Sprintf(format, args...))
}

func (l badgerLogger) Infof(format string, args ...any) {
	l.log.Debug("badger", "detail", fmt.Sprintf(format, args...))
}

func (l badgerLogger) Debugf(format string, args ...any) {
	l.log.Debug("badger", "detail", fmt.Sprintf(format, args...))
}
