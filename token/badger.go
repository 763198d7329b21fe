package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/rs/zerolog"
)

// BadgerOptions configures [OpenBadgerStore].
type BadgerOptions struct {
	// Dir is the data directory. Empty with InMemory unset is an error.
	Dir string
	// InMemory keeps all data in RAM.
	InMemory bool
	// KeyPrefix namespaces keys inside the database.
	KeyPrefix string
	// Grace is added to each record's lifetime for the entry TTL.
	Grace  time.Duration
	Logger zerolog.Logger
}

// BadgerStore is a [Store] on an embedded Badger database. Records are
// written with entry TTLs so Badger drops them during compaction.
type BadgerStore struct {
	db     *badger.DB
	prefix []byte
	grace  time.Duration
	logger zerolog.Logger

	closeOnce sync.Once
}

// OpenBadgerStore opens (or creates) the database described by opts.
func OpenBadgerStore(opts BadgerOptions) (*BadgerStore, error) {
	if opts.Dir == "" && !opts.InMemory {
		return nil, errors.New("badger: dir is required")
	}

	bopts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = &badgerLogger{logger: opts.Logger.With().Str("component", "badger").Logger()}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "st"
	}
	grace := opts.Grace
	if grace <= 0 {
		grace = DefaultEvictionGrace
	}

	return &BadgerStore{
		db:     db,
		prefix: []byte(prefix + ":"),
		grace:  grace,
		logger: opts.Logger,
	}, nil
}

func (s *BadgerStore) key(tok string) []byte {
	k := make([]byte, 0, len(s.prefix)+len(tok))
	k = append(k, s.prefix...)
	return append(k, tok...)
}

// Put creates rec inside a read-write transaction that first checks for an
// existing key.
func (s *BadgerStore) Put(ctx context.Context, rec *Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}

	key := s.key(rec.Token)
	err = s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return ErrConflict
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(evictionTTL(rec, s.grace)))
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConflict), errors.Is(err, badger.ErrConflict):
		return ErrConflict
	default:
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
}

// Get loads tok. Entries past their Badger TTL read as absent.
func (s *BadgerStore) Get(ctx context.Context, tok string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key(tok))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return Decode(tok, value)
}

// Delete removes tok. Missing keys are ignored.
func (s *BadgerStore) Delete(ctx context.Context, tok string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key(tok))
	}); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// RunGC runs value-log garbage collection every interval until ctx is done.
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				if err := s.db.RunValueLogGC(0.5); err != nil {
					if !errors.Is(err, badger.ErrNoRewrite) && !errors.Is(err, badger.ErrRejected) && !errors.Is(err, badger.ErrGCInMemoryMode) {
						s.logger.Warn().Err(err).Msg("badger value log gc failed")
					}
					break
				}
			}
		}
	}
}

// Close releases the database. Safe to call more than once.
func (s *BadgerStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.db.Close()
	})
	return err
}

type badgerLogger struct {
	logger zerolog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
