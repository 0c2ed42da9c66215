package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"amari/internal/model"
)

const (
	computationPrefix = "comp/"
	cayleyPrefix      = "cayley/"
)

// BadgerConfig configures the embedded key-value backend.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path       string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger

	// GCInterval triggers value log garbage collection; zero disables it.
	GCInterval     time.Duration
	GCDiscardRatio float64
}

func DefaultBadgerConfig() BadgerConfig {
	return BadgerConfig{
		SyncWrites:     true,
		GCInterval:     5 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

type BadgerStore struct {
	cfg BadgerConfig

	mu     sync.RWMutex
	db     *badger.DB
	stopGC chan struct{}
	gcDone chan struct{}
}

func NewBadgerStore(cfg BadgerConfig) *BadgerStore {
	return &BadgerStore{cfg: cfg}
}

type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (s *BadgerStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}
	if !s.cfg.InMemory && s.cfg.Path == "" {
		return errors.New("badger path is required for persistent database")
	}

	var opts badger.Options
	if s.cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(s.cfg.Path, 0o750); err != nil {
			return fmt.Errorf("create database directory %s: %w", s.cfg.Path, err)
		}
		opts = badger.DefaultOptions(s.cfg.Path)
	}
	opts = opts.WithSyncWrites(s.cfg.SyncWrites).WithNumVersionsToKeep(1)
	if s.cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: s.cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return fmt.Errorf("open badger database: %w", err)
	}
	s.db = db

	if s.cfg.GCInterval > 0 && !s.cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.runGC(db, s.stopGC, s.gcDone)
	}
	return nil
}

func (s *BadgerStore) runGC(db *badger.DB, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			err := db.RunValueLogGC(s.cfg.GCDiscardRatio)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) && s.cfg.Logger != nil {
				s.cfg.Logger.Warn("badger value log GC error", slog.String("error", err.Error()))
			}
		}
	}
}

func (s *BadgerStore) getDB() (*badger.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func (s *BadgerStore) SaveComputation(_ context.Context, c model.Computation) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeComputation(c)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(computationPrefix+c.Name), payload)
	})
}

func (s *BadgerStore) GetComputation(_ context.Context, name string) (model.Computation, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.Computation{}, false, err
	}
	payload, ok, err := getValue(db, computationPrefix+name)
	if err != nil || !ok {
		return model.Computation{}, false, err
	}
	c, err := DecodeComputation(payload)
	if err != nil {
		return model.Computation{}, false, fmt.Errorf("decode computation %s: %w", name, err)
	}
	return c, true, nil
}

func (s *BadgerStore) ListComputations(_ context.Context) ([]model.ComputationSummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	out := []model.ComputationSummary{}
	err = scanPrefix(db, computationPrefix, func(_ string, payload []byte) error {
		c, err := DecodeComputation(payload)
		if err != nil {
			return fmt.Errorf("decode computation: %w", err)
		}
		out = append(out, c.Summary())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *BadgerStore) DeleteComputation(_ context.Context, name string) (bool, error) {
	db, err := s.getDB()
	if err != nil {
		return false, err
	}
	found := false
	err = db.Update(func(txn *badger.Txn) error {
		key := []byte(computationPrefix + name)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return err
		}
		found = true
		return txn.Delete(key)
	})
	return found, err
}

func (s *BadgerStore) SaveCayleyTable(_ context.Context, r model.CayleyRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := EncodeCayleyRecord(r)
	if err != nil {
		return err
	}
	return db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cayleyPrefix+r.ID), payload)
	})
}

func (s *BadgerStore) GetCayleyTable(_ context.Context, id string) (model.CayleyRecord, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return model.CayleyRecord{}, false, err
	}
	payload, ok, err := getValue(db, cayleyPrefix+id)
	if err != nil || !ok {
		return model.CayleyRecord{}, false, err
	}
	r, err := DecodeCayleyRecord(payload)
	if err != nil {
		return model.CayleyRecord{}, false, fmt.Errorf("decode cayley table %s: %w", id, err)
	}
	return r, true, nil
}

func (s *BadgerStore) ListCayleyTables(_ context.Context) ([]model.CayleySummary, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	out := []model.CayleySummary{}
	err = scanPrefix(db, cayleyPrefix, func(_ string, payload []byte) error {
		r, err := DecodeCayleyRecord(payload)
		if err != nil {
			return fmt.Errorf("decode cayley table: %w", err)
		}
		out = append(out, r.Summary())
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *BadgerStore) DeleteCayleyTables(_ context.Context, id string) (int, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	if id != "" {
		found := false
		err := db.Update(func(txn *badger.Txn) error {
			key := []byte(cayleyPrefix + id)
			if _, err := txn.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return nil
				}
				return err
			}
			found = true
			return txn.Delete(key)
		})
		if err != nil || !found {
			return 0, err
		}
		return 1, nil
	}
	before, err := countPrefix(db, cayleyPrefix)
	if err != nil {
		return 0, err
	}
	if err := db.DropPrefix([]byte(cayleyPrefix)); err != nil {
		return 0, err
	}
	return before, nil
}

func (s *BadgerStore) Reset(_ context.Context) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	return db.DropAll()
}

func (s *BadgerStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
		s.stopGC = nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func getValue(db *badger.DB, key string) ([]byte, bool, error) {
	var payload []byte
	err := db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func scanPrefix(db *badger.DB, prefix string, fn func(key string, payload []byte) error) error {
	return db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			item := it.Item()
			payload, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(string(item.Key()), payload); err != nil {
				return err
			}
		}
		return nil
	})
}

func countPrefix(db *badger.DB, prefix string) (int, error) {
	n := 0
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		p := []byte(prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}
