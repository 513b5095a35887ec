// Package store keeps a history of analysis reports in BadgerDB, keyed by
// the analysed file path.
package store

import (
	"context"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/RyanBlaney/sonido-mood/analyzer"
	"github.com/RyanBlaney/sonido-mood/config"
	"github.com/RyanBlaney/sonido-mood/logging"
)

// ErrNotFound is returned when no report exists for a path.
var ErrNotFound = errors.New("store: report not found")

const reportPrefix = "report:"

// Store is the analysis history.
type Store interface {
	Put(ctx context.Context, report *analyzer.Report) error
	Get(ctx context.Context, path string) (*analyzer.Report, error)
	List(ctx context.Context) ([]*analyzer.Report, error)
	Delete(ctx context.Context, path string) error
	Close() error
}

// Options configures a Badger store.
type Options struct {
	// Dir holds the database files. Required unless InMemory is set.
	Dir      string
	InMemory bool
	Logger   logging.Logger
}

// Badger is a Store backed by BadgerDB v4.
type Badger struct {
	db *badger.DB
}

var _ Store = (*Badger)(nil)

// NewBadger opens or creates a store.
func NewBadger(opts Options) (*Badger, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("store: Options.Dir is required for on-disk mode")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.WithFields(logging.Fields{"component": "badger"})
	}

	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(badgerLogger{logger})
	if opts.InMemory {
		dbOpts = dbOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return &Badger{db: db}, nil
}

// Open opens the store described by cfg; an empty Dir gives an in-memory
// store.
func Open(cfg config.StoreConfig) (*Badger, error) {
	return NewBadger(Options{Dir: cfg.Dir, InMemory: cfg.Dir == ""})
}

func key(path string) []byte { return []byte(reportPrefix + path) }

func (b *Badger) Put(_ context.Context, report *analyzer.Report) error {
	if report == nil || report.Path == "" {
		return errors.New("store: report has no path")
	}
	data, err := msgpack.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(report.Path), data)
	})
}

func (b *Badger) Get(_ context.Context, path string) (*analyzer.Report, error) {
	var report analyzer.Report
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(path))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &report)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List returns every stored report ordered by path.
func (b *Badger) List(ctx context.Context) ([]*analyzer.Report, error) {
	var reports []*analyzer.Report
	prefix := []byte(reportPrefix)
	err := b.db.View(func(txn *badger.Txn) error {
		iterOpts := badger.DefaultIteratorOptions
		iterOpts.Prefix = prefix
		it := txn.NewIterator(iterOpts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var report analyzer.Report
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &report)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", it.Item().Key(), err)
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reports, nil
}

// Delete removes the report for path. Deleting an absent report is not an
// error.
func (b *Badger) Delete(_ context.Context, path string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(path))
	})
}

func (b *Badger) Close() error {
	return b.db.Close()
}

// badgerLogger routes badger's messages into the structured logger,
// dropping info and debug chatter.
type badgerLogger struct {
	logger logging.Logger
}

func (l badgerLogger) Errorf(f string, v ...any) {
	l.logger.Error(fmt.Errorf(f, v...), "badger error")
}

func (l badgerLogger) Warningf(f string, v ...any) {
	l.logger.Warn(fmt.Sprintf(f, v...))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
