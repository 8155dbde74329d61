package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	defaultMaxSaveAttempts = 3
	defaultRetryDelay      = 500 * time.Millisecond
)

// PersistError reports a save that exhausted its retry budget. The in-memory
// document keeps the mutation; the next successful save converges disk.
type PersistError struct {
	Attempts int
	Cause    error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("save state after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *PersistError) Unwrap() error {
	return e.Cause
}

type StoreOption func(*Store)

// WithMaxAttempts overrides the save retry budget.
func WithMaxAttempts(n int) StoreOption {
	return func(s *Store) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithRetryDelay overrides the delay between save attempts.
func WithRetryDelay(d time.Duration) StoreOption {
	return func(s *Store) {
		if d >= 0 {
			s.retryDelay = d
		}
	}
}

// WithSleepFunc replaces the inter-attempt sleep, for tests.
func WithSleepFunc(sleep func(time.Duration)) StoreOption {
	return func(s *Store) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// WithWriteFileFunc replaces the file write, for tests that simulate
// transient I/O failure.
func WithWriteFileFunc(write func(path string, data []byte) error) StoreOption {
	return func(s *Store) {
		if write != nil {
			s.write = write
		}
	}
}

// WithObserveAttempt installs a callback invoked after every failed write
// attempt.
func WithObserveAttempt(observe func(err error)) StoreOption {
	return func(s *Store) {
		s.observeAttempt = observe
	}
}

// WithObserveSave installs a callback invoked with the final outcome of
// every Save call.
func WithObserveSave(observe func(err error)) StoreOption {
	return func(s *Store) {
		s.observeSave = observe
	}
}

func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store persists the state document as a single JSON file.
type Store struct {
	path           string
	maxAttempts    int
	retryDelay     time.Duration
	sleep          func(time.Duration)
	write          func(path string, data []byte) error
	observeAttempt func(err error)
	observeSave    func(err error)
	logger         *slog.Logger
	lastWriteNanos atomic.Int64
}

func NewStore(path string, opts ...StoreOption) *Store {
	s := &Store{
		path:        path,
		maxAttempts: defaultMaxSaveAttempts,
		retryDelay:  defaultRetryDelay,
		sleep:       time.Sleep,
		logger:      slog.Default(),
	}
	s.write = s.atomicWrite
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the state document. It never fails: a missing file, unreadable
// file, or malformed content is logged and yields an empty document, so a
// damaged store cannot prevent startup.
func (s *Store) Load() Document {
	doc, err := s.TryLoad()
	if err == nil {
		return doc
	}
	switch {
	case errors.Is(err, fs.ErrNotExist):
		s.logger.Info("state_file_absent", slog.String("path", s.path))
	default:
		s.logger.Warn("state_load_failed", slog.String("path", s.path), slog.Any("err", err))
	}
	return Document{}
}

// TryLoad reads and decodes the state document, surfacing the failure
// instead of degrading to an empty document.
func (s *Store) TryLoad() (Document, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}
	return doc, nil
}

// Save writes the full document, atomically replacing the prior content.
// Transient write failures are retried up to the attempt budget with a fixed
// delay in between; exhausting the budget returns a *PersistError carrying
// the last cause.
func (s *Store) Save(doc Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		// A Document of plain structs cannot fail to marshal; treat it like
		// an exhausted save so callers report it the same way.
		err = fmt.Errorf("encode state: %w", err)
		s.finishSave(err)
		return &PersistError{Attempts: 0, Cause: err}
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		err := s.write(s.path, data)
		if err == nil {
			s.lastWriteNanos.Store(time.Now().UnixNano())
			s.logger.Info("state_saved", slog.String("path", s.path), slog.Int("attempt", attempt))
			s.finishSave(nil)
			return nil
		}
		lastErr = err
		if s.observeAttempt != nil {
			s.observeAttempt(err)
		}
		s.logger.Warn("state_save_attempt_failed",
			slog.String("path", s.path),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.maxAttempts),
			slog.Any("err", err),
		)
		if attempt < s.maxAttempts {
			s.sleep(s.retryDelay)
		}
	}

	s.logger.Error("state_save_failed",
		slog.String("path", s.path),
		slog.Int("attempts", s.maxAttempts),
		slog.Any("err", lastErr),
	)
	s.finishSave(lastErr)
	return &PersistError{Attempts: s.maxAttempts, Cause: lastErr}
}

func (s *Store) finishSave(err error) {
	if s.observeSave != nil {
		s.observeSave(err)
	}
}

// LastWriteAt reports when the store last completed a write, so a file
// watcher can tell its own saves apart from external edits.
func (s *Store) LastWriteAt() time.Time {
	nanos := s.lastWriteNanos.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *Store) atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	keep := false
	defer func() {
		_ = tmp.Close()
		if !keep {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	keep = true
	return nil
}
