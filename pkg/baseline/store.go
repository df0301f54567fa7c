// Copyright © 2018 One Concern

package baseline

import (
	"bytes"
	"context"
	"time"

	"github.com/nightlyone/lockfile"
	"github.com/oneconcern/releaser/pkg/baseline/status"
	"github.com/oneconcern/releaser/pkg/errors"
	"github.com/oneconcern/releaser/pkg/storage"
	storagestatus "github.com/oneconcern/releaser/pkg/storage/status"
	"github.com/oneconcern/releaser/pkg/version"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultKey is the name of the baseline record
	DefaultKey = "VERSION"

	journalSuffix = ".restore"
)

// Journal describes a staged release, kept until the baseline is restored
type Journal struct {
	Previous string    `yaml:"previous"`
	Staged   string    `yaml:"staged"`
	RunID    string    `yaml:"run"`
	StagedAt time.Time `yaml:"stagedAt"`
}

// Store reads and writes the baseline record
type Store struct {
	store    storage.Store
	journal  storage.Store
	key      string
	lockPath string

	// in-process single writer: lockfile only guards against other processes
	writer chan struct{}
}

// Option for the baseline Store
type Option func(*Store)

// Key sets the name of the baseline record in the storage
func Key(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// JournalIn keeps the restore journal in another storage than the record.
//
// The record usually lives in a build context: its bookkeeping does not have to.
func JournalIn(journal storage.Store) Option {
	return func(s *Store) {
		if journal != nil {
			s.journal = journal
		}
	}
}

// LockFile sets the absolute path of the lock file guarding the baseline across processes.
//
// When not set, Lock only serializes releases within the current process.
func LockFile(path string) Option {
	return func(s *Store) {
		s.lockPath = path
	}
}

// New baseline store, backed by some storage
func New(store storage.Store, opts ...Option) *Store {
	s := &Store{
		store:  store,
		key:    DefaultKey,
		writer: make(chan struct{}, 1),
	}
	for _, apply := range opts {
		apply(s)
	}
	if s.journal == nil {
		s.journal = store
	}
	return s
}

// String representation of the record location
func (s *Store) String() string {
	return s.store.String() + "/" + s.key
}

func (s *Store) journalKey() string {
	return s.key + journalSuffix
}

// Read the current baseline
func (s *Store) Read(ctx context.Context) (version.Version, error) {
	b, err := storage.ReadAll(ctx, s.store, s.key)
	if err != nil {
		if errors.Is(err, storagestatus.ErrNotExists) {
			return version.Version{}, status.ErrStorage.WrapMessage("no baseline recorded at %s: initialize it first", s)
		}
		return version.Version{}, status.ErrStorage.Wrap(err)
	}
	return version.Parse(string(b))
}

// Write overwrites the baseline record atomically
func (s *Store) Write(ctx context.Context, v version.Version) error {
	if err := s.store.Put(ctx, s.key, bytes.NewBufferString(v.String()+"\n"), storage.OverWrite); err != nil {
		return status.ErrStorage.Wrap(err)
	}
	return nil
}

// Init records the baseline for the first time
func (s *Store) Init(ctx context.Context, v version.Version) error {
	err := s.store.Put(ctx, s.key, bytes.NewBufferString(v.String()+"\n"), storage.NoOverWrite)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storagestatus.ErrExists):
		return status.ErrExists.WrapMessage("%s", s)
	default:
		return status.ErrStorage.Wrap(err)
	}
}

// Lock acquires exclusive ownership of the baseline for a whole release flow.
//
// It does not wait: a baseline held by another release fails with ErrLocked.
func (s *Store) Lock() (func() error, error) {
	select {
	case s.writer <- struct{}{}:
	default:
		return nil, status.ErrLocked.WrapMessage("a release is already in progress in this process")
	}
	release := func() { <-s.writer }

	if s.lockPath == "" {
		return func() error {
			release()
			return nil
		}, nil
	}

	lock, err := lockfile.New(s.lockPath)
	if err != nil {
		release()
		return nil, status.ErrStorage.Wrap(err)
	}
	if err = lock.TryLock(); err != nil {
		release()
		return nil, status.ErrLocked.Wrap(err)
	}
	return func() error {
		defer release()
		if e := lock.Unlock(); e != nil {
			return status.ErrStorage.Wrap(e)
		}
		return nil
	}, nil
}

// Pending returns the restore journal left by a staged release, if any
func (s *Store) Pending(ctx context.Context) (*Journal, error) {
	has, err := s.journal.Has(ctx, s.journalKey())
	if err != nil {
		return nil, status.ErrStorage.Wrap(err)
	}
	if !has {
		return nil, nil
	}
	b, err := storage.ReadAll(ctx, s.journal, s.journalKey())
	if err != nil {
		return nil, status.ErrStorage.Wrap(err)
	}
	var j Journal
	if err = yaml.Unmarshal(b, &j); err != nil {
		return nil, status.ErrStorage.WrapMessage("corrupted restore journal: %v", err)
	}
	return &j, nil
}

// Recover restores the baseline recorded by a leftover journal.
//
// It returns the replayed journal, or nil when there was nothing to recover.
func (s *Store) Recover(ctx context.Context) (*Journal, error) {
	j, err := s.Pending(ctx)
	if err != nil || j == nil {
		return nil, err
	}
	previous, err := version.Parse(j.Previous)
	if err != nil {
		return nil, status.ErrStorage.WrapMessage("corrupted restore journal: %v", err)
	}
	if err = s.Write(ctx, previous); err != nil {
		return nil, err
	}
	if err = s.clearJournal(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

// Stage writes target into the baseline record, until Restore or Commit is called on the returned value.
func (s *Store) Stage(ctx context.Context, previous, target version.Version, runID string) (*Staged, error) {
	j := Journal{
		Previous: previous.String(),
		Staged:   target.String(),
		RunID:    runID,
		StagedAt: time.Now().UTC(),
	}
	b, err := yaml.Marshal(j)
	if err != nil {
		return nil, status.ErrStorage.Wrap(err)
	}
	if err = s.journal.Put(ctx, s.journalKey(), bytes.NewReader(b), storage.OverWrite); err != nil {
		return nil, status.ErrStorage.Wrap(err)
	}
	if err = s.Write(ctx, target); err != nil {
		// the record is written atomically: it still holds the previous value
		_ = s.clearJournal(ctx)
		return nil, err
	}
	return &Staged{store: s, previous: previous, target: target}, nil
}

func (s *Store) clearJournal(ctx context.Context) error {
	if err := s.journal.Delete(ctx, s.journalKey()); err != nil {
		return status.ErrStorage.Wrap(err)
	}
	return nil
}

// Staged is a target version transiently held by the baseline record
type Staged struct {
	store    *Store
	previous version.Version
	target   version.Version
	done     bool
}

// Previous baseline, before staging
func (st *Staged) Previous() version.Version {
	return st.previous
}

// Target staged version
func (st *Staged) Target() version.Version {
	return st.target
}

// Restore puts back the previous baseline. Calling it more than once is a no-op.
func (st *Staged) Restore(ctx context.Context) error {
	return st.finish(ctx, st.previous)
}

// Commit keeps the staged target as the new durable baseline
func (st *Staged) Commit(ctx context.Context) error {
	return st.finish(ctx, st.target)
}

func (st *Staged) finish(ctx context.Context, v version.Version) error {
	if st == nil || st.done {
		return nil
	}
	if err := st.store.Write(ctx, v); err != nil {
		return err
	}
	st.done = true
	return st.store.clearJournal(ctx)
}
