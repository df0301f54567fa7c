package release

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/oneconcern/releaser/pkg/command"
	"github.com/oneconcern/releaser/pkg/errors"
	"github.com/oneconcern/releaser/pkg/storage"
	"github.com/oneconcern/releaser/pkg/version"
	"github.com/stretchr/testify/mock"
)

type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) TagExists(_ context.Context, tag string) (bool, error) {
	args := m.Called(tag)
	return args.Bool(0), args.Error(1)
}

func (m *mockRegistry) FetchPublishedBaseline(_ context.Context) (*version.Version, error) {
	args := m.Called()
	v, _ := args.Get(0).(*version.Version)
	return v, args.Error(1)
}

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context, tag string) (command.Result, error) {
	args := m.Called(ctx, tag)
	return args.Get(0).(command.Result), args.Error(1)
}

func (m *mockBuilder) Push(_ context.Context, tag string) (command.Result, error) {
	args := m.Called(tag)
	return args.Get(0).(command.Result), args.Error(1)
}

func (m *mockBuilder) Clean(_ context.Context, tag string) command.Result {
	args := m.Called(tag)
	return args.Get(0).(command.Result)
}

type mockGate struct {
	mock.Mock
}

func (m *mockGate) Confirm(_ context.Context, message string) error {
	return m.Called(message).Error(0)
}

func (m *mockGate) Inform(message string) {
	m.Called(message)
}

type mockRevision struct {
	mock.Mock
}

func (m *mockRevision) Short(_ context.Context) (string, error) {
	args := m.Called()
	return args.String(0), args.Error(1)
}

type recorded struct {
	flow, outcome string
}

type recorder struct {
	mu       sync.Mutex
	releases []recorded
	stages   []string
}

func (r *recorder) ObserveRelease(flow, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.releases = append(r.releases, recorded{flow: flow, outcome: outcome})
}

func (r *recorder) ObserveStage(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

var errDiskFull = errors.New("disk full")

// flakyStorage fails writes once broken
type flakyStorage struct {
	storage.Store
	mu     sync.Mutex
	broken bool
}

func (s *flakyStorage) breakWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broken = true
}

func (s *flakyStorage) Put(ctx context.Context, key string, r io.Reader, overwrite bool) error {
	s.mu.Lock()
	broken := s.broken
	s.mu.Unlock()
	if broken {
		return errDiskFull
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.Store.Put(ctx, key, bytes.NewReader(b), overwrite)
}
