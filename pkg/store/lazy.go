package store

import (
	"context"
	"sync"
	"time"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

// Lazy opens the cache on first use so commands that never touch it (help,
// version) do not create it.
type Lazy struct {
	path  string
	once  sync.Once
	store *Store
	err   error
}

func NewLazy(path string) *Lazy {
	return &Lazy{path: path}
}

func (l *Lazy) get() (*Store, error) {
	l.once.Do(func() {
		l.store, l.err = Open(l.path)
	})
	if l.err != nil {
		return nil, fleeterrors.WrapAndTrace(l.err)
	}
	return l.store, nil
}

func (l *Lazy) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

func (l *Lazy) SyncEnvironments(ctx context.Context, envs []entity.Environment, at time.Time, deactivateMissing bool) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.SyncEnvironments(ctx, envs, at, deactivateMissing)
}

func (l *Lazy) ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.ListEnvironments(ctx, activeOnly)
}

func (l *Lazy) WriteObservations(ctx context.Context, obs []entity.Observation) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.WriteObservations(ctx, obs)
}

func (l *Lazy) ListObservations(ctx context.Context, env entity.EnvironmentID) ([]entity.Observation, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.ListObservations(ctx, env)
}

func (l *Lazy) ObservationGroups(ctx context.Context, since time.Time) ([]string, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.ObservationGroups(ctx, since)
}

func (l *Lazy) ReplaceHostAssignments(ctx context.Context, envToHost map[string]int, at time.Time) error {
	s, err := l.get()
	if err != nil {
		return err
	}
	return s.ReplaceHostAssignments(ctx, envToHost, at)
}

func (l *Lazy) ListHostAssignments(ctx context.Context) ([]entity.HostAssignment, error) {
	s, err := l.get()
	if err != nil {
		return nil, err
	}
	return s.ListHostAssignments(ctx)
}
