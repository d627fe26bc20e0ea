package watch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cloudcli"
	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

type MockWatchStore struct {
	mock.Mock
}

func (m *MockWatchStore) ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error) {
	args := m.Called(activeOnly)
	return args.Get(0).([]entity.Environment), args.Error(1)
}

func (m *MockWatchStore) WriteObservations(ctx context.Context, obs []entity.Observation) error {
	return m.Called(obs).Error(0)
}

func (m *MockWatchStore) ObservationGroups(ctx context.Context, since time.Time) ([]string, error) {
	args := m.Called(since)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWatchStore) ReplaceHostAssignments(ctx context.Context, envToHost map[string]int, at time.Time) error {
	return m.Called(envToHost, at).Error(0)
}

// halfProber reads a signature for p1 and fails everything else.
type halfProber struct{}

func (halfProber) ProbeHosts(ctx context.Context, envs []entity.EnvironmentID, onDone func(cloudcli.ProbeResult)) []cloudcli.ProbeResult {
	out := []cloudcli.ProbeResult{}
	for _, env := range envs {
		res := cloudcli.ProbeResult{Environment: env}
		if env == "p1:master" {
			res.Signature = mo.Ok(entity.HostSignature{BootTime: time.Unix(100, 0), CPUs: 4, IP: "10.0.0.1"})
		} else {
			res.Signature = mo.Err[entity.HostSignature](errors.New("timeout"))
		}
		onDone(res)
		out = append(out, res)
	}
	return out
}

var now = time.Unix(1700000000, 0)

func newTask(store WatchStore, since time.Duration) *RefreshTask {
	term, _, _, _ := terminal.NewTestTerminal()
	task := NewRefreshTask(context.Background(), term, store, halfProber{}, "@every 1h", since)
	task.now = func() time.Time { return now }
	return task
}

func TestRefreshTask_Spec(t *testing.T) {
	spec := newTask(new(MockWatchStore), 0).GetTaskSpec()
	assert.Equal(t, "refresh", spec.Name)
	assert.Equal(t, "@every 1h", spec.Cron)
	assert.True(t, spec.RunCronImmediately)
}

func TestRefreshTask_RegroupsAfterPartialCheck(t *testing.T) {
	store := new(MockWatchStore)
	store.On("ListEnvironments", true).Return([]entity.Environment{
		{ProjectID: "p1", EnvironmentID: "master"},
		{ProjectID: "p2", EnvironmentID: "master"},
	}, nil)
	store.On("WriteObservations", mock.Anything).Return(nil)
	store.On("ObservationGroups", now.Add(-time.Hour)).Return([]string{"p1:master"}, nil)
	store.On("ReplaceHostAssignments", map[string]int{"p1:master": 0}, now).Return(nil)

	require.NoError(t, newTask(store, time.Hour).Run())
	store.AssertExpectations(t)
}

func TestRefreshTask_EmptyCacheStops(t *testing.T) {
	store := new(MockWatchStore)
	store.On("ListEnvironments", true).Return([]entity.Environment{}, nil)

	assert.Error(t, newTask(store, 0).Run())
	store.AssertNotCalled(t, "ObservationGroups", mock.Anything)
}

func TestNewCmdWatch_StopsWhenContextCancelled(t *testing.T) {
	listed := make(chan struct{}, 1)
	store := new(MockWatchStore)
	store.On("ListEnvironments", true).Return([]entity.Environment{}, nil).Run(func(mock.Arguments) {
		select {
		case listed <- struct{}{}:
		default:
		}
	})

	term, _, _, _ := terminal.NewTestTerminal()
	cmd := NewCmdWatch(term, store, halfProber{}, "@every 1h", 0)
	cmd.SetArgs([]string{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case <-listed:
	case <-time.After(time.Second):
		t.Fatal("first refresh did not run")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("watch kept running after its context was cancelled")
	}
}

func TestRefreshTask_SkipsAfterCancel(t *testing.T) {
	store := new(MockWatchStore)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	term, _, _, _ := terminal.NewTestTerminal()
	task := NewRefreshTask(ctx, term, store, halfProber{}, "@every 1h", 0)

	assert.ErrorIs(t, task.Run(), context.Canceled)
	store.AssertNotCalled(t, "ListEnvironments", mock.Anything)
}
