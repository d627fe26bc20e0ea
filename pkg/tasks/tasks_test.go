package tasks

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	cron "github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type DummyTask struct {
	Ran      int32
	Err      error
	TaskSpec TaskSpec
}

func (d *DummyTask) Run() error {
	atomic.AddInt32(&d.Ran, 1)
	return d.Err
}

func (d *DummyTask) GetTaskSpec() TaskSpec {
	return d.TaskSpec
}

func (d *DummyTask) ran() int32 {
	return atomic.LoadInt32(&d.Ran)
}

// countdownSchedule fires every 5ms for a fixed number of ticks and then
// never again, so run counts do not depend on wall-clock timing.
type countdownSchedule struct {
	left int32
}

func (s *countdownSchedule) Next(t time.Time) time.Time {
	if atomic.AddInt32(&s.left, -1) < 0 {
		return time.Time{}
	}
	return t.Add(5 * time.Millisecond)
}

type ticksParser struct {
	ticks int32
}

func (p ticksParser) Parse(string) (cron.Schedule, error) {
	return &countdownSchedule{left: p.ticks}, nil
}

func withTicks(n int32) cron.Option {
	return cron.WithParser(ticksParser{ticks: n})
}

func start(tr *TaskRunner) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tr.Run(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func expectRuns(t *testing.T, dt *DummyTask, n int32) {
	t.Helper()
	assert.Eventually(t, func() bool { return dt.ran() == n }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return dt.ran() > n }, 50*time.Millisecond, 5*time.Millisecond)
}

func TestRunImmediateAndCron(t *testing.T) {
	dt := &DummyTask{TaskSpec: TaskSpec{
		Name:               "check",
		RunCronImmediately: true,
		Cron:               "tick",
	}}
	cancel, done := start(NewTaskRunner([]Task{dt}, withTicks(1)))

	expectRuns(t, dt, 2)
	cancel()
	waitStopped(t, done)
}

func TestNotRunImmediateAndCron(t *testing.T) {
	dt := &DummyTask{TaskSpec: TaskSpec{Cron: "tick"}}
	cancel, done := start(NewTaskRunner([]Task{dt}, withTicks(1)))

	expectRuns(t, dt, 1)
	cancel()
	waitStopped(t, done)
}

func TestFailingTaskKeepsRunning(t *testing.T) {
	dt := &DummyTask{Err: errors.New("ssh timeout"), TaskSpec: TaskSpec{
		RunCronImmediately: true,
		Cron:               "tick",
	}}
	cancel, done := start(NewTaskRunner([]Task{dt}, withTicks(2)))

	expectRuns(t, dt, 3)
	cancel()
	waitStopped(t, done)
}

func TestRunOnce(t *testing.T) {
	dt := &DummyTask{TaskSpec: TaskSpec{Name: "once"}}
	cancel, done := start(NewTaskRunner([]Task{dt}))

	expectRuns(t, dt, 1)
	cancel()
	waitStopped(t, done)
}

func TestSendStop(t *testing.T) {
	tr := NewTaskRunner([]Task{&DummyTask{TaskSpec: TaskSpec{Cron: "@every 1h"}}})
	_, done := start(tr)

	time.Sleep(20 * time.Millisecond)
	tr.SendStop()
	waitStopped(t, done)
}

func TestStopsWhenContextCancelled(t *testing.T) {
	dt := &DummyTask{TaskSpec: TaskSpec{Cron: "@every 1h", RunCronImmediately: true}}
	cancel, done := start(NewTaskRunner([]Task{dt}))

	require.Eventually(t, func() bool { return dt.ran() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	waitStopped(t, done)
}

func TestBadCron(t *testing.T) {
	dt := DummyTask{TaskSpec: TaskSpec{Cron: "every now and then"}}
	err := NewTaskRunner([]Task{&dt}).Run(context.Background())
	assert.Error(t, err)
}
