package tasks

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cron "github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

type Task interface {
	Run() error
	GetTaskSpec() TaskSpec
}

type TaskSpec struct {
	Name               string
	Cron               string // can be "" if want to run once // https://pkg.go.dev/github.com/robfig/cron/v3#hdr-CRON_Expression_Format
	RunCronImmediately bool   // only applied if cron not ""
}

type TaskRunner struct {
	Tasks       []Task
	StopSignals chan os.Signal
	CronOptions []cron.Option
}

func NewTaskRunner(tasks []Task, opts ...cron.Option) *TaskRunner {
	return &TaskRunner{
		Tasks:       tasks,
		StopSignals: make(chan os.Signal, 1),
		CronOptions: opts,
	}
}

func LogErr(name string, f func() error) func() {
	return func() {
		entry := log.WithField("task", name)
		entry.Debug("task started")
		err := f()
		if err != nil {
			entry.WithError(err).Error("task failed")
			return
		}
		entry.Debug("task finished")
	}
}

// Run schedules every task and blocks until ctx is done or a stop signal
// arrives. Jobs already running are waited for before returning.
func (tr TaskRunner) Run(ctx context.Context) error {
	signal.Notify(tr.StopSignals, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGINT)
	defer signal.Stop(tr.StopSignals)

	c := cron.New(tr.CronOptions...)
	for _, t := range tr.Tasks {
		spec := t.GetTaskSpec()
		job := LogErr(spec.Name, t.Run)
		if spec.Cron != "" {
			_, err := c.AddFunc(spec.Cron, job)
			if err != nil {
				return fleeterrors.WrapAndTrace(err, spec.Cron)
			}
			if spec.RunCronImmediately {
				job()
			}
		} else {
			job()
		}
	}

	c.Start()

	tr.WaitTillSignal(ctx, c.Stop)
	log.Info("stopped")

	return nil
}

func (tr TaskRunner) WaitTillSignal(ctx context.Context, ctxfn func() context.Context) {
	select {
	case <-tr.StopSignals:
	case <-ctx.Done():
	}
	log.Info("stopping")
	<-ctxfn().Done()
}

func (tr *TaskRunner) SendStop() {
	tr.StopSignals <- syscall.SIGQUIT
}
