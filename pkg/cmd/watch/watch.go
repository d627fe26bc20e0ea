// Package watch re-checks the fleet and regroups hosts on a schedule
package watch

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/check"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/cotenants"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/tasks"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	watchLong    = "Run `check` followed by `cotenants` on a cron schedule until interrupted"
	watchExample = `  cloudfleet watch
  cloudfleet watch --cron "0 */6 * * *"`
)

type WatchStore interface {
	check.CheckStore
	cotenants.CotenantsStore
}

func NewCmdWatch(t *terminal.Terminal, store WatchStore, prober check.Prober, defaultCron string, since time.Duration) *cobra.Command {
	var cronSpec string
	cmd := &cobra.Command{
		Use:                   "watch",
		DisableFlagsInUseLine: true,
		Short:                 "Periodically check the fleet and regroup hosts",
		Long:                  watchLong,
		Example:               watchExample,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			task := NewRefreshTask(cmd.Context(), t, store, prober, cronSpec, since)
			err := tasks.NewTaskRunner([]tasks.Task{task}).Run(cmd.Context())
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&cronSpec, "cron", defaultCron, "cron schedule")
	return cmd
}

// RefreshTask probes every cached environment and then regroups hosts.
type RefreshTask struct {
	ctx    context.Context
	t      *terminal.Terminal
	store  WatchStore
	prober check.Prober
	cron   string
	since  time.Duration
	now    func() time.Time
}

var _ tasks.Task = &RefreshTask{}

func NewRefreshTask(ctx context.Context, t *terminal.Terminal, store WatchStore, prober check.Prober, cronSpec string, since time.Duration) *RefreshTask {
	if ctx == nil {
		ctx = context.Background()
	}
	return &RefreshTask{ctx: ctx, t: t, store: store, prober: prober, cron: cronSpec, since: since, now: time.Now}
}

func (r *RefreshTask) GetTaskSpec() tasks.TaskSpec {
	return tasks.TaskSpec{Name: "refresh", Cron: r.cron, RunCronImmediately: true}
}

// Run regroups even when some probes failed; the signatures that were read
// are already stored.
func (r *RefreshTask) Run() error {
	if err := r.ctx.Err(); err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	summary, checkErr := check.RunCheck(r.ctx, r.t, r.store, r.prober, nil, r.now)
	if checkErr != nil {
		if summary == nil {
			return fleeterrors.WrapAndTrace(checkErr)
		}
		log.WithField("failed", len(summary.Failed)).WithError(checkErr).Warn("some environments could not be probed")
	}

	p, err := cotenants.RunCotenants(r.ctx, r.store, cotenants.Options{Since: r.since}, r.now())
	if err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	log.WithFields(log.Fields{
		"environments": len(p.EnvToHost),
		"hosts":        p.HostCount(),
	}).Info("host groups refreshed")
	return nil
}
