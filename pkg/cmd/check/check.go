// Package check probes environments for their host signature
package check

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cloudcli"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/util"
	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	checkLong    = "SSH into each environment and record its host signature (boot time, cpu count, ip)"
	checkExample = `  # every cached active environment
  cloudfleet check

  # selected environments
  cloudfleet check abc123:master abc123:staging
  cloudfleet check @prod-envs.txt`
)

type CheckStore interface {
	ListEnvironments(ctx context.Context, activeOnly bool) ([]entity.Environment, error)
	WriteObservations(ctx context.Context, obs []entity.Observation) error
}

type Prober interface {
	ProbeHosts(ctx context.Context, envs []entity.EnvironmentID, onDone func(cloudcli.ProbeResult)) []cloudcli.ProbeResult
}

type Summary struct {
	CheckID  string
	Probed   int
	Recorded int
	Failed   []entity.EnvironmentID
}

func NewCmdCheck(t *terminal.Terminal, store CheckStore, prober Prober, fs afero.Fs) *cobra.Command {
	cmd := &cobra.Command{
		Use:                   "check [project:environment | @file ...]",
		DisableFlagsInUseLine: true,
		Short:                 "Record host signatures of environments",
		Long:                  checkLong,
		Example:               checkExample,
		RunE: func(cmd *cobra.Command, args []string) error {
			var stdin io.Reader
			if len(args) == 0 {
				stdin = util.PipedStdin()
			}
			targets, err := util.GetEnvironmentIDs(fs, args, stdin)
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			_, err = RunCheck(cmd.Context(), t, store, prober, targets, time.Now)
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
	}
	return cmd
}

// RunCheck probes targets, or every cached active environment when targets
// is empty, and stores the signatures that could be read. Failed probes are
// returned together as one error after the successful ones are stored.
func RunCheck(ctx context.Context, t *terminal.Terminal, store CheckStore, prober Prober, targets []entity.EnvironmentID, now func() time.Time) (*Summary, error) {
	if len(targets) == 0 {
		envs, err := store.ListEnvironments(ctx, true)
		if err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
		if len(envs) == 0 {
			return nil, &fleeterrors.EmptyCache{}
		}
		targets = lo.Map(envs, func(e entity.Environment, _ int) entity.EnvironmentID { return e.ID() })
	}

	summary := &Summary{CheckID: uuid.NewString(), Probed: len(targets)}

	bar := t.NewProgressBar(len(targets), "probing hosts")
	results := prober.ProbeHosts(ctx, targets, func(cloudcli.ProbeResult) { bar.Advance() })
	bar.Finish()

	checkedAt := now()
	var observations []entity.Observation
	var errs error
	for _, res := range results {
		sig, err := res.Signature.Get()
		if err != nil {
			summary.Failed = append(summary.Failed, res.Environment)
			errs = multierror.Append(errs, err)
			continue
		}
		observations = append(observations, entity.Observation{
			CheckID:       summary.CheckID,
			EnvironmentID: res.Environment,
			Signature:     sig,
			CheckedAt:     checkedAt,
		})
	}

	if len(observations) > 0 {
		if err := store.WriteObservations(ctx, observations); err != nil {
			return summary, fleeterrors.WrapAndTrace(err)
		}
	}
	summary.Recorded = len(observations)

	t.Vprintf("%s\n", t.Green("recorded %d of %d environments (check %s)", summary.Recorded, summary.Probed, summary.CheckID))
	if errs != nil {
		printFailures(t.Out(), t, summary.Failed)
		return summary, fleeterrors.WrapAndTrace(errs)
	}
	return summary, nil
}

func printFailures(w io.Writer, t *terminal.Terminal, failed []entity.EnvironmentID) {
	t.Eprint(t.Yellow("%d environments could not be probed:", len(failed)))
	for _, env := range failed {
		_, _ = io.WriteString(w, string(env)+"\n")
	}
}
