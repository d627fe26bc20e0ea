// Package sync refreshes the cached environment list from the cloud cli
package sync

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	syncLong    = "List every project and active environment through the cloud cli and cache them"
	syncExample = `  cloudfleet sync
  cloudfleet sync --keep-going`
)

type SyncStore interface {
	SyncEnvironments(ctx context.Context, envs []entity.Environment, at time.Time, deactivateMissing bool) error
}

type SyncCLI interface {
	ListProjects(ctx context.Context) ([]string, error)
	ListEnvironments(ctx context.Context, projectID string) ([]entity.Environment, error)
}

func NewCmdSync(t *terminal.Terminal, store SyncStore, cli SyncCLI) *cobra.Command {
	var keepGoing bool
	cmd := &cobra.Command{
		Use:                   "sync",
		DisableFlagsInUseLine: true,
		Short:                 "Refresh the cached environment list",
		Long:                  syncLong,
		Example:               syncExample,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := RunSync(cmd.Context(), t, store, cli, keepGoing, time.Now())
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&keepGoing, "keep-going", false, "cache what could be listed even if some projects fail")
	return cmd
}

// RunSync fails without touching the cache when any project cannot be
// listed. With keepGoing it caches what it got but leaves environments it did
// not see as they were. An empty project list leaves the cache untouched.
func RunSync(ctx context.Context, t *terminal.Terminal, store SyncStore, cli SyncCLI, keepGoing bool, now time.Time) error {
	projects, err := cli.ListProjects(ctx)
	if err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	if len(projects) == 0 {
		t.Eprint(t.Yellow("the cloud cli listed no projects, cache left as is"))
		return nil
	}

	var envs []entity.Environment
	var errs error
	for _, p := range projects {
		projectEnvs, err := cli.ListEnvironments(ctx, p)
		if err != nil {
			log.WithField("project", p).WithError(err).Warn("could not list environments")
			errs = multierror.Append(errs, err)
			continue
		}
		envs = append(envs, projectEnvs...)
	}
	if errs != nil && !keepGoing {
		return fleeterrors.WrapAndTrace(errs)
	}

	for i := range envs {
		envs[i].UpdatedAt = now
	}
	if err := store.SyncEnvironments(ctx, envs, now, errs == nil); err != nil {
		return fleeterrors.WrapAndTrace(err)
	}

	t.Vprintf("%s\n", t.Green("cached %d environments across %d projects", len(envs), len(projects)))
	if errs != nil {
		t.Eprint(t.Yellow("some projects could not be listed:\n%s", errs.Error()))
	}
	return nil
}
