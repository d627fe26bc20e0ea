// Package cotenants groups environments that share a host
package cotenants

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/util"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cotenancy"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	cotenantsLong = `Group environments that were observed with the same host signature, merging
groups that share an environment, and save the result for the dashboard.

Host numbers are only meaningful within one run; each run replaces the saved mapping.`
	cotenantsExample = `  cloudfleet cotenants
  cloudfleet cotenants --since 168h
  cloudfleet cotenants --dry-run --all`
)

type CotenantsStore interface {
	ObservationGroups(ctx context.Context, since time.Time) ([]string, error)
	ReplaceHostAssignments(ctx context.Context, envToHost map[string]int, at time.Time) error
}

type Options struct {
	Since  time.Duration
	DryRun bool
	All    bool
}

func NewCmdCotenants(t *terminal.Terminal, store CotenantsStore, defaultSince time.Duration) *cobra.Command {
	opts := Options{}
	cmd := &cobra.Command{
		Use:                   "cotenants",
		DisableFlagsInUseLine: true,
		Short:                 "Infer which environments share a host",
		Long:                  cotenantsLong,
		Example:               cotenantsExample,
		Args:                  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := RunCotenants(cmd.Context(), store, opts, time.Now())
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			util.RenderHosts(t.Out(), p, !opts.All)
			t.Vprint(t.Green(util.SummarizeHosts(p)))
			if opts.DryRun {
				t.Vprint(t.Yellow("dry run, nothing saved"))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&opts.Since, "since", defaultSince, "only use observations newer than this (0 for all history)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "print the grouping without saving it")
	cmd.Flags().BoolVarP(&opts.All, "all", "a", false, "also list hosts with a single environment")
	return cmd
}

// RunCotenants resolves the current observation groups and, unless DryRun,
// replaces the persisted environment to host mapping with the result.
func RunCotenants(ctx context.Context, store CotenantsStore, opts Options, now time.Time) (cotenancy.Partition, error) {
	var since time.Time
	if opts.Since > 0 {
		since = now.Add(-opts.Since)
	}

	rows, err := store.ObservationGroups(ctx, since)
	if err != nil {
		return cotenancy.Partition{}, fleeterrors.WrapAndTrace(err)
	}
	p := cotenancy.Resolve(cotenancy.ParseGroups(rows))
	log.WithFields(log.Fields{"groups": len(rows), "hosts": p.HostCount()}).Debug("resolved cotenancy")

	if opts.DryRun {
		return p, nil
	}
	if err := store.ReplaceHostAssignments(ctx, p.EnvToHost, now); err != nil {
		return p, fleeterrors.WrapAndTrace(err)
	}
	return p, nil
}
