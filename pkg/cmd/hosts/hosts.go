// Package hosts prints the saved host groups
package hosts

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/util"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cotenancy"
	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

var (
	hostsLong    = "Show the host groups saved by the last `cloudfleet cotenants` run"
	hostsExample = `  cloudfleet hosts
  cloudfleet hosts abc123:master
  cloudfleet hosts abc123:master --ids | cloudfleet check`
)

type HostsStore interface {
	ListHostAssignments(ctx context.Context) ([]entity.HostAssignment, error)
}

func NewCmdHosts(t *terminal.Terminal, store HostsStore) *cobra.Command {
	var all, ids bool
	cmd := &cobra.Command{
		Use:                   "hosts [project:environment]",
		DisableFlagsInUseLine: true,
		Short:                 "Show saved host groups",
		Long:                  hostsLong,
		Example:               hostsExample,
		Args:                  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := LoadPartition(cmd.Context(), store)
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			if len(args) == 0 {
				RunHosts(t, p, all, ids)
				return nil
			}
			env, err := entity.ParseEnvironmentID(args[0])
			if err != nil {
				return fleeterrors.NewValidationError(err.Error())
			}
			err = RunEnvironmentHost(t, p, env, ids)
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "also list hosts with a single environment")
	cmd.Flags().BoolVar(&ids, "ids", false, "print bare environment ids, one per line")
	return cmd
}

func LoadPartition(ctx context.Context, store HostsStore) (cotenancy.Partition, error) {
	assignments, err := store.ListHostAssignments(ctx)
	if err != nil {
		return cotenancy.Partition{}, fleeterrors.WrapAndTrace(err)
	}
	return cotenancy.FromAssignments(lo.SliceToMap(assignments, func(a entity.HostAssignment) (string, int) {
		return string(a.EnvironmentID), a.HostID
	})), nil
}

func RunHosts(t *terminal.Terminal, p cotenancy.Partition, all, ids bool) {
	if p.HostCount() == 0 {
		t.Vprint(t.Yellow("no host groups saved yet, run `cloudfleet check` and `cloudfleet cotenants`"))
		return
	}
	if ids {
		for host := 0; host < p.HostCount(); host++ {
			members := p.Members(host)
			if !all && len(members) < 2 {
				continue
			}
			for _, env := range members {
				t.Print(env)
			}
		}
		return
	}
	util.RenderHosts(t.Out(), p, !all)
	t.Vprint(t.Green(util.SummarizeHosts(p)))
}

func RunEnvironmentHost(t *terminal.Terminal, p cotenancy.Partition, env entity.EnvironmentID, ids bool) error {
	host, ok := p.EnvToHost[string(env)]
	if !ok {
		return fleeterrors.NewValidationError(fmt.Sprintf("%s has no saved host group", env))
	}
	cotenants := p.Cotenants(string(env))
	if ids {
		for _, c := range cotenants {
			t.Print(c)
		}
		return nil
	}
	if len(cotenants) == 0 {
		t.Printf("%s is alone on host %d\n", env, host)
		return nil
	}
	t.Printf("%s shares host %d with:\n", env, host)
	for _, c := range cotenants {
		t.Printf("  %s\n", c)
	}
	return nil
}
