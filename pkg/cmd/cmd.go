// Package cmd is the entrypoint to cli
package cmd

import (
	"context"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cloudcli"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/check"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/cotenants"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/hosts"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/serve"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/sync"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/version"
	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd/watch"
	"github.com/cloudfleet/cloudfleet-cli/pkg/config"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/files"
	"github.com/cloudfleet/cloudfleet-cli/pkg/store"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

// commands annotated with this key shell out to the cloud cli and get the
// version gate
const needsCLI = "cli"

type VersionChecker interface {
	CheckVersion(ctx context.Context, min string) (string, bool, error)
}

func NewDefaultCloudfleetCommand(t *terminal.Terminal) (*cobra.Command, func() error) {
	v := viper.GetViper()
	if err := config.Load(v, config.GetConfigDirectory()); err != nil {
		log.WithError(err).Warn("could not read config file")
	}
	conf := config.NewConstantsFrom(v)

	cacheStore := store.NewLazy(conf.GetCachePath())
	cli := cloudcli.NewClient(
		cloudcli.ExecRunner{Timeout: conf.GetCLITimeout()},
		conf.GetCLIBinary(),
		conf.GetCLIParallel(),
	)
	return NewCloudfleetCommand(t, conf, cacheStore, cli, files.AppFs), cacheStore.Close
}

type FleetStore interface {
	sync.SyncStore
	check.CheckStore
	cotenants.CotenantsStore
	serve.ReportStore
}

type FleetCLI interface {
	sync.SyncCLI
	check.Prober
	VersionChecker
}

func NewCloudfleetCommand(t *terminal.Terminal, conf *config.ConstantsConfig, fleetStore FleetStore, cli FleetCLI, fs afero.Fs) *cobra.Command {
	var verbose bool

	cmds := &cobra.Command{
		Use:   "cloudfleet",
		Short: "cloudfleet keeps track of which hosted environments share a host",
		Long: `
      cloudfleet keeps track of which hosted environments share a host

      It drives the cloud cli to list and probe environments, caches what it
      sees locally and groups environments that run on the same machine.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(verbose || conf.GetDebugCommands())
			if _, ok := cmd.Annotations[needsCLI]; !ok {
				return nil
			}
			err := checkCLIVersion(cmd.Context(), cli, conf.GetCLIMinVersion())
			if err != nil {
				return fleeterrors.WrapAndTrace(err)
			}
			return nil
		},
		Run: runHelp,
	}
	cmds.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every cloud cli invocation")

	syncCmd := sync.NewCmdSync(t, fleetStore, cli)
	checkCmd := check.NewCmdCheck(t, fleetStore, cli, fs)
	watchCmd := watch.NewCmdWatch(t, fleetStore, cli, conf.GetWatchCron(), conf.GetCotenancySince())
	for _, c := range []*cobra.Command{syncCmd, checkCmd, watchCmd} {
		c.Annotations = map[string]string{needsCLI: ""}
		cmds.AddCommand(c)
	}

	cmds.AddCommand(cotenants.NewCmdCotenants(t, fleetStore, conf.GetCotenancySince()))
	cmds.AddCommand(hosts.NewCmdHosts(t, fleetStore))
	cmds.AddCommand(serve.NewCmdServe(t, fleetStore, conf.GetServeAddr()))
	cmds.AddCommand(newCmdVersion(t, cli, conf.GetCLIMinVersion()))

	return cmds
}

func setupLogging(verbose bool) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

func checkCLIVersion(ctx context.Context, cli VersionChecker, min string) error {
	installed, ok, err := cli.CheckVersion(ctx, min)
	if err != nil {
		return fleeterrors.WrapAndTrace(err)
	}
	if !ok {
		return fleeterrors.NewValidationError("cloud cli " + installed + " is older than the supported " + min + ", please upgrade it")
	}
	return nil
}

func newCmdVersion(t *terminal.Terminal, cli VersionChecker, min string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print cloudfleet and cloud cli versions",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			installed, ok, err := cli.CheckVersion(cmd.Context(), min)
			if err != nil {
				log.WithError(err).Debug("could not read cloud cli version")
				installed = ""
			}
			t.Print(version.BuildVersionString(installed, ok))
		},
	}
}

func runHelp(cmd *cobra.Command, _ []string) {
	_ = cmd.Help()
}
