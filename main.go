package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cmd"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/terminal"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := terminal.New()
	command, closeStore := cmd.NewDefaultCloudfleetCommand(t)
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Warn("could not close cache")
		}
	}()

	er := fleeterrors.GetDefaultErrorReporter()
	done := er.Setup()
	defer done()

	if ran, err := command.ExecuteContextC(ctx); err != nil {
		fleeterrors.ReportCmdError(er, ran.Name(), err)
		t.Errprint(err, "")
		return 1
	}
	return 0
}
