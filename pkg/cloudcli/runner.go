package cloudcli

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"
	"time"

	"github.com/alessio/shellescape"
	log "github.com/sirupsen/logrus"

	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

// Runner runs a command to completion and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

type ExecRunner struct {
	Timeout time.Duration
}

var _ Runner = ExecRunner{}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	line := shellescape.QuoteCommand(append([]string{name}, args...))
	log.WithField("cmd", line).Debug("running")
	start := time.Now()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec // binary comes from operator config
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	log.WithFields(log.Fields{"cmd": line, "took": time.Since(start).Round(time.Millisecond)}).Debug("finished")
	if err != nil {
		if stderrors.Is(err, exec.ErrNotFound) {
			return "", &fleeterrors.VendorCLINotFound{Binary: name}
		}
		if ctx.Err() != nil {
			return "", fleeterrors.WrapAndTrace(ctx.Err(), line)
		}
		return stdout.String(), fleeterrors.WrapAndTrace(err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
