package cloudcli

import (
	"context"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/mo"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

// probeScript prints the host signature as labelled lines so that motd and
// warnings around it can be ignored.
const probeScript = `echo "boot_time: $(awk '/^btime/ {print $2}' /proc/stat)"; ` +
	`echo "cpus: $(nproc)"; ` +
	`echo "ip: $(hostname -i)"`

var (
	bootTimePattern = regexp.MustCompile(`(?m)^boot_time:\s*(\d+)\s*$`)
	cpusPattern     = regexp.MustCompile(`(?m)^cpus:\s*(\d+)\s*$`)
	ipPattern       = regexp.MustCompile(`(?m)^ip:\s*(.*)$`)
)

// ProbeHost reads the host signature of env over ssh.
func (c *Client) ProbeHost(ctx context.Context, env entity.EnvironmentID) (entity.HostSignature, error) {
	out, err := c.run(ctx, "ssh", "-p", env.Project(), "-e", env.Environment(), probeScript)
	if err != nil {
		return entity.HostSignature{}, fleeterrors.WrapAndTrace(err, string(env))
	}
	sig, err := ParseSignature(out)
	if err != nil {
		return entity.HostSignature{}, fleeterrors.WrapAndTrace(err, string(env))
	}
	return sig, nil
}

func ParseSignature(out string) (entity.HostSignature, error) {
	m := bootTimePattern.FindStringSubmatch(out)
	if m == nil {
		return entity.HostSignature{}, &ParseError{Field: "boot_time", Output: out}
	}
	btime, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return entity.HostSignature{}, &ParseError{Field: "boot_time", Output: out}
	}

	m = cpusPattern.FindStringSubmatch(out)
	if m == nil {
		return entity.HostSignature{}, &ParseError{Field: "cpus", Output: out}
	}
	cpus, err := strconv.Atoi(m[1])
	if err != nil || cpus < 1 {
		return entity.HostSignature{}, &ParseError{Field: "cpus", Output: out}
	}

	ip := ""
	if m = ipPattern.FindStringSubmatch(out); m != nil {
		// hostname -i may list several addresses; the first parseable one wins
		for _, field := range strings.Fields(m[1]) {
			if net.ParseIP(field) != nil {
				ip = field
				break
			}
		}
	}
	if ip == "" {
		return entity.HostSignature{}, &ParseError{Field: "ip", Output: out}
	}

	return entity.HostSignature{
		BootTime: time.Unix(btime, 0).UTC(),
		CPUs:     cpus,
		IP:       ip,
	}, nil
}

type ProbeResult struct {
	Environment entity.EnvironmentID
	Signature   mo.Result[entity.HostSignature]
}

// ProbeHosts probes envs with at most c.limit cli processes at a time. A
// failing environment does not stop the others; results keep the input order.
func (c *Client) ProbeHosts(ctx context.Context, envs []entity.EnvironmentID, onDone func(ProbeResult)) []ProbeResult {
	results := make([]ProbeResult, len(envs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(c.limit)
	for i, env := range envs {
		g.Go(func() error {
			res := ProbeResult{
				Environment: env,
				Signature:   mo.TupleToResult(c.ProbeHost(ctx, env)),
			}
			if res.Signature.IsError() {
				log.WithField("env", env).WithError(res.Signature.Error()).Debug("probe failed")
			}
			results[i] = res

			if onDone != nil {
				mu.Lock()
				onDone(res)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}
