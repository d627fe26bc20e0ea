// Package cloudcli drives the vendor cloud cli and scrapes its output.
package cloudcli

import (
	"context"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
	"github.com/samber/lo"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

type Client struct {
	runner Runner
	binary string
	limit  int
}

func NewClient(runner Runner, binary string, limit int) *Client {
	if limit < 1 {
		limit = 1
	}
	return &Client{runner: runner, binary: binary, limit: limit}
}

func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	out, err := c.runner.Run(ctx, c.binary, append(args, "--no-interaction")...)
	if err != nil {
		return "", fleeterrors.WrapAndTrace(err)
	}
	return out, nil
}

var (
	versionPattern = regexp.MustCompile(`(?i)\bcli\s+v?(\d+\.\d+\.\d+)`)
	idLinePattern  = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)
)

func (c *Client) Version(ctx context.Context) (string, error) {
	out, err := c.runner.Run(ctx, c.binary, "--version")
	if err != nil {
		return "", fleeterrors.WrapAndTrace(err)
	}
	m := versionPattern.FindStringSubmatch(out)
	if m == nil {
		return "", &ParseError{Field: "version", Output: out}
	}
	return m[1], nil
}

// CheckVersion returns the installed version and whether it is at least min.
func (c *Client) CheckVersion(ctx context.Context, min string) (string, bool, error) {
	installed, err := c.Version(ctx)
	if err != nil {
		return "", false, fleeterrors.WrapAndTrace(err)
	}
	have, err := version.NewVersion(installed)
	if err != nil {
		return installed, false, fleeterrors.WrapAndTrace(err)
	}
	want, err := version.NewVersion(min)
	if err != nil {
		return installed, false, fleeterrors.WrapAndTrace(err)
	}
	return installed, have.GreaterThanOrEqual(want), nil
}

func (c *Client) ListProjects(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "project:list", "--pipe")
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return parseIDLines(out), nil
}

func (c *Client) ListEnvironments(ctx context.Context, projectID string) ([]entity.Environment, error) {
	out, err := c.run(ctx, "environment:list", "-p", projectID, "--pipe", "--no-inactive")
	if err != nil {
		return nil, fleeterrors.WrapAndTrace(err)
	}
	return lo.Map(parseIDLines(out), func(envID string, _ int) entity.Environment {
		return entity.Environment{ProjectID: projectID, EnvironmentID: envID, Status: entity.Active}
	}), nil
}

// parseIDLines keeps lines that look like ids. The cli mixes warnings and
// update notices into stdout.
func parseIDLines(out string) []string {
	lines := lo.Map(strings.Split(out, "\n"), func(l string, _ int) string {
		return strings.TrimSpace(l)
	})
	return lo.Uniq(lo.Filter(lines, func(l string, _ int) bool {
		return idLinePattern.MatchString(l)
	}))
}

type ParseError struct {
	Field  string
	Output string
}

func (e *ParseError) Error() string {
	out := e.Output
	if len(out) > 200 {
		out = out[:200] + "..."
	}
	return "could not parse " + e.Field + " from cli output: " + strings.TrimSpace(out)
}
