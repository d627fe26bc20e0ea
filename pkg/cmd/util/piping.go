package util

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/cloudfleet/cloudfleet-cli/pkg/entity"
	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
	"github.com/cloudfleet/cloudfleet-cli/pkg/files"
)

// IsStdinPiped returns true if stdin is being piped from another command
// Enables chaining like: cloudfleet hosts --ids | cloudfleet check
func IsStdinPiped() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// PipedStdin returns os.Stdin when it is piped, nil otherwise.
func PipedStdin() io.Reader {
	if IsStdinPiped() {
		return os.Stdin
	}
	return nil
}

// GetEnvironmentIDs collects environment ids from args, @file args (one id
// per line) and piped stdin. Duplicates are dropped, order is kept.
func GetEnvironmentIDs(fs afero.Fs, args []string, stdin io.Reader) ([]entity.EnvironmentID, error) {
	var raw []string
	for _, arg := range args {
		if path, ok := strings.CutPrefix(arg, "@"); ok {
			lines, err := files.ReadLines(fs, path)
			if err != nil {
				return nil, fleeterrors.WrapAndTrace(err)
			}
			raw = append(raw, lines...)
			continue
		}
		raw = append(raw, arg)
	}

	if stdin != nil {
		scanner := bufio.NewScanner(stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				raw = append(raw, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return nil, fleeterrors.WrapAndTrace(err)
		}
	}

	ids := make([]entity.EnvironmentID, 0, len(raw))
	for _, r := range raw {
		id, err := entity.ParseEnvironmentID(r)
		if err != nil {
			return nil, fleeterrors.NewValidationError(err.Error())
		}
		ids = append(ids, id)
	}
	return lo.Uniq(ids), nil
}
