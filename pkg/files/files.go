package files

import (
	"bufio"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

var AppFs = afero.NewOsFs()

// EnsureDirFor creates the parent directory of path if it does not exist.
func EnsureDirFor(fs afero.Fs, path string) error {
	dir := filepath.Dir(path)
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return fs.MkdirAll(dir, 0o750)
}

// ReadLines returns the non-empty, non-comment lines of a file, trimmed.
//
// Usage:
//   envs, err := files.ReadLines(files.AppFs, "envs.txt")
func ReadLines(fs afero.Fs, path string) ([]string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read only

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
