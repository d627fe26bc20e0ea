// Package terminal is for terminal outputting
package terminal

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

type Terminal struct {
	out     io.Writer
	verbose io.Writer
	err     io.Writer

	Green  func(format string, a ...interface{}) string
	Yellow func(format string, a ...interface{}) string
	Red    func(format string, a ...interface{}) string
}

func New() (t *Terminal) {
	return NewWithWriters(os.Stdout, os.Stdout, os.Stderr)
}

func NewWithWriters(out, verbose, err io.Writer) *Terminal {
	return &Terminal{
		out:     out,
		verbose: verbose,
		err:     err,
		Green:   color.New(color.FgGreen).SprintfFunc(),
		Yellow:  color.New(color.FgYellow).SprintfFunc(),
		Red:     color.New(color.FgRed).SprintfFunc(),
	}
}

// NewTestTerminal returns a terminal writing into buffers (out, verbose, err).
func NewTestTerminal() (*Terminal, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	out, verbose, errBuf := &bytes.Buffer{}, &bytes.Buffer{}, &bytes.Buffer{}
	return NewWithWriters(out, verbose, errBuf), out, verbose, errBuf
}

func (t *Terminal) Out() io.Writer {
	return t.out
}

func (t *Terminal) Print(a string) {
	fmt.Fprintln(t.out, a)
}

func (t *Terminal) Printf(format string, a ...interface{}) {
	fmt.Fprintf(t.out, format, a...)
}

func (t *Terminal) Vprint(a string) {
	fmt.Fprintln(t.verbose, a)
}

func (t *Terminal) Vprintf(format string, a ...interface{}) {
	fmt.Fprintf(t.verbose, format, a...)
}

func (t *Terminal) Eprint(a string) {
	fmt.Fprintln(t.err, a)
}

func (t *Terminal) Errprint(err error, a string) {
	t.Eprint(t.Red("Error: " + err.Error()))
	if a != "" {
		t.Eprint(t.Red(a))
	}
	var fleetErr fleeterrors.FleetError
	if fleeterrors.As(err, &fleetErr) {
		t.Eprint(t.Red(fleetErr.Directive()))
	}
}

type ProgressBar struct {
	Bar *progressbar.ProgressBar
}

// NewProgressBar counts up to total on the error stream so stdout stays
// pipeable.
func (t *Terminal) NewProgressBar(total int, description string) *ProgressBar {
	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(t.err),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(15),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))

	return &ProgressBar{Bar: bar}
}

func (bar *ProgressBar) Advance() {
	_ = bar.Bar.Add(1)
}

func (bar *ProgressBar) Finish() {
	_ = bar.Bar.Finish()
	_ = bar.Bar.Clear()
}
