package terminal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	fleeterrors "github.com/cloudfleet/cloudfleet-cli/pkg/errors"
)

func TestErrprintDirective(t *testing.T) {
	term, out, _, errBuf := NewTestTerminal()

	term.Errprint(fleeterrors.WrapAndTrace(&fleeterrors.EmptyCache{}), "")

	assert.Empty(t, out.String())
	assert.Contains(t, errBuf.String(), "no environments cached")
	assert.Contains(t, errBuf.String(), "run `cloudfleet sync` first")
}

func TestPrintTargets(t *testing.T) {
	term, out, verbose, errBuf := NewTestTerminal()

	term.Printf("%d hosts\n", 3)
	term.Vprint("details")
	term.Eprint("oops")

	assert.Equal(t, "3 hosts\n", out.String())
	assert.Equal(t, "details\n", verbose.String())
	assert.Equal(t, "oops\n", errBuf.String())
}
