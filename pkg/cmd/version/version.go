package version

import (
	"fmt"

	"github.com/fatih/color"
)

var Version = ""

var (
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
)

var versionString = `
cloudfleet version: %s
cloud cli version:  %s
`

func current() string {
	if Version == "" {
		return "unknown"
	}
	return Version
}

// BuildVersionString renders the build version next to the vendor cli
// version. An empty vendorVersion means the cli could not be found.
func BuildVersionString(vendorVersion string, supported bool) string {
	switch {
	case vendorVersion == "":
		return fmt.Sprintf(versionString, current(), yellow("not found"))
	case !supported:
		return fmt.Sprintf(versionString, current(), yellow("%s (unsupported, please upgrade)", vendorVersion))
	default:
		return fmt.Sprintf(versionString, current(), green(vendorVersion))
	}
}
