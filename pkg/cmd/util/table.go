package util

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/cloudfleet/cloudfleet-cli/pkg/cotenancy"
)

func GetTableOptions() table.Options {
	options := table.OptionsDefault
	options.DrawBorder = false
	options.SeparateColumns = false
	options.SeparateRows = false
	options.SeparateHeader = false
	return options
}

// RenderHosts writes one row per host group. With sharedOnly, hosts with a
// single environment are skipped.
func RenderHosts(w io.Writer, p cotenancy.Partition, sharedOnly bool) {
	ta := table.NewWriter()
	ta.SetOutputMirror(w)
	ta.Style().Options = GetTableOptions()
	ta.AppendHeader(table.Row{"HOST", "COUNT", "ENVIRONMENTS"})
	for host := 0; host < p.HostCount(); host++ {
		members := p.Members(host)
		if sharedOnly && len(members) < 2 {
			continue
		}
		ta.AppendRow(table.Row{host, len(members), strings.Join(members, " ")})
	}
	ta.Render()
}

func SummarizeHosts(p cotenancy.Partition) string {
	shared := 0
	for _, members := range p.Hosts {
		if len(members) > 1 {
			shared++
		}
	}
	return fmt.Sprintf("%d environments on %d hosts, %d shared", len(p.EnvToHost), p.HostCount(), shared)
}
