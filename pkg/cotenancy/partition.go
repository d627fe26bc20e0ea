package cotenancy

import (
	"sort"

	"github.com/samber/lo"
)

// Partition is the result of a resolver run. Host indices are only
// meaningful within the run that produced them.
type Partition struct {
	EnvToHost map[string]int
	Hosts     [][]string
}

func (p Partition) HostCount() int {
	return len(p.Hosts)
}

// Members returns the sorted members of host, or nil if host is out of range.
func (p Partition) Members(host int) []string {
	if host < 0 || host >= len(p.Hosts) {
		return nil
	}
	members := append([]string{}, p.Hosts[host]...)
	sort.Strings(members)
	return members
}

// Cotenants returns the other environments sharing env's host.
func (p Partition) Cotenants(env string) []string {
	host, ok := p.EnvToHost[env]
	if !ok {
		return nil
	}
	return lo.Without(p.Members(host), env)
}

// FromAssignments rebuilds a Partition from a persisted env to host mapping.
func FromAssignments(envToHost map[string]int) Partition {
	p := Partition{EnvToHost: map[string]int{}}
	for env, host := range envToHost {
		if host < 0 {
			continue
		}
		p.EnvToHost[env] = host
		for len(p.Hosts) <= host {
			p.Hosts = append(p.Hosts, []string{})
		}
		p.Hosts[host] = append(p.Hosts[host], env)
	}
	for _, members := range p.Hosts {
		sort.Strings(members)
	}
	return p
}
