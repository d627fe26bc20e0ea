// Package cotenancy infers which environments share a host from groups of
// environments observed with the same host signature.
package cotenancy

import (
	"sort"
	"strings"

	"github.com/samber/lo"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Group is a set of environment ids seen sharing one host signature.
type Group []string

type memberSet = orderedmap.OrderedMap[string, struct{}]

// Resolver merges observation groups into host groups. A Resolver is single
// use: build a new one for every run.
//
// Host indices are dense (0..N-1) after every Add. When a group bridges
// several hosts, the lowest index survives and the higher indices are
// compacted away.
type Resolver struct {
	envToHost   map[string]int
	hostMembers []*memberSet
}

func NewResolver() *Resolver {
	return &Resolver{
		envToHost:   map[string]int{},
		hostMembers: []*memberSet{},
	}
}

// Add applies one observation group.
func (r *Resolver) Add(g Group) {
	members := normalize(g)
	if len(members) == 0 {
		return
	}

	existing := lo.Uniq(lo.FilterMap(members, func(env string, _ int) (int, bool) {
		host, ok := r.envToHost[env]
		return host, ok
	}))

	if len(existing) == 0 {
		host := len(r.hostMembers)
		set := orderedmap.New[string, struct{}]()
		for _, env := range members {
			set.Set(env, struct{}{})
			r.envToHost[env] = host
		}
		r.hostMembers = append(r.hostMembers, set)
		return
	}

	sort.Ints(existing)
	minHost := existing[0]
	removed := existing[1:]

	target := r.hostMembers[minHost]
	for _, host := range removed {
		for pair := r.hostMembers[host].Oldest(); pair != nil; pair = pair.Next() {
			target.Set(pair.Key, struct{}{})
			r.envToHost[pair.Key] = minHost
		}
	}
	for _, env := range members {
		target.Set(env, struct{}{})
		r.envToHost[env] = minHost
	}

	if len(removed) > 0 {
		r.compact(removed)
	}
}

// compact drops the removed host slots and shifts every surviving index down
// by the number of removed indices below it. removed must be sorted.
func (r *Resolver) compact(removed []int) {
	gone := lo.SliceToMap(removed, func(host int) (int, struct{}) {
		return host, struct{}{}
	})

	shift := make([]int, len(r.hostMembers))
	kept := make([]*memberSet, 0, len(r.hostMembers)-len(removed))
	below := 0
	for host, set := range r.hostMembers {
		if _, ok := gone[host]; ok {
			below++
			continue
		}
		shift[host] = below
		kept = append(kept, set)
	}
	r.hostMembers = kept

	for env, host := range r.envToHost {
		r.envToHost[env] = host - shift[host]
	}
}

// Partition snapshots the current state.
func (r *Resolver) Partition() Partition {
	p := Partition{
		EnvToHost: make(map[string]int, len(r.envToHost)),
		Hosts:     make([][]string, len(r.hostMembers)),
	}
	for env, host := range r.envToHost {
		p.EnvToHost[env] = host
	}
	for host, set := range r.hostMembers {
		members := make([]string, 0, set.Len())
		for pair := set.Oldest(); pair != nil; pair = pair.Next() {
			members = append(members, pair.Key)
		}
		p.Hosts[host] = members
	}
	return p
}

// Resolve runs a fresh Resolver over groups in order.
func Resolve(groups []Group) Partition {
	r := NewResolver()
	for _, g := range groups {
		r.Add(g)
	}
	return r.Partition()
}

// ParseGroups splits the comma-joined form produced by the cache.
func ParseGroups(rows []string) []Group {
	groups := make([]Group, 0, len(rows))
	for _, row := range rows {
		g := normalize(strings.Split(row, ","))
		if len(g) == 0 {
			continue
		}
		groups = append(groups, g)
	}
	return groups
}

func normalize(g []string) Group {
	trimmed := lo.FilterMap(g, func(env string, _ int) (string, bool) {
		env = strings.TrimSpace(env)
		return env, env != ""
	})
	return lo.Uniq(trimmed)
}
