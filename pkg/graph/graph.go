// Package graph builds the dependency graph over a Starterfile's tools and
// modules and produces the execution plan: a topological order, parallel
// waves, and alt-group membership.
package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/start-out/starter/pkg/schema"
)

// Node is one entity in the plan. Exactly one of Tool and Module is set.
type Node struct {
	Name   string
	Index  int // declaration position, breaks ordering ties
	Tool   *schema.Tool
	Module *schema.Module

	deps []string
}

// Deps returns the node's direct dependency names.
func (n *Node) Deps() []string {
	return n.deps
}

// IsTool reports whether the node is a tool.
func (n *Node) IsTool() bool { return n.Tool != nil }

// AltGroup is one set of mutually substitutable tools: the primary first,
// then its as_alt chain in chain order.
type AltGroup struct {
	Primary string
	Members []string
}

// Plan is the resolved execution plan.
type Plan struct {
	// Order lists every entity, dependencies before dependents, ties broken
	// by declaration order.
	Order []*Node
	// Waves partitions Order into levels whose members have no edges among
	// each other; wave k depends only on waves before k.
	Waves [][]*Node
	// Groups lists the alt groups in primary declaration order.
	Groups []*AltGroup

	nodes      map[string]*Node
	dependents map[string][]string
	groupOf    map[string]*AltGroup
}

// Node returns the named entity, or nil.
func (p *Plan) Node(name string) *Node {
	return p.nodes[name]
}

// GroupFor returns the alt group containing name, or nil if the entity is
// not part of any group.
func (p *Plan) GroupFor(name string) *AltGroup {
	return p.groupOf[name]
}

// TransitiveDependents returns every entity that directly or indirectly
// depends on name, ordered by declaration index. Used to mark the blast
// radius of a failed entity.
func (p *Plan) TransitiveDependents(name string) []*Node {
	seen := map[string]bool{name: true}
	queue := []string{name}
	var out []*Node
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, dep := range p.dependents[cur] {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			out = append(out, p.nodes[dep])
			queue = append(queue, dep)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// CycleError reports a dependency cycle by its member names, in cycle order.
type CycleError struct {
	Members []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Members, " -> "))
}

// UnknownReferenceError reports a depends_on or alt target that names no
// declared entity.
type UnknownReferenceError struct {
	Referrer string
	Name     string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s references unknown entity %q", e.Referrer, e.Name)
}

// KindMismatchError reports a tool depending on a module. Tools install
// before any module runs, so the edge can never be satisfied.
type KindMismatchError struct {
	Referrer string
	Name     string
}

func (e *KindMismatchError) Error() string {
	return fmt.Sprintf("tool %q may not depend on module %q", e.Referrer, e.Name)
}

// OrphanAltError reports an as_alt tool that no primary's alt chain
// reaches. as_alt only has meaning as the alternate of some primary.
type OrphanAltError struct {
	Name string
}

func (e *OrphanAltError) Error() string {
	return fmt.Sprintf("tool %q has mode as_alt but no tool names it via alt", e.Name)
}

// Resolve validates the Starterfile's graph and computes the plan. All
// graph errors are detected here, before any script runs.
func Resolve(sf *schema.Starterfile) (*Plan, error) {
	p := &Plan{
		nodes:      map[string]*Node{},
		dependents: map[string][]string{},
		groupOf:    map[string]*AltGroup{},
	}

	var all []*Node
	for _, t := range sf.Tools {
		n := &Node{Name: t.Name, Index: t.Index, Tool: t, deps: t.DependsOn}
		p.nodes[t.Name] = n
		all = append(all, n)
	}
	for _, m := range sf.Modules {
		n := &Node{Name: m.Name, Index: m.Index, Module: m, deps: m.DependsOn}
		p.nodes[m.Name] = n
		all = append(all, n)
	}

	for _, n := range all {
		for _, dep := range n.deps {
			target, ok := p.nodes[dep]
			if !ok {
				return nil, &UnknownReferenceError{Referrer: n.Name, Name: dep}
			}
			if n.IsTool() && !target.IsTool() {
				return nil, &KindMismatchError{Referrer: n.Name, Name: dep}
			}
			p.dependents[dep] = append(p.dependents[dep], n.Name)
		}
	}

	if err := p.buildAltGroups(sf); err != nil {
		return nil, err
	}
	if err := p.sort(all); err != nil {
		return nil, err
	}
	return p, nil
}

// buildAltGroups follows each primary's alt chain and records membership.
// A primary is any non-as_alt tool that declares alt; chains of as_alt
// tools flatten into the primary's group.
func (p *Plan) buildAltGroups(sf *schema.Starterfile) error {
	inGroup := map[string]bool{}
	for _, t := range sf.Tools {
		if t.Alt == "" || t.Mode == schema.ModeAsAlt {
			continue
		}
		g := &AltGroup{Primary: t.Name, Members: []string{t.Name}}
		p.groupOf[t.Name] = g
		inGroup[t.Name] = true

		next := t.Alt
		for next != "" {
			member, ok := p.nodes[next]
			if !ok || !member.IsTool() {
				return &UnknownReferenceError{Referrer: g.Members[len(g.Members)-1], Name: next}
			}
			if inGroup[next] {
				break
			}
			g.Members = append(g.Members, next)
			p.groupOf[next] = g
			inGroup[next] = true
			next = member.Tool.Alt
		}
		p.Groups = append(p.Groups, g)
	}

	for _, t := range sf.Tools {
		if t.Mode == schema.ModeAsAlt && !inGroup[t.Name] {
			return &OrphanAltError{Name: t.Name}
		}
	}
	return nil
}

// sort runs Kahn's algorithm with declaration-index tie-breaking and
// assigns each node to its wave. Alt relations are not edges.
func (p *Plan) sort(all []*Node) error {
	indegree := map[string]int{}
	for _, n := range all {
		indegree[n.Name] = len(n.deps)
	}

	var ready []*Node
	for _, n := range all {
		if indegree[n.Name] == 0 {
			ready = append(ready, n)
		}
	}
	level := map[string]int{}

	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i].Index < ready[j].Index })
		n := ready[0]
		ready = ready[1:]
		p.Order = append(p.Order, n)

		lv := 0
		for _, dep := range n.deps {
			if level[dep]+1 > lv {
				lv = level[dep] + 1
			}
		}
		level[n.Name] = lv
		for len(p.Waves) <= lv {
			p.Waves = append(p.Waves, nil)
		}
		p.Waves[lv] = append(p.Waves[lv], n)

		for _, dep := range p.dependents[n.Name] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, p.nodes[dep])
			}
		}
	}

	if len(p.Order) < len(all) {
		return &CycleError{Members: p.extractCycle(all)}
	}
	for _, wave := range p.Waves {
		sort.Slice(wave, func(i, j int) bool { return wave[i].Index < wave[j].Index })
	}
	return nil
}

// extractCycle walks dependency edges among the nodes Kahn could not order
// until one repeats, then returns that loop in edge order.
func (p *Plan) extractCycle(all []*Node) []string {
	ordered := map[string]bool{}
	for _, n := range p.Order {
		ordered[n.Name] = true
	}
	var start *Node
	for _, n := range all {
		if !ordered[n.Name] {
			start = n
			break
		}
	}

	var path []string
	pos := map[string]int{}
	cur := start
	for {
		if i, seen := pos[cur.Name]; seen {
			return path[i:]
		}
		pos[cur.Name] = len(path)
		path = append(path, cur.Name)
		for _, dep := range cur.deps {
			if !ordered[dep] {
				cur = p.nodes[dep]
				break
			}
		}
	}
}
