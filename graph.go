package ddlgrator

import (
	"fmt"
	"sort"
)

// graph indexes a migration set by id. Migrations named in another
// migration's Replaces are kept in byID but excluded from live.
type graph struct {
	byID       map[string]*Migration
	live       map[string]*Migration
	replacedBy map[string]string
	children   map[string][]string
}

func newGraph(migrations []Migration) (*graph, error) {
	g := &graph{
		byID:       make(map[string]*Migration, len(migrations)),
		live:       make(map[string]*Migration, len(migrations)),
		replacedBy: make(map[string]string),
		children:   make(map[string][]string),
	}
	var dups []string
	for i := range migrations {
		m := &migrations[i]
		if _, ok := g.byID[m.ID]; ok {
			dups = append(dups, m.ID)
			continue
		}
		g.byID[m.ID] = m
	}
	if len(dups) > 0 {
		return nil, &GraphError{Kind: ErrDuplicateID, IDs: uniqueSorted(dups)}
	}

	for _, id := range sortedKeys(g.byID) {
		m := g.byID[id]
		for _, r := range m.Replaces {
			if r == m.ID {
				return nil, &GraphError{Kind: ErrConflictingReplace, IDs: []string{m.ID}, Detail: "migration replaces itself"}
			}
			if other, ok := g.replacedBy[r]; ok && other != m.ID {
				return nil, &GraphError{
					Kind:   ErrConflictingReplace,
					IDs:    uniqueSorted([]string{other, m.ID}),
					Detail: fmt.Sprintf("both replace %s", r),
				}
			}
			g.replacedBy[r] = m.ID
		}
	}
	for id, m := range g.byID {
		if _, replaced := g.replacedBy[id]; !replaced {
			g.live[id] = m
		}
	}
	for id, m := range g.live {
		if m.Dependency != "" {
			g.children[m.Dependency] = append(g.children[m.Dependency], id)
		}
	}
	for dep := range g.children {
		sort.Strings(g.children[dep])
	}
	return g, nil
}

// heads returns the live migrations no other live migration depends on.
func (g *graph) heads() []string {
	var heads []string
	for id := range g.live {
		if len(g.children[id]) == 0 {
			heads = append(heads, id)
		}
	}
	sort.Strings(heads)
	return heads
}

// Resolve validates the migration set and returns its live migrations in
// application order: the initial migration first, then each migration
// directly after its dependency. Migrations squashed by another's Replaces
// are left out. Any structural problem yields a *GraphError and no ordering.
func Resolve(migrations []Migration) ([]Migration, error) {
	g, err := newGraph(migrations)
	if err != nil {
		return nil, err
	}
	ids := sortedKeys(g.live)

	var invalid []string
	for _, id := range ids {
		m := g.live[id]
		if m.Initial != (m.Dependency == "") {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return nil, &GraphError{
			Kind:   ErrInvalidRoot,
			IDs:    invalid,
			Detail: "a migration is initial if and only if it has no dependency",
		}
	}

	var referenced, dangling []string
	for _, id := range ids {
		dep := g.live[id].Dependency
		if dep == "" {
			continue
		}
		if _, ok := g.live[dep]; ok {
			continue
		}
		if _, ok := g.replacedBy[dep]; ok {
			referenced = append(referenced, id)
			continue
		}
		dangling = append(dangling, id)
	}
	if len(referenced) > 0 {
		return nil, &GraphError{Kind: ErrReplacedReferenced, IDs: referenced, Detail: g.describeDeps(referenced)}
	}
	if len(dangling) > 0 {
		return nil, &GraphError{Kind: ErrDanglingDependency, IDs: dangling, Detail: g.describeDeps(dangling)}
	}

	var roots []string
	for _, id := range ids {
		if g.live[id].Initial {
			roots = append(roots, id)
		}
	}
	if len(roots) > 1 {
		return nil, &GraphError{Kind: ErrMultipleRoots, IDs: roots, Heads: g.heads()}
	}

	for _, id := range ids {
		if kids := g.children[id]; len(kids) > 1 {
			return nil, &GraphError{
				Kind:   ErrDivergentHead,
				IDs:    kids,
				Detail: fmt.Sprintf("all depend on %s", id),
				Heads:  g.heads(),
			}
		}
	}

	order := make([]Migration, 0, len(g.live))
	if len(roots) == 1 {
		for cur := roots[0]; ; {
			order = append(order, *g.live[cur])
			kids := g.children[cur]
			if len(kids) == 0 {
				break
			}
			cur = kids[0]
		}
	}
	if len(order) != len(g.live) {
		seen := make(map[string]bool, len(order))
		for _, m := range order {
			seen[m.ID] = true
		}
		var unreached []string
		for _, id := range ids {
			if !seen[id] {
				unreached = append(unreached, id)
			}
		}
		return nil, &GraphError{Kind: ErrCycle, IDs: unreached, Detail: "not reachable from an initial migration"}
	}
	return order, nil
}

// Heads returns the ids of the live migrations that no other live migration
// depends on. A consistent set has exactly one head. Heads does not validate
// the set and is meant for reporting, for example to find the migrations a
// merge has to join.
func Heads(migrations []Migration) []string {
	g, err := newGraph(migrations)
	if err != nil {
		return nil
	}
	return g.heads()
}

func (g *graph) describeDeps(ids []string) string {
	desc := ""
	for i, id := range ids {
		if i > 0 {
			desc += ", "
		}
		dep := g.live[id].Dependency
		if by, ok := g.replacedBy[dep]; ok {
			desc += fmt.Sprintf("%s -> %s (replaced by %s)", id, dep, by)
		} else {
			desc += fmt.Sprintf("%s -> %s", id, dep)
		}
	}
	return desc
}

func sortedKeys(m map[string]*Migration) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
