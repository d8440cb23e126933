package props

import (
	"github.com/delaneyj/proptree/value"
)

// Aliases unifies property identifiers into disjoint groups (union-find with
// path compression and union by rank). Groups are fixed once instantiation
// is done; there is no way to split them.
type Aliases[K comparable] struct {
	parent map[K]K
	rank   map[K]int
	types  map[K]value.Type
	order  []K
}

func NewAliases[K comparable]() *Aliases[K] {
	return &Aliases[K]{
		parent: map[K]K{},
		rank:   map[K]int{},
		types:  map[K]value.Type{},
	}
}

// Add registers k with its declared type. Adding twice is a no-op.
func (a *Aliases[K]) Add(k K, t value.Type) {
	if _, ok := a.parent[k]; ok {
		return
	}
	a.parent[k] = k
	a.types[k] = t
	a.order = append(a.order, k)
}

// Find returns the representative of k's group; unknown keys are their own
// representative.
func (a *Aliases[K]) Find(k K) K {
	p, ok := a.parent[k]
	if !ok || p == k {
		return k
	}
	root := a.Find(p)
	a.parent[k] = root
	return root
}

// Union merges the groups of x and y. Both must have been added.
func (a *Aliases[K]) Union(x, y K) {
	rx, ry := a.Find(x), a.Find(y)
	if rx == ry {
		return
	}
	switch {
	case a.rank[rx] < a.rank[ry]:
		a.parent[rx] = ry
	case a.rank[rx] > a.rank[ry]:
		a.parent[ry] = rx
	default:
		a.parent[ry] = rx
		a.rank[rx]++
	}
}

// Same reports whether x and y share a group.
func (a *Aliases[K]) Same(x, y K) bool {
	return a.Find(x) == a.Find(y)
}

// Groups returns every group with more than one member. Groups are ordered
// by their earliest added member, members by insertion order.
func (a *Aliases[K]) Groups() [][]K {
	index := map[K]int{}
	var groups [][]K
	for _, k := range a.order {
		root := a.Find(k)
		i, ok := index[root]
		if !ok {
			i = len(groups)
			index[root] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], k)
	}
	out := groups[:0]
	for _, g := range groups {
		if len(g) > 1 {
			out = append(out, g)
		}
	}
	return out
}

// CheckTypes returns an *AliasTypeConflictError for the first group whose
// members were declared with different types.
func (a *Aliases[K]) CheckTypes(name func(K) string) error {
	for _, g := range a.Groups() {
		want := a.types[g[0]]
		for _, k := range g[1:] {
			if a.types[k] == want {
				continue
			}
			err := &AliasTypeConflictError{}
			for _, m := range g {
				err.Members = append(err.Members, name(m))
				err.Types = append(err.Types, a.types[m])
			}
			return err
		}
	}
	return nil
}
