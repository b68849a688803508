package genealogy

import (
	"context"
	"fmt"
	"iter"
)

// Graph is the read-only kinship query engine. Every call recomputes from the
// current edges held by its Reader; nothing is cached between calls.
type Graph struct {
	r Reader
}

// NewGraph creates a Graph reading through r.
func NewGraph(r Reader) *Graph {
	return &Graph{r: r}
}

// ─── Lineal traversal ───────────────────────────────────────────────────────

// Ancestors lazily yields every individual reachable by following father and
// mother edges from id, breadth first, father side before mother side. Each
// ancestor is yielded once even when paternal and maternal lines reconverge.
// The sequence can be ranged over again for a fresh walk. On a read error it
// yields the error once and stops.
func (g *Graph) Ancestors(ctx context.Context, id string) iter.Seq2[Individual, error] {
	return func(yield func(Individual, error) bool) {
		start, err := g.r.Get(ctx, id)
		if err != nil {
			yield(Individual{}, err)
			return
		}

		visited := make(map[string]bool)
		queue := parentIDs(start)
		for len(queue) > 0 {
			pid := queue[0]
			queue = queue[1:]
			if visited[pid] {
				continue
			}
			visited[pid] = true

			p, err := g.r.Get(ctx, pid)
			if err != nil {
				yield(Individual{}, fmt.Errorf("ancestor %s of %s: %w", pid, id, err))
				return
			}
			if !yield(p, nil) {
				return
			}
			queue = append(queue, parentIDs(p)...)
		}
	}
}

// Descendants lazily yields every individual reachable through child
// lookups from id, breadth first, each at most once.
func (g *Graph) Descendants(ctx context.Context, id string) iter.Seq2[Individual, error] {
	return func(yield func(Individual, error) bool) {
		if _, err := g.r.Get(ctx, id); err != nil {
			yield(Individual{}, err)
			return
		}

		visited := make(map[string]bool)
		queue := []string{id}
		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			kids, err := g.children(ctx, current)
			if err != nil {
				yield(Individual{}, fmt.Errorf("children of %s: %w", current, err))
				return
			}
			for _, k := range kids {
				if visited[k.ID] {
					continue
				}
				visited[k.ID] = true
				if !yield(k, nil) {
					return
				}
				queue = append(queue, k.ID)
			}
		}
	}
}

// Collect drains a traversal into a slice.
func Collect(seq iter.Seq2[Individual, error]) ([]Individual, error) {
	var out []Individual
	for ind, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

// IsAncestorOf reports whether y descends from x. It walks upward from y,
// which visits at most two edges per individual. Both ids must exist.
func (g *Graph) IsAncestorOf(ctx context.Context, x, y string) (bool, error) {
	if _, err := g.r.Get(ctx, x); err != nil {
		return false, err
	}
	if x == y {
		return false, nil
	}
	for a, err := range g.Ancestors(ctx, y) {
		if err != nil {
			return false, err
		}
		if a.ID == x {
			return true, nil
		}
	}
	return false, nil
}

// CommonAncestors returns the ancestors shared by x and y, in x's traversal
// order.
func (g *Graph) CommonAncestors(ctx context.Context, x, y string) ([]Individual, error) {
	ys, err := Collect(g.Ancestors(ctx, y))
	if err != nil {
		return nil, err
	}
	inY := idSet(ys)

	var out []Individual
	for a, err := range g.Ancestors(ctx, x) {
		if err != nil {
			return nil, err
		}
		if inY[a.ID] {
			out = append(out, a)
		}
	}
	return out, nil
}

// AreRelated reports whether x and y are blood relatives: one descends from
// the other, or they share at least one ancestor.
func (g *Graph) AreRelated(ctx context.Context, x, y string) (bool, error) {
	if x == y {
		if _, err := g.r.Get(ctx, x); err != nil {
			return false, err
		}
		return true, nil
	}
	for _, pair := range [][2]string{{x, y}, {y, x}} {
		ok, err := g.IsAncestorOf(ctx, pair[0], pair[1])
		if err != nil || ok {
			return ok, err
		}
	}
	common, err := g.CommonAncestors(ctx, x, y)
	if err != nil {
		return false, err
	}
	return len(common) > 0, nil
}

// ─── Immediate family ───────────────────────────────────────────────────────

// Parents returns the recorded father and mother, father first.
func (g *Graph) Parents(ctx context.Context, id string) ([]Individual, error) {
	x, err := g.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return g.getAll(ctx, parentIDs(x))
}

// Grandparents returns paternal then maternal grandparents, deduplicated.
func (g *Graph) Grandparents(ctx context.Context, id string) ([]Individual, error) {
	parents, err := g.Parents(ctx, id)
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, p := range parents {
		ids = append(ids, parentIDs(p)...)
	}
	return g.getAll(ctx, dedupeIDs(ids))
}

// Children returns every individual whose father or mother is id.
func (g *Graph) Children(ctx context.Context, id string) ([]Individual, error) {
	if _, err := g.r.Get(ctx, id); err != nil {
		return nil, err
	}
	return g.children(ctx, id)
}

// ChildrenWith returns the children of id whose other parent is otherID.
// An empty otherID selects the children with no other parent recorded.
func (g *Graph) ChildrenWith(ctx context.Context, id, otherID string) ([]Individual, error) {
	kids, err := g.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	var out []Individual
	for _, k := range kids {
		other := k.MotherID
		if k.MotherID == id {
			other = k.FatherID
		}
		if other == otherID {
			out = append(out, k)
		}
	}
	return out, nil
}

// ─── Siblings ───────────────────────────────────────────────────────────────

// FullSiblings returns the individuals sharing both recorded parents with id.
// If either parent of id is unknown the result is empty.
func (g *Graph) FullSiblings(ctx context.Context, id string) ([]Individual, error) {
	x, err := g.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if x.FatherID == "" || x.MotherID == "" {
		return nil, nil
	}
	byFather, byMother, err := g.parentSides(ctx, x)
	if err != nil {
		return nil, err
	}
	inMother := idSet(byMother)

	var out []Individual
	for _, s := range byFather {
		if s.ID != id && inMother[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// HalfSiblings returns the individuals sharing exactly one of id's recorded
// parents: the symmetric difference of the "same father" and "same mother"
// child sets, minus id. Paternal side first.
func (g *Graph) HalfSiblings(ctx context.Context, id string) ([]Individual, error) {
	x, err := g.r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	byFather, byMother, err := g.parentSides(ctx, x)
	if err != nil {
		return nil, err
	}
	inFather, inMother := idSet(byFather), idSet(byMother)

	var out []Individual
	for _, s := range byFather {
		if s.ID != id && !inMother[s.ID] {
			out = append(out, s)
		}
	}
	for _, s := range byMother {
		if s.ID != id && !inFather[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

// Siblings returns full siblings followed by half siblings.
func (g *Graph) Siblings(ctx context.Context, id string) ([]Individual, error) {
	full, err := g.FullSiblings(ctx, id)
	if err != nil {
		return nil, err
	}
	half, err := g.HalfSiblings(ctx, id)
	if err != nil {
		return nil, err
	}
	return append(full, half...), nil
}

// ─── Collateral relatives ───────────────────────────────────────────────────

// UnclesAndAunts returns the full and half siblings of id's parents.
func (g *Graph) UnclesAndAunts(ctx context.Context, id string) ([]Individual, error) {
	parents, err := g.Parents(ctx, id)
	if err != nil {
		return nil, err
	}
	exclude := idSet(parents)

	var out []Individual
	seen := make(map[string]bool)
	for _, p := range parents {
		sibs, err := g.Siblings(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		for _, s := range sibs {
			if seen[s.ID] || exclude[s.ID] {
				continue
			}
			seen[s.ID] = true
			out = append(out, s)
		}
	}
	return out, nil
}

// FirstCousins returns the children of id's uncles and aunts, excluding id
// and id's own siblings.
func (g *Graph) FirstCousins(ctx context.Context, id string) ([]Individual, error) {
	elders, err := g.UnclesAndAunts(ctx, id)
	if err != nil {
		return nil, err
	}
	sibs, err := g.Siblings(ctx, id)
	if err != nil {
		return nil, err
	}
	exclude := idSet(sibs)
	exclude[id] = true

	var out []Individual
	for _, e := range elders {
		kids, err := g.children(ctx, e.ID)
		if err != nil {
			return nil, err
		}
		for _, k := range kids {
			if exclude[k.ID] {
				continue
			}
			exclude[k.ID] = true
			out = append(out, k)
		}
	}
	return out, nil
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// children merges the father-side and mother-side lookups for id.
func (g *Graph) children(ctx context.Context, id string) ([]Individual, error) {
	asFather, err := g.r.FindWhere(ctx, RoleFather, id)
	if err != nil {
		return nil, err
	}
	asMother, err := g.r.FindWhere(ctx, RoleMother, id)
	if err != nil {
		return nil, err
	}
	seen := idSet(asFather)
	out := asFather
	for _, k := range asMother {
		if !seen[k.ID] {
			out = append(out, k)
		}
	}
	return out, nil
}

// parentSides returns the child sets of x's father and of x's mother. A
// missing parent yields an empty set.
func (g *Graph) parentSides(ctx context.Context, x Individual) (byFather, byMother []Individual, err error) {
	if x.FatherID != "" {
		if byFather, err = g.r.FindWhere(ctx, RoleFather, x.FatherID); err != nil {
			return nil, nil, err
		}
	}
	if x.MotherID != "" {
		if byMother, err = g.r.FindWhere(ctx, RoleMother, x.MotherID); err != nil {
			return nil, nil, err
		}
	}
	return byFather, byMother, nil
}

func (g *Graph) getAll(ctx context.Context, ids []string) ([]Individual, error) {
	out := make([]Individual, 0, len(ids))
	for _, id := range ids {
		ind, err := g.r.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ind)
	}
	return out, nil
}

func parentIDs(x Individual) []string {
	var ids []string
	if x.FatherID != "" {
		ids = append(ids, x.FatherID)
	}
	if x.MotherID != "" {
		ids = append(ids, x.MotherID)
	}
	return ids
}

func idSet(inds []Individual) map[string]bool {
	set := make(map[string]bool, len(inds))
	for _, ind := range inds {
		set[ind.ID] = true
	}
	return set
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// Contains reports whether any individual in inds has the given id.
func Contains(inds []Individual, id string) bool {
	for _, ind := range inds {
		if ind.ID == id {
			return true
		}
	}
	return false
}
