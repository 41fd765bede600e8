package fus

import (
	"fmt"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/fus-solver/fus/internal/itertools"
)

// Pool is the root of the C1 pool view: it owns every [Solvable] seen across every loaded repo,
// plus the "@system" repo holding the synthetic platform module, and exposes provider and requirer
// indices built once, after every repo has been loaded, by [Pool.CreateWhatProvides].
//
// Pool is the single mutable owner of the solvable set; every other component in this package
// borrows it by pointer and never copies a [Solvable] by value.
type Pool struct {
	Arch string

	solvables []*Solvable
	byID      map[SolvableID]*Solvable
	nextID    SolvableID

	providersIdx map[string][]SolvableID
	requirersIdx map[string][]SolvableID
}

// NewPool creates an empty pool for the given target architecture (as passed to the CLI's -a
// flag).
func NewPool(arch string) *Pool {
	return &Pool{
		Arch: arch,
		byID: map[SolvableID]*Solvable{},
	}
}

// AddSolvable registers s with the pool, assigning it an id, and returns that id.  AddSolvable must
// be called before [Pool.CreateWhatProvides]; indices are not updated incrementally.
func (p *Pool) AddSolvable(s *Solvable) SolvableID {
	s.ID = p.nextID
	p.nextID++
	p.solvables = append(p.solvables, s)
	p.byID[s.ID] = s
	return s.ID
}

// Solvable returns the solvable with the given id, or nil if none exists.
func (p *Pool) Solvable(id SolvableID) *Solvable {
	return p.byID[id]
}

// All returns every solvable id in insertion order.
func (p *Pool) All() []SolvableID {
	ids := make([]SolvableID, len(p.solvables))
	for i, s := range p.solvables {
		ids[i] = s.ID
	}
	return ids
}

// NumSolvables returns the number of registered solvables, the size a [Mask] for this pool needs.
func (p *Pool) NumSolvables() int {
	return len(p.solvables)
}

// CreateWhatProvides (re)builds the provider and requirer indices from every solvable currently
// registered.  It must be called again after loading more repos (mirrors libsolv's
// pool_createwhatprovides, which fus.c calls once after all modular repos are loaded and again,
// conditionally, mid-load for FUS_TESTING builds that need artifact provides resolved before the
// RPM artifacts referencing them are added).
func (p *Pool) CreateWhatProvides() {
	p.providersIdx = map[string][]SolvableID{}
	p.requirersIdx = map[string][]SolvableID{}
	for _, s := range p.solvables {
		for _, d := range s.Provides {
			p.indexProvide(s.ID, d)
		}
		for _, clause := range s.Requires {
			for _, leaf := range flattenAnd(clause) {
				p.indexRequirer(s.ID, leaf)
			}
		}
	}
}

// AddProvide appends d to the provides of the solvable id and incrementally updates the provider
// index, without requiring a full [Pool.CreateWhatProvides] rebuild. Used by
// [ApplyModuleDefaults], which runs after the initial index build to retroactively mark default-
// stream solvables (mirrors the second loop of fus.c's _repo_add_modulemd_from_objects, which adds
// "module-default()" provides after pool_createwhatprovides has already run once).
func (p *Pool) AddProvide(id SolvableID, d Dep) {
	s := p.byID[id]
	s.Provides = append(s.Provides, d)
	if p.providersIdx != nil {
		p.indexProvide(id, d)
	}
}

func (p *Pool) indexProvide(id SolvableID, d Dep) {
	k := d.Key()
	p.providersIdx[k] = append(p.providersIdx[k], id)
	if head := d.HeadAtom(); head != "" && head != k {
		p.providersIdx[head] = appendUnique(p.providersIdx[head], id)
	}
}

func (p *Pool) indexRequirer(id SolvableID, d Dep) {
	p.requirersIdx[d.Key()] = appendUnique(p.requirersIdx[d.Key()], id)
	if !d.IsAtom() {
		p.indexRequirer(id, *d.a)
		p.indexRequirer(id, *d.b)
	}
}

func appendUnique(ids []SolvableID, id SolvableID) []SolvableID {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// Providers returns every solvable id whose own provides satisfy d, evaluated recursively:
//   - a plain atom is looked up directly in the provider index (which is keyed both by every
//     provide's exact canonical form and by its head atom, so a query for the bare token
//     "module(n:s)" finds solvables that provide "module(n:s) = v");
//   - AND and WITH narrow to the intersection of both sides' providers;
//   - OR widens to the union of both sides' providers;
//   - WITHOUT removes the right side's providers from the left side's;
//   - ARCH and EQ narrow the left side's providers to those with a matching architecture or an
//     exactly matching provide entry.
//
// AND appearing as a top-level requirement clause (rather than nested inside a provider query) is
// not satisfied by this function: a requirement's top-level AND must be flattened into independent
// clauses first (see flattenAnd), since "requires A and B" does not mean some single solvable
// provides both.
func (p *Pool) Providers(d Dep) []SolvableID {
	if d.IsAtom() {
		return append([]SolvableID(nil), p.providersIdx[d.atom]...)
	}
	switch d.op {
	case RelAnd, RelWith:
		return intersectIDs(p.Providers(*d.a), p.Providers(*d.b))
	case RelOr:
		return unionIDs(p.Providers(*d.a), p.Providers(*d.b))
	case RelWithout:
		return subtractIDs(p.Providers(*d.a), p.Providers(*d.b))
	case RelArch:
		arch := d.b.HeadAtom()
		return filterIDs(p.Providers(*d.a), func(id SolvableID) bool {
			return p.byID[id].Arch == arch
		})
	case RelEq:
		if exact, ok := p.providersIdx[d.Key()]; ok {
			return append([]SolvableID(nil), exact...)
		}
		version := d.b.HeadAtom()
		return filterIDs(p.Providers(*d.a), func(id SolvableID) bool {
			return solvableProvidesExactly(p.byID[id], d) || p.byID[id].Evr == version
		})
	default:
		panic(fmt.Sprintf("Providers: unhandled RelOp %v", d.op))
	}
}

func solvableProvidesExactly(s *Solvable, d Dep) bool {
	key := d.Key()
	for _, p := range s.Provides {
		if p.Key() == key {
			return true
		}
	}
	return false
}

// RequirersOf returns every solvable id that requires d, directly or as a sub-expression of one of
// its requires clauses (mirrors libsolv's pool_whatcontainsdep, used by fus.c to find the packages
// that require a just-resolved module's "module:n:s:v:c.arch" self-provide).
func (p *Pool) RequirersOf(d Dep) []SolvableID {
	return append([]SolvableID(nil), p.requirersIdx[d.Key()]...)
}

func intersectIDs(a, b []SolvableID) []SolvableID {
	bs := mapset.NewThreadUnsafeSet(b...)
	return filterIDs(a, bs.Contains)
}

func unionIDs(a, b []SolvableID) []SolvableID {
	s := mapset.NewThreadUnsafeSet(a...)
	s.Append(b...)
	return s.ToSlice()
}

func subtractIDs(a, b []SolvableID) []SolvableID {
	bs := mapset.NewThreadUnsafeSet(b...)
	return filterIDs(a, func(id SolvableID) bool { return !bs.Contains(id) })
}

func filterIDs(ids []SolvableID, pred func(SolvableID) bool) []SolvableID {
	return slices.Collect(itertools.Filter(slices.Values(ids), pred))
}
