package fus

import "fmt"

// A RelOp combines two [Dep] values into a compound dependency expression, mirroring libsolv's
// REL_* relation kinds.  AND and OR combine independent requirement clauses; WITH and WITHOUT
// narrow a provider query to solvables that also (or do not also) provide something else; ARCH and
// EQ narrow a provider query by architecture or exact version.
type RelOp int

const (
	RelAnd RelOp = iota
	RelOr
	RelWith
	RelWithout
	RelArch
	RelEq
)

func (op RelOp) String() string {
	switch op {
	case RelAnd:
		return "AND"
	case RelOr:
		return "OR"
	case RelWith:
		return "WITH"
	case RelWithout:
		return "WITHOUT"
	case RelArch:
		return "ARCH"
	case RelEq:
		return "EQ"
	default:
		return fmt.Sprintf("RelOp(%d)", int(op))
	}
}

// A Dep is a dependency expression: either a plain interned token (e.g. "module(platform)") or a
// compound expression built from two sub-expressions and a [RelOp].  Dep values are immutable and
// comparable by [Dep.Key]; two separately constructed Dep values built from the same tokens and
// operators always produce the same Key.
type Dep struct {
	atom string
	op   RelOp
	a, b *Dep
}

// Atom interns a plain dependency token, such as a package name, a provides string like
// "module(platform)", or a file path.
func Atom(token string) Dep {
	return Dep{atom: token}
}

// Rel builds a compound dependency expression combining a and b with op.
func Rel(a Dep, op RelOp, b Dep) Dep {
	return Dep{op: op, a: &a, b: &b}
}

// IsAtom reports whether d is a plain token rather than a compound expression.
func (d Dep) IsAtom() bool {
	return d.a == nil && d.b == nil
}

// HeadAtom returns the leftmost atom of d: for a plain atom, itself; for a compound expression,
// the head atom of its left-hand side.  This is the token libsolv's whatprovides index uses to
// answer plain-name provider queries even for solvables whose provide is a relation, not a bare
// atom (e.g. a module solvable's "module(n:s) = v" provide is still found by a query for
// "module(n:s)").
func (d Dep) HeadAtom() string {
	cur := d
	for cur.a != nil {
		cur = *cur.a
	}
	return cur.atom
}

// Key returns a canonical string uniquely identifying d's shape.  Two Dep values with equal Key
// are interchangeable for every purpose in this package (provider indexing, requirer indexing, SAT
// variable/clause identity).
func (d Dep) Key() string {
	if d.IsAtom() {
		return d.atom
	}
	return "(" + d.a.Key() + " " + d.op.String() + " " + d.b.Key() + ")"
}

func (d Dep) String() string {
	return d.Key()
}

// And combines a and b, requiring both to be independently satisfied.  Used to combine unrelated
// requirement clauses (e.g. a build-requires hash with more than one key).
func And(a, b Dep) Dep { return Rel(a, RelAnd, b) }

// Or combines a and b, requiring at least one of them to be satisfied by some selected provider.
// Used to combine the alternative dependency sets of a module (context-free, pre-build-time
// requirement options).
func Or(a, b Dep) Dep { return Rel(a, RelOr, b) }

// With narrows base to providers that also provide extra, as a single solvable.  Used to require a
// specific set of module streams alongside a plain module-name requirement
// (module(n) WITH (module(n:s1) OR module(n:s2))).
func With(base, extra Dep) Dep { return Rel(base, RelWith, extra) }

// Without narrows base to providers that do not also provide excluded, as a single solvable. Used
// for negative stream requirements and to find default-module packages not already in a chosen
// transaction.
func Without(base, excluded Dep) Dep { return Rel(base, RelWithout, excluded) }

// ArchOf narrows base to providers built for the given architecture.
func ArchOf(base Dep, arch string) Dep { return Rel(base, RelArch, Atom(arch)) }

// VersionOf narrows base to providers whose matching provide entry carries exactly this version.
func VersionOf(base Dep, version string) Dep { return Rel(base, RelEq, Atom(version)) }

// orAll combines deps with [Or], left to right.  Returns the zero [Dep] if deps is empty.
func orAll(deps []Dep) Dep {
	if len(deps) == 0 {
		return Dep{}
	}
	acc := deps[0]
	for _, d := range deps[1:] {
		acc = Or(acc, d)
	}
	return acc
}

// andAll combines deps with [And], left to right.  Returns the zero [Dep] if deps is empty.
func andAll(deps []Dep) Dep {
	if len(deps) == 0 {
		return Dep{}
	}
	acc := deps[0]
	for _, d := range deps[1:] {
		acc = And(acc, d)
	}
	return acc
}

// flattenAnd splits d into its top-level AND-conjuncts.  A requirement clause built by [And] is
// satisfied only when every conjunct is independently satisfied, which is not the same thing as
// asking which solvables provide the AND-compound itself (see [Pool.Providers]); callers that need
// per-conjunct satisfaction (the SAT encoder in package sat) should flatten first.
func flattenAnd(d Dep) []Dep {
	if d.IsAtom() || d.op != RelAnd {
		return []Dep{d}
	}
	return append(flattenAnd(*d.a), flattenAnd(*d.b)...)
}
