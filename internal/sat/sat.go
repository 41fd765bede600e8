// Package sat is the narrow external-solver interface the C4 solve wrapper and C5 alternatives
// gatherer are built on: a plain pseudo-boolean SAT problem (variables, clauses, at-most-one
// constraints, and a per-variable cost bias), with no concept of "module" or "stream" at all. Every
// domain-specific encoding decision (which variables exist, which constraints they take part in,
// how favor/disfavor hints become cost bias) lives in the caller; this package only talks to
// gophersat, the same way resolvesat.go does.
package sat

import (
	"fmt"

	"github.com/crillab/gophersat/solver"
)

// Var is a 0-based SAT variable index; an alias for gophersat's own variable type, since this
// package's whole purpose is translating a caller's variable ids into gophersat calls, not hiding
// gophersat's own identifiers.
type Var = solver.Var

// Clause is a disjunction of literals, each a signed variable index exactly as resolvesat.go builds
// them: int(v.Int()) for a positive occurrence of v, -int(v.Int()) for a negative one.
type Clause []int

// AtMostOne constrains at most one of Vars to be true, encoded as a single pseudo-boolean
// constraint (solver.AtMost) rather than pairwise clauses, the same technique resolvesat.go uses to
// say "only one version of a given import path may be selected" — here reused to say "only one
// stream of a given module may be selected".
type AtMostOne struct {
	Vars []Var
}

// Problem is a full pseudo-boolean satisfiability problem.
//
// Cost encodes favor/disfavor hints: a very negative cost makes a variable cheap to set true
// (favored), a very positive cost makes it expensive (disfavored); a variable absent from Cost
// defaults to a small positive base cost, the same uniform bias resolvesat.go gives every
// variable to prefer smaller selections when nothing else discriminates.
type Problem struct {
	NumVars int
	Clauses []Clause
	AtMosts []AtMostOne
	Cost    map[Var]int
}

// Status is the solver's verdict.
type Status int

const (
	Unsat Status = iota
	Satisfiable
)

// Result is the outcome of a [Solve] call.
type Result struct {
	Status Status
	// Model reports, for every variable, whether it was set true in the returned assignment.
	// Only meaningful when Status is Satisfiable.
	Model []bool
}

// Solve builds a gophersat problem from prob and solves it: solver.ParsePBConstrs assembles the
// clauses and at-most constraints, Problem.SetCostFunc installs the cost bias, and
// solver.New(...).Solve() runs the search, exactly the sequence resolvesat.go's buildSatProblem and
// ResolveSat use.
func Solve(prob Problem) (Result, error) {
	constrs := make([]solver.PBConstr, 0, len(prob.Clauses)+len(prob.AtMosts))
	for _, c := range prob.Clauses {
		constrs = append(constrs, solver.PropClause([]int(c)...))
	}
	for _, am := range prob.AtMosts {
		if len(am.Vars) < 2 {
			continue
		}
		lits := make([]int, len(am.Vars))
		for i, v := range am.Vars {
			lits[i] = int(v.Int())
		}
		constrs = append(constrs, solver.AtMost(lits, 1))
	}
	p := solver.ParsePBConstrs(constrs)

	lits := make([]solver.Lit, prob.NumVars)
	weights := make([]int, prob.NumVars)
	for v := 0; v < prob.NumVars; v++ {
		lits[v] = Var(v).Lit()
		if cost, ok := prob.Cost[Var(v)]; ok {
			weights[v] = cost
		} else {
			weights[v] = 1
		}
	}
	p.SetCostFunc(lits, weights)

	s := solver.New(p)
	switch s.Solve() {
	case solver.Sat:
		return Result{Status: Satisfiable, Model: s.Model()}, nil
	case solver.Unsat:
		return Result{Status: Unsat}, nil
	default:
		return Result{}, fmt.Errorf("sat: unexpected solver status")
	}
}
