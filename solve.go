package fus

import (
	"fmt"
	"sort"

	"github.com/fus-solver/fus/internal/sat"
)

// JobFlag mirrors libsolv's SOLVER_INSTALL / SOLVER_FAVOR / SOLVER_DISFAVOR job flags.
type JobFlag int

const (
	JobInstall JobFlag = iota
	JobFavor
	JobDisfavor
)

// JobItem is one entry of a [Job] queue: install id outright, or bias the search toward or away
// from selecting it when more than one assignment would otherwise satisfy the problem.
type JobItem struct {
	Flag JobFlag
	ID   SolvableID
}

// A Job is the pool-wide job queue passed to one [Solve] call (mirrors pool->pooljobs).
type Job []JobItem

// Transaction is the installed-result of one successful solve: every solvable id the solver chose
// to select, in ascending id order (mirrors transaction_installedresult, made deterministic here
// since gophersat has no installed-result ordering of its own to preserve).
type Transaction []SolvableID

const (
	favorCost    = -1_000_000
	disfavorCost = 1_000_000
	baseCost     = 1
)

// Solve is the C4 solve wrapper: it builds a pseudo-boolean SAT problem from every solvable id
// currently eligible under mask, encodes each one's top-level requirement conjuncts and module
// self-conflicts, applies job's install/favor/disfavor hints, and returns the resulting
// [Transaction]. On failure, it returns a best-effort [Problem] explaining why (§7's diagnostic
// format), since gophersat does not expose libsolv's rule-info introspection; each explanation names
// either a requirement with no eligible provider or a module-stream conflict among the installed
// set.
func Solve(p *Pool, mask *Mask, job Job) (Transaction, []Problem, error) {
	considered := consideredIDs(p, mask, job)
	varOf := make(map[SolvableID]sat.Var, len(considered))
	idOf := make([]SolvableID, len(considered))
	for i, id := range considered {
		varOf[id] = sat.Var(i)
		idOf[i] = id
	}

	var clauses []sat.Clause
	var problems []Problem
	cost := map[sat.Var]int{}

	for _, item := range job {
		v, ok := varOf[item.ID]
		if !ok {
			continue
		}
		switch item.Flag {
		case JobInstall:
			clauses = append(clauses, sat.Clause{int(v.Int())})
		case JobFavor:
			cost[v] = favorCost
		case JobDisfavor:
			cost[v] = disfavorCost
		}
	}

	for _, id := range considered {
		s := p.Solvable(id)
		v := varOf[id]
		for _, req := range s.Requires {
			for _, conjunct := range flattenAnd(req) {
				providers := intersectWithVars(p.Providers(conjunct), varOf)
				if len(providers) == 0 {
					problems = append(problems, Problem{Rules: []ProblemRule{
						ProblemRule(fmt.Sprintf("nothing provides %s needed by %s", conjunct, s)),
					}})
					clauses = append(clauses, sat.Clause{-int(v.Int())})
					continue
				}
				lits := []int{-int(v.Int())}
				for _, pid := range providers {
					lits = append(lits, int(varOf[pid].Int()))
				}
				clauses = append(clauses, sat.Clause(lits))
			}
		}
	}

	groups := conflictGroups(p, considered, varOf)
	var atMosts []sat.AtMostOne
	for _, group := range groups {
		atMosts = append(atMosts, sat.AtMostOne{Vars: group})
	}

	result, err := sat.Solve(sat.Problem{
		NumVars: len(considered),
		Clauses: clauses,
		AtMosts: atMosts,
		Cost:    cost,
	})
	if err != nil {
		return nil, nil, err
	}
	if result.Status == sat.Unsat {
		if len(problems) == 0 {
			problems = []Problem{{Rules: []ProblemRule{"no assignment satisfies the given jobs"}}}
		}
		for i := range problems {
			problems[i].Index = i + 1
			problems[i].Total = len(problems)
		}
		return nil, problems, nil
	}

	var trans Transaction
	for i, selected := range result.Model {
		if selected {
			trans = append(trans, idOf[i])
		}
	}
	sort.Slice(trans, func(i, j int) bool { return trans[i] < trans[j] })
	return trans, nil, nil
}

// consideredIDs returns every masked-in solvable id, plus any job target not currently masked in
// (an install job should never silently do nothing because its target happened to be excluded by
// an earlier attempt's narrower mask).
func consideredIDs(p *Pool, mask *Mask, job Job) []SolvableID {
	seen := map[SolvableID]bool{}
	var ids []SolvableID
	for _, id := range p.All() {
		if mask.Test(id) {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, item := range job {
		if !seen[item.ID] {
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func intersectWithVars(ids []SolvableID, varOf map[SolvableID]sat.Var) []SolvableID {
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := varOf[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// conflictGroups returns, for every distinct conflict target among considered solvables (in
// practice always "module(n)" for some module name n), the set of considered solvable ids
// providing that target — encoded as a single AtMostOne rather than pairwise clauses, the same
// technique resolvesat.go uses for "only one version of a given import path".
func conflictGroups(p *Pool, considered []SolvableID, varOf map[SolvableID]sat.Var) [][]sat.Var {
	byTarget := map[string][]sat.Var{}
	order := []string{}
	for _, id := range considered {
		for _, c := range p.Solvable(id).Conflicts {
			providers := intersectWithVars(p.Providers(c), varOf)
			if len(providers) < 2 {
				continue
			}
			key := c.Key()
			if _, ok := byTarget[key]; !ok {
				order = append(order, key)
			}
			vars := make([]sat.Var, len(providers))
			for i, pid := range providers {
				vars[i] = varOf[pid]
			}
			byTarget[key] = vars
		}
	}
	out := make([][]sat.Var, 0, len(order))
	for _, k := range order {
		out = append(out, byTarget[k])
	}
	return out
}
