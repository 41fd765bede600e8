package fus

import (
	mapset "github.com/deckarep/golang-set/v2"
)

// choiceGroup is one point during a solve where more than one considered solvable could have
// satisfied the same requirement conjunct: exactly the shape libsolv exposes per-rule via
// solver_get_alternative. gophersat has no equivalent introspection, so [Gather] derives choice
// groups itself, from the requires conjuncts of whatever got installed: a conjunct whose eligible
// provider set (intersected with the current consideration mask) has more than one member is an
// open choice, and the member that was actually installed is the one "chosen" this attempt.
type choiceGroup struct {
	key     string
	members []SolvableID
	chosen  SolvableID
}

// Gather is the C5 alternatives gatherer: starting from job, it repeatedly re-solves (via [Solve],
// C4) with accumulating favor/disfavor hints so that every open choice at every nesting level that
// a retry can still pick is tried once, returning one [Transaction] per combination explored. Mirrors fus.c's
// gather_alternatives/_gather_alternatives: an explicit (level, favor, tested, choices, max level
// seen) frame, the same scoped pool-job discipline (a fresh [Mask] clone per attempt rather than a
// shared mutable one), and the same two-phase recursion (exhaust every choice at the current level
// before descending to the next).
func Gather(p *Pool, baseline *Mask, job Job) ([]Transaction, []Problem) {
	tested := mapset.NewThreadUnsafeSet[SolvableID]()
	return gatherLevel(p, baseline, job, nil, tested, 1)
}

func gatherLevel(p *Pool, baseline *Mask, job Job, favor []SolvableID, tested mapset.Set[SolvableID], level int) ([]Transaction, []Problem) {
	attempt := attemptJob(job, favor, tested)
	mask := baseline.Clone()
	trans, problems, err := Solve(p, mask, attempt)
	if err != nil {
		return nil, []Problem{{Rules: []ProblemRule{ProblemRule(err.Error())}}}
	}
	if len(problems) > 0 {
		return nil, problems
	}

	transactions := []Transaction{trans}

	groups := findChoiceGroups(p, mask, trans)
	if len(groups) == 0 {
		return transactions, nil
	}

	var favorNext []SolvableID
	testedNext := mapset.NewThreadUnsafeSet[SolvableID]()
	var openMembers []SolvableID
	for _, g := range groups {
		favorNext = append(favorNext, g.chosen)
		testedNext.Add(g.chosen)
		for _, m := range g.members {
			if m != g.chosen {
				openMembers = append(openMembers, m)
			}
		}
	}
	grew := tested.Add(groups[0].chosen)

	for grew && !allTested(openMembers, tested) {
		before := tested.Cardinality()
		more, moreProblems := gatherLevel(p, baseline, job, favor, tested, level)
		transactions = append(transactions, more...)
		problems = append(problems, moreProblems...)
		// Every retry at this level disfavors everything already tested, so a retry that can still
		// pick an untested member adds it to tested. A retry that adds nothing would be repeated
		// identically, so the loop stops there instead.
		grew = tested.Cardinality() > before
	}

	if level >= maxExplorationDepth {
		return transactions, problems
	}

	deeper, deeperProblems := gatherLevel(p, baseline, job, favorNext, testedNext, level+1)
	transactions = append(transactions, deeper...)
	problems = append(problems, deeperProblems...)
	return transactions, problems
}

// maxExplorationDepth bounds the recursion depth of [Gather]. fus.c's original instead stops when
// the deepest alternative rule level observed this attempt (max_level) is no greater than the
// current level; this reimplementation has no rule-level introspection to read that from, so it
// bounds descent by a fixed depth instead, generous enough for realistic module dependency chains
// without risking unbounded recursion if the choice-group heuristic ever fails to shrink.
const maxExplorationDepth = 8

func attemptJob(job Job, favor []SolvableID, tested mapset.Set[SolvableID]) Job {
	attempt := make(Job, 0, len(job)+len(favor)+tested.Cardinality())
	attempt = append(attempt, job...)
	for _, id := range favor {
		attempt = append(attempt, JobItem{Flag: JobFavor, ID: id})
	}
	for _, id := range tested.ToSlice() {
		attempt = append(attempt, JobItem{Flag: JobDisfavor, ID: id})
	}
	return attempt
}

func allTested(members []SolvableID, tested mapset.Set[SolvableID]) bool {
	for _, m := range members {
		if !tested.Contains(m) {
			return false
		}
	}
	return true
}

// findChoiceGroups scans every solvable actually installed in trans for a requires conjunct whose
// eligible provider set (under mask) has more than one member, returning one group per distinct
// conjunct key.
func findChoiceGroups(p *Pool, mask *Mask, trans Transaction) []choiceGroup {
	installed := mapset.NewThreadUnsafeSet(trans...)
	seen := map[string]bool{}
	var groups []choiceGroup
	for _, id := range trans {
		for _, req := range p.Solvable(id).Requires {
			for _, conjunct := range flattenAnd(req) {
				key := conjunct.Key()
				if seen[key] {
					continue
				}
				members := filterIDs(p.Providers(conjunct), mask.Test)
				if len(members) < 2 {
					continue
				}
				seen[key] = true
				chosen, ok := firstInstalled(members, installed)
				if !ok {
					continue
				}
				groups = append(groups, choiceGroup{key: key, members: members, chosen: chosen})
			}
		}
	}
	return groups
}

func firstInstalled(ids []SolvableID, installed mapset.Set[SolvableID]) (SolvableID, bool) {
	for _, id := range ids {
		if installed.Contains(id) {
			return id, true
		}
	}
	return 0, false
}
