package fus

import (
	"fmt"
	"log/slog"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Resolution is the full result of one [Resolve] call: the final pile, in insertion order, plus
// whether any individual install along the way failed (§7 tier 2 — a soft failure that does not
// abort the run) and the diagnostics explaining each one.
type Resolution struct {
	Pile           []SolvableID
	PartialFailure bool
	Problems       []Problem
}

// Resolve is the C6 resolution driver: the outer fixed-point loop over pile. Each untested entry is
// dispatched to the ursine path (a single [Solve] call) or the modular path ([Gather]'s recursive
// exploration), and whatever either path installs is folded back into the pile for a later sweep,
// until a full scan finds nothing left to dispatch. Mirrors fus.c's resolve_all_solvables /
// _install_transaction.
func Resolve(p *Pool, baseline *Mask, modularPkgs mapset.Set[SolvableID], pile []SolvableID) *Resolution {
	res := &Resolution{Pile: dedupIDs(pile)}
	outerTested := mapset.NewThreadUnsafeSet[SolvableID]()
	pileSet := mapset.NewThreadUnsafeSet(res.Pile...)

	for {
		progress := false
		// Snapshot the pile before ranging it: entries pushed during this sweep are picked up by
		// the next one, matching the "second sweep" state-machine note of §4.6 (module-contained
		// packages discovered while exploring one module get their own ursine pass next time
		// around).
		sweep := append([]SolvableID(nil), res.Pile...)
		for _, id := range sweep {
			if outerTested.Contains(id) {
				continue
			}
			outerTested.Add(id)
			progress = true

			s := p.Solvable(id)
			job := Job{{Flag: JobInstall, ID: id}}
			slog.Debug("dispatching pile entry", "solvable", s.NEVRA())

			if isModuleName(s.Name) {
				resolveModular(p, baseline, modularPkgs, id, job, res, &pileSet)
			} else {
				resolveUrsine(p, baseline, modularPkgs, job, res, &pileSet, outerTested)
			}
		}
		if !progress {
			break
		}
	}
	return res
}

func isModuleName(name string) bool {
	return strings.HasPrefix(name, "module:")
}

func dedupIDs(ids []SolvableID) []SolvableID {
	seen := mapset.NewThreadUnsafeSet[SolvableID]()
	out := make([]SolvableID, 0, len(ids))
	for _, id := range ids {
		if seen.Add(id) {
			out = append(out, id)
		}
	}
	return out
}

// pushPile appends id to res.Pile if it is not already present, keeping pileSet in sync.
func pushPile(res *Resolution, pileSet *mapset.Set[SolvableID], id SolvableID) {
	if (*pileSet).Add(id) {
		res.Pile = append(res.Pile, id)
	}
}

// resolveUrsine is §4.6's ursine path: disable every non-default module outright, mask bare RPMs
// shadowed by whatever modular package stayed enabled, solve, and push the installed result. Ursine
// solvables are marked outer-tested immediately on insertion (re-solving them again would be
// idempotent, so there is no reason to make the outer loop do it).
func resolveUrsine(p *Pool, baseline *Mask, modularPkgs mapset.Set[SolvableID], job Job, res *Resolution, pileSet *mapset.Set[SolvableID], outerTested mapset.Set[SolvableID]) {
	mask := baseline.Clone()
	disableNonDefaultModules(p, mask, nil)
	maskBareRPMsForAttempt(p, mask, modularPkgs, *pileSet)

	trans, problems, err := Solve(p, mask, job)
	if err != nil {
		res.PartialFailure = true
		res.Problems = append(res.Problems, Problem{Rules: []ProblemRule{ProblemRule(err.Error())}})
		return
	}
	if len(problems) > 0 {
		res.PartialFailure = true
		res.Problems = append(res.Problems, problems...)
		return
	}
	for _, id := range trans {
		pushPile(res, pileSet, id)
		outerTested.Add(id)
	}
}

// resolveModular is §4.6's modular path: gather every materially distinct transaction for job, then
// for each one, re-mask to keep that transaction's chosen modules enabled (and every other
// non-default module disabled), and expand every module in the transaction into its contained
// packages, individually installing each so its own dependencies are pulled in turn. Module
// solvables pushed here are deliberately left untested so a later sweep explores them on their own
// (per DESIGN.md's Open Question 2 decision, a module is only finished once every transaction
// Gather returned for it has already been expanded into pile entries — true by construction here,
// since the loop below runs to completion before resolveModular returns).
func resolveModular(p *Pool, baseline *Mask, modularPkgs mapset.Set[SolvableID], moduleID SolvableID, job Job, res *Resolution, pileSet *mapset.Set[SolvableID]) {
	transactions, problems := Gather(p, baseline, job)
	if len(transactions) == 0 {
		res.PartialFailure = true
		res.Problems = append(res.Problems, problems...)
		pushPile(res, pileSet, moduleID)
		for _, pkgID := range containedPackages(p, moduleID) {
			pushPile(res, pileSet, pkgID)
		}
		return
	}

	for _, trans := range transactions {
		moduleIDs := mapset.NewThreadUnsafeSet[SolvableID]()
		for _, id := range trans {
			if isModuleName(p.Solvable(id).Name) {
				moduleIDs.Add(id)
			}
		}

		mask := baseline.Clone()
		disableNonDefaultModules(p, mask, moduleIDs)
		maskBareRPMsForAttempt(p, mask, modularPkgs, *pileSet)

		for _, modID := range moduleIDs.ToSlice() {
			pushPile(res, pileSet, modID)
			for _, pkgID := range containedPackages(p, modID) {
				pushPile(res, pileSet, pkgID)
				pkgTrans, pkgProblems, err := Solve(p, mask, Job{{Flag: JobInstall, ID: pkgID}})
				if err != nil {
					res.PartialFailure = true
					res.Problems = append(res.Problems, Problem{Rules: []ProblemRule{ProblemRule(err.Error())}})
					continue
				}
				if len(pkgProblems) > 0 {
					res.PartialFailure = true
					res.Problems = append(res.Problems, pkgProblems...)
					continue
				}
				for _, id := range pkgTrans {
					pushPile(res, pileSet, id)
				}
			}
		}
	}
}

// containedPackages returns every solvable requiring moduleID's self-provide (its "name.arch"
// NEVRA-arch token), mirroring fus.c's use of pool_whatcontainsdep to enumerate a module's built
// artifacts.
func containedPackages(p *Pool, moduleID SolvableID) []SolvableID {
	s := p.Solvable(moduleID)
	if s == nil {
		return nil
	}
	selfProvide := ArchOf(Atom(s.Name), s.Arch)
	return p.RequirersOf(selfProvide)
}

// disableNonDefaultModules clears every non-default-stream module solvable and its contained
// packages from mask, except those in keep (nil disables all of them — the ursine path's rule;
// modular path passes the current transaction's own chosen modules as keep).
func disableNonDefaultModules(p *Pool, mask *Mask, keep mapset.Set[SolvableID]) {
	for _, modID := range p.Providers(nonDefaultModuleStreamDep()) {
		if keep != nil && keep.Contains(modID) {
			continue
		}
		mask.Clear(modID)
		for _, pkgID := range containedPackages(p, modID) {
			mask.Clear(pkgID)
		}
	}
}

// maskBareRPMsForAttempt clears, for every modular package still enabled under mask, every other
// solvable sharing its name that is neither itself a modular package nor already present in the
// pile, mirroring §4.6's per-attempt "mask bare RPMs" step (distinct from [MaskBareRPMs], which
// precomputes the same idea globally for default-stream modules only, ahead of any particular
// attempt).
func maskBareRPMsForAttempt(p *Pool, mask *Mask, modularPkgs mapset.Set[SolvableID], pileSet mapset.Set[SolvableID]) {
	for _, id := range p.All() {
		if !mask.Test(id) || !modularPkgs.Contains(id) {
			continue
		}
		name := p.Solvable(id).Name
		bareSiblings := Without(Atom(name), Atom(modularPackageProvide))
		for _, sib := range p.Providers(bareSiblings) {
			if pileSet.Contains(sib) {
				continue
			}
			mask.Clear(sib)
		}
	}
}

// FormatResult renders res.Pile in insertion order as the final result strings, mirroring fus.c's
// output loop: one "{prefix}{NEVRA}@{repo}" per pile entry whose repo is not a lookaside repo,
// prefix "*" iff the solvable provides "modular-package()".
func FormatResult(p *Pool, pile []SolvableID, lookaside mapset.Set[*Repo]) []string {
	modularPkgs := PrecomputeModularPackages(p)
	out := make([]string, 0, len(pile))
	for _, id := range pile {
		s := p.Solvable(id)
		if s == nil || (s.Repo != nil && lookaside.Contains(s.Repo)) {
			continue
		}
		prefix := ""
		if modularPkgs.Contains(id) {
			prefix = "*"
		}
		repoID := ""
		if s.Repo != nil {
			repoID = s.Repo.ID
		}
		out = append(out, fmt.Sprintf("%s%s@%s", prefix, s.NEVRA(), repoID))
	}
	return out
}

// Depsolve is the top-level entry point described in §6: it seeds a pile from specifiers (via
// [AddToPile]), runs [Resolve], and renders the result, mirroring fus.c's fus_depsolve. baseline is
// expected to already carry the --exclude patterns (see [NewExclusionBaseline]); disconsider is
// expected to already carry [MaskNonDefaultModulePackages] unioned with [MaskBareRPMs] — both are
// consulted only at specifier-selection time (by [AddToPile]), never through baseline, which [Solve]
// alone consults. disconsider is subtracted from every specifier match the same way apply_excludes
// subtracts excluded solvables from the baseline, except for an exact-NEVRA match, which bypasses it.
func Depsolve(p *Pool, baseline *Mask, lookaside mapset.Set[*Repo], modularPkgs mapset.Set[SolvableID], disconsider mapset.Set[SolvableID], specifiers []string) ([]string, *Resolution, error) {
	var pile []SolvableID
	for _, spec := range specifiers {
		AddToPile(p, &pile, disconsider, spec)
	}
	if len(pile) == 0 {
		return nil, nil, &InputError{Msg: "no solvables matched"}
	}

	res := Resolve(p, baseline, modularPkgs, pile)
	if res.PartialFailure {
		slog.Warn("can't resolve all solvables")
	}
	return FormatResult(p, res.Pile, lookaside), res, nil
}
