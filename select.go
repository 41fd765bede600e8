package fus

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// SelectFlags controls which matching strategies [SelectWith] tries, mirroring libsolv's
// SELECTION_* flags.
type SelectFlags int

const (
	SelectName SelectFlags = 1 << iota
	SelectProvides
	SelectGlob
	SelectDotArch
)

// selectAll is the flag set add_solvable_to_pile uses: SELECTION_NAME | SELECTION_PROVIDES |
// SELECTION_GLOB | SELECTION_CANON | SELECTION_DOTARCH (SELECTION_CANON just means "try NEVRA-exact
// first", which [SelectWith] always does).
const selectAll = SelectName | SelectProvides | SelectGlob | SelectDotArch

// selectExcludeFlags is the flag set [NewExclusionBaseline] matches exclude patterns with: name,
// glob, or name.arch. Provides are not matched.
const selectExcludeFlags = SelectName | SelectGlob | SelectDotArch

// Select matches specifier against every solvable's name and NEVRA, per [selectAll]. It does not
// apply the best-of reduction that [AddToPile] does — for callers that want every match, not a
// single preferred version.
func Select(p *Pool, specifier string) ([]SolvableID, error) {
	return SelectWith(p, specifier, selectAll)
}

// SelectWith is the C3 selection engine's matching step. It tries, in order:
//  1. NEVRA-exact bypass: specifier matches some solvable's [Solvable.NEVRA] literally. If it
//     does, that solvable (and only that one) is returned immediately, bare packages included,
//     even if a modular package would otherwise shadow it (see DESIGN.md's Open Question 3).
//  2. name.arch split (if flags has SelectDotArch and specifier has a dot): match the part before
//     the last dot against name/provides, requiring the given arch.
//  3. Literal name or provides-token match (if flags has SelectName / SelectProvides).
//  4. Glob match against every solvable name (if flags has SelectGlob).
func SelectWith(p *Pool, specifier string, flags SelectFlags) ([]SolvableID, error) {
	if specifier == "" {
		return nil, fmt.Errorf("empty specifier")
	}
	if id, ok := nevraExactMatch(p, specifier); ok {
		return []SolvableID{id}, nil
	}

	name, arch, hasArch := specifier, "", false
	if flags&SelectDotArch != 0 {
		if i := strings.LastIndex(specifier, "."); i > 0 && i < len(specifier)-1 {
			name, arch, hasArch = specifier[:i], specifier[i+1:], true
		}
	}

	found := mapset.NewThreadUnsafeSet[SolvableID]()
	if flags&SelectName != 0 {
		for _, id := range p.All() {
			if p.Solvable(id).Name == name {
				found.Add(id)
			}
		}
	}
	if flags&SelectProvides != 0 {
		found.Append(p.Providers(Atom(name))...)
	}
	if flags&SelectGlob != 0 && strings.ContainsAny(name, "*?[") {
		for _, id := range p.All() {
			if ok, _ := filepath.Match(name, p.Solvable(id).Name); ok {
				found.Add(id)
			}
		}
	}

	if hasArch {
		found = mapset.NewThreadUnsafeSet(filterIDs(found.ToSlice(), func(id SolvableID) bool {
			return p.Solvable(id).Arch == arch
		})...)
	}

	return found.ToSlice(), nil
}

func nevraExactMatch(p *Pool, specifier string) (SolvableID, bool) {
	for _, id := range p.All() {
		if p.Solvable(id).NEVRA() == specifier {
			return id, true
		}
	}
	return 0, false
}

// AddToPile resolves one solvable specifier into the best matching solvables and appends them to
// pile, skipping anything in disconsider, mirroring fus.c's add_solvable_to_pile: match, subtract
// disconsidered solvables, then best-of reduce (pool_best_solvables) so that among several versions
// of the same name.arch, only the highest is kept. Logs (does not return an error for) a specifier
// that matches nothing, the same as the original's g_warning.
//
// The NEVRA-exact bypass (SelectWith step 1) is exempt from the disconsider filter, mirroring
// mask_solvable_bare_rpms's exemption for an explicit NEVRA job: a specifier that names a bare
// package's exact NEVRA selects it even if it's currently masked out as shadowed by a modular
// package of the same name.
func AddToPile(p *Pool, pile *[]SolvableID, disconsider mapset.Set[SolvableID], specifier string) {
	if id, ok := nevraExactMatch(p, specifier); ok {
		*pile = append(*pile, id)
		return
	}
	matches, err := SelectWith(p, specifier, selectAll)
	if err != nil {
		matches = nil
	}
	kept := make([]SolvableID, 0, len(matches))
	for _, id := range matches {
		if !disconsider.Contains(id) {
			kept = append(kept, id)
		}
	}
	if len(kept) == 0 {
		logWarnf("nothing matches %q", specifier)
		return
	}
	*pile = append(*pile, bestSolvables(p, kept)...)
}

// bestSolvables reduces ids to, for each distinct (name, arch) pair, only the highest-EVR
// solvable, with Repo.Subpriority breaking ties in favor of the lower subpriority (mirrors
// libsolv's pool_best_solvables, which never promotes a lookaside repo's package over a foreground
// repo's at equal version).
func bestSolvables(p *Pool, ids []SolvableID) []SolvableID {
	type key struct{ name, arch string }
	best := map[key]SolvableID{}
	order := []key{}
	for _, id := range ids {
		s := p.Solvable(id)
		k := key{s.Name, s.Arch}
		cur, ok := best[k]
		if !ok {
			best[k] = id
			order = append(order, k)
			continue
		}
		if betterSolvable(p, id, cur) {
			best[k] = id
		}
	}
	out := make([]SolvableID, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func betterSolvable(p *Pool, a, b SolvableID) bool {
	sa, sb := p.Solvable(a), p.Solvable(b)
	if cmp := EvrCompare(sa.Evr, sb.Evr); cmp != 0 {
		return cmp > 0
	}
	return repoSubpriority(sa.Repo) < repoSubpriority(sb.Repo)
}

func repoSubpriority(r *Repo) int {
	if r == nil {
		return 0
	}
	return r.Subpriority
}
