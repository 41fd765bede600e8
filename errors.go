package fus

import (
	"fmt"
	"log/slog"
	"strings"
)

// logWarnf logs a selection-mismatch warning (§7 tier 3): a specifier or exclude pattern matched
// nothing. These are logged, not returned, since a single unmatched specifier does not by itself
// prevent the rest of the resolution from proceeding.
func logWarnf(format string, args ...any) {
	slog.Warn(fmt.Sprintf(format, args...))
}

// InputError reports a malformed request: no specifier matched any solvable ([Depsolve]), or a repo
// descriptor has an unknown type ([LoadRepos]) (§7 tier 1, hard failure — the run is aborted before
// any solving is attempted). An unreadable "@file" and a malformed -r/--repo flag are rejected by
// the CLI during flag parsing and are not reported as InputError.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

// ProblemRule is one diagnostic line explaining why a SAT problem could not be satisfied, as
// produced by the underlying solver's rule-info formatting.
type ProblemRule string

// A Problem groups every rule explaining one unsatisfiable core, numbered among the other problems
// found in the same solve attempt.
type Problem struct {
	Index int // 1-based, matching "Problem <i> / <n>:"
	Total int
	Rules []ProblemRule
}

// String renders p in the exact format the original driver prints, which is part of the
// user-visible diagnostic contract (§7): "Problem <i> / <n>:" followed by one "  - <rule>" line per
// rule.
func (p Problem) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Problem %d / %d:\n", p.Index, p.Total)
	for _, r := range p.Rules {
		fmt.Fprintf(&b, "  - %s\n", r)
	}
	return b.String()
}

// ProblemReport pairs one solvable that could not be resolved with the problems explaining why (§7
// tier 2, soft failure) and renders them as an error. [Resolve] does not return it: the driver
// records soft failures in [Resolution.PartialFailure] and [Resolution.Problems] and continues with
// the rest of the pile.
type ProblemReport struct {
	Solvable string
	Problems []Problem
}

func (e *ProblemReport) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "can't resolve %s:\n", e.Solvable)
	for _, p := range e.Problems {
		b.WriteString(p.String())
	}
	return b.String()
}
