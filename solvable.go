package fus

import (
	"fmt"

	rpmversion "github.com/knqyf263/go-rpm-version"
)

// A SolvableID identifies a [Solvable] within its owning [Pool].  Ids are assigned in insertion
// order starting at zero and are never reused.
type SolvableID int

// RepoKind distinguishes the three repository roles described in the cache layout: ordinary
// (ursine) package repos, lookaside repos (present for dependency resolution but never emitted as
// a result, and never masked by --exclude), and modular repos (module metadata).
type RepoKind int

const (
	RepoRegular RepoKind = iota
	RepoLookaside
	RepoModular
)

func (k RepoKind) String() string {
	switch k {
	case RepoRegular:
		return "repo"
	case RepoLookaside:
		return "lookaside"
	case RepoModular:
		return "modular"
	default:
		return fmt.Sprintf("RepoKind(%d)", int(k))
	}
}

// A Repo is one of the repositories named on the command line, or the synthetic "@system" repo
// holding the platform module.
type Repo struct {
	ID   string
	Kind RepoKind
	// Subpriority biases best-of version selection and is only meaningful as a tiebreaker after
	// EVR comparison.  Lookaside repos get a high subpriority so that, all else equal, a
	// lookaside repo's solvable is never preferred over a foreground repo's (mirrors fus.c's
	// "r->subpriority = 100" for lookaside repos).
	Subpriority int
}

// A Solvable is a single installable unit: an ursine RPM, or a synthetic module solvable
// (§3 MODULE SOLVABLE).  Provides, Requires, and Conflicts are each a slice of independent
// dependency clauses (the slice elements are implicitly ANDed; a single element may itself be any
// [Dep] expression).
type Solvable struct {
	ID   SolvableID
	Name string
	// Evr is the RPM epoch:version-release string for an ursine package, or "" for a module
	// solvable (which libsolv gives ID_EMPTY, and which this package's NEVRA formatting treats
	// the same way: no "-evr" segment).
	Evr       string
	Arch      string
	Repo      *Repo
	Provides  []Dep
	Requires  []Dep
	Conflicts []Dep
}

// NEVRA returns the canonical "name-evr.arch" string, or "name.arch" if Evr is empty.
func (s *Solvable) NEVRA() string {
	if s.Evr == "" {
		return fmt.Sprintf("%s.%s", s.Name, s.Arch)
	}
	return fmt.Sprintf("%s-%s.%s", s.Name, s.Evr, s.Arch)
}

func (s *Solvable) String() string {
	return s.NEVRA()
}

// EvrCompare compares two RPM epoch:version-release strings, returning a negative number, zero, or
// a positive number as a orders before, the same as, or after b.
func EvrCompare(a, b string) int {
	if a == b {
		return 0
	}
	return rpmversion.NewVersion(a).Compare(rpmversion.NewVersion(b))
}
