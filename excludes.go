package fus

import (
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
)

// NewExclusionBaseline computes the C2 exclusion baseline: a [Mask] with every solvable eligible
// except those matched by one of the exclude patterns, skipping solvables that belong to a
// lookaside repo or that are themselves modular packages. Mirrors fus.c's apply_excludes exactly,
// including its warning for a pattern that matches nothing.
func NewExclusionBaseline(p *Pool, excludePatterns []string, lookaside mapset.Set[*Repo], modularPkgs mapset.Set[SolvableID]) *Mask {
	baseline := NewMask(p.NumSolvables())
	for _, pattern := range excludePatterns {
		matches, err := SelectWith(p, pattern, selectExcludeFlags)
		if err != nil || len(matches) == 0 {
			slog.Warn(fmt.Sprintf("nothing matches exclude %q", pattern))
			continue
		}
		for _, id := range matches {
			s := p.Solvable(id)
			if lookaside.Contains(s.Repo) {
				continue
			}
			if modularPkgs.Contains(id) {
				continue
			}
			slog.Info("excluding", "solvable", s.NEVRA(), "pattern", pattern)
			baseline.Clear(id)
		}
	}
	return baseline
}

// PrecomputeModularPackages returns the set of every solvable providing "modular-package()"
// (built packages belonging to some module), mirroring fus.c's precompute_modular_packages.
func PrecomputeModularPackages(p *Pool) mapset.Set[SolvableID] {
	return mapset.NewThreadUnsafeSet(p.Providers(Atom(modularPackageProvide))...)
}

// nonDefaultModuleStreamDep is "module() WITHOUT module-default()": every module solvable that is
// not itself the default stream of its module.
func nonDefaultModuleStreamDep() Dep {
	return Without(Atom(moduleProvide), Atom(moduleDefaultProvide))
}

// defaultModuleStreamDep is "module() WITH module-default()": every module solvable that is the
// default stream of its module.
func defaultModuleStreamDep() Dep {
	return With(Atom(moduleProvide), Atom(moduleDefaultProvide))
}

// MaskNonDefaultModulePackages returns every solvable that requires a non-default-stream module
// solvable (by its NEVRA-arch self-provide), mirroring fus.c's mask_non_default_module_pkgs: these
// packages should never be considered unless their module is chosen explicitly.
func MaskNonDefaultModulePackages(p *Pool) mapset.Set[SolvableID] {
	disconsider := mapset.NewThreadUnsafeSet[SolvableID]()
	for _, modID := range p.Providers(nonDefaultModuleStreamDep()) {
		s := p.Solvable(modID)
		selfProvide := ArchOf(Atom(s.Name), s.Arch)
		for _, reqID := range p.RequirersOf(selfProvide) {
			disconsider.Add(reqID)
		}
	}
	return disconsider
}

// MaskBareRPMs returns every bare (non-modular) package that a default-stream module's built
// artifacts already provide, mirroring fus.c's mask_solvable_bare_rpms: these are shadowed by the
// modular package and should never be considered, even if older.
func MaskBareRPMs(p *Pool) mapset.Set[SolvableID] {
	disconsider := mapset.NewThreadUnsafeSet[SolvableID]()
	for _, modID := range p.Providers(defaultModuleStreamDep()) {
		s := p.Solvable(modID)
		selfProvide := ArchOf(Atom(s.Name), s.Arch)
		for _, pkgID := range p.RequirersOf(selfProvide) {
			pkg := p.Solvable(pkgID)
			bareRPMs := Without(Atom(pkg.Name), Atom(modularPackageProvide))
			for _, bareID := range p.Providers(bareRPMs) {
				disconsider.Add(bareID)
			}
		}
	}
	return disconsider
}
