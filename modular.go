package fus

import "fmt"

// Provide/require token templates, named after fus.c's TMPL_NPROV / TMPL_NSPROV / MODPKG_PROV.
const (
	tmplNameProvide       = "module(%s)"      // module(n)
	tmplNameStreamProvide = "module(%s:%s)"   // module(n:s)
	modularPackageProvide = "modular-package()"
	moduleProvide         = "module()"
	moduleDefaultProvide  = "module-default()"
)

// A ModuleDependencySet is one alternative set of runtime and build-time requirements a module can
// be built against (ModulemdModule's "dependencies" array entry). Requires and BuildRequires map a
// required module name to the streams that satisfy it; a stream prefixed with "-" is a negative
// (excluded) stream, matching modulemd's convention.
type ModuleDependencySet struct {
	BuildRequires map[string][]string
	Requires      map[string][]string
}

// A ModuleDef is the minimal modulemd-equivalent description of one module build, used by
// [AddModuleSolvables] to synthesize its solvables. See SPEC_FULL.md §11 for why this is a small
// fixture-shaped struct rather than a real modulemd/YAML document: production modulemd parsing is
// an explicit external collaborator (§1), out of scope for the driver itself.
type ModuleDef struct {
	Name    string
	Stream  string
	Version uint64
	// Context is empty for a "dependencies-only" module definition (no built artifacts); such a
	// definition only contributes source/build-requires solvables, not an installable module
	// solvable (mirrors fus.c's "if (c)" check in add_module_solvables).
	Context string
	Arch    string // defaults to "noarch" if empty, as in the original
	Deps    []ModuleDependencySet
	// RPMArtifacts lists "name-[epoch:]version-release.arch" built package NEVRAs belonging to
	// this module build.
	RPMArtifacts []string
}

// A DefaultsDef names the default stream of a module, as recorded in a modulemd "defaults"
// document.
type DefaultsDef struct {
	ModuleName    string
	DefaultStream string
}

// parseModuleRequires turns a single dependency-set's requires (or build-requires) map into one AND
// of module-selector expressions, mirroring fus.c's parse_module_requires exactly: each entry
// becomes "module(n)", further narrowed by WITH (n:s1 OR n:s2 ...) for any positive streams and by
// WITHOUT (n:s1 OR n:s2 ...) for any negative ("-s") streams.
func parseModuleRequires(reqs map[string][]string) Dep {
	var require Dep
	have := false
	for n, streams := range reqs {
		var reqPos, reqNeg Dep
		havePos, haveNeg := false, false
		for _, s := range streams {
			neg := false
			if len(s) > 0 && s[0] == '-' {
				neg = true
				s = s[1:]
			}
			nsprov := Atom(fmt.Sprintf(tmplNameStreamProvide, n, s))
			if neg {
				reqNeg = orInto(reqNeg, haveNeg, nsprov)
				haveNeg = true
			} else {
				reqPos = orInto(reqPos, havePos, nsprov)
				havePos = true
			}
		}
		req := Atom(fmt.Sprintf(tmplNameProvide, n))
		if havePos {
			req = With(req, reqPos)
		} else if haveNeg {
			req = Without(req, reqNeg)
		}
		require = andInto(require, have, req)
		have = true
	}
	return require
}

func orInto(acc Dep, haveAcc bool, next Dep) Dep {
	if !haveAcc {
		return next
	}
	return Or(acc, next)
}

func andInto(acc Dep, haveAcc bool, next Dep) Dep {
	if !haveAcc {
		return next
	}
	return And(acc, next)
}

// addModuleDependencies sets s's SOLVABLE_REQUIRES to the OR of every alternative dependency set's
// parsed requires, mirroring fus.c's add_module_dependencies: any one of the module's declared
// dependency sets may be used to satisfy the module's own requirements.
func addModuleDependencies(s *Solvable, deps []ModuleDependencySet) {
	var requires Dep
	have := false
	for _, ds := range deps {
		require := parseModuleRequires(ds.Requires)
		requires = orInto(requires, have, require)
		have = true
	}
	if have {
		s.Requires = append(s.Requires, requires)
	}
}

// addSourcePackage adds a synthetic source-package solvable representing one dependency set's
// build-requires, mirroring fus.c's add_source_package.
func addSourcePackage(p *Pool, repo *Repo, name string, buildRequires map[string][]string) {
	s := &Solvable{Name: name, Arch: "src", Repo: repo}
	if req := parseModuleRequires(buildRequires); req != (Dep{}) {
		s.Requires = append(s.Requires, req)
	}
	p.AddSolvable(s)
}

// AddModuleSolvables synthesizes the module solvable (if md has a Context) and its per-dependency-
// set source packages for md, registering them with p and repo. Call [Pool.CreateWhatProvides]
// after loading every repo.
//
// Naming and provide/conflict shape mirror fus.c's add_module_solvables precisely:
//
//	name: module:$n:$s:$v:$c
//	Prv:  module:$n:$s:$v:$c . $arch   (self-provide, used to find requirers by NEVRA-arch)
//	Prv:  module()
//	Prv:  module($n)
//	Prv:  module($n:$s) = $v
//	Con:  module($n)                  (only one stream of a module may be selected at once)
func AddModuleSolvables(p *Pool, repo *Repo, md ModuleDef) SolvableID {
	arch := md.Arch
	if arch == "" {
		arch = "noarch"
	}
	vs := fmt.Sprintf("%d", md.Version)

	var id SolvableID = -1
	if md.Context != "" {
		s := &Solvable{
			Name: fmt.Sprintf("module:%s:%s:%s:%s", md.Name, md.Stream, vs, md.Context),
			Arch: arch,
			Repo: repo,
		}
		selfProvide := ArchOf(Atom(s.Name), arch)
		s.Provides = append(s.Provides,
			selfProvide,
			Atom(moduleProvide),
			Atom(fmt.Sprintf(tmplNameProvide, md.Name)),
			VersionOf(Atom(fmt.Sprintf(tmplNameStreamProvide, md.Name, md.Stream)), vs),
		)
		s.Conflicts = append(s.Conflicts, Atom(fmt.Sprintf(tmplNameProvide, md.Name)))
		addModuleDependencies(s, md.Deps)
		id = p.AddSolvable(s)
		addModuleRPMArtifacts(p, repo, md, selfProvide)
	}

	for i, ds := range md.Deps {
		name := fmt.Sprintf("module:%s:%s:%s:%d", md.Name, md.Stream, vs, i)
		addSourcePackage(p, repo, name, ds.BuildRequires)
	}
	return id
}

// addModuleRPMArtifacts gives every built RPM artifact of md a requirement on the module solvable's
// self-provide and a "modular-package()" provide, mirroring fus.c's add_module_rpm_artifacts /
// add_artifacts_dependencies. It looks artifacts up by exact NEVRA among p's already-registered
// solvables by scanning [Pool.All], so the ursine repo must be loaded before this can find anything;
// the provider index is not consulted, so [Pool.CreateWhatProvides] need not have run yet.
func addModuleRPMArtifacts(p *Pool, repo *Repo, md ModuleDef, selfProvide Dep) {
	byNEVRA := map[string]*Solvable{}
	for _, id := range p.All() {
		s := p.Solvable(id)
		byNEVRA[s.NEVRA()] = s
	}
	modpkg := Atom(modularPackageProvide)
	for _, nevra := range md.RPMArtifacts {
		s, ok := byNEVRA[nevra]
		if !ok {
			continue
		}
		s.Requires = append(s.Requires, selfProvide)
		s.Provides = append(s.Provides, modpkg)
	}
}

// AddPlatformModule synthesizes the "platform" module and its defaults entry into the given
// "@system" repo, mirroring fus.c's add_platform_module. It has no built RPM artifacts and a fixed
// all-zero context, matching the original's "00000000".
func AddPlatformModule(p *Pool, system *Repo, platform, arch string) SolvableID {
	id := AddModuleSolvables(p, system, ModuleDef{
		Name:    "platform",
		Stream:  platform,
		Version: 0,
		Context: "00000000",
		Arch:    arch,
	})
	p.AddProvide(id, Atom(moduleDefaultProvide))
	return id
}

// ApplyModuleDefaults gives every solvable providing "module(n:defaultStream)" (for every
// DefaultsDef naming a module n) an additional "module-default()" provide, mirroring the second
// loop of fus.c's _repo_add_modulemd_from_objects. Call after [Pool.CreateWhatProvides].
func ApplyModuleDefaults(p *Pool, defaults []DefaultsDef) {
	for _, d := range defaults {
		nsprov := Atom(fmt.Sprintf(tmplNameStreamProvide, d.ModuleName, d.DefaultStream))
		for _, id := range p.Providers(nsprov) {
			p.AddProvide(id, Atom(moduleDefaultProvide))
		}
	}
}
