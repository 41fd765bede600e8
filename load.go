package fus

import (
	"context"
	"fmt"
	"log/slog"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fus-solver/fus/internal/repoload"
)

// RepoDescriptor is one entry of the repository list passed to [LoadRepos], mirroring §6's
// "(id, type, path)" triple. Repo id "@system" is reserved for the synthetic platform-module repo
// [AddPlatformModule] populates; descriptors must not reuse it.
type RepoDescriptor struct {
	ID   string
	Kind RepoKind
	Path string
}

// loadResult is one descriptor's parse output, read concurrently and folded into the pool
// sequentially afterward (the pool itself is not safe for concurrent mutation).
type loadResult struct {
	repo     *Repo
	ursine   []repoload.PackageRecord
	modular  repoload.ModuleFile
	isModule bool
}

// LoadRepos reads every descriptor's file concurrently (via errgroup, one goroutine per repo, since
// parsing repo A cannot affect parsing repo B) and then folds the results into p sequentially for
// determinism, in two passes: every ursine and lookaside repo in descriptor order, then every modular
// repo in descriptor order. Returns the set of lookaside repos (for [NewExclusionBaseline]
// and [FormatResult]) and every defaults record found, for [ApplyModuleDefaults]. Callers must still
// call [Pool.CreateWhatProvides] once after LoadRepos returns (and again if [AddModuleSolvables] is
// used afterward to attach RPM artifacts, per its own doc comment).
func LoadRepos(ctx context.Context, p *Pool, descriptors []RepoDescriptor, loader repoload.RepoLoader) (mapset.Set[*Repo], []DefaultsDef, error) {
	results := make([]loadResult, len(descriptors))
	gr, _ := errgroup.WithContext(ctx)
	for i, d := range descriptors {
		i, d := i, d
		gr.Go(func() error {
			slog.Debug("loading repo", "id", d.ID, "kind", d.Kind, "path", d.Path)
			repo := &Repo{ID: d.ID, Kind: d.Kind}
			if d.Kind == RepoLookaside {
				repo.Subpriority = 100
			}
			switch d.Kind {
			case RepoModular:
				mf, err := loader.LoadModular(d.Path)
				if err != nil {
					return fmt.Errorf("loading modular repo %s: %w", d.ID, err)
				}
				results[i] = loadResult{repo: repo, modular: mf, isModule: true}
			case RepoRegular, RepoLookaside:
				pkgs, err := loader.LoadUrsine(d.Path)
				if err != nil {
					return fmt.Errorf("loading repo %s: %w", d.ID, err)
				}
				results[i] = loadResult{repo: repo, ursine: pkgs}
			default:
				return &InputError{Msg: fmt.Sprintf("unknown repo type for %s", d.ID)}
			}
			return nil
		})
	}
	if err := gr.Wait(); err != nil {
		return nil, nil, err
	}

	// Ursine packages are registered before any module's RPM artifacts are attached, regardless of
	// descriptor order: AddModuleSolvables looks artifact NEVRAs up directly among already-registered
	// solvables (mirrors fus.c's FUS_TESTING-only mid-load pool_createwhatprovides call, kept here as
	// an explicit two-pass fold instead of a conditional rebuild).
	lookaside := mapset.NewThreadUnsafeSet[*Repo]()
	for _, r := range results {
		if r.repo.Kind == RepoLookaside {
			lookaside.Add(r.repo)
		}
		if r.isModule {
			continue
		}
		for _, rec := range r.ursine {
			p.AddSolvable(packageRecordToSolvable(r.repo, rec))
		}
	}

	var defaults []DefaultsDef
	for _, r := range results {
		if !r.isModule {
			continue
		}
		for _, mr := range r.modular.Modules {
			AddModuleSolvables(p, r.repo, moduleDefFromRecord(mr))
		}
		for _, dr := range r.modular.Defaults {
			defaults = append(defaults, DefaultsDef{ModuleName: dr.ModuleName, DefaultStream: dr.DefaultStream})
		}
	}
	return lookaside, defaults, nil
}

func moduleDefFromRecord(mr repoload.ModuleRecord) ModuleDef {
	md := ModuleDef{
		Name:         mr.Name,
		Stream:       mr.Stream,
		Version:      mr.Version,
		Context:      mr.Context,
		Arch:         mr.Arch,
		RPMArtifacts: mr.Artifacts,
	}
	for _, ds := range mr.Dependencies {
		md.Deps = append(md.Deps, ModuleDependencySet{
			Requires:      ds.Requires,
			BuildRequires: ds.BuildRequires,
		})
	}
	return md
}

func packageRecordToSolvable(repo *Repo, rec repoload.PackageRecord) *Solvable {
	s := &Solvable{Name: rec.Name, Evr: rec.Evr, Arch: rec.Arch, Repo: repo}
	for _, tokens := range rec.Provides {
		if len(tokens) == 0 {
			continue
		}
		s.Provides = append(s.Provides, andAll(atoms(tokens)))
	}
	for _, tokens := range rec.Requires {
		if len(tokens) == 0 {
			continue
		}
		s.Requires = append(s.Requires, andAll(atoms(tokens)))
	}
	for _, tokens := range rec.Conflicts {
		if len(tokens) == 0 {
			continue
		}
		s.Conflicts = append(s.Conflicts, andAll(atoms(tokens)))
	}
	return s
}

func atoms(tokens []string) []Dep {
	deps := make([]Dep, len(tokens))
	for i, t := range tokens {
		deps[i] = Atom(t)
	}
	return deps
}
