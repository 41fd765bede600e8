package fus

import (
	"strings"
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
)

func TestDepsolveSimpleUrsine(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	p.AddSolvable(&Solvable{Name: "libx", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Provides: []Dep{Atom("libx")}})
	p.AddSolvable(&Solvable{Name: "app", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Provides: []Dep{Atom("app")}, Requires: []Dep{Atom("libx")}})
	p.CreateWhatProvides()

	lookaside := mapset.NewThreadUnsafeSet[*Repo]()
	modularPkgs := PrecomputeModularPackages(p)
	baseline := NewExclusionBaseline(p, nil, lookaside, modularPkgs)

	out, res, err := Depsolve(p, baseline, lookaside, modularPkgs, mapset.NewThreadUnsafeSet[SolvableID](), []string{"app"})
	if err != nil {
		t.Fatal(err)
	}
	if res.PartialFailure {
		t.Fatalf("unexpected partial failure: %v", res.Problems)
	}
	want := map[string]bool{
		"app-1.0-1.fc29.x86_64@repo":  true,
		"libx-1.0-1.fc29.x86_64@repo": true,
	}
	if len(out) != len(want) {
		t.Fatalf("Depsolve result = %v, want exactly %v", out, want)
	}
	for _, line := range out {
		if !want[line] {
			t.Fatalf("unexpected result line %q in %v", line, out)
		}
		if strings.HasPrefix(line, "*") {
			t.Fatalf("ursine-only result line %q should not carry the modular-package prefix", line)
		}
	}
}

func TestDepsolvePullsDefaultStreamModuleForBareRequirement(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")

	p.AddSolvable(&Solvable{Name: "libx", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Provides: []Dep{Atom("libx")}})
	p.CreateWhatProvides()

	AddModuleSolvables(p, repo, ModuleDef{
		Name: "m", Stream: "a", Version: 1, Context: "c0", Arch: "x86_64",
		RPMArtifacts: []string{"libx-1.0-1.fc29.x86_64"},
	})
	p.CreateWhatProvides()
	ApplyModuleDefaults(p, []DefaultsDef{{ModuleName: "m", DefaultStream: "a"}})

	app := p.AddSolvable(&Solvable{Name: "app", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Requires: []Dep{Atom("libx")}})
	p.CreateWhatProvides()

	lookaside := mapset.NewThreadUnsafeSet[*Repo]()
	modularPkgs := PrecomputeModularPackages(p)
	baseline := NewExclusionBaseline(p, nil, lookaside, modularPkgs)

	res := Resolve(p, baseline, modularPkgs, []SolvableID{app})
	if res.PartialFailure {
		t.Fatalf("unexpected partial failure: %v", res.Problems)
	}
	out := FormatResult(p, res.Pile, lookaside)

	foundLibx, foundModule, foundBareLibx := false, false, false
	for _, line := range out {
		switch {
		case line == "*libx-1.0-1.fc29.x86_64@repo":
			foundLibx = true
		case strings.HasPrefix(line, "module:m:a:1:c0"):
			foundModule = true
		case line == "libx-1.0-1.fc29.x86_64@repo":
			foundBareLibx = true
		}
	}
	if !foundLibx {
		t.Fatalf("expected the modular libx package in result, got %v", out)
	}
	if !foundModule {
		t.Fatalf("expected module:m:a:1:c0 in result, got %v", out)
	}
	if foundBareLibx {
		t.Fatalf("bare libx should never appear alongside its modular shadow, got %v", out)
	}
}

func TestDepsolveKeepsOnlyRequestedModuleStream(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")

	aID := AddModuleSolvables(p, repo, ModuleDef{Name: "n", Stream: "a", Version: 1, Context: "c0", Arch: "x86_64"})
	AddModuleSolvables(p, repo, ModuleDef{Name: "n", Stream: "b", Version: 1, Context: "c0", Arch: "x86_64"})
	p.CreateWhatProvides()

	lookaside := mapset.NewThreadUnsafeSet[*Repo]()
	modularPkgs := PrecomputeModularPackages(p)
	baseline := NewExclusionBaseline(p, nil, lookaside, modularPkgs)

	res := Resolve(p, baseline, modularPkgs, []SolvableID{aID})
	if res.PartialFailure {
		t.Fatalf("unexpected partial failure: %v", res.Problems)
	}
	out := FormatResult(p, res.Pile, lookaside)

	foundA, foundB := false, false
	for _, line := range out {
		if strings.HasPrefix(line, "module:n:a:1:c0") {
			foundA = true
		}
		if strings.HasPrefix(line, "module:n:b:1:c0") {
			foundB = true
		}
	}
	if !foundA {
		t.Fatalf("expected the requested stream module:n:a:1:c0 in result, got %v", out)
	}
	if foundB {
		t.Fatalf("did not request stream b; it should never appear in the result, got %v", out)
	}
}
