package fus

import "testing"

func buildSimplePool(t *testing.T) (*Pool, SolvableID, SolvableID) {
	t.Helper()
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	bar := p.AddSolvable(&Solvable{Name: "libbar", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Provides: []Dep{Atom("libbar")}})
	foo := p.AddSolvable(&Solvable{Name: "foo", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Provides: []Dep{Atom("foo")}, Requires: []Dep{Atom("libbar")}})
	p.CreateWhatProvides()
	return p, foo, bar
}

func TestSolveInstallPullsDependency(t *testing.T) {
	p, foo, bar := buildSimplePool(t)
	mask := NewMask(p.NumSolvables())

	trans, problems, err := Solve(p, mask, Job{{Flag: JobInstall, ID: foo}})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Fatalf("unexpected problems: %v", problems)
	}
	want := map[SolvableID]bool{foo: true, bar: true}
	got := map[SolvableID]bool{}
	for _, id := range trans {
		got[id] = true
	}
	for id := range want {
		if !got[id] {
			t.Fatalf("Solve: transaction %v missing expected id %d", trans, id)
		}
	}
}

func TestSolveMissingRequirementIsAProblem(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	foo := p.AddSolvable(&Solvable{Name: "foo", Evr: "1.0-1.fc29", Arch: "x86_64", Repo: repo,
		Requires: []Dep{Atom("missing")}})
	p.CreateWhatProvides()
	mask := NewMask(p.NumSolvables())

	_, problems, err := Solve(p, mask, Job{{Flag: JobInstall, ID: foo}})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) == 0 {
		t.Fatal("expected a problem for the missing requirement")
	}
}

func TestSolveMaskExcludesSolvable(t *testing.T) {
	p, foo, bar := buildSimplePool(t)
	mask := NewMask(p.NumSolvables())
	mask.Clear(bar)

	_, problems, err := Solve(p, mask, Job{{Flag: JobInstall, ID: foo}})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) == 0 {
		t.Fatal("expected a problem once libbar is masked out")
	}
}

func TestSolveModuleConflictAtMostOne(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	a := AddModuleSolvables(p, repo, ModuleDef{Name: "n", Stream: "a", Version: 1, Context: "c0", Arch: "x86_64"})
	b := AddModuleSolvables(p, repo, ModuleDef{Name: "n", Stream: "b", Version: 1, Context: "c0", Arch: "x86_64"})
	p.CreateWhatProvides()
	mask := NewMask(p.NumSolvables())

	trans, problems, err := Solve(p, mask, Job{{Flag: JobInstall, ID: a}, {Flag: JobInstall, ID: b}})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) == 0 {
		t.Fatal("expected installing two streams of the same module to be unsatisfiable")
	}
	if trans != nil {
		t.Fatalf("expected no transaction, got %v", trans)
	}
}
