package fus

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func newTestRepo(id string) *Repo {
	return &Repo{ID: id, Kind: RepoRegular}
}

func TestPoolProvidersPlainAtom(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	foo := &Solvable{Name: "foo", Evr: "1.0-1", Arch: "x86_64", Repo: repo}
	foo.Provides = append(foo.Provides, Atom("foo"))
	fooID := p.AddSolvable(foo)
	p.CreateWhatProvides()

	got := p.Providers(Atom("foo"))
	want := []SolvableID{fooID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Providers(foo) mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolProvidersWithAndWithout(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	a := p.AddSolvable(&Solvable{Name: "a", Arch: "noarch", Repo: repo,
		Provides: []Dep{Atom("cap"), Atom("extra")}})
	b := p.AddSolvable(&Solvable{Name: "b", Arch: "noarch", Repo: repo,
		Provides: []Dep{Atom("cap")}})
	p.CreateWhatProvides()

	with := p.Providers(With(Atom("cap"), Atom("extra")))
	if diff := cmp.Diff([]SolvableID{a}, with); diff != "" {
		t.Fatalf("Providers(cap WITH extra) mismatch (-want +got):\n%s", diff)
	}

	without := p.Providers(Without(Atom("cap"), Atom("extra")))
	if diff := cmp.Diff([]SolvableID{b}, without); diff != "" {
		t.Fatalf("Providers(cap WITHOUT extra) mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolProvidersArch(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	x64 := p.AddSolvable(&Solvable{Name: "foo", Arch: "x86_64", Repo: repo, Provides: []Dep{Atom("foo")}})
	p.AddSolvable(&Solvable{Name: "foo", Arch: "i686", Repo: repo, Provides: []Dep{Atom("foo")}})
	p.CreateWhatProvides()

	got := p.Providers(ArchOf(Atom("foo"), "x86_64"))
	if diff := cmp.Diff([]SolvableID{x64}, got); diff != "" {
		t.Fatalf("Providers(foo ARCH x86_64) mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolRequirersOf(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	p.AddSolvable(&Solvable{Name: "bar", Arch: "noarch", Repo: repo, Provides: []Dep{Atom("bar")}})
	foo := p.AddSolvable(&Solvable{Name: "foo", Arch: "noarch", Repo: repo, Requires: []Dep{And(Atom("bar"), Atom("baz"))}})
	p.CreateWhatProvides()

	got := p.RequirersOf(Atom("bar"))
	if diff := cmp.Diff([]SolvableID{foo}, got); diff != "" {
		t.Fatalf("RequirersOf(bar) mismatch (-want +got):\n%s", diff)
	}
	got = p.RequirersOf(Atom("baz"))
	if diff := cmp.Diff([]SolvableID{foo}, got); diff != "" {
		t.Fatalf("RequirersOf(baz) mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolAddProvideIncrementalIndex(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	id := p.AddSolvable(&Solvable{Name: "foo", Arch: "noarch", Repo: repo, Provides: []Dep{Atom("module(n:a)")}})
	p.CreateWhatProvides()

	p.AddProvide(id, Atom(moduleDefaultProvide))

	got := p.Providers(Atom(moduleDefaultProvide))
	if diff := cmp.Diff([]SolvableID{id}, got); diff != "" {
		t.Fatalf("Providers(module-default()) mismatch (-want +got):\n%s", diff)
	}
}
