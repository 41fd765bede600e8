package fus

import (
	"testing"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/go-cmp/cmp"
)

func newVersionedSolvable(name, evr, arch string, repo *Repo) *Solvable {
	s := &Solvable{Name: name, Evr: evr, Arch: arch, Repo: repo}
	s.Provides = append(s.Provides, Atom(name))
	return s
}

func TestSelectWithNEVRAExactBypass(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	old := p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "x86_64", repo))
	p.AddSolvable(newVersionedSolvable("foo", "2.0-1.fc29", "x86_64", repo))
	p.CreateWhatProvides()

	got, err := SelectWith(p, "foo-1.0-1.fc29.x86_64", selectAll)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]SolvableID{old}, got); diff != "" {
		t.Fatalf("NEVRA-exact bypass mismatch (-want +got):\n%s", diff)
	}
}

func TestAddToPileBestOfReduction(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "x86_64", repo))
	newer := p.AddSolvable(newVersionedSolvable("foo", "2.0-1.fc29", "x86_64", repo))
	p.CreateWhatProvides()

	var pile []SolvableID
	AddToPile(p, &pile, mapset.NewThreadUnsafeSet[SolvableID](), "foo")
	if diff := cmp.Diff([]SolvableID{newer}, pile); diff != "" {
		t.Fatalf("AddToPile best-of mismatch (-want +got):\n%s", diff)
	}
}

func TestAddToPileDisconsider(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	id := p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "x86_64", repo))
	p.CreateWhatProvides()

	disconsider := mapset.NewThreadUnsafeSet(id)
	var pile []SolvableID
	AddToPile(p, &pile, disconsider, "foo")
	if len(pile) != 0 {
		t.Fatalf("AddToPile: expected nothing selected, got %v", pile)
	}
}

func TestAddToPileNEVRAExactBypassesDisconsider(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	id := p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "x86_64", repo))
	p.CreateWhatProvides()

	disconsider := mapset.NewThreadUnsafeSet(id)
	var pile []SolvableID
	AddToPile(p, &pile, disconsider, "foo-1.0-1.fc29.x86_64")
	if diff := cmp.Diff([]SolvableID{id}, pile); diff != "" {
		t.Fatalf("AddToPile NEVRA-exact bypass should ignore disconsider (-want +got):\n%s", diff)
	}
}

func TestSelectWithNameDotArch(t *testing.T) {
	p := NewPool("x86_64")
	repo := newTestRepo("repo")
	x64 := p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "x86_64", repo))
	p.AddSolvable(newVersionedSolvable("foo", "1.0-1.fc29", "i686", repo))
	p.CreateWhatProvides()

	got, err := SelectWith(p, "foo.x86_64", selectAll)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]SolvableID{x64}, got); diff != "" {
		t.Fatalf("SelectWith name.arch mismatch (-want +got):\n%s", diff)
	}
}
