package repoload

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/fus-solver/fus/internal/cache"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFixtureLoaderLoadUrsine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "packages.repo", `
Pkg: foo 1.0-1.fc29 x86_64
Req: libbar

Pkg: libbar 1.0-1.fc29 x86_64
Prv: libbar(x86-64)
`)

	got, err := (FixtureLoader{}).LoadUrsine(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []PackageRecord{
		{Name: "foo", Evr: "1.0-1.fc29", Arch: "x86_64", Requires: [][]string{{"libbar"}}},
		{Name: "libbar", Evr: "1.0-1.fc29", Arch: "x86_64", Provides: [][]string{{"libbar(x86-64)"}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("LoadUrsine: got %#v, want %#v", got, want)
	}
}

func TestFixtureLoaderLoadUrsineBadLine(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "packages.repo", "this is not a key-value line\n")
	if _, err := (FixtureLoader{}).LoadUrsine(path); err == nil {
		t.Fatal("expected an error for a malformed line")
	}
}

func TestFixtureLoaderLoadModular(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "modules.yaml", `
Module: n
Stream: a
Version: 1
Context: c0
Arch: x86_64
Artifact: libx-1.0-1.fc29.x86_64
Requires: platform:f29
BuildRequires: platform:f29

Module: n
Stream: b
Version: 1
Context: c0

Default: n a
`)

	got, err := (FixtureLoader{}).LoadModular(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Modules) != 2 {
		t.Fatalf("LoadModular: got %d modules, want 2", len(got.Modules))
	}
	a := got.Modules[0]
	if a.Name != "n" || a.Stream != "a" || a.Version != 1 || a.Context != "c0" || a.Arch != "x86_64" {
		t.Fatalf("LoadModular: stream a = %#v", a)
	}
	if len(a.Artifacts) != 1 || a.Artifacts[0] != "libx-1.0-1.fc29.x86_64" {
		t.Fatalf("LoadModular: stream a artifacts = %#v", a.Artifacts)
	}
	if len(a.Dependencies) != 1 || a.Dependencies[0].Requires["platform"][0] != "f29" {
		t.Fatalf("LoadModular: stream a deps = %#v", a.Dependencies)
	}
	b := got.Modules[1]
	if b.Arch != "noarch" {
		t.Fatalf("LoadModular: stream b should default Arch to noarch, got %q", b.Arch)
	}
	if len(got.Defaults) != 1 || got.Defaults[0] != (DefaultRecord{ModuleName: "n", DefaultStream: "a"}) {
		t.Fatalf("LoadModular: defaults = %#v", got.Defaults)
	}
}

func TestFixtureLoaderLoadModularNegativeStream(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "modules.yaml", `
Module: n
Stream: a
Version: 1
Context: c0
Requires: other:s1,-s2
`)
	got, err := (FixtureLoader{}).LoadModular(path)
	if err != nil {
		t.Fatal(err)
	}
	streams := got.Modules[0].Dependencies[0].Requires["other"]
	want := []string{"s1", "-s2"}
	if !reflect.DeepEqual(streams, want) {
		t.Fatalf("LoadModular: negative-stream requirement = %#v, want %#v", streams, want)
	}
}

func TestCachingLoaderMatchesFixtureLoader(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "packages.repo", `
Pkg: foo 1.0-1.fc29 x86_64
Req: libbar

Pkg: libbar 1.0-1.fc29 x86_64
Prv: libbar(x86-64)
`)

	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	loader := CachingLoader{Store: store}

	want, err := (FixtureLoader{}).LoadUrsine(path)
	if err != nil {
		t.Fatal(err)
	}

	first, err := loader.LoadUrsine(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, want) {
		t.Fatalf("CachingLoader.LoadUrsine (cold): got %#v, want %#v", first, want)
	}

	// Overwrite the file on disk; a second load should come back from the cache and
	// therefore still match the original contents, not the new ones.
	writeFile(t, dir, "packages.repo", `
Pkg: changed 9.0-1.fc29 x86_64
`)
	second, err := loader.LoadUrsine(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(second, want) {
		t.Fatalf("CachingLoader.LoadUrsine (warm): got %#v, want %#v", second, want)
	}
}

func TestCachingLoaderLoadModular(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "modules.yaml", `
Module: n
Stream: a
Version: 1
Context: c0
Arch: x86_64
`)
	store, err := cache.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	loader := CachingLoader{Store: store}

	got, err := loader.LoadModular(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Modules) != 1 || got.Modules[0].Stream != "a" {
		t.Fatalf("CachingLoader.LoadModular: got %#v", got)
	}
}

func TestReadSpecifierFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "input", "foo\n\n# comment\nlibbar\n")
	got, err := ReadSpecifierFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"foo", "libbar"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadSpecifierFile: got %#v, want %#v", got, want)
	}
}
