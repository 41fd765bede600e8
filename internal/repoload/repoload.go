// Package repoload reads the two on-disk repo formats this driver accepts: a plain-text ursine
// package listing and a small modular fixture format, both in the spirit of the libsolv "testcase"
// format the original C driver's own test harness used (original_source/tests.c), rather than real
// repomd/primary.xml or modulemd YAML parsing — production parsing of either is an explicit external
// collaborator, out of scope here. This package has no knowledge of the root fus package's Pool or
// Dep types; it only produces plain records for the caller to register.
//
// LoadUrsine/LoadModular read straight from a path; ParseUrsine/ParseModular parse from an
// in-memory reader instead, so a caller that routes repo loading through internal/cache's
// read-through store (see [CachingLoader]) can hand the cached bytes straight to the parser without an
// extra round trip through the filesystem.
package repoload

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fus-solver/fus/internal/cache"
)

// PackageRecord is one ursine (non-modular) solvable read from a packages.repo file.
type PackageRecord struct {
	Name      string
	Evr       string
	Arch      string
	Provides  [][]string // one []string per Prv: line, space-separated tokens ANDed together
	Requires  [][]string // one []string per Req: line
	Conflicts [][]string // one []string per Con: line
}

// DependencySet is one alternative set of module requirements, read from a "DepSet:" block.
// Streams are as written in the file: a leading "-" marks a negative (excluded) stream.
type DependencySet struct {
	Requires      map[string][]string
	BuildRequires map[string][]string
}

// ModuleRecord is one module stream read from a modules.yaml fixture file.
type ModuleRecord struct {
	Name         string
	Stream       string
	Version      uint64
	Context      string
	Arch         string
	Artifacts    []string
	Dependencies []DependencySet
}

// DefaultRecord names the default stream of a module, read from a "Default:" line.
type DefaultRecord struct {
	ModuleName    string
	DefaultStream string
}

// ModuleFile is the parsed contents of one modules.yaml fixture file.
type ModuleFile struct {
	Modules  []ModuleRecord
	Defaults []DefaultRecord
}

// RepoLoader reads one repo path in one of the two fixture formats. A real implementation backed by
// actual repomd/primary.xml or modulemd YAML parsing would satisfy the same interface; the two
// readers below are this module's own minimal implementation of it.
type RepoLoader interface {
	LoadUrsine(path string) ([]PackageRecord, error)
	LoadModular(path string) (ModuleFile, error)
}

// FixtureLoader is the [RepoLoader] implementation backing this package's own fixture formats.
type FixtureLoader struct{}

// LoadUrsine reads a packages.repo file: blank-line-separated blocks, each starting with a
// "Pkg: name evr arch" line followed by any number of "Req:"/"Prv:"/"Con:" lines, each holding
// space-separated capability tokens ANDed together.
func (FixtureLoader) LoadUrsine(path string) ([]PackageRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repoload: opening %s: %w", path, err)
	}
	defer f.Close()
	return ParseUrsine(f, path)
}

// ParseUrsine parses the packages.repo format (see [FixtureLoader.LoadUrsine]) from an already-open
// reader; source is used only to annotate error messages. Split out from LoadUrsine so a caller
// that already has the file's bytes in hand (e.g. after a cache lookup) doesn't have to write them
// back out to disk just to re-read them.
func ParseUrsine(r io.Reader, source string) ([]PackageRecord, error) {
	path := source
	var records []PackageRecord
	var cur *PackageRecord
	lineNo := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("repoload: %s:%d: expected \"Key: value\", got %q", path, lineNo, line)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Pkg":
			if cur != nil {
				records = append(records, *cur)
			}
			fields := strings.Fields(value)
			if len(fields) != 3 {
				return nil, fmt.Errorf("repoload: %s:%d: Pkg: wants \"name evr arch\", got %q", path, lineNo, value)
			}
			cur = &PackageRecord{Name: fields[0], Evr: fields[1], Arch: fields[2]}
		case "Req":
			if cur == nil {
				return nil, fmt.Errorf("repoload: %s:%d: Req: before Pkg:", path, lineNo)
			}
			cur.Requires = append(cur.Requires, strings.Fields(value))
		case "Prv":
			if cur == nil {
				return nil, fmt.Errorf("repoload: %s:%d: Prv: before Pkg:", path, lineNo)
			}
			cur.Provides = append(cur.Provides, strings.Fields(value))
		case "Con":
			if cur == nil {
				return nil, fmt.Errorf("repoload: %s:%d: Con: before Pkg:", path, lineNo)
			}
			cur.Conflicts = append(cur.Conflicts, strings.Fields(value))
		default:
			return nil, fmt.Errorf("repoload: %s:%d: unknown key %q", path, lineNo, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("repoload: reading %s: %w", path, err)
	}
	if cur != nil {
		records = append(records, *cur)
	}
	return records, nil
}

// LoadModular reads a modules.yaml fixture file: blank-line-separated "Module:" blocks (each naming
// a stream's Name/Stream/Version/Context/Arch/Artifact lines, with its requirement alternatives
// broken into "DepSet:" groups of "Requires:"/"BuildRequires:" lines), plus top-level
// "Default: name stream" lines giving a module's default stream.
func (FixtureLoader) LoadModular(path string) (ModuleFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return ModuleFile{}, fmt.Errorf("repoload: opening %s: %w", path, err)
	}
	defer f.Close()
	return ParseModular(f, path)
}

// ParseModular parses the modules.yaml fixture format (see [FixtureLoader.LoadModular]) from an
// already-open reader; source is used only to annotate error messages.
func ParseModular(r io.Reader, source string) (ModuleFile, error) {
	path := source
	var file ModuleFile
	var cur *ModuleRecord
	var curDeps *DependencySet
	flush := func() {
		if cur != nil {
			file.Modules = append(file.Modules, *cur)
			cur = nil
		}
		curDeps = nil
	}

	lineNo := 0
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			return ModuleFile{}, fmt.Errorf("repoload: %s:%d: expected \"Key: value\", got %q", path, lineNo, line)
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Module":
			flush()
			cur = &ModuleRecord{Name: value, Arch: "noarch"}
		case "Stream":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Stream: before Module:", path, lineNo)
			}
			cur.Stream = value
		case "Version":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Version: before Module:", path, lineNo)
			}
			if _, err := fmt.Sscanf(value, "%d", &cur.Version); err != nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: bad Version %q: %w", path, lineNo, value, err)
			}
		case "Context":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Context: before Module:", path, lineNo)
			}
			cur.Context = value
		case "Arch":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Arch: before Module:", path, lineNo)
			}
			cur.Arch = value
		case "Artifact":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Artifact: before Module:", path, lineNo)
			}
			cur.Artifacts = append(cur.Artifacts, value)
		case "DepSet":
			if cur == nil {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: DepSet: before Module:", path, lineNo)
			}
			cur.Dependencies = append(cur.Dependencies, DependencySet{})
			curDeps = &cur.Dependencies[len(cur.Dependencies)-1]
		case "Requires", "BuildRequires":
			if curDeps == nil {
				if cur == nil {
					return ModuleFile{}, fmt.Errorf("repoload: %s:%d: %s: before Module:", path, lineNo, key)
				}
				cur.Dependencies = append(cur.Dependencies, DependencySet{})
				curDeps = &cur.Dependencies[len(cur.Dependencies)-1]
			}
			target := &curDeps.Requires
			if strings.TrimSpace(key) == "BuildRequires" {
				target = &curDeps.BuildRequires
			}
			if *target == nil {
				*target = map[string][]string{}
			}
			for _, entry := range strings.Fields(value) {
				name, streams, ok := strings.Cut(entry, ":")
				if !ok {
					return ModuleFile{}, fmt.Errorf("repoload: %s:%d: bad requirement %q, want name:stream[,stream...]", path, lineNo, entry)
				}
				(*target)[name] = append((*target)[name], strings.Split(streams, ",")...)
			}
		case "Default":
			fields := strings.Fields(value)
			if len(fields) != 2 {
				return ModuleFile{}, fmt.Errorf("repoload: %s:%d: Default: wants \"name stream\", got %q", path, lineNo, value)
			}
			file.Defaults = append(file.Defaults, DefaultRecord{ModuleName: fields[0], DefaultStream: fields[1]})
		default:
			return ModuleFile{}, fmt.Errorf("repoload: %s:%d: unknown key %q", path, lineNo, key)
		}
	}
	if err := sc.Err(); err != nil {
		return ModuleFile{}, fmt.Errorf("repoload: reading %s: %w", path, err)
	}
	flush()
	return file, nil
}

// CachingLoader wraps the fixture formats with a read-through [cache.Store], the minimal concrete
// realization of §6's "opaque key/value store keyed by (repo-id, metadata-type)" cache layout. It
// keys by the repo path itself (every descriptor's path is already a stable, unique identifier in
// this local-fixture setup) and a fixed metadata-type tag per format. A local fixture file has no
// latency worth hiding, so the practical benefit is re-reads across repeated runs sharing a cache
// directory; a real remote-metadata RepoLoader dropped in behind the same interface is what a cache
// like this actually exists for.
type CachingLoader struct {
	Store *cache.Store
}

func (c CachingLoader) LoadUrsine(path string) ([]PackageRecord, error) {
	data, err := c.readThrough(path, "ursine")
	if err != nil {
		return nil, err
	}
	return ParseUrsine(bytes.NewReader(data), path)
}

func (c CachingLoader) LoadModular(path string) (ModuleFile, error) {
	data, err := c.readThrough(path, "modular")
	if err != nil {
		return ModuleFile{}, err
	}
	return ParseModular(bytes.NewReader(data), path)
}

func (c CachingLoader) readThrough(path, metadataType string) ([]byte, error) {
	if data, err := c.Store.Get(path, metadataType); err == nil {
		return data, nil
	} else if !errors.Is(err, cache.ErrMiss) {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("repoload: reading %s: %w", path, err)
	}
	if err := c.Store.Put(path, metadataType, data); err != nil {
		return nil, err
	}
	return data, nil
}

// ReadSpecifierFile reads an "@file"-style specifier list: one non-blank, non-comment specifier per
// line.
func ReadSpecifierFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("repoload: opening %s: %w", path, err)
	}
	defer f.Close()

	var specs []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		specs = append(specs, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("repoload: reading %s: %w", path, err)
	}
	return specs, nil
}
