package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/amterp/color"

	fus "github.com/fus-solver/fus"
	"github.com/fus-solver/fus/internal/cache"
	"github.com/fus-solver/fus/internal/logging"
	"github.com/fus-solver/fus/internal/repoload"
)

var errorf = color.New(color.FgHiRed).SprintfFunc()

type repoFlag struct {
	descriptors *[]fus.RepoDescriptor
}

func (f repoFlag) String() string { return "" }

func (f repoFlag) Set(arg string) error {
	parts := strings.SplitN(arg, ",", 3)
	if len(parts) != 3 {
		return fmt.Errorf("expected id,type,path, got %q", arg)
	}
	id, kindStr, path := parts[0], parts[1], parts[2]
	var kind fus.RepoKind
	switch kindStr {
	case "repo":
		kind = fus.RepoRegular
	case "lookaside":
		kind = fus.RepoLookaside
	case "modular":
		kind = fus.RepoModular
	default:
		return fmt.Errorf("unknown repo type %q; expected one of: repo, lookaside, modular", kindStr)
	}
	*f.descriptors = append(*f.descriptors, fus.RepoDescriptor{ID: id, Kind: kind, Path: path})
	return nil
}

type stringsFlag struct {
	values *[]string
}

func (f stringsFlag) String() string { return "" }

func (f stringsFlag) Set(arg string) error {
	*f.values = append(*f.values, arg)
	return nil
}

type formatFn = func(out []string) (string, error)

func formatList(out []string) (string, error) {
	return strings.Join(out, "\n"), nil
}

func formatJSON(out []string) (string, error) {
	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling result: %w", err)
	}
	return string(b), nil
}

var allFormatFuncs = [...]formatFn{formatList, formatJSON}

var allFormats = map[string]*formatFn{
	"list": &allFormatFuncs[0],
	"json": &allFormatFuncs[1],
}

type config struct {
	arch       string
	platform   string
	cacheDir   string
	repos      []fus.RepoDescriptor
	excludes   []string
	specifiers []string
	format     *formatFn
}

func choiceFlag[T any](p *T, name string, choices map[string]T, dflt string, usage string) {
	cstr := strings.Join(slices.Sorted(maps.Keys(choices)), ", ")
	var ok bool
	if *p, ok = choices[dflt]; !ok {
		panic(fmt.Errorf("invalid default for %v option: %v", dflt, name))
	}
	usage += fmt.Sprintf(" (one of: %v; default: %v)", cstr, dflt)
	flag.Func(name, usage, func(arg string) error {
		if arg == "" {
			arg = dflt
		}
		v, ok := choices[arg]
		if !ok {
			return fmt.Errorf("expected one of: %v", cstr)
		}
		*p = v
		return nil
	})
}

var slogLevel = func() *slog.LevelVar {
	lvl := &slog.LevelVar{}
	lvl.Set(logging.LevelInfo)
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(h))
	return lvl
}()

func parseFlags() *config {
	cfg := &config{}

	flag.StringVar(&cfg.arch, "a", "x86_64", "Target architecture.")
	flag.StringVar(&cfg.arch, "arch", "x86_64", "Target architecture.")
	flag.StringVar(&cfg.platform, "p", "", "Platform module stream (e.g. \"f29\"); synthesizes the @system platform module when set.")
	flag.StringVar(&cfg.platform, "platform", "", "Platform module stream (e.g. \"f29\"); synthesizes the @system platform module when set.")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "", "Cache repo metadata reads under `dir` instead of reading each repo path directly.")

	flag.Var(repoFlag{&cfg.repos}, "r", "Repository descriptor `id,type,path` (type is one of: repo, lookaside, modular). Repeatable.")
	flag.Var(repoFlag{&cfg.repos}, "repo", "Repository descriptor `id,type,path` (type is one of: repo, lookaside, modular). Repeatable.")
	flag.Var(stringsFlag{&cfg.excludes}, "exclude", "Selection `pattern` to exclude from consideration. Repeatable.")

	bumpLogLevel := func(lower bool) {
		slogLevel.Set(logging.BumpLevel(slogLevel.Level(), lower))
	}
	setLogLevel := func(arg string) error {
		lvl, err := logging.StringToLevel(arg)
		if err != nil {
			return err
		}
		slogLevel.Set(lvl)
		return nil
	}
	flag.BoolFunc("v", "Increase log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(true)
		default:
			return setLogLevel(arg)
		}
		return nil
	})
	flag.BoolFunc("q", "Decrease log verbosity.", func(arg string) error {
		switch arg {
		case "", "true":
			bumpLogLevel(false)
		default:
			return setLogLevel(arg)
		}
		return nil
	})

	colorChoices := map[string]bool{
		"auto":   color.NoColor,
		"never":  true,
		"always": false,
	}
	choiceFlag(&color.NoColor, "color", colorChoices, "auto", "Output colors according to `mode`.")
	choiceFlag(&cfg.format, "format", allFormats, "list", "Print the result according to `mode`.")

	help := func(string) error {
		flag.CommandLine.SetOutput(os.Stdout)
		flag.Usage()
		os.Exit(0)
		return nil
	}
	flag.BoolFunc("h", "Print usage information and exit.", help)
	flag.BoolFunc("help", "Print usage information and exit.", help)

	flag.Parse()

	specifiers, err := expandSpecifiers(flag.Args())
	if err != nil {
		log.Fatal(err)
	}
	cfg.specifiers = specifiers
	if len(cfg.repos) == 0 {
		log.Fatal("at least one -r/--repo is required")
	}
	return cfg
}

// expandSpecifiers replaces every "@file" argument with the specifiers read from that file,
// mirroring §6's "@file" expansion rule for solvable specifier lists.
func expandSpecifiers(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "@") {
			out = append(out, arg)
			continue
		}
		fromFile, err := repoload.ReadSpecifierFile(arg[1:])
		if err != nil {
			return nil, fmt.Errorf("reading specifier file %s: %w", arg, err)
		}
		out = append(out, fromFile...)
	}
	return out, nil
}

// newLoader returns a FixtureLoader reading repo files directly, or a CachingLoader backed by a
// filesystem cache under dir when dir is set.
func newLoader(dir string) (repoload.RepoLoader, error) {
	if dir == "" {
		return repoload.FixtureLoader{}, nil
	}
	store, err := cache.New(dir)
	if err != nil {
		return nil, fmt.Errorf("opening cache dir %s: %w", dir, err)
	}
	return repoload.CachingLoader{Store: store}, nil
}

func run(ctx context.Context, cfg *config) ([]string, *fus.Resolution, error) {
	p := fus.NewPool(cfg.arch)
	loader, err := newLoader(cfg.cacheDir)
	if err != nil {
		return nil, nil, err
	}

	lookaside, defaults, err := fus.LoadRepos(ctx, p, cfg.repos, loader)
	if err != nil {
		return nil, nil, err
	}

	system := &fus.Repo{ID: "@system", Kind: fus.RepoLookaside}
	if cfg.platform != "" {
		fus.AddPlatformModule(p, system, cfg.platform, cfg.arch)
		lookaside.Add(system)
	}
	p.CreateWhatProvides()
	fus.ApplyModuleDefaults(p, defaults)

	modularPkgs := fus.PrecomputeModularPackages(p)
	baseline := fus.NewExclusionBaseline(p, cfg.excludes, lookaside, modularPkgs)

	disconsider := fus.MaskNonDefaultModulePackages(p).Union(fus.MaskBareRPMs(p))

	out, res, err := fus.Depsolve(p, baseline, lookaside, modularPkgs, disconsider, cfg.specifiers)
	if err != nil {
		return nil, nil, err
	}
	return out, res, nil
}

func printProblems(problems []fus.Problem) {
	for i, prob := range problems {
		prob.Index = i + 1
		prob.Total = len(problems)
		fmt.Fprint(os.Stderr, errorf("%s", prob.String()))
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := parseFlags()
	out, res, err := run(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed", "error", err)
		os.Exit(1)
	}
	if res.PartialFailure {
		slog.WarnContext(ctx, "can't resolve all solvables")
		printProblems(res.Problems)
	}

	rendered, err := (*cfg.format)(out)
	if err != nil {
		slog.ErrorContext(ctx, "failed", "error", err)
		os.Exit(1)
	}
	fmt.Println(rendered)
}
