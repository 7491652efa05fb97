package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/tliron/commonlog"

	"github.com/chazu/procss/build"
	"github.com/chazu/procss/cache"
	"github.com/chazu/procss/manifest"
)

var log = commonlog.GetLogger("procss")

// buildFlags are the options of `procss build` that override procss.toml.
type buildFlags struct {
	dir     string
	out     string
	jobs    int
	noCache bool
}

// handleBuildCommand processes the `procss build` subcommand.
// Usage:
//
//	procss build                # ./dist from ./src
//	procss build -o public      # custom output directory
//	procss build -C site        # build the project in ./site
func handleBuildCommand(args []string) {
	var bf buildFlags
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	fs.StringVar(&bf.dir, "C", ".", "Project directory (procss.toml is searched upwards from here)")
	fs.StringVar(&bf.out, "o", "", "Output directory (overrides [output] dir)")
	fs.IntVar(&bf.jobs, "j", 0, "Files compiled at once (0 = unlimited)")
	fs.BoolVar(&bf.noCache, "no-cache", false, "Ignore and do not update the build cache")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	warnings, err := runBuild(ctx, bf)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", w)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runBuild compiles the project found from bf.dir and writes its output.
// It returns the unresolved-import warnings of a successful build.
func runBuild(ctx context.Context, bf buildFlags) ([]error, error) {
	m, err := manifest.FindAndLoad(bf.dir)
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	if m == nil {
		log.Debugf("no %s found, using defaults in %s", manifest.FileName, bf.dir)
		if m, err = manifest.Default(bf.dir); err != nil {
			return nil, err
		}
	}
	if bf.out != "" {
		m.Output.Dir = bf.out
	}

	deps, err := manifest.NewResolver(m).Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving dependencies: %w", err)
	}

	opts := build.Options{Verify: m.Output.Verify, Jobs: bf.jobs}
	if m.Cache.Enabled && !bf.noCache {
		c, err := cache.Open(m.CachePath())
		if err != nil {
			return nil, err
		}
		defer c.Close()
		opts.Cache = c
	}

	files, err := m.SourceFiles()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warningf("no stylesheets under %s", m.SourceRoot())
		return nil, nil
	}

	b := build.New(os.DirFS(m.SourceRoot()), opts)
	for _, dep := range deps {
		log.Debugf("library %s at %s", dep.Prefix, dep.SourceRoot())
		b.AddLibrary(dep.Prefix, os.DirFS(dep.SourceRoot()))
	}
	for _, f := range files {
		b.AddFile(f)
	}

	res, err := b.Compile(ctx)
	if err != nil {
		return nil, err
	}
	if err := res.Write(m.OutputDir()); err != nil {
		return nil, err
	}

	if opts.Cache != nil {
		if n, err := opts.Cache.Prune(res.Sources()); err != nil {
			log.Warningf("pruning cache: %s", err)
		} else if n > 0 {
			log.Debugf("pruned %d stale cache entries", n)
		}
	}
	return res.Warnings(), nil
}
