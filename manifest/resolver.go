package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("procss.manifest")

// ResolvedDep represents a dependency that has been resolved to a local path.
type ResolvedDep struct {
	Name      string    // dependency name
	LocalPath string    // local filesystem path
	Prefix    string    // import path prefix for this dependency's stylesheets
	Manifest  *Manifest // the dependency's own manifest (may be nil)
}

// SourceRoot returns the directory whose stylesheets are importable under
// the dependency's prefix: the dependency's own source root when it carries
// a manifest, otherwise its checkout directory.
func (rd ResolvedDep) SourceRoot() string {
	if rd.Manifest != nil {
		root := rd.Manifest.SourceRoot()
		if info, err := os.Stat(root); err == nil && info.IsDir() {
			return root
		}
	}
	return rd.LocalPath
}

// Resolver manages dependency resolution.
type Resolver struct {
	manifest *Manifest
	lock     *LockFile
	prefixes map[string]string // prefix -> dependency name
}

// NewResolver creates a new dependency resolver.
func NewResolver(m *Manifest) *Resolver {
	return &Resolver{
		manifest: m,
	}
}

// Resolve resolves all dependencies and returns them in load order
// (topologically sorted: dependencies before dependents).
func (r *Resolver) Resolve(ctx context.Context) ([]ResolvedDep, error) {
	if len(r.manifest.Dependencies) == 0 {
		return nil, nil
	}

	lock, err := ReadLock(r.manifest.LockFilePath())
	if err != nil {
		return nil, fmt.Errorf("reading lock file: %w", err)
	}
	r.lock = lock
	r.prefixes = make(map[string]string)

	depsDir := r.manifest.DepsDir()
	if err := os.MkdirAll(depsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating deps dir: %w", err)
	}

	resolved := make(map[string]*resolvedEntry)
	order, err := r.resolveAll(ctx, r.manifest.Dependencies, resolved)
	if err != nil {
		return nil, err
	}

	if err := r.writeLock(ctx, resolved); err != nil {
		return nil, fmt.Errorf("writing lock file: %w", err)
	}

	return order, nil
}

// resolvedEntry remembers the declaration a dependency was resolved from so
// transitive dependencies are locked with their own source.
type resolvedEntry struct {
	dep ResolvedDep
	src Dependency
}

// resolveAll resolves a set of dependencies recursively, in name order.
// Returns dependencies in topological order (deps before dependents).
func (r *Resolver) resolveAll(ctx context.Context, deps map[string]Dependency, resolved map[string]*resolvedEntry) ([]ResolvedDep, error) {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	var order []ResolvedDep
	for _, name := range names {
		if _, ok := resolved[name]; ok {
			continue // already resolved
		}

		dep := deps[name]
		rd, err := r.resolveOne(ctx, name, dep)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", name, err)
		}
		if other, ok := r.prefixes[rd.Prefix]; ok {
			return nil, fmt.Errorf("dependencies %q and %q both use import prefix %q; add prefix = \"...\" to one of them in [dependencies]", other, name, rd.Prefix)
		}
		r.prefixes[rd.Prefix] = name
		resolved[name] = &resolvedEntry{dep: *rd, src: dep}

		if rd.Manifest != nil && len(rd.Manifest.Dependencies) > 0 {
			transitive, err := r.resolveAll(ctx, rd.Manifest.relativeDeps(), resolved)
			if err != nil {
				return nil, err
			}
			order = append(order, transitive...)
		}

		order = append(order, *rd)
	}

	return order, nil
}

// relativeDeps returns m's dependencies with path dependencies made
// absolute so they resolve the same way from the consuming project.
func (m *Manifest) relativeDeps() map[string]Dependency {
	deps := make(map[string]Dependency, len(m.Dependencies))
	for name, dep := range m.Dependencies {
		if dep.Path != "" && !filepath.IsAbs(dep.Path) {
			dep.Path = filepath.Join(m.Dir, dep.Path)
		}
		deps[name] = dep
	}
	return deps
}

// resolvePrefix determines the effective import prefix for a dependency
// using the three-level resolution order:
//  1. Consumer override (dep.Prefix from TOML)
//  2. Producer manifest (depManifest.Project.Prefix)
//  3. Kebab-case fallback (ToKebabCase(name))
func resolvePrefix(name string, dep Dependency, depManifest *Manifest) (string, error) {
	var prefix string
	switch {
	case dep.Prefix != "":
		prefix = dep.Prefix
	case depManifest != nil && depManifest.Project.Prefix != "":
		prefix = depManifest.Project.Prefix
	default:
		prefix = ToKebabCase(name)
	}

	if !ValidPrefix(prefix) {
		return "", fmt.Errorf("dependency %q has invalid import prefix %q", name, prefix)
	}
	if IsReservedPrefix(prefix) {
		return "", fmt.Errorf("dependency %q resolves to reserved import prefix %q; add prefix = \"...\" override in [dependencies]", name, prefix)
	}

	return prefix, nil
}

// loadDepManifest loads the manifest of a dependency checkout, if it has one.
func loadDepManifest(dir string) (*Manifest, error) {
	m, err := Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return m, err
}

// resolveOne resolves a single dependency.
func (r *Resolver) resolveOne(ctx context.Context, name string, dep Dependency) (*ResolvedDep, error) {
	var localPath string

	switch {
	case dep.Path != "":
		localPath = dep.Path
		if !filepath.IsAbs(localPath) {
			localPath = filepath.Join(r.manifest.Dir, localPath)
		}

		var err error
		localPath, err = filepath.Abs(localPath)
		if err != nil {
			return nil, fmt.Errorf("invalid path %q: %w", dep.Path, err)
		}

		if _, err := os.Stat(localPath); err != nil {
			return nil, fmt.Errorf("local dependency %q not found at %s: %w", name, localPath, err)
		}
		log.Debugf("using %s from %s", name, localPath)

	case dep.Git != "":
		localPath = filepath.Join(r.manifest.DepsDir(), name)
		if err := r.syncGit(ctx, name, dep, localPath); err != nil {
			return nil, err
		}

	default:
		return nil, fmt.Errorf("dependency %q has no git or path specified", name)
	}

	depManifest, err := loadDepManifest(localPath)
	if err != nil {
		return nil, err
	}

	prefix, err := resolvePrefix(name, dep, depManifest)
	if err != nil {
		return nil, err
	}

	return &ResolvedDep{
		Name:      name,
		LocalPath: localPath,
		Prefix:    prefix,
		Manifest:  depManifest,
	}, nil
}

// syncGit brings the checkout of a git dependency at dir to the requested
// tag, cloning it first when needed.
func (r *Resolver) syncGit(ctx context.Context, name string, dep Dependency, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		log.Infof("cloning %s from %s", name, dep.Git)
		if err := gitClone(ctx, dep.Git, dir); err != nil {
			return err
		}
	} else {
		clean, err := gitIsClean(ctx, dir)
		if err != nil {
			return err
		}
		if !clean {
			log.Warningf("%s has local changes in %s; leaving it as is", name, dir)
			return nil
		}

		locked := r.lock.FindLockedDep(name)
		if locked == nil || locked.Tag != dep.Tag || locked.Git != dep.Git {
			log.Infof("fetching %s", name)
			if err := gitFetch(ctx, dir); err != nil {
				return err
			}
		}
	}

	if dep.Tag != "" {
		if err := gitCheckout(ctx, dir, dep.Tag); err != nil {
			return err
		}
	}
	return nil
}

// writeLock writes the resolved dependencies to the lock file.
func (r *Resolver) writeLock(ctx context.Context, resolved map[string]*resolvedEntry) error {
	lf := &LockFile{}

	for name, e := range resolved {
		ld := LockedDep{
			Name: name,
		}

		if e.src.Git != "" {
			ld.Git = e.src.Git
			ld.Tag = e.src.Tag
			if commit, err := gitCurrentCommit(ctx, e.dep.LocalPath); err == nil {
				ld.Commit = commit
			} else {
				log.Warningf("cannot read commit of %s: %s", name, err)
			}
		} else {
			ld.Path = e.src.Path
		}

		lf.Deps = append(lf.Deps, ld)
	}

	lockDir := filepath.Dir(r.manifest.LockFilePath())
	if err := os.MkdirAll(lockDir, 0755); err != nil {
		return err
	}

	return WriteLock(r.manifest.LockFilePath(), lf)
}
