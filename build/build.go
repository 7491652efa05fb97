// Package build compiles a project of CSS+ stylesheets that may import one
// another into plain CSS files.
package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/chazu/procss/cache"
	"github.com/chazu/procss/compiler"
	"github.com/chazu/procss/transform"
)

var log = commonlog.GetLogger("procss.build")

// cacheVersion is folded into every cache key; bump it when compiled output
// for the same sources changes.
const cacheVersion = "procss/1"

// Options configures a Builder.
type Options struct {
	// Verify parses every rendered stylesheet as CSS before accepting it.
	Verify bool
	// Cache, when set, is consulted before compiling a file and updated
	// after.
	Cache *cache.Cache
	// Jobs limits how many files are parsed or compiled at once. Zero means
	// no limit.
	Jobs int
}

// Builder is an incremental description of one build: the source root, the
// files to compile and the libraries their imports may reach.
type Builder struct {
	fsys     fs.FS
	opts     Options
	files    []string
	contents map[string]string
	libs     []library
}

// New creates a Builder reading sources from fsys, which may be nil when
// every file is added with AddContent.
func New(fsys fs.FS, opts Options) *Builder {
	return &Builder{
		fsys:     fsys,
		opts:     opts,
		contents: make(map[string]string),
	}
}

// AddFile adds a stylesheet, named by its slash-separated path under the
// source root, to the files compiled to output.
func (b *Builder) AddFile(name string) {
	b.files = append(b.files, cleanKey(name))
}

// AddContent adds a stylesheet with the given text under name instead of
// reading it from the source root.
func (b *Builder) AddContent(name, text string) {
	name = cleanKey(name)
	b.contents[name] = text
	b.files = append(b.files, name)
}

// AddLibrary makes the stylesheets in fsys importable as
// "<prefix>/<path>". Library stylesheets are never written to output.
func (b *Builder) AddLibrary(prefix string, fsys fs.FS) {
	b.libs = append(b.libs, library{prefix: strings.Trim(prefix, "/"), fsys: fsys})
}

func cleanKey(name string) string {
	return path.Clean(strings.TrimPrefix(filepath.ToSlash(name), "/"))
}

// OutputName maps a source path to the path of its compiled stylesheet:
// "controls/menu.scss" becomes "controls/menu.css".
func OutputName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ".css"
}

// Compile parses every file, resolves imports among them and their
// libraries, and runs each through the mixin, variable, flatten, inline and
// dedupe passes before rendering it.
func (b *Builder) Compile(ctx context.Context) (*Result, error) {
	outputs := make(map[string]string, len(b.files))
	var files []string
	for _, f := range b.files {
		out := OutputName(f)
		if other, ok := outputs[out]; ok {
			if other == f {
				continue
			}
			return nil, fmt.Errorf("%s and %s both compile to %s", other, f, out)
		}
		outputs[out] = f
		files = append(files, f)
	}

	units, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	trees := treesOf(units)

	result := &Result{Outputs: make([]Output, len(files))}
	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Jobs > 0 {
		g.SetLimit(b.opts.Jobs)
	}
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := b.compileOne(f, units, trees)
			if err != nil {
				return err
			}
			result.Outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cached := 0
	for _, o := range result.Outputs {
		if o.Cached {
			cached++
		}
	}
	log.Infof("compiled %d files (%d from cache)", len(files), cached)
	return result, nil
}

// key digests everything the compiled output of name depends on.
func (b *Builder) key(name string, units map[string]*unit, trees map[string]compiler.Tree) string {
	deps, missing := closure(name, units, trees)
	parts := []string{cacheVersion, name, units[name].text}
	for _, d := range deps {
		parts = append(parts, d, units[d].text)
	}
	parts = append(parts, missing...)
	return cache.Key(parts...)
}

func (b *Builder) compileOne(name string, units map[string]*unit, trees map[string]compiler.Tree) (Output, error) {
	out := Output{Source: name, Path: OutputName(name)}

	var key string
	if b.opts.Cache != nil {
		key = b.key(name, units, trees)
		e, err := b.opts.Cache.Get(key)
		switch {
		case err == nil && b.fresh(e):
			log.Debugf("%s: cache hit", name)
			out.CSS, out.Missing, out.Cached = e.Output, e.Warnings, true
			return out, nil
		case err == nil:
			log.Debugf("%s: cached output has stale assets", name)
		case !errors.Is(err, cache.ErrMiss):
			log.Warningf("%s: reading cache: %s", name, err)
		}
	}

	tree := units[name].tree.Clone()
	out.Missing = transform.ApplyImportScoped(&tree, name, trees, scopeOf(units))
	transform.ApplyMixin(&tree)
	transform.ApplyVar(&tree)
	css := tree.Flatten()

	var assets []string
	if b.fsys != nil {
		var err error
		assets, err = transform.InlineURL(&css, b.fsys, path.Dir(name))
		if err != nil {
			return out, fmt.Errorf("%s: %w", name, err)
		}
	}
	transform.Dedupe(&css)
	out.CSS = css.String()

	if b.opts.Verify {
		if err := Verify(out.CSS); err != nil {
			return out, fmt.Errorf("%s: rendered CSS does not parse: %w", name, err)
		}
	}

	for _, target := range out.Missing {
		log.Warningf("%s: %s %q", name, transform.ErrImportNotFound, target)
	}

	if b.opts.Cache != nil {
		e := &cache.Entry{Key: key, File: name, Output: out.CSS, Warnings: out.Missing}
		if err := b.recordAssets(e, assets); err != nil {
			log.Warningf("%s: not caching: %s", name, err)
		} else if err := b.opts.Cache.Put(e); err != nil {
			log.Warningf("%s: writing cache: %s", name, err)
		}
	}
	return out, nil
}

// fresh reports whether the assets a cached entry inlined are unchanged.
func (b *Builder) fresh(e *cache.Entry) bool {
	if len(e.Assets) == 0 {
		return true
	}
	return b.fsys != nil && e.Fresh(b.fsys)
}

// recordAssets stores the digest of each inlined file in e.
func (b *Builder) recordAssets(e *cache.Entry, assets []string) error {
	if len(assets) == 0 {
		return nil
	}
	e.Assets = make(map[string]string, len(assets))
	for _, name := range assets {
		data, err := fs.ReadFile(b.fsys, name)
		if err != nil {
			return err
		}
		e.Assets[name] = cache.Digest(data)
	}
	return nil
}

// Output is the compiled form of one source file.
type Output struct {
	Source  string   // source path under the source root
	Path    string   // output path under the output root
	CSS     string   // rendered stylesheet
	Missing []string // import targets left unresolved
	Cached  bool     // served from the build cache
}

// Result is the outcome of Compile, with outputs in the order files were
// added.
type Result struct {
	Outputs []Output
}

// Strings returns the rendered stylesheets keyed by output path.
func (r *Result) Strings() map[string]string {
	m := make(map[string]string, len(r.Outputs))
	for _, o := range r.Outputs {
		m[o.Path] = o.CSS
	}
	return m
}

// Warnings returns one error wrapping transform.ErrImportNotFound for each
// import left unresolved.
func (r *Result) Warnings() []error {
	var warnings []error
	for _, o := range r.Outputs {
		for _, target := range o.Missing {
			warnings = append(warnings, fmt.Errorf("%s: %w: %q", o.Source, transform.ErrImportNotFound, target))
		}
	}
	return warnings
}

// Sources returns the source paths of every output, sorted.
func (r *Result) Sources() []string {
	s := make([]string, len(r.Outputs))
	for i, o := range r.Outputs {
		s[i] = o.Source
	}
	sort.Strings(s)
	return s
}

// Write writes every output under dir, preserving the relative directory
// structure of the sources.
func (r *Result) Write(dir string) error {
	for _, o := range r.Outputs {
		dest := filepath.Join(dir, filepath.FromSlash(o.Path))
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(dest), err)
		}
		if err := os.WriteFile(dest, []byte(o.CSS), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		log.Debugf("wrote %s", dest)
	}
	return nil
}
