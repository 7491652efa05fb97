package build

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/procss/compiler"
	"github.com/chazu/procss/transform"
)

// unit is one parsed stylesheet known to a build, whether compiled to output
// or only imported.
type unit struct {
	key  string
	text string
	tree compiler.Tree
	// base is the prefix of the library the unit was loaded from, or empty
	// for the source root. Imports from the unit try it first.
	base string
}

// library is a stylesheet tree mounted under an import prefix.
type library struct {
	prefix string
	fsys   fs.FS
}

// importExts mirrors the extensions transform.LookupImport tries.
var importExts = []string{".scss", ".css", ".less"}

// load parses every input and then, round by round, every stylesheet that an
// already loaded one imports but that was not part of the build. Targets
// that exist nowhere are left for ApplyImport to report.
func (b *Builder) load(ctx context.Context) (map[string]*unit, error) {
	units := make(map[string]*unit, len(b.files))

	var pending []string
	for _, f := range b.files {
		if _, ok := units[f]; !ok {
			units[f] = nil
			pending = append(pending, f)
		}
	}
	if err := b.parseAll(ctx, pending, units, b.readInput); err != nil {
		return nil, err
	}

	located := make(map[string]string) // candidate target -> key, "" when absent
	for {
		trees := treesOf(units)
		var lists [][]string
		for _, u := range units {
			for _, target := range transform.ImportPaths(u.tree) {
				if _, ok := resolve(trees, u.base, target); !ok {
					lists = append(lists, transform.ImportCandidates(u.base, target))
				}
			}
		}

		found := make(map[string]source)
		for _, candidates := range lists {
			for _, target := range candidates {
				key, ok := located[target]
				if !ok {
					k, src, err := b.locate(target)
					if err != nil {
						return nil, fmt.Errorf("resolving import %q: %w", target, err)
					}
					located[target] = k
					key = k
					if _, loaded := units[k]; k != "" && !loaded {
						log.Debugf("loading %s for import %q", k, target)
						found[k] = src
					}
				}
				if key != "" {
					break
				}
			}
		}
		if len(found) == 0 {
			return units, nil
		}

		keys := make([]string, 0, len(found))
		for k := range found {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		read := func(key string) (string, error) { return string(found[key].data), nil }
		if err := b.parseAll(ctx, keys, units, read); err != nil {
			return nil, err
		}
		for k, src := range found {
			units[k].base = src.base
		}
	}
}

// source is a located stylesheet that is not yet parsed.
type source struct {
	base string
	data []byte
}

// resolve finds the key an import of target from a unit scoped under base
// refers to.
func resolve(trees map[string]compiler.Tree, base, target string) (string, bool) {
	for _, candidate := range transform.ImportCandidates(base, target) {
		if key, _, ok := transform.LookupImport(trees, candidate); ok {
			return key, true
		}
	}
	return "", false
}

// scopeOf returns the import scope of each unit for transform.ApplyImportScoped.
func scopeOf(units map[string]*unit) func(string) string {
	return func(key string) string {
		if u := units[key]; u != nil {
			return u.base
		}
		return ""
	}
}

// parseAll reads and parses keys concurrently into units.
func (b *Builder) parseAll(ctx context.Context, keys []string, units map[string]*unit, read func(string) (string, error)) error {
	parsed := make([]*unit, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	if b.opts.Jobs > 0 {
		g.SetLimit(b.opts.Jobs)
	}
	for i, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			text, err := read(key)
			if err != nil {
				return err
			}
			tree, err := compiler.Parse(text)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			parsed[i] = &unit{key: key, text: text, tree: tree}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, u := range parsed {
		units[u.key] = u
	}
	return nil
}

func (b *Builder) readInput(key string) (string, error) {
	if text, ok := b.contents[key]; ok {
		return text, nil
	}
	if b.fsys == nil {
		return "", fmt.Errorf("%s: no source root", key)
	}
	data, err := fs.ReadFile(b.fsys, key)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), nil
}

// locate finds the stylesheet an import target names outside the set of
// loaded units: first in a library whose prefix the target starts with, then
// under the source root. It returns an empty key when there is none.
func (b *Builder) locate(target string) (string, source, error) {
	for _, lib := range b.libs {
		rest, ok := strings.CutPrefix(target, lib.prefix+"/")
		if !ok {
			continue
		}
		name, data, err := find(lib.fsys, rest)
		if err != nil {
			return "", source{}, err
		}
		if name != "" {
			return lib.prefix + "/" + name, source{base: lib.prefix, data: data}, nil
		}
	}
	if b.fsys == nil {
		return "", source{}, nil
	}
	name, data, err := find(b.fsys, target)
	return name, source{data: data}, err
}

// find reads the first of target and target plus each stylesheet extension
// that names a regular file in fsys.
func find(fsys fs.FS, target string) (string, []byte, error) {
	clean := path.Clean(strings.TrimPrefix(target, "/"))
	if !fs.ValidPath(clean) {
		return "", nil, nil
	}
	candidates := []string{clean}
	if path.Ext(clean) == "" {
		for _, ext := range importExts {
			candidates = append(candidates, clean+ext)
		}
	}

	for _, name := range candidates {
		info, err := fs.Stat(fsys, name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", nil, err
		}
		if info.IsDir() {
			continue
		}
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return "", nil, err
		}
		return name, data, nil
	}
	return "", nil, nil
}

func treesOf(units map[string]*unit) map[string]compiler.Tree {
	trees := make(map[string]compiler.Tree, len(units))
	for k, u := range units {
		trees[k] = u.tree
	}
	return trees
}

// closure returns the keys of every unit that key may import, directly or
// transitively, in sorted order, plus the targets that resolve to nothing.
func closure(key string, units map[string]*unit, trees map[string]compiler.Tree) (keys []string, missing []string) {
	scope := scopeOf(units)
	seen := map[string]bool{key: true}
	queue := []string{key}
	for len(queue) > 0 {
		k := queue[0]
		queue = queue[1:]
		for _, target := range transform.ImportPaths(trees[k]) {
			found, ok := resolve(trees, scope(k), target)
			if !ok {
				missing = append(missing, target)
				continue
			}
			if !seen[found] {
				seen[found] = true
				keys = append(keys, found)
				queue = append(queue, found)
			}
		}
	}
	sort.Strings(keys)
	sort.Strings(missing)
	return keys, missing
}
