package transform

import (
	"errors"
	"path"
	"strings"

	"github.com/chazu/procss/compiler"
)

// RefScheme marks an import that contributes only bindings.
const RefScheme = "ref://"

// ErrImportNotFound is wrapped by callers that report an @import target
// which ApplyImport left in place.
var ErrImportNotFound = errors.New("import not found")

// importExts are tried, in order, when an import path names no extension.
var importExts = []string{".scss", ".css", ".less"}

// ImportTarget extracts the path of an @import statement. It accepts
// `@import "p"`, `@import url("p")` and `@import url(p)`, each optionally with
// a ref:// prefix. Anything else, including an import followed by a media
// list, is not an inlinable import.
func ImportTarget(text string) (target string, ref bool, ok bool) {
	kw, rest := atKeyword(text)
	if kw != "import" {
		return "", false, false
	}

	switch {
	case strings.HasPrefix(rest, `url(`) && strings.HasSuffix(rest, `)`):
		rest = strings.TrimSpace(rest[len("url(") : len(rest)-1])
		if lit, tail, ok := compiler.ScanStringLiteral(rest); ok {
			if tail != "" {
				return "", false, false
			}
			rest = lit[1 : len(lit)-1]
		} else if strings.ContainsAny(rest, `"' `) {
			return "", false, false
		}
	case strings.HasPrefix(rest, `"`):
		lit, tail, ok := compiler.ScanStringLiteral(rest)
		if !ok || tail != "" {
			return "", false, false
		}
		rest = lit[1 : len(lit)-1]
	default:
		return "", false, false
	}

	ref = strings.HasPrefix(rest, RefScheme)
	rest = strings.TrimPrefix(rest, RefScheme)
	if rest == "" || strings.Contains(rest, "://") {
		// Remote stylesheets are left for the browser.
		return "", false, false
	}
	return rest, ref, true
}

// ImportPaths lists the targets of every inlinable @import in tree, at any
// depth, in source order.
func ImportPaths(tree compiler.Tree) []string {
	var paths []string
	walkTree(tree, func(r compiler.TreeRule) {
		if q, ok := r.(*compiler.QualRule); ok {
			if target, _, ok := ImportTarget(q.Text); ok {
				paths = append(paths, target)
			}
		}
	})
	return paths
}

// LookupImport finds the tree an import target refers to. The target is
// tried verbatim, cleaned, and then with each known stylesheet extension.
func LookupImport(imports map[string]compiler.Tree, target string) (string, compiler.Tree, bool) {
	candidates := []string{target, path.Clean(strings.TrimPrefix(target, "/"))}
	if path.Ext(target) == "" {
		for _, ext := range importExts {
			candidates = append(candidates, candidates[1]+ext)
		}
	}
	for _, key := range candidates {
		if tree, ok := imports[key]; ok {
			return key, tree, true
		}
	}
	return "", nil, false
}

// ImportCandidates returns the targets an import of target is looked up as,
// in order, from a tree scoped under base: base/target first, then target
// itself. An empty base means the tree is unscoped.
func ImportCandidates(base, target string) []string {
	if base == "" {
		return []string{target}
	}
	return []string{base + "/" + target, target}
}

// FilterRefs reduces tree to what a ref:// import may contribute: every
// top-level selector ruleset is dropped while at-rules, and with them
// variable and mixin declarations, are kept.
func FilterRefs(tree *compiler.Tree) {
	out := (*tree)[:0]
	for _, rs := range *tree {
		if _, ok := rs.(*compiler.SelectorRuleset); ok {
			continue
		}
		out = append(out, rs)
	}
	*tree = out
}

// ApplyImport replaces each resolvable @import statement in tree with a copy
// of the imported tree. Imported trees have their own imports resolved first;
// a ref:// import is passed through FilterRefs before splicing. self is the
// key of tree in imports, or empty, and guards against import cycles.
//
// The targets of imports that could not be resolved are returned; those
// statements stay in the tree unchanged.
func ApplyImport(tree *compiler.Tree, self string, imports map[string]compiler.Tree) []string {
	return ApplyImportScoped(tree, self, imports, nil)
}

// ApplyImportScoped is ApplyImport for trees that resolve imports relative
// to a scope, such as the stylesheets of a library mounted under a prefix.
// scope maps the key of a tree to its base for ImportCandidates; it may be
// nil, and it is consulted for self and for every imported tree.
func ApplyImportScoped(tree *compiler.Tree, self string, imports map[string]compiler.Tree, scope func(key string) string) []string {
	im := &importer{imports: imports, scope: scope}
	if self != "" {
		im.stack = []string{self}
	}
	*tree = im.splice(*tree)
	return im.missing
}

type importer struct {
	imports map[string]compiler.Tree
	scope   func(string) string
	stack   []string
	missing []string
}

// lookup resolves target from the tree on top of the stack.
func (im *importer) lookup(target string) (string, compiler.Tree, bool) {
	base := ""
	if im.scope != nil && len(im.stack) > 0 {
		base = im.scope(im.stack[len(im.stack)-1])
	}
	for _, candidate := range ImportCandidates(base, target) {
		if key, tree, ok := LookupImport(im.imports, candidate); ok {
			return key, tree, true
		}
	}
	return "", nil, false
}

func (im *importer) onStack(key string) bool {
	for _, k := range im.stack {
		if k == key {
			return true
		}
	}
	return false
}

// resolve returns the spliced content for one import statement, or nil and
// false when it must stay as written.
func (im *importer) resolve(q *compiler.QualRule) (compiler.Tree, bool) {
	target, ref, ok := ImportTarget(q.Text)
	if !ok {
		return nil, false
	}
	key, imported, found := im.lookup(target)
	if !found || im.onStack(key) {
		im.missing = append(im.missing, target)
		return nil, false
	}

	im.stack = append(im.stack, key)
	content := im.splice(imported.Clone())
	im.stack = im.stack[:len(im.stack)-1]

	if ref {
		FilterRefs(&content)
	}
	return content, true
}

func (im *importer) splice(tree compiler.Tree) compiler.Tree {
	out := make(compiler.Tree, 0, len(tree))
	for _, rs := range tree {
		if q, ok := rs.(*compiler.QualRule); ok {
			if content, ok := im.resolve(q); ok {
				out = append(out, content...)
				continue
			}
		}
		if b := bodyOf(rs); b != nil {
			*b = im.spliceBody(*b)
		}
		out = append(out, rs)
	}
	return out
}

func (im *importer) spliceBody(body []compiler.TreeRule) []compiler.TreeRule {
	out := make([]compiler.TreeRule, 0, len(body))
	for _, r := range body {
		if q, ok := r.(*compiler.QualRule); ok {
			if content, ok := im.resolve(q); ok {
				for _, rs := range content {
					out = append(out, rs)
				}
				continue
			}
		}
		if b := bodyOf(r); b != nil {
			*b = im.spliceBody(*b)
		}
		out = append(out, r)
	}
	return out
}
