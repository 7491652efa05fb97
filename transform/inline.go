package transform

import (
	"encoding/base64"
	"fmt"
	"io/fs"
	"mime"
	"path"
	"strings"

	"github.com/chazu/procss/compiler"
)

// DefaultMIMEType is used for inlined files whose extension has no known
// type.
const DefaultMIMEType = "image/svg+xml"

// URLArgument returns the argument of a value that is exactly one `url(...)`
// and whether it was quoted.
func URLArgument(value string) (arg string, quoted bool, ok bool) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "url(") || !strings.HasSuffix(value, ")") {
		return "", false, false
	}
	inner := strings.TrimSpace(value[len("url(") : len(value)-1])
	if lit, rest, ok := compiler.ScanStringLiteral(inner); ok {
		if rest != "" {
			return "", false, false
		}
		return lit[1 : len(lit)-1], true, true
	}
	if inner == "" || strings.ContainsAny(inner, "\"'() \t\n") {
		return "", false, false
	}
	return inner, false, true
}

// localPath reports whether a url() argument names a file next to the
// stylesheet: it must start with `/`, `./` or `../` and carry no scheme.
func localPath(arg string) bool {
	if strings.Contains(arg, "://") || strings.HasPrefix(arg, "data:") || strings.HasPrefix(arg, "//") {
		return false
	}
	return strings.HasPrefix(arg, "/") || strings.HasPrefix(arg, "./") || strings.HasPrefix(arg, "../")
}

// resolveURL maps a url() argument to a path in the file system rooted at
// the build root. dir is the directory of the stylesheet, relative to that
// root.
func resolveURL(dir, arg string) (string, error) {
	var p string
	if strings.HasPrefix(arg, "/") {
		p = path.Clean(strings.TrimPrefix(arg, "/"))
	} else {
		p = path.Join(dir, arg)
	}
	if !fs.ValidPath(p) {
		return "", fmt.Errorf("inline url %q: outside of the source root", arg)
	}
	return p, nil
}

// DataURI encodes data as a base64 data URI with a MIME type chosen from the
// extension of name.
func DataURI(name string, data []byte) string {
	typ := mime.TypeByExtension(path.Ext(name))
	if i := strings.IndexByte(typ, ';'); i >= 0 {
		typ = strings.TrimSpace(typ[:i])
	}
	if typ == "" {
		typ = DefaultMIMEType
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// InlineURL rewrites every declaration whose value is exactly one url() of a
// local path into a url() of a base64 data URI holding the file's contents.
// Files are read from fsys; dir is the stylesheet's directory within fsys.
// Quoting of the argument is preserved. Remote URLs, data URIs and bare
// relative names are left alone.
//
// The paths read from fsys are returned once each, in the order first read.
func InlineURL(css *compiler.Css, fsys fs.FS, dir string) ([]string, error) {
	in := &inliner{fsys: fsys, dir: dir, seen: make(map[string]bool)}
	err := in.css(*css)
	return in.read, err
}

type inliner struct {
	fsys fs.FS
	dir  string
	seen map[string]bool
	read []string
}

func (in *inliner) css(css compiler.Css) error {
	for _, rs := range css {
		var err error
		switch n := rs.(type) {
		case *compiler.FlatSelectorRuleset:
			err = in.rules(n.Rules)
		case *compiler.FlatQualRuleset:
			err = in.rules(n.Rules)
		case *compiler.QualNestedRuleset:
			err = in.css(n.Body)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (in *inliner) rules(rules []compiler.Rule) error {
	for i := range rules {
		arg, quoted, ok := URLArgument(rules[i].Value)
		if !ok || !localPath(arg) {
			continue
		}
		p, err := resolveURL(in.dir, arg)
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(in.fsys, p)
		if err != nil {
			return fmt.Errorf("inline url %q: %w", arg, err)
		}
		if !in.seen[p] {
			in.seen[p] = true
			in.read = append(in.read, p)
		}
		uri := DataURI(p, data)
		if quoted {
			uri = `"` + uri + `"`
		}
		rules[i].Value = "url(" + uri + ")"
	}
	return nil
}
