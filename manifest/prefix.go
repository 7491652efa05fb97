package manifest

import (
	"strings"
	"unicode"
)

// ToKebabCase converts a name to the lower-case, dash-separated form used
// for import prefixes.
// "MyTheme" -> "my-theme", "my_theme" -> "my-theme", "theme" -> "theme"
func ToKebabCase(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		switch {
		case r == '-' || r == '_' || r == ' ':
			if b.Len() > 0 && prev != '-' {
				b.WriteRune('-')
				prev = '-'
			}
			continue
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(prev) || unicode.IsDigit(prev)) {
				b.WriteRune('-')
			}
		}
		b.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return strings.TrimSuffix(b.String(), "-")
}

// reservedPrefixes are import path roots that already mean something in an
// @import target.
var reservedPrefixes = map[string]bool{
	"ref":   true,
	"http":  true,
	"https": true,
	"data":  true,
	"url":   true,
	"file":  true,
}

// IsReservedPrefix reports whether prefix cannot name a dependency. Only the
// first path segment is checked: "vendor/data" is fine.
func IsReservedPrefix(prefix string) bool {
	root := prefix
	if idx := strings.IndexByte(prefix, '/'); idx >= 0 {
		root = prefix[:idx]
	}
	return reservedPrefixes[strings.ToLower(root)]
}

// ValidPrefix reports whether prefix is usable as the leading segments of an
// import path: non-empty, slash-separated segments of letters, digits, '-',
// '_' and '.', with no empty, "." or ".." segment.
func ValidPrefix(prefix string) bool {
	if prefix == "" {
		return false
	}
	for _, seg := range strings.Split(prefix, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
		for _, r := range seg {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
				return false
			}
		}
	}
	return true
}
