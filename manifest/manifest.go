// Package manifest handles procss.toml project configuration.
package manifest

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
)

// FileName is the name of the manifest file at a project root.
const FileName = "procss.toml"

// SourceExts are the stylesheet extensions compiled when [source] lists no
// files explicitly.
var SourceExts = []string{".scss", ".css", ".less"}

// Manifest represents a procss.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Source       Source                `toml:"source"`
	Output       Output                `toml:"output"`
	Cache        Cache                 `toml:"cache"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the procss.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Prefix  string `toml:"prefix"`
	Version string `toml:"version"`
}

// Source configures where stylesheets are read from.
type Source struct {
	Root  string   `toml:"root"`
	Files []string `toml:"files"`
}

// Output configures where compiled CSS is written.
type Output struct {
	Dir    string `toml:"dir"`
	Verify bool   `toml:"verify"`
}

// Cache configures the build cache.
type Cache struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Dependency represents a single style library dependency.
type Dependency struct {
	Git    string `toml:"git"`
	Tag    string `toml:"tag"`
	Path   string `toml:"path"`
	Prefix string `toml:"prefix"`
}

// Default returns the manifest used for a directory without a procss.toml.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{
		Output: Output{Verify: true},
		Cache:  Cache{Enabled: true},
		Dir:    abs,
	}
	m.setDefaults()
	return m, nil
}

// Load parses a procss.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	// Switches that default to on must be set before decoding.
	m := Manifest{
		Output: Output{Verify: true},
		Cache:  Cache{Enabled: true},
	}
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	m.setDefaults()
	return &m, nil
}

func (m *Manifest) setDefaults() {
	if m.Source.Root == "" {
		m.Source.Root = "src"
	}
	if m.Output.Dir == "" {
		m.Output.Dir = "dist"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".procss", "cache.db")
	}
}

// FindAndLoad walks up from startDir to find a procss.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourceRoot returns the absolute path of the source root.
func (m *Manifest) SourceRoot() string {
	return m.resolve(m.Source.Root)
}

// OutputDir returns the absolute path of the output directory.
func (m *Manifest) OutputDir() string {
	return m.resolve(m.Output.Dir)
}

// CachePath returns the absolute path of the cache database.
func (m *Manifest) CachePath() string {
	return m.resolve(m.Cache.Path)
}

func (m *Manifest) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SourceFiles returns the stylesheets to compile as slash-separated paths
// relative to the source root. When [source] lists files they are returned
// as given; otherwise the root is walked for known stylesheet extensions.
func (m *Manifest) SourceFiles() ([]string, error) {
	if len(m.Source.Files) > 0 {
		files := make([]string, len(m.Source.Files))
		for i, f := range m.Source.Files {
			files[i] = filepath.ToSlash(filepath.Clean(f))
		}
		return files, nil
	}
	return Stylesheets(os.DirFS(m.SourceRoot()))
}

// Stylesheets lists every file in fsys with a known stylesheet extension,
// sorted. Hidden directories are skipped.
func Stylesheets(fsys fs.FS) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != "." && d.Name()[0] == '.' {
				return fs.SkipDir
			}
			return nil
		}
		if IsStylesheet(p) {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing stylesheets: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

// IsStylesheet reports whether name has a known stylesheet extension.
func IsStylesheet(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range SourceExts {
		if ext == e {
			return true
		}
	}
	return false
}

// DepsDir returns the path to the .procss/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".procss", "deps")
}

// LockFilePath returns the path to .procss/lock.toml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".procss", "lock.toml")
}
