// Package cache stores compiled stylesheets in a SQLite database keyed by a
// digest of every source that went into them.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"
	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("procss.cache")

// ErrMiss indicates there is no entry for the requested key.
var ErrMiss = errors.New("cache miss")

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("cache: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Entry is the cached result of compiling one stylesheet.
type Entry struct {
	Key      string   `cbor:"1,keyasint"`
	File     string   `cbor:"2,keyasint"`
	Output   string   `cbor:"3,keyasint"`
	Warnings []string `cbor:"4,keyasint,omitempty"`
	Run      string   `cbor:"5,keyasint"`
	Created  int64    `cbor:"6,keyasint"`
	// Assets maps each file read into Output, such as an inlined image, to
	// the Digest of its contents.
	Assets map[string]string `cbor:"7,keyasint,omitempty"`
}

// Fresh reports whether every asset recorded in e still has the recorded
// contents in fsys. An asset that cannot be read is stale.
func (e *Entry) Fresh(fsys fs.FS) bool {
	for name, digest := range e.Assets {
		data, err := fs.ReadFile(fsys, name)
		if err != nil || Digest(data) != digest {
			log.Debugf("%s: asset %s changed", e.File, name)
			return false
		}
	}
	return true
}

// Marshal serializes e to canonical CBOR.
func (e *Entry) Marshal() ([]byte, error) {
	return encMode.Marshal(e)
}

// UnmarshalEntry deserializes an Entry from CBOR bytes.
func UnmarshalEntry(data []byte) (*Entry, error) {
	var e Entry
	if err := cbor.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("cache: unmarshal entry: %w", err)
	}
	return &e, nil
}

// Cache is a build cache backed by SQLite. It is safe for concurrent use.
type Cache struct {
	db   *sql.DB
	path string
	run  uuid.UUID
	mu   sync.Mutex
}

// Open opens the cache database at path, creating it when needed. Each
// opened cache gets a fresh run identifier that is recorded with every entry
// it stores.
func Open(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// A single connection keeps an in-memory database alive and serializes
	// writers on a file database.
	db.SetMaxOpenConns(1)

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key TEXT PRIMARY KEY,
		file TEXT NOT NULL,
		run TEXT NOT NULL,
		data BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	c := &Cache{db: db, path: path, run: uuid.New()}
	log.Debugf("opened %s (run %s)", path, c.run)
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Run returns the identifier recorded with entries stored through c.
func (c *Cache) Run() uuid.UUID {
	return c.run
}

// Get returns the entry stored under key, or ErrMiss.
func (c *Cache) Get(key string) (*Entry, error) {
	var data []byte
	err := c.db.QueryRow("SELECT data FROM entries WHERE key = ?", key).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("querying entry: %w", err)
	}
	return UnmarshalEntry(data)
}

// Put stores e, stamping it with the cache's run identifier. Older entries
// for the same file are removed, so the cache holds one entry per file.
func (c *Cache) Put(e *Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Run = c.run.String()
	if e.Created == 0 {
		e.Created = time.Now().Unix()
	}
	data, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("encoding entry: %w", err)
	}

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM entries WHERE file = ? AND key != ?", e.File, e.Key); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	if _, err := tx.Exec(
		"INSERT OR REPLACE INTO entries (key, file, run, data) VALUES (?, ?, ?, ?)",
		e.Key, e.File, e.Run, data,
	); err != nil {
		return fmt.Errorf("saving entry: %w", err)
	}
	return tx.Commit()
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	var n int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return n, nil
}

// Prune removes entries for files not in keep and returns how many were
// removed.
func (c *Cache) Prune(keep []string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	live := make(map[string]bool, len(keep))
	for _, f := range keep {
		live[f] = true
	}

	rows, err := c.db.Query("SELECT DISTINCT file FROM entries")
	if err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}
	var stale []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			return 0, fmt.Errorf("listing entries: %w", err)
		}
		if !live[f] {
			stale = append(stale, f)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("listing entries: %w", err)
	}

	removed := 0
	for _, f := range stale {
		res, err := c.db.Exec("DELETE FROM entries WHERE file = ?", f)
		if err != nil {
			return removed, fmt.Errorf("pruning %s: %w", f, err)
		}
		n, _ := res.RowsAffected()
		removed += int(n)
	}
	if removed > 0 {
		log.Infof("pruned %d stale entries", removed)
	}
	return removed, nil
}

// Digest returns the hex SHA-256 of data.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Key digests parts into a cache key. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func Key(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.BigEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
