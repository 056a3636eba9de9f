// Package cache stores exported graph tables on disk, keyed by the content
// of the unit they were built from. Entries are msgpack files; recently used
// entries are also kept decoded in memory.
package cache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/zeebo/xxh3"

	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/pgraph"
)

// ErrKeyNotFound is returned when a key is not found in the cache.
var ErrKeyNotFound = errors.New("key not found")

// formatVersion is mixed into every key so entries written by an older
// table layout or graph builder are never served. Bump it whenever the
// front end, the CFG or the builder changes the graph of the same source.
const formatVersion = "pgraph-tables-v2"

const fileSuffix = ".msgpack"

// Key derives the cache key of a unit from its path and content.
func Key(path string, content []byte) string {
	return versionedKey(formatVersion, path, content)
}

func versionedKey(version, path string, content []byte) string {
	h := xxh3.New()
	h.WriteString(version)
	h.WriteString("\x00")
	h.WriteString(path)
	h.WriteString("\x00")
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is the cached result of building one unit.
type Entry struct {
	Key       string        `msgpack:"key"`
	File      string        `msgpack:"file"`
	Tables    pgraph.Tables `msgpack:"tables"`
	Labels    []ast.Label   `msgpack:"labels"`
	CreatedAt time.Time     `msgpack:"created_at"`
}

// Options configures a Store.
type Options struct {
	// MaxEntries bounds the in-memory LRU. 0 means unlimited.
	MaxEntries int
}

// Stats reports cache effectiveness.
type Stats struct {
	Entries   int   `json:"entries"`
	HitCount  int64 `json:"hit_count"`
	MissCount int64 `json:"miss_count"`
}

// Store is a directory of cached entries. It is safe for concurrent use.
type Store struct {
	dir string

	mu        sync.Mutex
	mem       *lru
	hitCount  int64
	missCount int64
}

// Open creates dir if needed and returns a store rooted there.
func Open(dir string, opts Options) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Store{dir: dir, mem: newLRU(opts.MaxEntries)}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+fileSuffix)
}

// Get returns the entry for key, or ErrKeyNotFound.
func (s *Store) Get(key string) (*Entry, error) {
	s.mu.Lock()
	if e, ok := s.mem.get(key); ok {
		s.hitCount++
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		s.recordMiss()
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e Entry
	if err := msgpack.Unmarshal(data, &e); err != nil {
		s.recordMiss()
		return nil, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}

	s.mu.Lock()
	s.hitCount++
	s.mem.set(&e)
	s.mu.Unlock()
	return &e, nil
}

func (s *Store) recordMiss() {
	s.mu.Lock()
	s.missCount++
	s.mu.Unlock()
}

// Put writes e under e.Key. The file is replaced atomically.
func (s *Store) Put(e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	data, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, e.Key+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(e.Key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist cache file: %w", err)
	}

	s.mu.Lock()
	s.mem.set(e)
	s.mu.Unlock()
	return nil
}

// Clear removes every entry from memory and disk.
func (s *Store) Clear() error {
	s.mu.Lock()
	s.mem.clear()
	s.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*"+fileSuffix))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache file: %w", err)
		}
	}
	return nil
}

// Stats returns the current statistics.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries:   s.mem.len(),
		HitCount:  s.hitCount,
		MissCount: s.missCount,
	}
}

// HitRate returns the fraction of lookups served from the cache.
func (s *Store) HitRate() float64 {
	st := s.Stats()
	total := st.HitCount + st.MissCount
	if total == 0 {
		return 0
	}
	return float64(st.HitCount) / float64(total)
}
