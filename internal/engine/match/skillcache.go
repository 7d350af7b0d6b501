package match

import (
	"bufio"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	cacheVersion = 1
	// cacheMaxAge expires entries after 30 days.
	cacheMaxAge = 30 * 24 * time.Hour
)

// CacheEntry is one line of the persistent extraction cache log.
type CacheEntry struct {
	Version   int        `json:"v"`
	Hash      string     `json:"h"`
	Timestamp float64    `json:"ts"` // unix seconds
	Skills    []string   `json:"skills"`
	Meta      SkillsMeta `json:"meta"`
}

// CacheLimits bound the persistent cache after a purge.
type CacheLimits struct {
	MaxEntries int   `yaml:"max_entries"`
	MaxDiskMB  int64 `yaml:"max_disk_mb"`
}

// DefaultCacheLimits returns the standard cache bounds.
func DefaultCacheLimits() CacheLimits {
	return CacheLimits{MaxEntries: 500, MaxDiskMB: 8}
}

// Cache persists extraction results across runs, keyed by description hash.
// Implementations are best-effort: corruption or IO failure yields misses,
// never errors to the extraction path.
type Cache interface {
	Get(desc string) (*CacheEntry, bool)
	Put(desc string, skills []string, meta SkillsMeta)
	Purge(limits CacheLimits)
}

// HashDescription returns the stable cache key for a normalized description.
func HashDescription(desc string) string {
	sum := sha1.Sum([]byte(desc))
	return hex.EncodeToString(sum[:])
}

// FileCache is an append-only JSONL log. Lookups scan linearly (the log is
// bounded), insertion appends and never rewrites in place; Purge rewrites
// keeping the newest entries within the configured budgets.
type FileCache struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileCache opens (or lazily creates) the cache log at path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path, now: time.Now}
}

// Get returns the newest non-expired entry matching desc, or a miss.
// Malformed lines are skipped, never fatal.
func (c *FileCache) Get(desc string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if err != nil {
		return nil, false
	}
	defer f.Close()

	h := HashDescription(desc)
	now := float64(c.now().Unix())
	maxAge := cacheMaxAge.Seconds()

	var best *CacheEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e CacheEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // tolerate corrupt lines
		}
		if e.Hash != h || e.Version != cacheVersion {
			continue
		}
		if now-e.Timestamp > maxAge {
			continue // stale entries are treated as absent
		}
		if best == nil || e.Timestamp > best.Timestamp {
			entry := e
			best = &entry
		}
	}
	return best, best != nil
}

// Put appends a new entry. Failures are swallowed; the cache is never a
// source of truth.
func (c *FileCache) Put(desc string, skills []string, meta SkillsMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(c.path), 0o750); err != nil {
		return
	}
	entry := CacheEntry{
		Version:   cacheVersion,
		Hash:      HashDescription(desc),
		Timestamp: float64(c.now().Unix()),
		Skills:    skills,
		Meta:      meta,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, string(data))
}

// Purge enforces the entry count first, then the byte budget, keeping the
// newest entries by timestamp. Runs after a batch, not per record.
func (c *FileCache) Purge(limits CacheLimits) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.readAll()
	if err != nil || entries == nil {
		return
	}

	// newest first
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp > entries[j].Timestamp
	})

	changed := false
	if limits.MaxEntries > 0 && len(entries) > limits.MaxEntries {
		entries = entries[:limits.MaxEntries]
		changed = true
	}

	lines := make([][]byte, 0, len(entries))
	var total int64
	maxBytes := limits.MaxDiskMB * 1024 * 1024
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		size := int64(len(data)) + 1
		if maxBytes > 0 && total+size > maxBytes {
			changed = true
			break
		}
		lines = append(lines, data)
		total += size
	}
	if !changed {
		return
	}

	tmp := c.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return
	}
	for _, l := range lines {
		fmt.Fprintln(f, string(l))
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return
	}
	os.Rename(tmp, c.path)
}

func (c *FileCache) readAll() ([]CacheEntry, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []CacheEntry
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e CacheEntry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}
