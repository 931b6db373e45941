package fetch

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCacheTTL is how long a cached page stays valid.
const DefaultCacheTTL = 7 * 24 * time.Hour

// cacheEntry is one record in the cache index.
type cacheEntry struct {
	Identifier string `json:"identifier"`
	Title      string `json:"title"`
	URL        string `json:"url"`
	CachedAt   int64  `json:"cached_at"`
	ExpiresAt  int64  `json:"expires_at"`
	Size       int    `json:"size"`
}

// Cache is a TTL-expired file cache for fetched documentation. Content
// lives in one file per entry; a JSON index carries the metadata.
// Expired entries are treated as misses and removed on access.
type Cache struct {
	dir   string
	ttl   time.Duration
	index map[string]cacheEntry
	now   func() time.Time
}

// OpenCache opens (or creates) a cache rooted at dir. ttl <= 0 uses
// DefaultCacheTTL. A corrupt index is discarded, not an error.
func OpenCache(dir string, ttl time.Duration) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("docs cache: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &Cache{
		dir:   dir,
		ttl:   ttl,
		index: make(map[string]cacheEntry),
		now:   time.Now,
	}
	if data, err := os.ReadFile(c.indexPath()); err == nil {
		if err := json.Unmarshal(data, &c.index); err != nil {
			c.index = make(map[string]cacheEntry)
		}
	}
	return c, nil
}

func (c *Cache) indexPath() string {
	return filepath.Join(c.dir, "_index.json")
}

func cacheKey(identifier string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(identifier)))[:16]
}

func (c *Cache) contentPath(key string) string {
	return filepath.Join(c.dir, key+".txt")
}

// Get returns the cached content and title for identifier, or ok=false
// on a miss. Expired entries are deleted and reported as misses.
func (c *Cache) Get(identifier string) (content, title string, ok bool) {
	key := cacheKey(identifier)
	entry, found := c.index[key]
	if !found {
		return "", "", false
	}
	if c.now().Unix() > entry.ExpiresAt {
		c.Delete(identifier)
		return "", "", false
	}
	data, err := os.ReadFile(c.contentPath(key))
	if err != nil {
		return "", "", false
	}
	return string(data), entry.Title, true
}

// Set stores content under identifier with the cache's TTL.
func (c *Cache) Set(identifier, content, title, url string) error {
	key := cacheKey(identifier)
	if title == "" {
		title = identifier
	}
	nowAt := c.now()
	c.index[key] = cacheEntry{
		Identifier: identifier,
		Title:      title,
		URL:        url,
		CachedAt:   nowAt.Unix(),
		ExpiresAt:  nowAt.Add(c.ttl).Unix(),
		Size:       len(content),
	}
	if err := os.WriteFile(c.contentPath(key), []byte(content), 0o644); err != nil {
		return fmt.Errorf("docs cache: write content: %w", err)
	}
	return c.saveIndex()
}

// Delete removes the entry for identifier. Returns false if absent.
func (c *Cache) Delete(identifier string) bool {
	key := cacheKey(identifier)
	if _, found := c.index[key]; !found {
		return false
	}
	delete(c.index, key)
	os.Remove(c.contentPath(key))
	if err := c.saveIndex(); err != nil {
		return false
	}
	return true
}

// ClearExpired removes every expired entry and reports how many.
func (c *Cache) ClearExpired() int {
	cutoff := c.now().Unix()
	removed := 0
	for _, entry := range c.index {
		if cutoff > entry.ExpiresAt {
			if c.Delete(entry.Identifier) {
				removed++
			}
		}
	}
	return removed
}

// Len reports the number of entries, expired ones included.
func (c *Cache) Len() int {
	return len(c.index)
}

func (c *Cache) saveIndex() error {
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return fmt.Errorf("docs cache: marshal index: %w", err)
	}
	if err := os.WriteFile(c.indexPath(), data, 0o644); err != nil {
		return fmt.Errorf("docs cache: write index: %w", err)
	}
	return nil
}
