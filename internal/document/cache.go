package document

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by Cache.Get when the key is unknown or expired.
var ErrCacheMiss = errors.New("document not cached")

// Cache stores fetched documents by URL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

// FileCache keeps one file per key under Dir. Entries older than TTL are
// misses; a zero TTL never expires.
type FileCache struct {
	Dir string
	TTL time.Duration

	now func() time.Time
}

func NewFileCache(dir string, ttl time.Duration) *FileCache {
	return &FileCache{Dir: dir, TTL: ttl, now: time.Now}
}

func (c *FileCache) Get(_ context.Context, key string) ([]byte, error) {
	path := c.path(key)
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, errors.Wrapf(err, "stat cache entry %s", path)
	}
	if c.TTL > 0 && c.clock().Sub(info.ModTime()) > c.TTL {
		return nil, ErrCacheMiss
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read cache entry %s", path)
	}
	return body, nil
}

func (c *FileCache) Put(_ context.Context, key string, body []byte) error {
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return errors.Wrapf(err, "create cache dir %s", c.Dir)
	}
	tmp, err := os.CreateTemp(c.Dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create cache temp file")
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write cache entry")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close cache entry")
	}
	return errors.Wrap(os.Rename(tmp.Name(), c.path(key)), "store cache entry")
}

func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.Dir, hex.EncodeToString(sum[:])+".html")
}

func (c *FileCache) clock() time.Time {
	if c.now == nil {
		return time.Now()
	}
	return c.now()
}
