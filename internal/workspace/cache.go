// Package workspace manages the local clone cache. Each source identity maps
// to one slot directory; acquiring an identity either reuses, refreshes, or
// rebuilds that slot. Slots are content-addressed by identity and carry no
// TTL: a slot lives until its identity changes or its remote mismatches.
package workspace

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"panopticon/internal/errors"
	"panopticon/internal/logging"
	"panopticon/internal/paths"
	"panopticon/internal/source"
)

// Acquisition is the outcome of materializing a workspace.
type Acquisition struct {
	// Path is the slot's working tree directory.
	Path string
	// Key is the cache key the slot is addressed by.
	Key string
	// Stale is set when revalidation failed and the last good copy is
	// being served instead.
	Stale bool
	// LastSync is when the slot last completed a clone or fetch.
	LastSync time.Time
}

// Cache owns the slot directories under root. Concurrent acquisitions of the
// same key serialize; distinct keys proceed independently.
type Cache struct {
	root        string
	vcs         VCS
	strictFetch bool
	logger      *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	syncs map[string]time.Time
}

// NewCache creates a workspace cache rooted at root, creating the directory
// if needed. strictFetch turns revalidation failures into request failures
// instead of serving stale copies.
func NewCache(root string, vcs VCS, strictFetch bool, logger *logging.Logger) (*Cache, error) {
	if root == "" {
		root = paths.DefaultCacheRoot()
	}
	if err := paths.EnsureDir(root); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	return &Cache{
		root:        root,
		vcs:         vcs,
		strictFetch: strictFetch,
		logger:      logger.Component("workspace"),
		locks:       make(map[string]*sync.Mutex),
		syncs:       make(map[string]time.Time),
	}, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// SlotDir returns the directory a key maps to, whether or not it exists.
func (c *Cache) SlotDir(key string) string {
	return filepath.Join(c.root, "repo-"+key)
}

// Acquire materializes a workspace for id and returns its acquisition state.
// Only a failure to produce any usable local copy returns an error, always
// carrying the SourceUnavailable code.
func (c *Cache) Acquire(ctx context.Context, id source.Identity) (*Acquisition, error) {
	key := id.CacheKey()
	lock := c.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	return c.acquireLocked(ctx, id, key)
}

// acquireLocked runs the slot state machine with the key lock held.
func (c *Cache) acquireLocked(ctx context.Context, id source.Identity, key string) (*Acquisition, error) {
	dir := c.SlotDir(key)
	address := id.AuthenticatedLocation()

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return c.clone(ctx, id, key, dir, address)
	}

	repo, err := c.vcs.Open(dir)
	if err != nil {
		c.logger.Warn("Slot unreadable, rebuilding", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return c.rebuild(ctx, id, key, dir, address)
	}

	remote, err := repo.RemoteURL()
	if err != nil || remote != address {
		c.logger.Info("Slot remote mismatch, rebuilding", map[string]interface{}{
			"key": key,
		})
		return c.rebuild(ctx, id, key, dir, address)
	}

	if err := c.revalidate(ctx, repo, id); err != nil {
		if c.strictFetch {
			return nil, errors.NewSourceUnavailable(id.RedactedLocation(), err)
		}
		c.logger.Warn("Revalidation failed, serving stale copy", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return &Acquisition{Path: dir, Key: key, Stale: true, LastSync: c.lastSync(key)}, nil
	}

	c.setLastSync(key)
	return &Acquisition{Path: dir, Key: key, LastSync: c.lastSync(key)}, nil
}

func (c *Cache) revalidate(ctx context.Context, repo Repo, id source.Identity) error {
	if err := repo.Fetch(ctx); err != nil {
		return err
	}
	if id.Branch != "" {
		if err := repo.CheckoutBranch(id.Branch); err != nil {
			return err
		}
	}
	return nil
}

// rebuild destroys a corrupt or mismatched slot and clones fresh.
func (c *Cache) rebuild(ctx context.Context, id source.Identity, key, dir, address string) (*Acquisition, error) {
	if err := os.RemoveAll(dir); err != nil {
		return nil, errors.NewSourceUnavailable(id.RedactedLocation(), fmt.Errorf("removing slot: %w", err))
	}
	return c.clone(ctx, id, key, dir, address)
}

func (c *Cache) clone(ctx context.Context, id source.Identity, key, dir, address string) (*Acquisition, error) {
	c.logger.Info("Cloning workspace", map[string]interface{}{
		"key":      key,
		"location": id.RedactedLocation(),
		"branch":   id.Branch,
	})

	if _, err := c.vcs.Clone(ctx, address, dir, id.Branch); err != nil {
		// A failed clone must not leave a partial slot behind
		_ = os.RemoveAll(dir)
		return nil, errors.NewSourceUnavailable(id.RedactedLocation(), err)
	}

	c.setLastSync(key)
	return &Acquisition{Path: dir, Key: key, LastSync: c.lastSync(key)}, nil
}

func (c *Cache) keyLock(key string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[key] = lock
	}
	return lock
}

func (c *Cache) setLastSync(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncs[key] = time.Now()
}

func (c *Cache) lastSync(key string) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncs[key]
}
