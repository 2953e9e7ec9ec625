package session

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"stronglink/kvstore"
)

// Backend is the subset of repo state a Session needs: the KV handle,
// the registration mode, and the blob path factory. It is an interface,
// not a concrete repo type, so this package stays independent of repo
// and the repo package can depend on session instead.
type Backend interface {
	DB() *kvstore.DB
	RegistrationMode() Mode
	InternalPath(internalHash string) string
}

// Cache pools live Session handles by sessionID, so concurrent callers
// presenting the same cookie share one refcounted object instead of each
// allocating a fresh one, and bounds how many idle sessions stay resident
// with an LRU eviction policy. It is safe for concurrent use.
type Cache struct {
	backend Backend

	mu   sync.Mutex
	live *lru.Cache[uint64, *Session]
}

// NewCache constructs a Cache bounded to size live sessions, backed by
// backend.
func NewCache(backend Backend, size int) (*Cache, error) {
	c := &Cache{backend: backend}
	live, err := lru.NewWithEvict[uint64, *Session](size, func(_ uint64, s *Session) {
		s.Release()
	})
	if err != nil {
		return nil, fmt.Errorf("session: new cache: %w", err)
	}
	c.live = live
	return c, nil
}

// Backend returns the repo collaborator this cache was constructed with.
func (c *Cache) Backend() Backend { return c.backend }

// Retain returns a retained handle for an already-authenticated
// (sessionID, sessionKey, userID, mode) tuple: it reuses a pooled
// Session if one is still live, or constructs and pools a fresh one.
// Verifying sessionKey and mode against stored credentials is the
// caller's responsibility; Retain only manages the in-memory handle.
func (c *Cache) Retain(sessionID uint64, sessionKey [SessionKeyLen]byte, userID uint64, mode Mode) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.live.Get(sessionID); ok {
		return s.Retain(), nil
	}
	s, err := Create(c, sessionID, sessionKey, userID, mode)
	if err != nil {
		return nil, err
	}
	c.live.Add(sessionID, s)
	return s.Retain(), nil
}

// Evict drops sessionID from the pool, releasing the cache's own
// reference. Used when a session is explicitly logged out.
func (c *Cache) Evict(sessionID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.live.Remove(sessionID)
}
