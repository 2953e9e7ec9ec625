// Package session implements authenticated handles: a refcounted bundle
// of user identity, a capability mode bitmask, and a back-reference to
// the repo that issued it, plus the user-account and read-query surface
// built on top of that identity.
package session

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"stronglink/slnerr"
)

// SessionKeyLen is the byte length of a session's secret key.
const SessionKeyLen = 32

// Mode is a bitmask of granted capabilities.
type Mode uint32

const (
	// ModeRead grants read/query access.
	ModeRead Mode = 1 << iota
	// ModeWrite grants submission access.
	ModeWrite
	// ModeAdmin grants account administration, including user creation.
	ModeAdmin
)

// Has reports whether m carries every bit set in required. A zero
// required mode is always satisfied.
func (m Mode) Has(required Mode) bool {
	return required == 0 || m&required == required
}

// RequireCapability returns a capability-denied error unless held
// carries every bit of required. It is exposed as a standalone helper
// rather than enforced internally by every operation: the core records
// identity but leaves deciding which operations require which bits to
// the caller.
func RequireCapability(held, required Mode) error {
	if !held.Has(required) {
		return fmt.Errorf("session: mode %#x lacks required %#x: %w", held, required, slnerr.ErrCapabilityDenied)
	}
	return nil
}

// Session is an authenticated handle bundling a user identity, a
// capability mode, and the cache it was issued from. A zero-mode
// session carries no capabilities but is a valid value; only
// construction with a zero mode is rejected, not its later existence
// after a Release zeroes it out.
type Session struct {
	mu         sync.Mutex
	cache      *Cache
	sessionID  uint64
	sessionKey [SessionKeyLen]byte
	userID     uint64
	mode       Mode
	refcount   int
}

// Create constructs a Session with a starting refcount of 1.
func Create(cache *Cache, sessionID uint64, sessionKey [SessionKeyLen]byte, userID uint64, mode Mode) (*Session, error) {
	if mode == 0 {
		return nil, fmt.Errorf("session: create: zero mode: %w", slnerr.ErrInvalidArgument)
	}
	return &Session{
		cache:      cache,
		sessionID:  sessionID,
		sessionKey: sessionKey,
		userID:     userID,
		mode:       mode,
		refcount:   1,
	}, nil
}

// Retain increments the refcount and returns s for chaining.
func (s *Session) Retain() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refcount == 0 {
		panic("session: retain after final release")
	}
	s.refcount++
	return s
}

// Release decrements the refcount. On the final release the session key
// and identity are zeroed before the handle becomes unusable, so a
// lingering reference can't be used to recover a live session's secret.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refcount == 0 {
		panic("session: release after final release")
	}
	s.refcount--
	if s.refcount > 0 {
		return
	}
	s.cache = nil
	s.sessionID = 0
	for i := range s.sessionKey {
		s.sessionKey[i] = 0
	}
	s.userID = 0
	s.mode = 0
}

// ID returns the session's id.
func (s *Session) ID() uint64 { return s.sessionID }

// UserID returns the id of the user this session authenticates as.
func (s *Session) UserID() uint64 { return s.userID }

// Mode returns the session's granted capability mode.
func (s *Session) Mode() Mode { return s.mode }

// CopyCookie renders the session cookie: "s=<sessionID>:<hex(sessionKey)>".
func (s *Session) CopyCookie() string {
	return fmt.Sprintf("s=%d:%s", s.sessionID, hex.EncodeToString(s.sessionKey[:]))
}

// ParseCookie parses a cookie rendered by CopyCookie back into its
// (sessionID, sessionKey) pair.
func ParseCookie(cookie string) (sessionID uint64, sessionKey [SessionKeyLen]byte, err error) {
	rest, ok := strings.CutPrefix(cookie, "s=")
	if !ok {
		return 0, sessionKey, fmt.Errorf("session: parse cookie: missing s= prefix: %w", slnerr.ErrInvalidArgument)
	}
	idPart, keyPart, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, sessionKey, fmt.Errorf("session: parse cookie: missing separator: %w", slnerr.ErrInvalidArgument)
	}
	sessionID, err = strconv.ParseUint(idPart, 10, 64)
	if err != nil {
		return 0, sessionKey, fmt.Errorf("session: parse cookie: session id: %w: %w", err, slnerr.ErrInvalidArgument)
	}
	raw, err := hex.DecodeString(keyPart)
	if err != nil || len(raw) != SessionKeyLen {
		return 0, sessionKey, fmt.Errorf("session: parse cookie: key: %w", slnerr.ErrInvalidArgument)
	}
	copy(sessionKey[:], raw)
	return sessionID, sessionKey, nil
}
