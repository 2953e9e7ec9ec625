package repo

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"stronglink/session"
	"stronglink/slnerr"
)

// Bootstrap creates the repo's first account directly, with the given
// mode, bypassing the need for an already-authenticated session. See
// session.Bootstrap.
func (r *Repo) Bootstrap(username, password string, mode session.Mode) (*session.User, error) {
	return session.Bootstrap(r, username, password, mode)
}

// Authenticate verifies username/password against the stored user
// record and, on success, mints a fresh session bound to that user's
// mode and pools it in the repo's session cache. The session id and key
// are drawn from a CSPRNG rather than persisted: unlike user accounts,
// sessions are an in-memory credential, valid only as long as some
// holder keeps a reference or can present the cookie it was given.
func (r *Repo) Authenticate(username, password string) (*session.Session, error) {
	user, found, err := session.LookupUser(r, username)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("repo: authenticate: %q: %w", username, slnerr.ErrNotFound)
	}
	if err := bcrypt.CompareHashAndPassword(user.PassHash, []byte(password)); err != nil {
		return nil, fmt.Errorf("repo: authenticate: %q: %w", username, slnerr.ErrCapabilityDenied)
	}

	sessionID, err := randUint64()
	if err != nil {
		return nil, fmt.Errorf("repo: authenticate: session id: %w", err)
	}
	var sessionKey [session.SessionKeyLen]byte
	if _, err := rand.Read(sessionKey[:]); err != nil {
		return nil, fmt.Errorf("repo: authenticate: session key: %w", err)
	}

	return r.cache.Retain(sessionID, sessionKey, user.UserID, user.Mode)
}

func randUint64() (uint64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf[:]), nil
}
