package session

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stronglink/kvstore"
	"stronglink/slnerr"
)

// Username and password length bounds.
const (
	UserMin = 2
	UserMax = 32
	PassMin = 0
	PassMax = 72
)

// User is a persisted account record.
type User struct {
	UserID       uint64
	Username     string
	PassHash     []byte
	Mode         Mode
	ParentUserID uint64
	Created      time.Time
}

// CreateUser validates username/password length bounds, checks that the
// repo's registration mode permits account creation, and writes the
// username->userID and userID->user records under one no-overwrite
// read-write transaction. The new account's mode is the repo's
// registration mode, and ParentUserID records s's own user as the
// creator.
func (s *Session) CreateUser(username, password string) (*User, error) {
	if len(username) < UserMin || len(username) > UserMax {
		return nil, fmt.Errorf("session: create user: username length out of range: %w", slnerr.ErrInvalidArgument)
	}
	if len(password) < PassMin || len(password) > PassMax {
		return nil, fmt.Errorf("session: create user: password length out of range: %w", slnerr.ErrInvalidArgument)
	}

	backend := s.cache.Backend()
	regMode := backend.RegistrationMode()
	if regMode == 0 {
		return nil, fmt.Errorf("session: create user: registration closed: %w", slnerr.ErrCapabilityDenied)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("session: create user: hash password: %w", err)
	}

	db := backend.DB()
	var user *User
	txnErr := db.Update(func(txn *kvstore.Txn) error {
		userID, err := db.NextID(kvstore.TagUserByID)
		if err != nil {
			return err
		}

		nameKey := kvstore.KeyUserIDByName(username)
		if err := txn.Put(nameKey, kvstore.ValUserID(userID), true); err != nil {
			return err
		}

		createdAt := time.Now().Unix()
		userVal := kvstore.ValUser(username, string(passHash), uint32(regMode), s.userID, createdAt)
		if err := txn.Put(kvstore.KeyUserByID(userID), userVal, true); err != nil {
			return err
		}

		user = &User{
			UserID:       userID,
			Username:     username,
			PassHash:     passHash,
			Mode:         regMode,
			ParentUserID: s.userID,
			Created:      time.Unix(createdAt, 0),
		}
		return nil
	})
	if txnErr != nil {
		if errors.Is(txnErr, kvstore.ErrKeyExists) {
			return nil, fmt.Errorf("session: create user: username taken: %w", slnerr.ErrDuplicate)
		}
		return nil, fmt.Errorf("session: create user: %w: %w", txnErr, slnerr.ErrTransaction)
	}
	return user, nil
}

// Bootstrap creates the repo's first account directly against backend,
// with the given mode and no parent user, bypassing both the
// registration-mode check and the requirement for an existing
// authenticated session. It exists only to get a repository's first
// administrator account into existence; every subsequent account should
// go through Session.CreateUser.
func Bootstrap(backend Backend, username, password string, mode Mode) (*User, error) {
	if len(username) < UserMin || len(username) > UserMax {
		return nil, fmt.Errorf("session: bootstrap: username length out of range: %w", slnerr.ErrInvalidArgument)
	}
	if len(password) < PassMin || len(password) > PassMax {
		return nil, fmt.Errorf("session: bootstrap: password length out of range: %w", slnerr.ErrInvalidArgument)
	}
	if mode == 0 {
		return nil, fmt.Errorf("session: bootstrap: zero mode: %w", slnerr.ErrInvalidArgument)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("session: bootstrap: hash password: %w", err)
	}

	db := backend.DB()
	var user *User
	txnErr := db.Update(func(txn *kvstore.Txn) error {
		userID, err := db.NextID(kvstore.TagUserByID)
		if err != nil {
			return err
		}
		if err := txn.Put(kvstore.KeyUserIDByName(username), kvstore.ValUserID(userID), true); err != nil {
			return err
		}
		createdAt := time.Now().Unix()
		userVal := kvstore.ValUser(username, string(passHash), uint32(mode), 0, createdAt)
		if err := txn.Put(kvstore.KeyUserByID(userID), userVal, true); err != nil {
			return err
		}
		user = &User{
			UserID:   userID,
			Username: username,
			PassHash: passHash,
			Mode:     mode,
			Created:  time.Unix(createdAt, 0),
		}
		return nil
	})
	if txnErr != nil {
		if errors.Is(txnErr, kvstore.ErrKeyExists) {
			return nil, fmt.Errorf("session: bootstrap: username taken: %w", slnerr.ErrDuplicate)
		}
		return nil, fmt.Errorf("session: bootstrap: %w: %w", txnErr, slnerr.ErrTransaction)
	}
	return user, nil
}

// LookupUser resolves a username to its persisted User record, for
// authenticating a future session against its stored password hash.
func LookupUser(backend Backend, username string) (*User, bool, error) {
	db := backend.DB()
	var user *User
	err := db.View(func(txn *kvstore.Txn) error {
		idVal, found, err := txn.Get(kvstore.KeyUserIDByName(username))
		if err != nil || !found {
			return err
		}
		userID := kvstore.ParseValUserID(idVal)

		recVal, found, err := txn.Get(kvstore.KeyUserByID(userID))
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("session: lookup user: dangling username index for %q", username)
		}
		name, passhash, mode, parent, createdAt := kvstore.ParseValUser(recVal)
		user = &User{
			UserID:       userID,
			Username:     name,
			PassHash:     []byte(passhash),
			Mode:         Mode(mode),
			ParentUserID: parent,
			Created:      time.Unix(createdAt, 0),
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("session: lookup user: %w", err)
	}
	return user, user != nil, nil
}
