package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stronglink/kvstore"
)

type fakeBackend struct {
	db               *kvstore.DB
	registrationMode Mode
}

func (b *fakeBackend) DB() *kvstore.DB                 { return b.db }
func (b *fakeBackend) RegistrationMode() Mode          { return b.registrationMode }
func (b *fakeBackend) InternalPath(hash string) string { return "/blobs/" + hash }

func newTestBackend(t *testing.T) *fakeBackend {
	t.Helper()
	db, err := kvstore.Open(filepath.Join(t.TempDir(), "kv"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &fakeBackend{db: db, registrationMode: ModeRead | ModeWrite}
}

func TestModeHas(t *testing.T) {
	m := ModeRead | ModeWrite
	assert.True(t, m.Has(ModeRead))
	assert.True(t, m.Has(ModeRead|ModeWrite))
	assert.False(t, m.Has(ModeAdmin))
	assert.True(t, m.Has(0))
}

func TestRequireCapability(t *testing.T) {
	assert.NoError(t, RequireCapability(ModeRead|ModeWrite, ModeRead))
	assert.Error(t, RequireCapability(ModeRead, ModeAdmin))
}

func TestCreateRejectsZeroMode(t *testing.T) {
	_, err := Create(nil, 1, [SessionKeyLen]byte{}, 1, 0)
	assert.Error(t, err)
}

func TestRetainReleaseRefcounting(t *testing.T) {
	s, err := Create(nil, 1, [SessionKeyLen]byte{}, 1, ModeRead)
	require.NoError(t, err)
	s.Retain()
	s.Release()
	assert.Equal(t, uint64(1), s.ID())
	s.Release()
	assert.Panics(t, func() { s.Release() })
}

func TestCopyCookieAndParseCookieRoundTrip(t *testing.T) {
	var key [SessionKeyLen]byte
	for i := range key {
		key[i] = byte(i)
	}
	s, err := Create(nil, 42, key, 7, ModeRead)
	require.NoError(t, err)

	cookie := s.CopyCookie()
	id, gotKey, err := ParseCookie(cookie)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, key, gotKey)
}

func TestParseCookieRejectsMalformedInput(t *testing.T) {
	_, _, err := ParseCookie("nope")
	assert.Error(t, err)
	_, _, err = ParseCookie("s=1")
	assert.Error(t, err)
	_, _, err = ParseCookie("s=1:tooshort")
	assert.Error(t, err)
}

func TestBootstrapAndLookupUser(t *testing.T) {
	backend := newTestBackend(t)
	user, err := Bootstrap(backend, "admin", "password", ModeRead|ModeWrite|ModeAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Username)
	assert.Equal(t, uint64(0), user.ParentUserID)

	found, ok, err := LookupUser(backend, "admin")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, user.UserID, found.UserID)
}

func TestBootstrapRejectsDuplicateUsername(t *testing.T) {
	backend := newTestBackend(t)
	_, err := Bootstrap(backend, "admin", "password", ModeRead)
	require.NoError(t, err)
	_, err = Bootstrap(backend, "admin", "password", ModeRead)
	assert.Error(t, err)
}

func TestCreateUserRequiresOpenRegistration(t *testing.T) {
	backend := newTestBackend(t)
	backend.registrationMode = 0
	cache, err := NewCache(backend, 16)
	require.NoError(t, err)

	admin, err := Bootstrap(backend, "admin", "password", ModeRead|ModeAdmin)
	require.NoError(t, err)
	s, err := cache.Retain(1, [SessionKeyLen]byte{}, admin.UserID, admin.Mode)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.CreateUser("newbie", "password")
	assert.Error(t, err)
}

func TestCreateUserRejectsOutOfRangeLengths(t *testing.T) {
	backend := newTestBackend(t)
	cache, err := NewCache(backend, 16)
	require.NoError(t, err)
	s, err := cache.Retain(1, [SessionKeyLen]byte{}, 1, ModeRead)
	require.NoError(t, err)
	defer s.Release()

	_, err = s.CreateUser("a", "password")
	assert.Error(t, err)
}
