package repo

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stronglink/session"
	"stronglink/submission"
)

func openTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := Open(Options{
		DataDir:          filepath.Join(t.TempDir(), "data"),
		RegistrationMode: session.ModeRead | session.ModeWrite,
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestOpenRejectsEmptyDataDir(t *testing.T) {
	_, err := Open(Options{}, nil)
	assert.Error(t, err)
}

func TestBootstrapThenAuthenticate(t *testing.T) {
	r := openTestRepo(t)
	_, err := r.Bootstrap("admin", "password", session.ModeRead|session.ModeWrite|session.ModeAdmin)
	require.NoError(t, err)

	s, err := r.Authenticate("admin", "password")
	require.NoError(t, err)
	defer s.Release()
	assert.True(t, s.Mode().Has(session.ModeAdmin))
}

func TestAuthenticateRejectsWrongPassword(t *testing.T) {
	r := openTestRepo(t)
	_, err := r.Bootstrap("admin", "password", session.ModeRead)
	require.NoError(t, err)

	_, err = r.Authenticate("admin", "wrong")
	assert.Error(t, err)
}

func TestAuthenticateRejectsUnknownUser(t *testing.T) {
	r := openTestRepo(t)
	_, err := r.Authenticate("nobody", "password")
	assert.Error(t, err)
}

func TestStoreBatchAdvancesNotifierAndIsObservable(t *testing.T) {
	r := openTestRepo(t)

	content, meta, err := submission.QuickPair(r.Blobs(), nil, 1, "text/plain; charset=utf-8", strings.NewReader("hello"), "")
	require.NoError(t, err)
	defer content.Release()
	require.NoError(t, content.AddFile())
	batch := []*submission.Submission{content}
	if meta != nil {
		defer meta.Release()
		require.NoError(t, meta.AddFile())
		batch = append(batch, meta)
	}

	sortID, err := r.StoreBatch(batch)
	require.NoError(t, err)
	assert.Greater(t, sortID, uint64(0))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	observed, err := r.WaitForSortID(ctx, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, observed, sortID)
}
