package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igresolver/pkg/config"
	igerrors "igresolver/pkg/errors"
)

func writeSessionFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0600))
	return path
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)

	require.NoError(t, store.Store(&Credentials{
		Username:  "alice",
		SessionID: "sid123",
		CSRFToken: "csrf456",
	}))

	creds, err := store.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "sid123", creds.SessionID)
	assert.Equal(t, "csrf456", creds.CSRFToken)

	// A username mismatch must not serve the wrong account.
	_, err = store.Retrieve("bob")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestFileStoreMissingFile(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	_, err := store.Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEnvStore(t *testing.T) {
	t.Setenv("IGRESOLVER_SESSION_USERNAME", "alice")
	t.Setenv("IGRESOLVER_SESSION_ID", "sid123")
	t.Setenv("IGRESOLVER_CSRF_TOKEN", "csrf456")

	creds, err := NewEnvStore().Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "alice", creds.Username)
	assert.Equal(t, "sid123", creds.SessionID)
}

func TestEnvStoreEmpty(t *testing.T) {
	t.Setenv("IGRESOLVER_SESSION_ID", "")
	_, err := NewEnvStore().Retrieve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	t.Setenv("IGRESOLVER_STORE_KEY", "test-passphrase")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credentials{
		Username:  "alice",
		SessionID: "sid123",
		CSRFToken: "csrf456",
	}))

	creds, err := store.Retrieve("alice")
	require.NoError(t, err)
	assert.Equal(t, "sid123", creds.SessionID)

	// The file on disk must not leak the session id in plaintext.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "sid123")
}

func TestLoadFromSessionFile(t *testing.T) {
	path := writeSessionFile(t, `{"username": "alice", "session_id": "sid123", "csrf_token": "csrf456"}`)

	cfg := &config.InstagramConfig{SessionFile: path}
	sc := Load(cfg, []Store{NewFileStore(path)}, nil)

	state := sc.State()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "alice", state.Username)
}

func TestLoadMissingFileDegradesToAnonymous(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.json")
	cfg := &config.InstagramConfig{SessionFile: path}

	sc := Load(cfg, []Store{NewFileStore(path)}, nil)

	state := sc.State()
	assert.False(t, state.Authenticated)
	assert.Nil(t, sc.Credentials())
}

func TestLoadCorruptFileDegradesToAnonymous(t *testing.T) {
	path := writeSessionFile(t, `{not json`)
	cfg := &config.InstagramConfig{SessionFile: path}

	sc := Load(cfg, []Store{NewFileStore(path)}, nil)
	assert.False(t, sc.State().Authenticated)
}

func TestLoadFallsThroughChain(t *testing.T) {
	missing := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))

	t.Setenv("IGRESOLVER_SESSION_USERNAME", "alice")
	t.Setenv("IGRESOLVER_SESSION_ID", "sid123")
	t.Setenv("IGRESOLVER_CSRF_TOKEN", "csrf456")

	sc := Load(&config.InstagramConfig{}, []Store{missing, NewEnvStore()}, nil)

	state := sc.State()
	assert.True(t, state.Authenticated)
	assert.Equal(t, "alice", state.Username)
}

type fakeChecker struct {
	username string
	err      error
}

func (f *fakeChecker) ViewerUsername(ctx context.Context) (string, error) {
	return f.username, f.err
}

func TestCurrentIdentityLiveCheck(t *testing.T) {
	path := writeSessionFile(t, `{"username": "alice", "session_id": "sid123", "csrf_token": "csrf456"}`)
	sc := Load(&config.InstagramConfig{SessionFile: path}, []Store{NewFileStore(path)}, nil)

	sc.SetChecker(&fakeChecker{username: "alice"})
	username, err := sc.CurrentIdentity(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", username)

	// A stale session looks loaded but fails the live check.
	sc.SetChecker(&fakeChecker{err: igerrors.New(igerrors.TypeAuth, "session expired")})
	_, err = sc.CurrentIdentity(context.Background())
	assert.Error(t, err)
}

func TestCurrentIdentityAnonymous(t *testing.T) {
	sc := Load(&config.InstagramConfig{}, nil, nil)
	sc.SetChecker(&fakeChecker{username: "alice"})

	_, err := sc.CurrentIdentity(context.Background())
	require.Error(t, err)
	assert.Equal(t, igerrors.TypeAuth, igerrors.TypeOf(err))
}
