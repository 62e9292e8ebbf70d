// Package session loads persisted Instagram credentials and exposes the
// read-mostly session state shared by all requests. Loading never fails
// hard: a missing or corrupt credential source degrades the service to
// anonymous access instead of preventing startup.
package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"igresolver/pkg/config"
	igerrors "igresolver/pkg/errors"
	"igresolver/pkg/logger"
)

// State is the externally visible session state.
type State struct {
	Authenticated bool
	Username      string
}

// IdentityChecker verifies a session against the upstream. Implemented by
// the instagram client.
type IdentityChecker interface {
	ViewerUsername(ctx context.Context) (string, error)
}

// Context owns the session credentials for the process. It is constructed
// once at the composition root and passed by reference; there is no global
// instance.
type Context struct {
	mu      sync.RWMutex
	creds   *Credentials
	stores  []Store
	wanted  string
	checker IdentityChecker
	logger  logger.Logger
}

// DefaultStores builds the credential source chain for cfg: plain session
// file, encrypted file store, system keyring, environment. Unavailable
// backends are skipped.
func DefaultStores(cfg *config.InstagramConfig, log logger.Logger) []Store {
	var stores []Store

	if cfg.SessionFile != "" {
		stores = append(stores, NewFileStore(cfg.SessionFile))
	}

	if encStore, err := NewEncryptedFileStore(defaultEncryptedStorePath()); err == nil {
		stores = append(stores, encStore)
	} else {
		log.DebugWithFields("encrypted store unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	} else {
		log.DebugWithFields("keyring store unavailable", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return append(stores, NewEnvStore())
}

func defaultEncryptedStorePath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = "."
	}
	return filepath.Join(configDir, "igresolver", "credentials.enc")
}

// Load builds a Context by trying each store in order. It never returns an
// error: every failure is logged and the chain continues, ending in an
// anonymous session when nothing yields credentials.
func Load(cfg *config.InstagramConfig, stores []Store, log logger.Logger) *Context {
	if log == nil {
		log = logger.GetLogger()
	}

	sc := &Context{
		stores: stores,
		wanted: cfg.SessionUsername,
		logger: log,
	}
	sc.reload()
	return sc
}

func (s *Context) reload() {
	for _, store := range s.stores {
		creds, err := store.Retrieve(s.wanted)
		if err != nil {
			if err != ErrCredentialsNotFound {
				s.logger.WarnWithFields("credential store failed, continuing without it", map[string]interface{}{
					"store": store.Name(),
					"error": err.Error(),
				})
			}
			continue
		}

		s.logger.InfoWithFields("session credentials loaded", map[string]interface{}{
			"store":    store.Name(),
			"username": creds.Username,
		})
		s.mu.Lock()
		s.creds = creds
		s.mu.Unlock()
		return
	}

	s.logger.Warn("no session credentials found, running with anonymous access")
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()
}

// Reload re-reads the credential chain on demand. Per-request code never
// mutates the session.
func (s *Context) Reload() {
	s.reload()
}

// SetChecker wires the live identity checker, normally the upstream client.
func (s *Context) SetChecker(checker IdentityChecker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checker = checker
}

// Credentials returns the loaded credentials, or nil when anonymous.
func (s *Context) Credentials() *Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.creds
}

// State reports whether a session is loaded and for which account.
func (s *Context) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return State{}
	}
	return State{Authenticated: true, Username: s.creds.Username}
}

// CurrentIdentity checks the session against the upstream and returns the
// live username. A session that loaded from disk but expired upstream fails
// here rather than looking valid.
func (s *Context) CurrentIdentity(ctx context.Context) (string, error) {
	s.mu.RLock()
	checker := s.checker
	creds := s.creds
	s.mu.RUnlock()

	if creds == nil {
		return "", igerrors.New(igerrors.TypeAuth, "session not loaded")
	}
	if checker == nil {
		return "", igerrors.New(igerrors.TypeAuth, "no identity checker configured")
	}

	username, err := checker.ViewerUsername(ctx)
	if err != nil {
		return "", err
	}
	return username, nil
}
