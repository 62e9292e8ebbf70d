package session

import (
	"errors"
	"time"
)

// Credentials are the persisted session values for one account.
type Credentials struct {
	Username     string    `json:"username"`
	SessionID    string    `json:"session_id"`
	CSRFToken    string    `json:"csrf_token"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Valid reports whether the credentials can authenticate a session.
func (c *Credentials) Valid() bool {
	return c != nil && c.SessionID != ""
}

// Store is the interface for credential backends. The server only ever
// calls Retrieve; Store and Delete exist for the session import CLI.
type Store interface {
	// Name identifies the backend in logs.
	Name() string

	// Retrieve gets credentials for a username. An empty username asks
	// for whatever single account the backend holds, when it supports that.
	Retrieve(username string) (*Credentials, error)

	// Store saves credentials.
	Store(creds *Credentials) error

	// Delete removes credentials for a username.
	Delete(username string) error
}

// Common store errors.
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
