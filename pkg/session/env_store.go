package session

import "os"

// EnvStore reads credentials from environment variables. It is the last
// fallback in the load chain and is read-only.
type EnvStore struct{}

// NewEnvStore creates an environment-backed store.
func NewEnvStore() *EnvStore {
	return &EnvStore{}
}

func (e *EnvStore) Name() string { return "env" }

// Retrieve reads IGRESOLVER_SESSION_* variables.
func (e *EnvStore) Retrieve(username string) (*Credentials, error) {
	creds := &Credentials{
		Username:  os.Getenv("IGRESOLVER_SESSION_USERNAME"),
		SessionID: os.Getenv("IGRESOLVER_SESSION_ID"),
		CSRFToken: os.Getenv("IGRESOLVER_CSRF_TOKEN"),
		UserAgent: os.Getenv("IGRESOLVER_SESSION_USER_AGENT"),
	}

	if !creds.Valid() {
		return nil, ErrCredentialsNotFound
	}
	if username != "" && creds.Username != "" && creds.Username != username {
		return nil, ErrCredentialsNotFound
	}

	return creds, nil
}

// Store is not supported for environment variables.
func (e *EnvStore) Store(creds *Credentials) error {
	return ErrStoreUnavailable
}

// Delete is not supported for environment variables.
func (e *EnvStore) Delete(username string) error {
	return ErrStoreUnavailable
}
