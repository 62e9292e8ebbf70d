package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore reads and writes a plain JSON session file holding a single
// account. This is the fixed-path credential file the service reads at
// startup; the server never writes it.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Name() string { return "file" }

// Retrieve loads the session file. A username mismatch is treated as not
// found so a misconfigured path cannot silently serve the wrong account.
func (f *FileStore) Retrieve(username string) (*Credentials, error) {
	if f.path == "" {
		return nil, ErrStoreUnavailable
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	if !creds.Valid() {
		return nil, ErrInvalidCredentials
	}
	if username != "" && creds.Username != username {
		return nil, ErrCredentialsNotFound
	}

	return &creds, nil
}

// Store writes the session file with owner-only permissions.
func (f *FileStore) Store(creds *Credentials) error {
	if f.path == "" {
		return ErrStoreUnavailable
	}
	if !creds.Valid() {
		return ErrInvalidCredentials
	}

	creds.LastModified = time.Now().UTC()
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	dir := filepath.Dir(f.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create session directory: %w", err)
		}
	}

	return os.WriteFile(f.path, data, 0600)
}

// Delete removes the session file.
func (f *FileStore) Delete(username string) error {
	if f.path == "" {
		return ErrStoreUnavailable
	}
	if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
