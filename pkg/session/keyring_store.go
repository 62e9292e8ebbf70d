package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "igresolver"

// KeyringStore keeps credentials in the system keychain.
type KeyringStore struct{}

// NewKeyringStore creates a keychain-backed store, probing availability
// first since headless hosts often have no keyring daemon.
func NewKeyringStore() (*KeyringStore, error) {
	probe := "igresolver-probe"
	if err := keyring.Set(keyringService, probe, "ok"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func (k *KeyringStore) Name() string { return "keyring" }

// Retrieve loads credentials for a username from the keychain. The keychain
// is keyed by username, so an empty username cannot match anything.
func (k *KeyringStore) Retrieve(username string) (*Credentials, error) {
	if username == "" {
		return nil, ErrCredentialsNotFound
	}

	payload, err := keyring.Get(keyringService, username)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("keyring read failed: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(payload), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse keyring payload: %w", err)
	}
	if !creds.Valid() {
		return nil, ErrInvalidCredentials
	}

	return &creds, nil
}

// Store saves credentials under the account username.
func (k *KeyringStore) Store(creds *Credentials) error {
	if !creds.Valid() || creds.Username == "" {
		return ErrInvalidCredentials
	}

	payload, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	return keyring.Set(keyringService, creds.Username, string(payload))
}

// Delete removes credentials for a username.
func (k *KeyringStore) Delete(username string) error {
	if username == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, username); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
