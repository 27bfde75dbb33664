package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "mailflow"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailflow/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailflow-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  key,
		Data: []byte(value),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// passwordKey builds the keyring key under which an account's mail
// password is stored.
func passwordKey(account string) string {
	return "account:" + account + ":password"
}

// AccountPassword retrieves the stored mail password for an account.
func AccountPassword(account string) (string, error) {
	return Get(passwordKey(account))
}

// SetAccountPassword stores the mail password for an account.
func SetAccountPassword(account, password string) error {
	return Set(passwordKey(account), password)
}

// DeleteAccountPassword removes the stored mail password for an account.
func DeleteAccountPassword(account string) error {
	return Delete(passwordKey(account))
}
