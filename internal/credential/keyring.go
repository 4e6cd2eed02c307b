// Package credential stores mailbox app passwords in the system keyring.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "mailorganizer"

// PasswordEnv overrides the keyring lookup when set.
const PasswordEnv = "MAILORG_PASSWORD"

// ErrNotFound is returned when no secret is stored for an address.
var ErrNotFound = errors.New("credential not found")

// open is replaced in tests.
var open = openKeyring

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
		FileDir:                  "~/.config/mailorganizer/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailorganizer-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// MailboxKey is the keyring key holding the secret for address.
func MailboxKey(address string) string {
	return "mailbox-" + strings.ToLower(strings.TrimSpace(address))
}

// MailboxSecret returns the app password for address, preferring the
// MAILORG_PASSWORD environment variable over the keyring.
func MailboxSecret(address string) (string, error) {
	if v := os.Getenv(PasswordEnv); v != "" {
		return v, nil
	}
	return Get(MailboxKey(address))
}

// SetMailboxSecret stores the app password for address.
func SetMailboxSecret(address, secret string) error {
	return Set(MailboxKey(address), secret)
}

// DeleteMailboxSecret forgets the app password for address.
func DeleteMailboxSecret(address string) error {
	return Delete(MailboxKey(address))
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := open()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}
	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key, value string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: "Mail Organizer " + strings.TrimPrefix(key, "mailbox-"),
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}
	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := open()
	if err != nil {
		return err
	}

	if err := ring.Remove(key); err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}
	return nil
}
