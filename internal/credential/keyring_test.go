package credential

import (
	"testing"

	"github.com/99designs/keyring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useArrayKeyring(t *testing.T) {
	t.Helper()
	ring := keyring.NewArrayKeyring(nil)
	prev := open
	open = func() (keyring.Keyring, error) { return ring, nil }
	t.Cleanup(func() { open = prev })
}

func TestMailboxKeyNormalizesAddress(t *testing.T) {
	assert.Equal(t, "mailbox-me@example.com", MailboxKey("  Me@Example.com "))
}

func TestMailboxSecretRoundTrip(t *testing.T) {
	useArrayKeyring(t)
	t.Setenv(PasswordEnv, "")

	_, err := MailboxSecret("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, SetMailboxSecret("me@example.com", "app-password"))
	got, err := MailboxSecret("ME@example.com")
	require.NoError(t, err)
	assert.Equal(t, "app-password", got)

	require.NoError(t, DeleteMailboxSecret("me@example.com"))
	_, err = MailboxSecret("me@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEnvironmentOverridesKeyring(t *testing.T) {
	useArrayKeyring(t)
	require.NoError(t, SetMailboxSecret("me@example.com", "stored"))

	t.Setenv(PasswordEnv, "from-env")
	got, err := MailboxSecret("me@example.com")
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)
}
