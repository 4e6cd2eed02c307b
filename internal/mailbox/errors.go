package mailbox

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by every Session operation attempted
// before a successful Connect (or after Disconnect).
var ErrNotConnected = errors.New("not connected to mailbox")

// ConnectError indicates that dialing or authenticating against the
// mailbox server failed.
type ConnectError struct {
	Host    string
	Address string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s as %s: %v", e.Host, e.Address, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// IsConnectError reports whether err (or any error in its chain) is a
// ConnectError.
func IsConnectError(err error) bool {
	var connErr *ConnectError
	return errors.As(err, &connErr)
}

// FetchError indicates that a message could not be retrieved, typically
// because it was deleted by another client mid-scan.
type FetchError struct {
	ID  MessageID
	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetching message %d: message not found", e.ID)
	}
	return fmt.Sprintf("fetching message %d: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err (or any error in its chain) is a
// FetchError.
func IsFetchError(err error) bool {
	var fetchErr *FetchError
	return errors.As(err, &fetchErr)
}
