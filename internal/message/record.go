package message

import (
	"fmt"
	"time"
)

// Record is the set of facts extracted from one fetched message. It is
// built by Parse and never modified afterwards.
type Record struct {
	sender      string
	fromHeader  string
	subject     string
	timestamp   time.Time
	size        int
	isReply     bool
	messageID   string
	attachments []string
	keywords    []string
	raw         []byte
}

// Sender is the bare address from the From header, or "" when the
// header is missing or unparseable.
func (r *Record) Sender() string { return r.sender }

// FromHeader is the decoded From header including any display name.
func (r *Record) FromHeader() string { return r.fromHeader }

// Subject is the decoded subject, or "" when absent.
func (r *Record) Subject() string { return r.subject }

// Timestamp returns the Date header converted to local time. ok is false
// when the header was missing or malformed.
func (r *Record) Timestamp() (t time.Time, ok bool) {
	return r.timestamp, !r.timestamp.IsZero()
}

// Size is the length of the raw message in bytes.
func (r *Record) Size() int { return r.size }

// IsReply reports whether the message carries an In-Reply-To header.
func (r *Record) IsReply() bool { return r.isReply }

// MessageID is the Message-ID without angle brackets.
func (r *Record) MessageID() string { return r.messageID }

// AttachmentExtensions lists the lower-cased extension (dot included) of
// every attachment, in document order.
func (r *Record) AttachmentExtensions() []string {
	return append([]string(nil), r.attachments...)
}

// Keywords are the lower-cased subject tokens longer than three
// characters.
func (r *Record) Keywords() []string {
	return append([]string(nil), r.keywords...)
}

// Raw returns the message exactly as fetched.
func (r *Record) Raw() []byte { return r.raw }

// ParseError describes a header or part that could not be decoded. The
// affected field is left at its zero value.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
