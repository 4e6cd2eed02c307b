// Package message turns raw RFC 5322 messages into Records holding the
// handful of facts the analytics and rule engine consume.
package message

import (
	"bytes"
	"errors"
	"path"
	"strings"
	"unicode/utf8"

	gomessage "github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

const minKeywordRunes = 4

// Parse extracts a Record from raw. A Record is always returned; fields
// that could not be decoded are left empty and reported through the
// returned error, which joins one *ParseError per failed field.
func Parse(raw []byte) (*Record, error) {
	rec := &Record{
		raw:  raw,
		size: len(raw),
	}

	entity, err := readEntity(raw)
	if entity == nil {
		return rec, &ParseError{Field: "header", Err: err}
	}

	var errs []error
	if err != nil {
		errs = append(errs, &ParseError{Field: "content", Err: err})
	}

	h := mail.Header{Header: entity.Header}

	rec.fromHeader, _ = h.Text("From")
	if addrs, err := h.AddressList("From"); err != nil {
		errs = append(errs, &ParseError{Field: "From", Err: err})
	} else if len(addrs) > 0 {
		rec.sender = addrs[0].Address
	}

	if h.Has("Date") {
		if t, err := h.Date(); err != nil {
			errs = append(errs, &ParseError{Field: "Date", Err: err})
		} else {
			rec.timestamp = t.Local()
		}
	}

	rec.isReply = strings.TrimSpace(h.Get("In-Reply-To")) != ""
	rec.messageID, _ = h.MessageID()

	if subject, err := h.Subject(); err != nil {
		errs = append(errs, &ParseError{Field: "Subject", Err: err})
		rec.subject = h.Get("Subject")
	} else {
		rec.subject = subject
	}
	rec.keywords = keywords(rec.subject)

	if entity.MultipartReader() != nil {
		exts, err := attachmentExtensions(entity)
		if err != nil {
			errs = append(errs, &ParseError{Field: "attachments", Err: err})
		}
		rec.attachments = exts
	}

	return rec, errors.Join(errs...)
}

// readEntity tolerates unknown charsets and transfer encodings; the
// entity is still usable and the error is reported alongside it.
func readEntity(raw []byte) (*gomessage.Entity, error) {
	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err == nil {
		return entity, nil
	}
	if gomessage.IsUnknownCharset(err) || gomessage.IsUnknownEncoding(err) {
		return entity, err
	}
	return nil, err
}

func keywords(subject string) []string {
	var out []string
	for _, tok := range strings.Fields(strings.ToLower(subject)) {
		if utf8.RuneCountInString(tok) >= minKeywordRunes {
			out = append(out, tok)
		}
	}
	return out
}

// attachmentExtensions collects the extension of every part explicitly
// marked as an attachment that carries a filename. Filenames without an
// extension contribute nothing.
func attachmentExtensions(entity *gomessage.Entity) ([]string, error) {
	var exts []string
	var partErrs []error

	walkErr := entity.Walk(func(_ []int, part *gomessage.Entity, err error) error {
		if err != nil {
			partErrs = append(partErrs, err)
		}
		if !usablePart(part, err) || part.MultipartReader() != nil {
			return nil
		}
		disp, _, err := part.Header.ContentDisposition()
		if err != nil || disp != "attachment" {
			return nil
		}
		ah := mail.AttachmentHeader{Header: part.Header}
		name, err := ah.Filename()
		if err != nil || name == "" {
			return nil
		}
		if ext := strings.ToLower(path.Ext(name)); ext != "" && ext != "." {
			exts = append(exts, ext)
		}
		return nil
	})
	if walkErr != nil {
		partErrs = append(partErrs, walkErr)
	}
	return exts, errors.Join(partErrs...)
}
