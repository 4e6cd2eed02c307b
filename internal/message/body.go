package message

import (
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
)

// PlainTextBody returns the decoded text/plain content of the message.
// For multipart messages every inline text/plain part is concatenated in
// document order; a single-part message yields its payload whatever its
// content type. Parts in an unknown charset or transfer encoding are
// read as-is; otherwise undecodable parts are skipped.
func (r *Record) PlainTextBody() string {
	entity, _ := readEntity(r.raw)
	if entity == nil {
		return ""
	}

	if entity.MultipartReader() == nil {
		return readBody(entity)
	}

	var parts []string
	_ = entity.Walk(func(_ []int, part *gomessage.Entity, err error) error {
		if !usablePart(part, err) || part.MultipartReader() != nil {
			return nil
		}
		mediaType, _, _ := part.Header.ContentType()
		if mediaType != "text/plain" {
			return nil
		}
		if disp, _, _ := part.Header.ContentDisposition(); disp == "attachment" {
			return nil
		}
		parts = append(parts, readBody(part))
		return nil
	})
	return strings.Join(parts, "\n")
}

func readBody(e *gomessage.Entity) string {
	b, err := io.ReadAll(e.Body)
	if err != nil && len(b) == 0 {
		return ""
	}
	return string(b)
}

// usablePart reports whether a walked part can still be read. go-message
// hands back parts in an unknown charset or encoding alongside the error.
func usablePart(part *gomessage.Entity, err error) bool {
	if part == nil {
		return false
	}
	return err == nil || gomessage.IsUnknownCharset(err) || gomessage.IsUnknownEncoding(err)
}
