// Package rules evaluates the ordered rule list against messages and
// drives the unseen-message processing batch.
package rules

import (
	"strings"

	"github.com/nhle/mail-organizer/internal/message"
	"github.com/nhle/mail-organizer/internal/model"
)

// Evaluate returns the first rule, in list order, whose condition holds
// for rec. Conditions are case-insensitive substring tests against the
// From header, the subject or the plain-text body.
func Evaluate(rec *message.Record, rules []model.Rule) (model.Rule, bool) {
	var body *string
	bodyText := func() string {
		if body == nil {
			b := strings.ToLower(rec.PlainTextBody())
			body = &b
		}
		return *body
	}

	for _, r := range rules {
		needle := strings.ToLower(r.Value)
		var haystack string
		switch r.Type {
		case model.ConditionFrom:
			haystack = strings.ToLower(rec.FromHeader())
		case model.ConditionSubject:
			haystack = strings.ToLower(rec.Subject())
		case model.ConditionBody:
			haystack = bodyText()
		default:
			continue
		}
		if strings.Contains(haystack, needle) {
			return r, true
		}
	}
	return model.Rule{}, false
}
