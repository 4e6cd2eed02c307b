package settings

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

var rulesSchema = gojsonschema.NewStringLoader(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "Mail rules",
	"type": "array",
	"items": {
		"type": "object",
		"required": ["name", "condition_type", "condition_value", "folder"],
		"properties": {
			"name":            {"type": "string"},
			"condition_type":  {"type": "string", "enum": ["from", "subject", "body"]},
			"condition_value": {"type": "string"},
			"folder":          {"type": "string", "minLength": 1}
		}
	}
}`)

var autoReplySchema = gojsonschema.NewStringLoader(`{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"title": "Auto-reply settings",
	"type": "object",
	"properties": {
		"enabled": {"type": "boolean"},
		"message": {"type": "string"}
	}
}`)

// validate checks doc against schema and flattens any violations into a
// single error.
func validate(schema gojsonschema.JSONLoader, doc []byte) error {
	result, err := gojsonschema.Validate(schema, gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
	}
	return fmt.Errorf("schema violation: %s", strings.Join(msgs, "; "))
}
