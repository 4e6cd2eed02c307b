package model

import (
	"fmt"
	"strings"
)

// ConditionType selects which part of a message a rule inspects.
type ConditionType string

const (
	ConditionFrom    ConditionType = "from"
	ConditionSubject ConditionType = "subject"
	ConditionBody    ConditionType = "body"
)

// ConditionTypes lists the valid condition types in display order.
var ConditionTypes = []ConditionType{ConditionFrom, ConditionSubject, ConditionBody}

// Valid reports whether c is a known condition type.
func (c ConditionType) Valid() bool {
	switch c {
	case ConditionFrom, ConditionSubject, ConditionBody:
		return true
	}
	return false
}

// Rule files a matching message into Folder. Value is matched as a
// case-insensitive substring.
type Rule struct {
	Name   string        `json:"name"`
	Type   ConditionType `json:"condition_type"`
	Value  string        `json:"condition_value"`
	Folder string        `json:"folder"`
}

// Validate checks that the rule can be evaluated and applied.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("rule %q: unknown condition type %q", r.Name, r.Type)
	}
	if r.Value == "" {
		return fmt.Errorf("rule %q: condition value is required", r.Name)
	}
	if strings.TrimSpace(r.Folder) == "" {
		return fmt.Errorf("rule %q: target folder is required", r.Name)
	}
	return nil
}

// AutoReplySettings controls the templated reply sent to every processed
// message.
type AutoReplySettings struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// SearchHit is one search result in display form. Date is formatted as
// 2006-01-02 15:04:05 in local time, or empty when the message had no
// parseable date.
type SearchHit struct {
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
	Date    string `json:"date"`
}
