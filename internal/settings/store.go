// Package settings persists the rule list and the auto-reply settings
// as JSON files. Loading never fails: a missing, empty or invalid file
// yields the default value and a logged warning.
package settings

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/nhle/mail-organizer/internal/model"
)

// PersistenceError reports a settings file that could not be read or
// written.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// errEmpty marks a zero-length (or whitespace-only) file.
var errEmpty = errors.New("file is empty")

type jsonFile struct {
	path   string
	schema gojsonschema.JSONLoader
	logger *log.Logger
}

func newJSONFile(path string, schema gojsonschema.JSONLoader, logger *log.Logger) jsonFile {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return jsonFile{path: path, schema: schema, logger: logger}
}

// read decodes the file into v. Failures are *PersistenceError values;
// errors.Is still sees fs.ErrNotExist and errEmpty through them.
func (f jsonFile) read(v any) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return &PersistenceError{Op: "reading", Path: f.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &PersistenceError{Op: "reading", Path: f.path, Err: errEmpty}
	}
	if err := validate(f.schema, data); err != nil {
		return &PersistenceError{Op: "validating", Path: f.path, Err: err}
	}
	if err := json.Unmarshal(data, v); err != nil {
		return &PersistenceError{Op: "decoding", Path: f.path, Err: err}
	}
	return nil
}

// report logs a read failure at a level matching its severity.
func (f jsonFile) report(what string, err error) {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f.logger.Debug(what+" file not found, using defaults", "path", f.path)
	case errors.Is(err, errEmpty):
		f.logger.Debug(what+" file is empty, using defaults", "path", f.path)
	default:
		f.logger.Warn("ignoring unreadable "+what+" file", "path", f.path, "error", err)
	}
}

// write replaces the file atomically.
func (f jsonFile) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encoding", Path: f.path, Err: err}
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PersistenceError{Op: "creating directory for", Path: f.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return &PersistenceError{Op: "writing", Path: f.path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &PersistenceError{Op: "writing", Path: f.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &PersistenceError{Op: "writing", Path: f.path, Err: err}
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return &PersistenceError{Op: "writing", Path: f.path, Err: err}
	}
	return nil
}

// RuleStore persists the ordered rule list.
type RuleStore struct{ file jsonFile }

// NewRuleStore returns a store backed by the JSON file at path.
func NewRuleStore(path string, logger *log.Logger) *RuleStore {
	return &RuleStore{file: newJSONFile(path, rulesSchema, logger)}
}

// Path is the backing file.
func (s *RuleStore) Path() string { return s.file.path }

// Load returns the stored rules in order, or an empty list when the file
// is missing, empty or invalid.
func (s *RuleStore) Load() []model.Rule {
	var rules []model.Rule
	if err := s.file.read(&rules); err != nil {
		s.file.report("rules", err)
		return []model.Rule{}
	}
	if rules == nil {
		rules = []model.Rule{}
	}
	return rules
}

// Save overwrites the file with rules.
func (s *RuleStore) Save(rules []model.Rule) error {
	if rules == nil {
		rules = []model.Rule{}
	}
	return s.file.write(rules)
}

// AutoReplyStore persists the auto-reply settings.
type AutoReplyStore struct{ file jsonFile }

// NewAutoReplyStore returns a store backed by the JSON file at path.
func NewAutoReplyStore(path string, logger *log.Logger) *AutoReplyStore {
	return &AutoReplyStore{file: newJSONFile(path, autoReplySchema, logger)}
}

// Path is the backing file.
func (s *AutoReplyStore) Path() string { return s.file.path }

// Load returns the stored settings, or disabled with an empty message
// when the file is missing, empty or invalid.
func (s *AutoReplyStore) Load() model.AutoReplySettings {
	var settings model.AutoReplySettings
	if err := s.file.read(&settings); err != nil {
		s.file.report("auto-reply settings", err)
		return model.AutoReplySettings{}
	}
	return settings
}

// Save overwrites the file with settings.
func (s *AutoReplyStore) Save(settings model.AutoReplySettings) error {
	return s.file.write(settings)
}
