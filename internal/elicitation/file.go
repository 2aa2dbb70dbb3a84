package elicitation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"gitarg/pkg/errors"
)

// LoadFile reads a session from a YAML or JSON file, chosen by extension.
// A file without an id gets a fresh one.
func LoadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read session file %s", path)
	}

	format := FormatYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = FormatJSON
	}
	s, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrapf(err, "parse session file %s", path)
	}
	return s, nil
}

// Format is a session file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Parse decodes a session
func Parse(data []byte, format Format) (*Session, error) {
	s := NewSession()
	id := s.ID
	s.ID = ""

	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, s); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, errors.Wrap(errors.ErrInvalidInput, err.Error())
		}
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown format %q", format)
	}

	if s.ID == "" {
		s.ID = id
	}
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	return s, nil
}
