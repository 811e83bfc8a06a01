package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format identifies a form definition encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks a format from the file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeForm parses a form definition. Unknown field types and rule
// identifiers are rejected.
func DecodeForm(raw []byte, format Format) (FormConfig, error) {
	var form FormConfig
	if len(bytes.TrimSpace(raw)) == 0 {
		return form, errors.New("model: form definition is empty")
	}
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &form); err != nil {
			return FormConfig{}, fmt.Errorf("model: decode yaml form: %w", err)
		}
	default:
		if err := json.Unmarshal(raw, &form); err != nil {
			return FormConfig{}, fmt.Errorf("model: decode json form: %w", err)
		}
	}
	return form, nil
}

// LoadForm reads and decodes a form definition file.
func LoadForm(path string) (FormConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return FormConfig{}, fmt.Errorf("model: read form: %w", err)
	}
	return DecodeForm(raw, FormatFromPath(path))
}

// EncodeForm serialises a form in the requested format.
func EncodeForm(form FormConfig, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(form)
	default:
		return json.MarshalIndent(form, "", "  ")
	}
}
