package io

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Format is a formula-map encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
	FormatJSON
)

var formatNames = map[Format]string{
	FormatYAML: "yaml",
	FormatTOML: "toml",
	FormatJSON: "json",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// ParseFormat parses a format name. "yml" is accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "toml":
		return FormatTOML, nil
	case "json":
		return FormatJSON, nil
	}
	return 0, fmt.Errorf("unknown formula map format %q", s)
}

// FormatFromPath picks the format from path's extension.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return 0, fmt.Errorf("%s: no file extension to pick a format from", path)
	}
	return ParseFormat(ext)
}
