package io

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	apperrors "github.com/matzehuels/formulascope/pkg/errors"
	"github.com/matzehuels/formulascope/pkg/formula"
)

// Document is a formula map plus an optional default root.
type Document struct {
	Root     string      `json:"root,omitempty" yaml:"root,omitempty" toml:"root,omitempty"`
	Formulas formula.Map `json:"formulas" yaml:"formulas" toml:"formulas"`
}

// Validate checks names and the root reference.
func (d Document) Validate() error {
	for _, name := range d.Formulas.Names() {
		if err := apperrors.ValidateFormulaName(name); err != nil {
			return fmt.Errorf("formula %q: %w", name, err)
		}
	}
	if d.Root != "" {
		if _, ok := d.Formulas[d.Root]; !ok {
			return apperrors.New(apperrors.ErrCodeFormulaNotFound, "root %q is not in the formula map", d.Root)
		}
	}
	return nil
}

// Read decodes a document from r and validates it. An empty input is an
// empty document.
func Read(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatTOML:
		if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode toml: %w", err)
		}
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
			return Document{}, fmt.Errorf("decode json: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("read: unsupported format %v", f)
	}
	if doc.Formulas == nil {
		doc.Formulas = formula.Map{}
	}
	if err := doc.Validate(); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// Import reads the document at path, picking the format from its extension.
func Import(path string) (Document, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return Document{}, apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "import %s", path)
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, apperrors.Wrap(apperrors.ErrCodeFileNotFound, err, "formula map %s not found", path)
		}
		return Document{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	doc, err := Read(file, f)
	if err != nil {
		return Document{}, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Write encodes doc to w.
func Write(w io.Writer, doc Document, f Format) error {
	if doc.Formulas == nil {
		doc.Formulas = formula.Map{}
	}
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(doc); err != nil {
			return fmt.Errorf("encode toml: %w", err)
		}
		return nil
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
	return fmt.Errorf("write: unsupported format %v", f)
}

// Export writes doc to path in the format its extension names.
func Export(doc Document, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrCodeInvalidPath, err, "export %s", path)
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc, f); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
