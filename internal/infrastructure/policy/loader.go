package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/aishell-go/assets"
	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/pkg/filesystem"
)

// DefaultFileName is the policy file name under ~/.aishell.
const DefaultFileName = "policy.yaml"

// DefaultDocument parses the embedded default policy.
func DefaultDocument() (Document, error) {
	return decode(assets.DefaultPolicyYAML, "embedded defaults")
}

// Load reads and compiles the policy at path. A missing file yields the embedded
// defaults. Built-in compliance profiles stay available unless the file redefines them.
func Load(path string) (*Ruleset, error) {
	resolved := ResolvePath(path)
	defaults, err := DefaultDocument()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return Compile(defaults, "embedded defaults")
	}
	if err != nil {
		return nil, &domain.PolicyConfigError{Source: resolved, Err: err}
	}

	doc, err := decode(data, resolved)
	if err != nil {
		return nil, err
	}
	return Compile(mergeProfiles(doc, defaults), resolved)
}

// LoadDocument reads the raw document at path, or the defaults when the file is missing.
func LoadDocument(path string) (Document, error) {
	resolved := ResolvePath(path)
	data, err := os.ReadFile(resolved)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultDocument()
	}
	if err != nil {
		return Document{}, &domain.PolicyConfigError{Source: resolved, Err: err}
	}
	return decode(data, resolved)
}

// SaveDocument validates and writes the document to disk.
func SaveDocument(path string, doc Document) error {
	resolved := ResolvePath(path)
	if _, err := Compile(doc, resolved); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), domain.DirectoryPermissions); err != nil {
		return err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return err
	}
	tmp := resolved + ".tmp"
	if err := os.WriteFile(tmp, data, domain.SecureFilePermissions); err != nil {
		return err
	}
	return os.Rename(tmp, resolved)
}

// ResolvePath expands the policy path to an absolute location.
func ResolvePath(path string) string {
	return filesystem.ExpandPath(path, DefaultFileName)
}

func decode(data []byte, source string) (Document, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return Document{}, &domain.PolicyConfigError{Source: source, Err: fmt.Errorf("parse yaml: %w", err)}
	}
	return doc, nil
}

func mergeProfiles(doc, defaults Document) Document {
	if doc.Compliance == nil {
		doc.Compliance = make(map[string][]RuleSpec)
	}
	defined := make(map[string]bool, len(doc.Compliance))
	for name := range doc.Compliance {
		defined[strings.ToUpper(strings.TrimSpace(name))] = true
	}
	for name, rules := range defaults.Compliance {
		if !defined[strings.ToUpper(name)] {
			doc.Compliance[name] = rules
		}
	}
	return doc
}
