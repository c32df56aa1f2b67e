package lesson

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML layout of a lesson catalog.
type catalogFile struct {
	Lessons []Lesson `yaml:"lessons"`
}

// Load reads a YAML lesson catalog from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("lesson: open %q: %w", path, err)
	}
	defer f.Close()

	c, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("lesson: parse %q: %w", path, err)
	}
	return c, nil
}

// LoadFromReader decodes a YAML lesson catalog from r.
// Unknown fields are rejected so typos surface at startup.
func LoadFromReader(r io.Reader) (*Catalog, error) {
	var file catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return NewCatalog(file.Lessons)
}

// LoadOrDefault loads the catalog at path, or returns the built-in catalog
// when path is empty.
func LoadOrDefault(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}
