package schema

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document is the on-disk YAML shape of a declared schema.
type Document struct {
	Entities      []*Entity       `yaml:"entities"`
	Relationships []*Relationship `yaml:"relationships"`
	Rbac          []RbacSpec      `yaml:"rbac"`
}

// LoadDocument parses and validates a schema document and populates a fresh
// catalog from it.
func LoadDocument(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDocument(raw)
}

// ParseDocument builds a catalog from raw YAML.
func ParseDocument(raw []byte) (*Catalog, error) {
	var doc Document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing schema document: %w", err)
	}
	val := validator.New()
	cat := NewCatalog()
	for _, e := range doc.Entities {
		if err := val.Struct(e); err != nil {
			return nil, fmt.Errorf("entity %s/%s: %w", e.Module, e.Name, err)
		}
		if err := cat.AddEntity(e); err != nil {
			return nil, err
		}
	}
	for _, r := range doc.Relationships {
		if err := val.Struct(r); err != nil {
			return nil, fmt.Errorf("relationship %s/%s: %w", r.Module, r.Name, err)
		}
		if err := cat.AddRelationship(r); err != nil {
			return nil, err
		}
	}
	for _, spec := range doc.Rbac {
		if err := val.Struct(spec); err != nil {
			return nil, fmt.Errorf("rbac spec for %s: %w", spec.Entity, err)
		}
		cat.AddRbac(spec)
	}
	return cat, nil
}
