// Package schema holds the declared modules, entities, relationships and
// RBAC specifications. The catalog is populated once at load time and is
// read-only during request processing, so readers need no locking.
package schema

// Reserved column names present on every entity table.
const (
	PathColumn    = "__path__"
	TenantColumn  = "__tenant__"
	DeletedColumn = "__is_deleted__"
	ParentColumn  = "__parent__"
)

// FqSeparator joins module and entity name into a fully qualified name.
const FqSeparator = "/"

// Operation names the four row-level permissions.
type Operation string

const (
	OpCreate Operation = "create"
	OpRead   Operation = "read"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// AttrType is the declared type of an attribute.
type AttrType string

const (
	TypeInt      AttrType = "Int"
	TypeFloat    AttrType = "Float"
	TypeString   AttrType = "String"
	TypeBool     AttrType = "Bool"
	TypeDateTime AttrType = "DateTime"
	TypeObject   AttrType = "Object"
	TypeUUID     AttrType = "UUID"
)

// Attribute is one declared attribute of an entity.
type Attribute struct {
	Name     string   `yaml:"name" validate:"required"`
	Type     AttrType `yaml:"type" validate:"required"`
	Nullable bool     `yaml:"nullable"`
	// ID marks the attribute as the declared identifier (@id).
	ID        bool     `yaml:"id"`
	Indexed   bool     `yaml:"indexed"`
	Unique    bool     `yaml:"unique"`
	FullText  bool     `yaml:"fullText"`
	WriteOnly bool     `yaml:"writeOnly"`
	Enum      []string `yaml:"enum"`
}

// EmbeddingConfig overrides the environment embedding defaults for one
// entity.
type EmbeddingConfig struct {
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	ChunkSize    int    `yaml:"chunkSize"`
	ChunkOverlap int    `yaml:"chunkOverlap"`
}

// Entity is a declared record type. Entities are immutable after schema
// load; the only way to drop one is a full catalog flush.
type Entity struct {
	Module     string      `yaml:"module" validate:"required"`
	Name       string      `yaml:"name" validate:"required"`
	Attributes []Attribute `yaml:"attributes"`

	// FullTextAttrs lists the attributes eligible for semantic search.
	// The single entry "*" means all string attributes.
	FullTextAttrs []string `yaml:"fullTextAttrs"`

	Embedding *EmbeddingConfig `yaml:"embedding"`

	// ContainedIn is set on the child side of a contains relationship and
	// adds the __parent__ column to the table.
	ContainedIn string `yaml:"containedIn"`
}

// Fq returns the fully qualified name, Module/Name.
func (e *Entity) Fq() string {
	return e.Module + FqSeparator + e.Name
}

// Attribute returns the named attribute, or nil.
func (e *Entity) Attribute(name string) *Attribute {
	for i := range e.Attributes {
		if e.Attributes[i].Name == name {
			return &e.Attributes[i]
		}
	}
	return nil
}

// IDAttribute returns the declared @id attribute, or nil when the entity
// relies on generated identifiers.
func (e *Entity) IDAttribute() *Attribute {
	for i := range e.Attributes {
		if e.Attributes[i].ID {
			return &e.Attributes[i]
		}
	}
	return nil
}

// WriteOnlySet returns the names of attributes that must never appear in
// read results.
func (e *Entity) WriteOnlySet() map[string]struct{} {
	out := map[string]struct{}{}
	for _, a := range e.Attributes {
		if a.WriteOnly {
			out[a.Name] = struct{}{}
		}
	}
	return out
}

// FullTextAttributes resolves the FTS attribute list, expanding "*" to all
// string attributes. An empty result means the entity is not searchable.
func (e *Entity) FullTextAttributes() []string {
	if len(e.FullTextAttrs) == 0 {
		return nil
	}
	if len(e.FullTextAttrs) == 1 && e.FullTextAttrs[0] == "*" {
		var out []string
		for _, a := range e.Attributes {
			if a.Type == TypeString && !a.WriteOnly {
				out = append(out, a.Name)
			}
		}
		return out
	}
	return append([]string(nil), e.FullTextAttrs...)
}

// HasParent reports whether the entity is the child side of a contains
// relationship and therefore carries the __parent__ column.
func (e *Entity) HasParent() bool {
	return e.ContainedIn != ""
}
