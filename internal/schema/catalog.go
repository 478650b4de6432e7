package schema

// RbacSpec grants a role a set of operations on one entity.
type RbacSpec struct {
	Entity string      `yaml:"entity" validate:"required"`
	Role   string      `yaml:"role" validate:"required"`
	Allow  []Operation `yaml:"allow"`
}

// Allows reports whether the spec covers the given operation.
func (s RbacSpec) Allows(op Operation) bool {
	for _, a := range s.Allow {
		if a == op {
			return true
		}
	}
	return false
}

// Catalog holds the declared entities, relationships and RBAC specs keyed
// by fully qualified names. It is populated during schema load and treated
// as read-only afterwards.
type Catalog struct {
	entities      map[string]*Entity
	relationships map[string]*Relationship
	byEntity      map[string][]*Relationship
	rbac          map[string][]RbacSpec
}

func NewCatalog() *Catalog {
	return &Catalog{
		entities:      map[string]*Entity{},
		relationships: map[string]*Relationship{},
		byEntity:      map[string][]*Relationship{},
		rbac:          map[string][]RbacSpec{},
	}
}

// AddEntity registers an entity. Duplicate fully qualified names are an
// error because entities are immutable after load.
func (c *Catalog) AddEntity(e *Entity) error {
	fq := e.Fq()
	if _, ok := c.entities[fq]; ok {
		return errDuplicate("entity", fq)
	}
	c.entities[fq] = e
	return nil
}

// AddRelationship registers a relationship and indexes it under both
// endpoints. Between relationships also register their link table as an
// entity-shaped record so path allocation and purging work uniformly.
func (c *Catalog) AddRelationship(r *Relationship) error {
	fq := r.Fq()
	if _, ok := c.relationships[fq]; ok {
		return errDuplicate("relationship", fq)
	}
	c.relationships[fq] = r
	c.byEntity[r.From] = append(c.byEntity[r.From], r)
	if r.To != r.From {
		c.byEntity[r.To] = append(c.byEntity[r.To], r)
	}
	if r.Kind == Contains {
		if child, ok := c.entities[r.To]; ok {
			child.ContainedIn = r.From
		}
	}
	return nil
}

// AddRbac appends a grant to the entity's rule list.
func (c *Catalog) AddRbac(spec RbacSpec) {
	c.rbac[spec.Entity] = append(c.rbac[spec.Entity], spec)
}

// LookupEntity returns the entity registered under the fully qualified
// name.
func (c *Catalog) LookupEntity(fq string) (*Entity, bool) {
	e, ok := c.entities[fq]
	return e, ok
}

// LookupRelationship returns the relationship registered under the fully
// qualified name.
func (c *Catalog) LookupRelationship(fq string) (*Relationship, bool) {
	r, ok := c.relationships[fq]
	return r, ok
}

// ListRelationships returns all relationships with the entity as an
// endpoint.
func (c *Catalog) ListRelationships(entityFq string) []*Relationship {
	return c.byEntity[entityFq]
}

// OneToOneRelationshipsFor filters ListRelationships down to the one-to-one
// variant.
func (c *Catalog) OneToOneRelationshipsFor(entityFq string) []*Relationship {
	var out []*Relationship
	for _, r := range c.byEntity[entityFq] {
		if r.Kind == OneToOne {
			out = append(out, r)
		}
	}
	return out
}

// IsBetween reports whether the fully qualified name refers to a between
// relationship (whose instances live in a link table).
func (c *Catalog) IsBetween(fq string) bool {
	r, ok := c.relationships[fq]
	return ok && r.Kind == Between
}

// RbacRulesFor returns the declared grants for an entity.
func (c *Catalog) RbacRulesFor(entityFq string) []RbacSpec {
	return c.rbac[entityFq]
}

// AllRbacSpecs returns every declared grant across all entities.
func (c *Catalog) AllRbacSpecs() []RbacSpec {
	var out []RbacSpec
	for _, specs := range c.rbac {
		out = append(out, specs...)
	}
	return out
}

// AllEntities returns every declared entity.
func (c *Catalog) AllEntities() []*Entity {
	out := make([]*Entity, 0, len(c.entities))
	for _, e := range c.entities {
		out = append(out, e)
	}
	return out
}

// AllRelationships returns every declared relationship.
func (c *Catalog) AllRelationships() []*Relationship {
	out := make([]*Relationship, 0, len(c.relationships))
	for _, r := range c.relationships {
		out = append(out, r)
	}
	return out
}

// Flush discards the whole catalog. This is the only way declared entities
// are destroyed.
func (c *Catalog) Flush() {
	c.entities = map[string]*Entity{}
	c.relationships = map[string]*Relationship{}
	c.byEntity = map[string][]*Relationship{}
	c.rbac = map[string][]RbacSpec{}
}

type duplicateError struct{ kind, fq string }

func (e *duplicateError) Error() string {
	return "duplicate " + e.kind + ": " + e.fq
}

func errDuplicate(kind, fq string) error {
	return &duplicateError{kind: kind, fq: fq}
}
