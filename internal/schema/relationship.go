package schema

import "strings"

// RelKind tags the relationship variant. The query planner branches on the
// tag; there is no dynamic dispatch.
type RelKind string

const (
	// Contains is strict parent/child containment. A child row's path is
	// prefixed by its parent's path.
	Contains RelKind = "contains"
	// OneToOne is materialized as one pointer column on each endpoint
	// table, holding the counterpart's path.
	OneToOne RelKind = "oneToOne"
	// Between is many-to-many, materialized as a link table with one row
	// per connection.
	Between RelKind = "between"
)

// Relationship is a declared association between two entity endpoints.
type Relationship struct {
	Module string  `yaml:"module" validate:"required"`
	Name   string  `yaml:"name" validate:"required"`
	Kind   RelKind `yaml:"kind" validate:"required,oneof=contains oneToOne between"`

	// From and To are fully qualified entity names. For contains, From is
	// the parent and To the child.
	From string `yaml:"from" validate:"required"`
	To   string `yaml:"to" validate:"required"`

	// FromAlias and ToAlias name the endpoint path columns of a between
	// table. They default to a1 and a2.
	FromAlias string `yaml:"fromAlias"`
	ToAlias   string `yaml:"toAlias"`
}

// Fq returns the fully qualified relationship name, Module/Name.
func (r *Relationship) Fq() string {
	return r.Module + FqSeparator + r.Name
}

// Aliases returns the endpoint column names of the between table, applying
// the a1/a2 defaults.
func (r *Relationship) Aliases() (from, to string) {
	from, to = r.FromAlias, r.ToAlias
	if from == "" {
		from = "a1"
	}
	if to == "" {
		to = "a2"
	}
	return from, to
}

// PointerColumn returns the name of the one-to-one pointer column stored on
// each endpoint table: the lowercased relationship name.
func (r *Relationship) PointerColumn() string {
	return strings.ToLower(r.Name)
}

// OtherEndpoint returns the endpoint opposite the given entity, and whether
// the entity is an endpoint at all.
func (r *Relationship) OtherEndpoint(entityFq string) (string, bool) {
	switch entityFq {
	case r.From:
		return r.To, true
	case r.To:
		return r.From, true
	}
	return "", false
}
