// Package paths allocates and parses the canonical path strings that
// identify entity instances. A path encodes the full containment chain:
//
//	acme$Person/101
//	acme$Department/D1/acme$Team/T1/acme$Member/M1
//
// The first segment joins module and entity name with the module separator;
// subsequent segments alternate escaped fully qualified names and
// identifier values. Paths are append-only: a persisted path is never
// mutated.
package paths

import (
	"strings"

	"github.com/google/uuid"

	"github.com/entigraph/entigraph-go-core/internal/schema"
)

// Separator splits path segments.
const Separator = "/"

// Escape rewrites a fully qualified name (Module/Name) into a single path
// segment by replacing the separator with the module separator.
func Escape(fq string) string {
	return strings.ReplaceAll(fq, schema.FqSeparator, schema.ModuleSeparator)
}

// Unescape reverses Escape, yielding the fully qualified name.
func Unescape(segment string) string {
	return strings.ReplaceAll(segment, schema.ModuleSeparator, schema.FqSeparator)
}

// New computes the path for a new instance. id is the declared identifier
// value when the entity has one, otherwise pass "" and a random UUID is
// allocated. parentPath is non-empty only for a contained child, in which
// case the new path extends it.
func New(module, name, id, parentPath string) string {
	if id == "" {
		id = uuid.NewString()
	}
	if parentPath != "" {
		return parentPath + Separator + Escape(module+schema.FqSeparator+name) + Separator + id
	}
	return module + schema.ModuleSeparator + name + Separator + id
}

// Segment is one (entity, id) element of a parsed path.
type Segment struct {
	EntityFq string
	ID       string
}

// Split parses a path back into its containment chain, outermost first.
// A malformed path (odd number of elements) yields a best-effort prefix.
func Split(p string) []Segment {
	parts := strings.Split(p, Separator)
	var out []Segment
	for i := 0; i+1 < len(parts); i += 2 {
		out = append(out, Segment{EntityFq: Unescape(parts[i]), ID: parts[i+1]})
	}
	return out
}

// Parent is one ancestor yielded by ParentChain.
type Parent struct {
	EntityFq string
	Path     string
}

// ParentChain strips the trailing (segment, id) pair repeatedly, yielding
// each ancestor nearest-first. The result is empty for a root path.
func ParentChain(p string) []Parent {
	parts := strings.Split(p, Separator)
	var out []Parent
	for len(parts) > 2 {
		parts = parts[:len(parts)-2]
		out = append(out, Parent{
			EntityFq: Unescape(parts[len(parts)-2]),
			Path:     strings.Join(parts, Separator),
		})
	}
	return out
}

// IsDescendant reports whether child lies strictly under parent.
func IsDescendant(child, parent string) bool {
	return strings.HasPrefix(child, parent+Separator) && len(child) > len(parent)+1
}
