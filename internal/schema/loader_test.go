package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleSchema = `
entities:
  - module: acme
    name: Department
    attributes:
      - name: code
        type: String
        id: true
      - name: budget
        type: Float
  - module: acme
    name: Team
    attributes:
      - name: name
        type: String
        fullText: true
    fullTextAttrs: ["name"]
relationships:
  - module: acme
    name: DeptTeams
    kind: contains
    from: acme/Department
    to: acme/Team
rbac:
  - entity: acme/Department
    role: finance
    allow: [read, update]
`

func TestParseDocumentPopulatesCatalog(t *testing.T) {
	cat, err := ParseDocument([]byte(sampleSchema))
	require.NoError(t, err)

	dept, ok := cat.LookupEntity("acme/Department")
	require.True(t, ok)
	require.Equal(t, "code", dept.IDAttribute().Name)

	team, ok := cat.LookupEntity("acme/Team")
	require.True(t, ok)
	require.True(t, team.HasParent())
	require.Equal(t, []string{"name"}, team.FullTextAttributes())

	rel, ok := cat.LookupRelationship("acme/DeptTeams")
	require.True(t, ok)
	require.Equal(t, Contains, rel.Kind)

	rules := cat.RbacRulesFor("acme/Department")
	require.Len(t, rules, 1)
	require.True(t, rules[0].Allows(OpRead))
	require.False(t, rules[0].Allows(OpDelete))
}

func TestParseDocumentRejectsMissingFields(t *testing.T) {
	_, err := ParseDocument([]byte("entities:\n  - module: acme\n"))
	require.Error(t, err)
}

func TestParseDocumentRejectsBadYaml(t *testing.T) {
	_, err := ParseDocument([]byte("entities: ["))
	require.Error(t, err)
}
