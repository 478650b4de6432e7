package resolver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/entigraph/entigraph-go-core/internal/schema"
)

func TestMapToInstanceStripsWriteOnlyAttributes(t *testing.T) {
	ent := &schema.Entity{
		Module: "acme", Name: "Account",
		Attributes: []schema.Attribute{
			{Name: "login", Type: schema.TypeString},
			{Name: "password", Type: schema.TypeString, WriteOnly: true},
		},
	}
	inst := mapToInstance(ent, map[string]any{
		"__path__": "acme$Account/1",
		"login":    "ada",
		"password": "hunter2",
	})
	_, hasPassword := inst.Attribute("password")
	require.False(t, hasPassword)
	login, _ := inst.Attribute("login")
	require.Equal(t, "ada", login)
	require.Equal(t, "acme$Account/1", inst.Path())
}

func TestMapToInstanceDecodesObjectColumns(t *testing.T) {
	ent := &schema.Entity{
		Module: "acme", Name: "Person",
		Attributes: []schema.Attribute{
			{Name: "address", Type: schema.TypeObject},
		},
	}
	inst := mapToInstance(ent, map[string]any{
		"address": `{"city":"London","zip":"N1"}`,
	})
	addr, _ := inst.Attribute("address")
	require.Equal(t, map[string]any{"city": "London", "zip": "N1"}, addr)
}

func TestMapToInstanceRestoresDeclaredCasing(t *testing.T) {
	ent := &schema.Entity{
		Module: "acme", Name: "Person",
		Attributes: []schema.Attribute{
			{Name: "firstName", Type: schema.TypeString},
		},
	}
	inst := mapToInstance(ent, map[string]any{"firstname": "Ada"})
	v, ok := inst.Attribute("firstName")
	require.True(t, ok)
	require.Equal(t, "Ada", v)
}

func TestMapToInstancePassesUnknownColumnsThrough(t *testing.T) {
	ent := &schema.Entity{Module: "acme", Name: "Person"}
	inst := mapToInstance(ent, map[string]any{
		"haspassport":    "acme$Passport/N1",
		"__is_deleted__": false,
	})
	ptr, _ := inst.Attribute("haspassport")
	require.Equal(t, "acme$Passport/N1", ptr)
}
