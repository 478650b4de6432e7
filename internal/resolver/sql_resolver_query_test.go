package resolver

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/query"
	"github.com/entigraph/entigraph-go-core/internal/schema"
	"github.com/entigraph/entigraph-go-core/internal/vector"
)

// fakeVectors records searches and answers them from a canned hit list.
type fakeVectors struct {
	hits      []string
	lastLimit int
	lastOwner *vector.OwnerScope
	searches  int
}

func (f *fakeVectors) IsSupported() bool { return true }

func (f *fakeVectors) AddEmbedding(context.Context, *schema.Entity, string, []float32, string) error {
	return nil
}

func (f *fakeVectors) Search(_ context.Context, _ *schema.Entity, _ []float32, _ string, limit int, owner *vector.OwnerScope) ([]string, error) {
	f.searches++
	f.lastLimit = limit
	f.lastOwner = owner
	return f.hits, nil
}

func (f *fakeVectors) Exists(context.Context, *schema.Entity, string) (bool, error) {
	return false, nil
}

func (f *fakeVectors) Delete(context.Context, *schema.Entity, string) error { return nil }

func personRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"__path__", "code", "name", "age", "__tenant__", "__is_deleted__"}).
		AddRow("acme$Person/P1", "P1", "Ada", int64(36), "kernel", false)
}

func TestQueryInstancesMapsRows(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT "acme_person"\.\* FROM "acme_person" WHERE "acme_person"\."age" > \$1 AND "acme_person"\."__is_deleted__" = \$2 AND "acme_person"\."__tenant__" = \$3`).
		WithArgs(30, false, "kernel").
		WillReturnRows(personRows())

	inst := instance.New("acme", "Person").AddQuery("age", ">", 30)
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryInstances(dbc, inst, false, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "acme$Person/P1", out[0].Path())
	name, _ := out[0].Attribute("name")
	require.Equal(t, "Ada", name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryInstancesQueryAllIgnoresPredicates(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT "acme_person"\.\* FROM "acme_person" WHERE "acme_person"\."__is_deleted__" = \$1 AND "acme_person"\."__tenant__" = \$2`).
		WithArgs(false, "kernel").
		WillReturnRows(personRows())

	inst := instance.New("acme", "Person").AddQuery("age", ">", 30)
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryInstances(dbc, inst, true, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryInstancesScopedReaderGetsOwnersJoin(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT 1 FROM "role_assignments".*rp.r = true`).
		WithArgs("U1", "acme/Person").
		WillReturnRows(roleDenied())
	mock.ExpectQuery(`INNER JOIN "acme_person_owners" ON "acme_person_owners"\.path = "acme_person"\."__path__" AND "acme_person_owners"\.user_id = \$1 AND "acme_person_owners"\.r = true`).
		WithArgs("U1", false, "T1").
		WillReturnRows(personRows())

	inst := instance.New("acme", "Person")
	out, err := r.QueryInstances(userCtx("T1"), inst, true, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryInstancesVectorPredicateFusesByPath(t *testing.T) {
	vec := &fakeVectors{hits: []string{"acme$Person/P1", "acme$Person/P2"}}
	r, mock := newTestResolver(t, vec)

	mock.ExpectQuery(`"acme_person"\."__path__" IN \(\$1, \$2\)`).
		WithArgs("acme$Person/P1", "acme$Person/P2", false, "kernel").
		WillReturnRows(personRows())

	inst := instance.New("acme", "Person").AddQuery("name?", "=", "database pioneer")
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryInstances(dbc, inst, false, false)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, 1, vec.searches)
	require.Equal(t, defaultSearchLimit, vec.lastLimit)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryInstancesVectorMissSkipsSql(t *testing.T) {
	vec := &fakeVectors{hits: nil}
	r, mock := newTestResolver(t, vec)

	inst := instance.New("acme", "Person").AddQuery("name?", "=", "no such text")
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryInstances(dbc, inst, false, false)
	require.NoError(t, err)
	require.Nil(t, out)
	require.Equal(t, 1, vec.searches)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryChildInstancesRestrictsByParentPath(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT "acme_team"\.\* FROM "acme_team" WHERE "acme_team"\."__path__" LIKE \$1`).
		WithArgs("acme$Department/D1/%", false, "kernel").
		WillReturnRows(sqlmock.NewRows([]string{"__path__", "name"}).
			AddRow("acme$Department/D1/acme$Team/T1", "Core"))

	inst := instance.New("acme", "Team")
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryChildInstances(dbc, "acme$Department/D1", inst)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "acme$Department/D1/acme$Team/T1", out[0].Path())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryChildInstancesRequiresParentPath(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	dbc := common.KernelContext(context.Background())
	_, err := r.QueryChildInstances(dbc, "", instance.New("acme", "Team"))
	require.Error(t, err)
	require.True(t, common.IsInvalidArgument(err))
}

func TestQueryConnectedInstancesOneToOne(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT "acme_passport"\.\* FROM "acme_passport" WHERE "acme_passport"\."haspassport" = \$1`).
		WithArgs("acme$Person/P1", false, "kernel").
		WillReturnRows(sqlmock.NewRows([]string{"__path__", "number"}).
			AddRow("acme$Passport/N1", "X123"))

	connected := instance.New("acme", "Person").SetPath("acme$Person/P1")
	inst := instance.New("acme", "Passport")
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryConnectedInstances(dbc, "acme/HasPassport", connected, inst)
	require.NoError(t, err)
	require.Len(t, out, 1)
	number, _ := out[0].Attribute("number")
	require.Equal(t, "X123", number)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryConnectedInstancesBetweenJoinsLinkTable(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`INNER JOIN "acme_worksin" ON \(\("acme_worksin"\."a1" = \$1 AND .*`).
		WithArgs("acme$Person/P1", "acme$Person/P1", false, "kernel", false, "kernel").
		WillReturnRows(sqlmock.NewRows([]string{"__path__", "name"}).
			AddRow("acme$Team/T1", "Core"))

	connected := instance.New("acme", "Person").SetPath("acme$Person/P1")
	inst := instance.New("acme", "Team")
	dbc := common.KernelContext(context.Background())
	out, err := r.QueryConnectedInstances(dbc, "acme/WorksIn", connected, inst)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryConnectedInstancesRejectsContains(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	connected := instance.New("acme", "Department").SetPath("acme$Department/D1")
	dbc := common.KernelContext(context.Background())
	_, err := r.QueryConnectedInstances(dbc, "acme/DeptTeams", connected, instance.New("acme", "Team"))
	require.Error(t, err)
	require.True(t, common.IsUnsupportedRelationshipForJoin(err))
}

func TestQueryByJoinRequiresProjection(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	dbc := common.KernelContext(context.Background())
	_, err := r.QueryByJoin(dbc, instance.New("acme", "Person"), QueryByJoinRequest{})
	require.Error(t, err)
	require.True(t, common.IsMissingProjection(err))
}

func TestQueryByJoinPlansRelationshipJoins(t *testing.T) {
	r, mock := newTestResolver(t, nil)

	mock.ExpectQuery(`SELECT "acme_team"\."name" AS "teamName" FROM "acme_department" INNER JOIN "acme_team" ON "acme_team"\."__parent__" = "acme_department"\."__path__"`).
		WithArgs(false, "kernel", false, "kernel").
		WillReturnRows(sqlmock.NewRows([]string{"teamName"}).AddRow("Core").AddRow("Platform"))

	inst := instance.New("acme", "Department")
	dbc := common.KernelContext(context.Background())
	rows, err := r.QueryByJoin(dbc, inst, QueryByJoinRequest{
		JoinInfo: []*query.JoinInfo{{Relationship: "acme/DeptTeams"}},
		Into:     map[string]string{"teamName": `"acme_team"."name"`},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Core", rows[0]["teamName"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryByJoinRejectsForeignRawJoinReference(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	dbc := common.KernelContext(context.Background())
	_, err := r.QueryByJoin(dbc, instance.New("acme", "Person"), QueryByJoinRequest{
		Into:     map[string]string{"x": `"audit_log"."id"`},
		RawJoins: []query.RawJoinSpec{{Table: "audit_log", Column: "subject", Rhs: "Team.__path__"}},
	})
	require.Error(t, err)
	require.True(t, common.IsInvalidJoinReference(err))
}

func TestFullTextSearchDefaultsLimit(t *testing.T) {
	vec := &fakeVectors{hits: []string{"acme$Person/P1"}}
	r, _ := newTestResolver(t, vec)

	dbc := common.KernelContext(context.Background())
	paths, err := r.FullTextSearch(dbc, "acme", "Person", "pioneer", SearchOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"acme$Person/P1"}, paths)
	require.Equal(t, defaultSearchLimit, vec.lastLimit)
	require.Nil(t, vec.lastOwner)
}

func TestFullTextSearchDisabledAdapterReturnsNothing(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	dbc := common.KernelContext(context.Background())
	paths, err := r.FullTextSearch(dbc, "acme", "Person", "pioneer", SearchOptions{})
	require.NoError(t, err)
	require.Nil(t, paths)
}

func TestFullTextSearchUnknownEntity(t *testing.T) {
	r, _ := newTestResolver(t, nil)
	dbc := common.KernelContext(context.Background())
	_, err := r.FullTextSearch(dbc, "acme", "Ghost", "q", SearchOptions{})
	require.Error(t, err)
	require.True(t, common.IsErrNotFound(err))
}
