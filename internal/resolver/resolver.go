// Package resolver implements the CRUD contract callers invoke. It
// orchestrates permission checks, path allocation, embedding indexing and
// row ownership around the query builder, and routes every statement
// through the transaction manager's session when a transaction is active.
package resolver

import (
	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
	"github.com/entigraph/entigraph-go-core/internal/query"
)

// Capability names one operation of the resolver contract.
type Capability string

const (
	CapCreate         Capability = "create"
	CapUpsert         Capability = "upsert"
	CapUpdate         Capability = "update"
	CapQuery          Capability = "query"
	CapQueryChildren  Capability = "queryChildren"
	CapQueryConnected Capability = "queryConnected"
	CapQueryByJoin    Capability = "queryByJoin"
	CapDelete         Capability = "delete"
	CapLink           Capability = "link"
	CapFtSearch       Capability = "ftSearch"
	CapStartTxn       Capability = "startTxn"
	CapCommitTxn      Capability = "commitTxn"
	CapRollbackTxn    Capability = "rollbackTxn"
)

// LinkOptions modifies HandleInstancesLink. OrUpdate replaces an existing
// between-link before inserting; InDeleteMode removes the association
// instead of creating it.
type LinkOptions struct {
	OrUpdate     bool
	InDeleteMode bool
}

// QueryByJoinRequest is the input of the most expressive read path. Either
// JoinInfo (derived from relationship metadata) or RawJoins (explicit table
// and columns) drives the join shape; Into is the required projection.
type QueryByJoinRequest struct {
	JoinInfo     []*query.JoinInfo
	RawJoins     []query.RawJoinSpec
	Into         map[string]string
	WhereClauses []query.Where
	Distinct     bool
}

// SearchOptions tunes FullTextSearch. A zero limit defaults to 5.
type SearchOptions struct {
	Limit int
}

// Resolver is the persistence contract. All operations take the explicit
// database context and suspend on the underlying session.
type Resolver interface {
	CreateInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error)
	UpsertInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error)
	UpdateInstance(dbc *common.DbContext, inst *instance.Instance, newAttrs map[string]any) (*instance.Instance, error)
	QueryInstances(dbc *common.DbContext, inst *instance.Instance, queryAll, distinct bool) ([]*instance.Instance, error)
	QueryChildInstances(dbc *common.DbContext, parentPath string, inst *instance.Instance) ([]*instance.Instance, error)
	QueryConnectedInstances(dbc *common.DbContext, relationshipFq string, connected, inst *instance.Instance) ([]*instance.Instance, error)
	QueryByJoin(dbc *common.DbContext, inst *instance.Instance, req QueryByJoinRequest) ([]map[string]any, error)
	DeleteInstance(dbc *common.DbContext, target *instance.Instance, purge bool) (*instance.Instance, error)
	HandleInstancesLink(dbc *common.DbContext, node1, other *instance.Instance, relationshipFq string, opts LinkOptions) (*instance.Instance, error)
	FullTextSearch(dbc *common.DbContext, module, entity, queryText string, opts SearchOptions) ([]string, error)
	StartTransaction(dbc *common.DbContext) (string, error)
	CommitTransaction(dbc *common.DbContext, txnID string) (string, error)
	RollbackTransaction(dbc *common.DbContext, txnID string) (string, error)
	Capabilities() []Capability
}
