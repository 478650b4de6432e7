package resolver

import (
	"errors"

	"github.com/entigraph/entigraph-go-core/internal/common"
	"github.com/entigraph/entigraph-go-core/internal/instance"
)

// ErrCapabilityNotSupported is returned by a CallbackResolver operation
// with no registered handler.
var ErrCapabilityNotSupported = errors.New("resolver capability not supported")

// CallbackResolver routes each operation to a user-supplied function,
// letting callers back entities with arbitrary external systems. Nil
// handlers report the capability as unsupported.
type CallbackResolver struct {
	OnCreate         func(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error)
	OnUpsert         func(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error)
	OnUpdate         func(dbc *common.DbContext, inst *instance.Instance, newAttrs map[string]any) (*instance.Instance, error)
	OnQuery          func(dbc *common.DbContext, inst *instance.Instance, queryAll, distinct bool) ([]*instance.Instance, error)
	OnQueryChildren  func(dbc *common.DbContext, parentPath string, inst *instance.Instance) ([]*instance.Instance, error)
	OnQueryConnected func(dbc *common.DbContext, relationshipFq string, connected, inst *instance.Instance) ([]*instance.Instance, error)
	OnQueryByJoin    func(dbc *common.DbContext, inst *instance.Instance, req QueryByJoinRequest) ([]map[string]any, error)
	OnDelete         func(dbc *common.DbContext, target *instance.Instance, purge bool) (*instance.Instance, error)
	OnLink           func(dbc *common.DbContext, node1, other *instance.Instance, relationshipFq string, opts LinkOptions) (*instance.Instance, error)
	OnFtSearch       func(dbc *common.DbContext, module, entity, queryText string, opts SearchOptions) ([]string, error)
	OnStartTxn       func(dbc *common.DbContext) (string, error)
	OnCommitTxn      func(dbc *common.DbContext, txnID string) (string, error)
	OnRollbackTxn    func(dbc *common.DbContext, txnID string) (string, error)
}

func (c *CallbackResolver) Capabilities() []Capability {
	var caps []Capability
	add := func(cap Capability, present bool) {
		if present {
			caps = append(caps, cap)
		}
	}
	add(CapCreate, c.OnCreate != nil)
	add(CapUpsert, c.OnUpsert != nil)
	add(CapUpdate, c.OnUpdate != nil)
	add(CapQuery, c.OnQuery != nil)
	add(CapQueryChildren, c.OnQueryChildren != nil)
	add(CapQueryConnected, c.OnQueryConnected != nil)
	add(CapQueryByJoin, c.OnQueryByJoin != nil)
	add(CapDelete, c.OnDelete != nil)
	add(CapLink, c.OnLink != nil)
	add(CapFtSearch, c.OnFtSearch != nil)
	add(CapStartTxn, c.OnStartTxn != nil)
	add(CapCommitTxn, c.OnCommitTxn != nil)
	add(CapRollbackTxn, c.OnRollbackTxn != nil)
	return caps
}

func (c *CallbackResolver) CreateInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error) {
	if c.OnCreate == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnCreate(dbc, inst)
}

func (c *CallbackResolver) UpsertInstance(dbc *common.DbContext, inst *instance.Instance) (*instance.Instance, error) {
	if c.OnUpsert == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnUpsert(dbc, inst)
}

func (c *CallbackResolver) UpdateInstance(dbc *common.DbContext, inst *instance.Instance, newAttrs map[string]any) (*instance.Instance, error) {
	if c.OnUpdate == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnUpdate(dbc, inst, newAttrs)
}

func (c *CallbackResolver) QueryInstances(dbc *common.DbContext, inst *instance.Instance, queryAll, distinct bool) ([]*instance.Instance, error) {
	if c.OnQuery == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnQuery(dbc, inst, queryAll, distinct)
}

func (c *CallbackResolver) QueryChildInstances(dbc *common.DbContext, parentPath string, inst *instance.Instance) ([]*instance.Instance, error) {
	if c.OnQueryChildren == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnQueryChildren(dbc, parentPath, inst)
}

func (c *CallbackResolver) QueryConnectedInstances(dbc *common.DbContext, relationshipFq string, connected, inst *instance.Instance) ([]*instance.Instance, error) {
	if c.OnQueryConnected == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnQueryConnected(dbc, relationshipFq, connected, inst)
}

func (c *CallbackResolver) QueryByJoin(dbc *common.DbContext, inst *instance.Instance, req QueryByJoinRequest) ([]map[string]any, error) {
	if c.OnQueryByJoin == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnQueryByJoin(dbc, inst, req)
}

func (c *CallbackResolver) DeleteInstance(dbc *common.DbContext, target *instance.Instance, purge bool) (*instance.Instance, error) {
	if c.OnDelete == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnDelete(dbc, target, purge)
}

func (c *CallbackResolver) HandleInstancesLink(dbc *common.DbContext, node1, other *instance.Instance, relationshipFq string, opts LinkOptions) (*instance.Instance, error) {
	if c.OnLink == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnLink(dbc, node1, other, relationshipFq, opts)
}

func (c *CallbackResolver) FullTextSearch(dbc *common.DbContext, module, entity, queryText string, opts SearchOptions) ([]string, error) {
	if c.OnFtSearch == nil {
		return nil, ErrCapabilityNotSupported
	}
	return c.OnFtSearch(dbc, module, entity, queryText, opts)
}

func (c *CallbackResolver) StartTransaction(dbc *common.DbContext) (string, error) {
	if c.OnStartTxn == nil {
		return "", ErrCapabilityNotSupported
	}
	return c.OnStartTxn(dbc)
}

func (c *CallbackResolver) CommitTransaction(dbc *common.DbContext, txnID string) (string, error) {
	if c.OnCommitTxn == nil {
		return "", ErrCapabilityNotSupported
	}
	return c.OnCommitTxn(dbc, txnID)
}

func (c *CallbackResolver) RollbackTransaction(dbc *common.DbContext, txnID string) (string, error) {
	if c.OnRollbackTxn == nil {
		return "", ErrCapabilityNotSupported
	}
	return c.OnRollbackTxn(dbc, txnID)
}
