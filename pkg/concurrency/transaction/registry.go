package transaction

import (
	"storecore/pkg/dberror"
	"storecore/pkg/primitives"

	"github.com/puzpuzpuz/xsync/v3"
)

// TransactionRegistry indexes live transactions by ID.
type TransactionRegistry struct {
	contexts *xsync.MapOf[primitives.TransactionID, *TransactionContext]
}

func NewTransactionRegistry() *TransactionRegistry {
	return &TransactionRegistry{
		contexts: xsync.NewMapOf[primitives.TransactionID, *TransactionContext](),
	}
}

// Register mints a transaction ID and records its context.
func (tr *TransactionRegistry) Register() *TransactionContext {
	ctx := NewTransactionContext(primitives.NewTransactionID())
	tr.contexts.Store(ctx.ID, ctx)
	return ctx
}

func (tr *TransactionRegistry) Get(tid primitives.TransactionID) (*TransactionContext, error) {
	ctx, ok := tr.contexts.Load(tid)
	if !ok {
		return nil, dberror.Detailed(dberror.ErrTxnNotFound, tid.String(), "Get", "TransactionRegistry")
	}
	return ctx, nil
}

func (tr *TransactionRegistry) Remove(tid primitives.TransactionID) {
	tr.contexts.Delete(tid)
}

// GetActive returns the contexts still in TxActive.
func (tr *TransactionRegistry) GetActive() []*TransactionContext {
	var active []*TransactionContext
	tr.contexts.Range(func(_ primitives.TransactionID, ctx *TransactionContext) bool {
		if ctx.IsActive() {
			active = append(active, ctx)
		}
		return true
	})
	return active
}

func (tr *TransactionRegistry) Count() int {
	return tr.contexts.Size()
}
