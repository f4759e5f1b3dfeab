package logging

import (
	"storecore/pkg/primitives"

	"go.uber.org/zap"
)

// TxField is the structured field for a transaction ID.
func TxField(tid primitives.TransactionID) zap.Field {
	return zap.Int64("tx_id", tid.ID())
}

// PageFields are the structured fields for a page ID.
func PageFields(pid primitives.PageID) []zap.Field {
	return []zap.Field{
		zap.Uint64("table_id", uint64(pid.Table)),
		zap.Uint64("page_no", uint64(pid.Page)),
	}
}

// WithTx creates a logger with transaction context.
//
//	log := logging.WithTx(tid)
//	log.Info("commit finished", zap.Int("dirty_pages", n))
func WithTx(tid primitives.TransactionID) *zap.Logger {
	return GetLogger().With(TxField(tid))
}

// WithTable creates a logger with table context.
func WithTable(tableName string) *zap.Logger {
	return GetLogger().With(zap.String("table", tableName))
}

// WithPage creates a logger with page context.
// Useful for buffer pool and storage operations.
func WithPage(pid primitives.PageID) *zap.Logger {
	return GetLogger().With(PageFields(pid)...)
}

// WithLock creates a logger with lock context.
func WithLock(tid primitives.TransactionID, pid primitives.PageID) *zap.Logger {
	return GetLogger().With(append(PageFields(pid), TxField(tid))...)
}

// WithComponent creates a logger with component/subsystem context.
func WithComponent(component string) *zap.Logger {
	return GetLogger().With(zap.String("component", component))
}
