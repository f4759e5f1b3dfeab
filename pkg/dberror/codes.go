package dberror

import "errors"

// Error codes used by the storage core.
const (
	CodeTransactionAborted = "TRANSACTION_ABORTED"
	CodeDeadlock           = "DEADLOCK_DETECTED"
	CodeEvictionExhausted  = "EVICTION_EXHAUSTED"
	CodeUnknownPage        = "UNKNOWN_PAGE"
	CodeUnknownTable       = "UNKNOWN_TABLE"
	CodePageCorrupted      = "PAGE_CORRUPTED"
	CodePageFull           = "PAGE_FULL"
	CodeRecordNotFound     = "RECORD_NOT_FOUND"
	CodeLogCorrupted       = "LOG_CORRUPTED"
	CodeTxnNotFound        = "TRANSACTION_NOT_FOUND"
	CodeTxnNotActive       = "TRANSACTION_NOT_ACTIVE"
	CodeIO                 = "IO_ERROR"
)

// Sentinels for errors.Is. Every DBError carrying the same Code matches its
// sentinel, so call sites can attach Detail/Operation freely.
var (
	// ErrTransactionAborted means a lock could not be acquired in time and the
	// caller must roll the transaction back.
	ErrTransactionAborted = New(ErrCategoryConcurrency, CodeTransactionAborted, "transaction must abort")

	// ErrDeadlock is reported when a wait-for cycle is found. It also matches
	// ErrTransactionAborted.
	ErrDeadlock = New(ErrCategoryConcurrency, CodeDeadlock, "deadlock detected")

	// ErrEvictionExhausted means the pool is full and every resident page is dirty.
	ErrEvictionExhausted = New(ErrCategoryTransient, CodeEvictionExhausted, "no clean page to evict")

	ErrUnknownPage    = New(ErrCategoryData, CodeUnknownPage, "page does not exist")
	ErrUnknownTable   = New(ErrCategoryUser, CodeUnknownTable, "table does not exist")
	ErrPageCorrupted  = New(ErrCategoryData, CodePageCorrupted, "page checksum mismatch")
	ErrPageFull       = New(ErrCategoryUser, CodePageFull, "no room for record on page")
	ErrRecordNotFound = New(ErrCategoryUser, CodeRecordNotFound, "record does not exist")
	ErrLogCorrupted   = New(ErrCategoryData, CodeLogCorrupted, "log frame checksum mismatch")
	ErrTxnNotFound    = New(ErrCategoryUser, CodeTxnNotFound, "transaction not found")
	ErrTxnNotActive   = New(ErrCategoryUser, CodeTxnNotActive, "transaction is not active")
)

// Is reports whether target is a DBError with the same code. A deadlock is
// also a transaction abort.
func (e *DBError) Is(target error) bool {
	var t *DBError
	if !errors.As(target, &t) || t == nil {
		return false
	}
	if e.Code == t.Code {
		return true
	}
	return e.Code == CodeDeadlock && t.Code == CodeTransactionAborted
}

// IsAbort reports whether err tells the caller to abort its transaction.
func IsAbort(err error) bool {
	return errors.Is(err, ErrTransactionAborted)
}

// Detailed returns a copy of sentinel with detail, operation and component set
// and a fresh stack.
func Detailed(sentinel *DBError, detail, operation, component string) *DBError {
	err := New(sentinel.Category, sentinel.Code, sentinel.Message)
	err.Detail = detail
	err.Operation = operation
	err.Component = component
	return err
}
