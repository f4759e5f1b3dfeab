package primitives

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter atomic.Int64

// TransactionID identifies one in-flight transaction. It is an immutable
// value and is used directly as a map key by the lock manager and the
// buffer pool.
type TransactionID struct {
	id int64
}

// NewTransactionID mints a process-unique transaction ID.
func NewTransactionID() TransactionID {
	return TransactionID{id: transactionCounter.Add(1)}
}

// NewTransactionIDFromValue creates a TransactionID with a specific ID value.
// This is primarily used when decoding log records.
func NewTransactionIDFromValue(id int64) TransactionID {
	return TransactionID{id: id}
}

func (tid TransactionID) ID() int64 {
	return tid.id
}

// IsZero reports whether tid is the zero value, which no transaction is ever assigned.
func (tid TransactionID) IsZero() bool {
	return tid.id == 0
}

func (tid TransactionID) String() string {
	return fmt.Sprintf("TID-%d", tid.id)
}
