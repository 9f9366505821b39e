// Package apperr defines the sentinel errors shared by the ledger,
// services and HTTP layer. Callers wrap them with fmt.Errorf("%w")
// and dispatch with errors.Is.
package apperr

import "errors"

// ErrValidation indicates a malformed or incomplete request. Caller's
// fault, never retried.
var ErrValidation = errors.New("validation failed")

// ErrInsufficientStock indicates a decrement that would drive a
// quantity below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrItemNotFound indicates an equipment reference that does not
// resolve in the source store.
var ErrItemNotFound = errors.New("equipment not found")

// ErrStoreNotFound indicates an unknown store key.
var ErrStoreNotFound = errors.New("store not found")

// ErrStoreUnreachable indicates a transient infrastructure fault
// talking to a store. The aggregator tolerates it by omission.
var ErrStoreUnreachable = errors.New("store unreachable")

// ErrReplication indicates a failed cross-store replication. Non-fatal:
// the source-side transaction stays committed.
var ErrReplication = errors.New("replication failed")
