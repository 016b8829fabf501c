package storage

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/core/domain"
)

var (
	// ErrOperationNotFound is returned when no journal entry matches.
	ErrOperationNotFound = errors.New("operation not found")
)

// OperationRepository is the journal of submitted user operations.
type OperationRepository interface {
	// Save inserts op, or replaces the entry with the same ID
	Save(ctx context.Context, op *domain.Operation) error

	// GetByHash retrieves an operation by user operation hash
	GetByHash(ctx context.Context, userOpHash common.Hash) (*domain.Operation, error)

	// UpdateStatus records the outcome of an operation
	UpdateStatus(ctx context.Context, userOpHash common.Hash, update StatusUpdate) error

	// List returns up to limit operations, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*domain.Operation, error)

	// Close releases the backend
	Close() error
}

// StatusUpdate is the outcome recorded for an operation.
type StatusUpdate struct {
	Status domain.OperationStatus
	TxHash common.Hash
	Error  string
}
