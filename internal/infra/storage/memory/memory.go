package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/storage"
)

// OperationRepo is an in-process journal; entries are lost on exit.
type OperationRepo struct {
	mu     sync.RWMutex
	byID   map[string]*domain.Operation
	byHash map[common.Hash]string
}

func NewOperationRepo() *OperationRepo {
	return &OperationRepo{
		byID:   make(map[string]*domain.Operation),
		byHash: make(map[common.Hash]string),
	}
}

func (r *OperationRepo) Save(_ context.Context, op *domain.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *op
	r.byID[op.ID] = &cp
	if op.UserOpHash != (common.Hash{}) {
		r.byHash[op.UserOpHash] = op.ID
	}
	return nil
}

func (r *OperationRepo) GetByHash(_ context.Context, hash common.Hash) (*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byHash[hash]
	if !ok {
		return nil, storage.ErrOperationNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *OperationRepo) UpdateStatus(_ context.Context, hash common.Hash, u storage.StatusUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byHash[hash]
	if !ok {
		return storage.ErrOperationNotFound
	}
	op := r.byID[id]
	op.Status = u.Status
	op.TxHash = u.TxHash
	op.Error = u.Error
	op.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *OperationRepo) List(_ context.Context, limit int) ([]*domain.Operation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ops := make([]*domain.Operation, 0, len(r.byID))
	for _, op := range r.byID {
		cp := *op
		ops = append(ops, &cp)
	}
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].CreatedAt.Equal(ops[j].CreatedAt) {
			return ops[i].ID > ops[j].ID
		}
		return ops[i].CreatedAt.After(ops[j].CreatedAt)
	})
	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}
	return ops, nil
}

func (r *OperationRepo) Close() error { return nil }

var _ storage.OperationRepository = (*OperationRepo)(nil)
