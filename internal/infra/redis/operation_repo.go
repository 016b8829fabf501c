package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/storage"
)

// OperationRepo stores each operation as JSON under its ID, a hash -> ID
// lookup key, and a sorted set of IDs scored by creation time.
type OperationRepo struct {
	c *Client
}

// NewOperationRepo creates a Redis-backed operation journal.
func NewOperationRepo(c *Client) *OperationRepo {
	return &OperationRepo{c: c}
}

func (r *OperationRepo) Save(ctx context.Context, op *domain.Operation) error {
	data, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal operation: %w", err)
	}

	pipe := r.c.rdb.TxPipeline()
	pipe.Set(ctx, r.c.operationKey(op.ID), data, 0)
	pipe.ZAdd(ctx, r.c.indexKey(), redis.Z{Score: float64(op.CreatedAt.UnixNano()), Member: op.ID})
	if op.UserOpHash != (common.Hash{}) {
		pipe.Set(ctx, r.c.hashKey(op.UserOpHash.Hex()), op.ID, 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save operation: %w", err)
	}
	return nil
}

func (r *OperationRepo) load(ctx context.Context, id string) (*domain.Operation, error) {
	data, err := r.c.rdb.Get(ctx, r.c.operationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operation: %w", err)
	}
	var op domain.Operation
	if err := json.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("decode operation %s: %w", id, err)
	}
	return &op, nil
}

func (r *OperationRepo) GetByHash(ctx context.Context, hash common.Hash) (*domain.Operation, error) {
	id, err := r.c.rdb.Get(ctx, r.c.hashKey(hash.Hex())).Result()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get operation id: %w", err)
	}
	return r.load(ctx, id)
}

func (r *OperationRepo) UpdateStatus(ctx context.Context, hash common.Hash, u storage.StatusUpdate) error {
	op, err := r.GetByHash(ctx, hash)
	if err != nil {
		return err
	}
	op.Status = u.Status
	op.TxHash = u.TxHash
	op.Error = u.Error
	op.UpdatedAt = time.Now().UTC()
	return r.Save(ctx, op)
}

func (r *OperationRepo) List(ctx context.Context, limit int) ([]*domain.Operation, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	ids, err := r.c.rdb.ZRevRange(ctx, r.c.indexKey(), 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("zrevrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.c.operationKey(id)
	}
	vals, err := r.c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	ops := make([]*domain.Operation, 0, len(vals))
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			// Index entry without a body; skip it.
			continue
		}
		var op domain.Operation
		if err := json.Unmarshal([]byte(s), &op); err != nil {
			return nil, fmt.Errorf("decode operation %s: %w", ids[i], err)
		}
		ops = append(ops, &op)
	}
	return ops, nil
}

func (r *OperationRepo) Close() error {
	return r.c.Close()
}

var _ storage.OperationRepository = (*OperationRepo)(nil)
