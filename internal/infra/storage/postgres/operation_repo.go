package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/storage"
)

// OperationRepo implements storage.OperationRepository using PostgreSQL.
type OperationRepo struct {
	db *DB
}

// NewOperationRepo creates a new PostgreSQL operation repository.
func NewOperationRepo(db *DB) *OperationRepo {
	return &OperationRepo{db: db}
}

type operationRow struct {
	ID          string         `db:"id"`
	Account     string         `db:"account"`
	AccountType string         `db:"account_type"`
	ChainID     int64          `db:"chain_id"`
	NonceKey    string         `db:"nonce_key"`
	UserOpHash  sql.NullString `db:"user_op_hash"`
	TxHash      sql.NullString `db:"tx_hash"`
	Status      string         `db:"status"`
	Error       string         `db:"error"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func hashColumn(h common.Hash) sql.NullString {
	if h == (common.Hash{}) {
		return sql.NullString{}
	}
	return sql.NullString{String: h.Hex(), Valid: true}
}

func toRow(op *domain.Operation) operationRow {
	return operationRow{
		ID:          op.ID,
		Account:     op.Account.Hex(),
		AccountType: string(op.AccountType),
		ChainID:     int64(op.ChainID),
		NonceKey:    op.NonceKey,
		UserOpHash:  hashColumn(op.UserOpHash),
		TxHash:      hashColumn(op.TxHash),
		Status:      string(op.Status),
		Error:       op.Error,
		CreatedAt:   op.CreatedAt,
		UpdatedAt:   op.UpdatedAt,
	}
}

func (r operationRow) toDomain() *domain.Operation {
	op := &domain.Operation{
		ID:          r.ID,
		Account:     common.HexToAddress(r.Account),
		AccountType: domain.AccountType(r.AccountType),
		ChainID:     domain.ChainID(r.ChainID),
		NonceKey:    r.NonceKey,
		Status:      domain.OperationStatus(r.Status),
		Error:       r.Error,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.UserOpHash.Valid {
		op.UserOpHash = common.HexToHash(r.UserOpHash.String)
	}
	if r.TxHash.Valid {
		op.TxHash = common.HexToHash(r.TxHash.String)
	}
	return op
}

const selectOperation = `
	SELECT id, account, account_type, chain_id, nonce_key, user_op_hash, tx_hash,
		status, error, created_at, updated_at
	FROM user_operations`

// Save saves an operation to the database.
func (r *OperationRepo) Save(ctx context.Context, op *domain.Operation) error {
	query := `
		INSERT INTO user_operations (
			id, account, account_type, chain_id, nonce_key, user_op_hash, tx_hash,
			status, error, created_at, updated_at
		) VALUES (
			:id, :account, :account_type, :chain_id, :nonce_key, :user_op_hash, :tx_hash,
			:status, :error, :created_at, :updated_at
		)
		ON CONFLICT (id) DO UPDATE SET
			user_op_hash = EXCLUDED.user_op_hash,
			tx_hash = EXCLUDED.tx_hash,
			status = EXCLUDED.status,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.NamedExecContext(ctx, query, toRow(op)); err != nil {
		return fmt.Errorf("failed to save operation: %w", err)
	}
	return nil
}

// GetByHash retrieves an operation by user operation hash.
func (r *OperationRepo) GetByHash(ctx context.Context, hash common.Hash) (*domain.Operation, error) {
	var row operationRow
	err := r.db.GetContext(ctx, &row, selectOperation+` WHERE user_op_hash = $1`, hash.Hex())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrOperationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operation: %w", err)
	}
	return row.toDomain(), nil
}

// UpdateStatus records the outcome of an operation.
func (r *OperationRepo) UpdateStatus(ctx context.Context, hash common.Hash, u storage.StatusUpdate) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_operations
		SET status = $1, tx_hash = $2, error = $3, updated_at = NOW()
		WHERE user_op_hash = $4
	`, string(u.Status), hashColumn(u.TxHash), u.Error, hash.Hex())
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update operation: %w", err)
	}
	if n == 0 {
		return storage.ErrOperationNotFound
	}
	return nil
}

// List returns the newest operations first.
func (r *OperationRepo) List(ctx context.Context, limit int) ([]*domain.Operation, error) {
	var rows []operationRow
	var err error
	if limit > 0 {
		err = r.db.SelectContext(ctx, &rows, selectOperation+` ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	} else {
		err = r.db.SelectContext(ctx, &rows, selectOperation+` ORDER BY created_at DESC, id DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list operations: %w", err)
	}

	ops := make([]*domain.Operation, len(rows))
	for i, row := range rows {
		ops[i] = row.toDomain()
	}
	return ops, nil
}

// Close closes the database connection.
func (r *OperationRepo) Close() error {
	return r.db.Close()
}

var _ storage.OperationRepository = (*OperationRepo)(nil)
