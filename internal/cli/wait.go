package cli

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/bundler"
	"github.com/vietddude/userop/internal/infra/storage"
)

// ErrReceiptTimeout is returned when an operation is still pending at the
// deadline.
var ErrReceiptTimeout = errors.New("timed out waiting for user operation receipt")

type receiptGetter interface {
	GetUserOperationReceipt(ctx context.Context, hash common.Hash) (*bundler.Receipt, error)
}

type pollConfig struct {
	Timeout  time.Duration
	Interval time.Duration
	MaxDelay time.Duration
}

var defaultPoll = pollConfig{
	Timeout:  2 * time.Minute,
	Interval: time.Second,
	MaxDelay: 15 * time.Second,
}

// waitForReceipt polls until the bundler reports the operation included,
// doubling the interval up to MaxDelay.
func waitForReceipt(ctx context.Context, b receiptGetter, hash common.Hash, cfg pollConfig) (*bundler.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	delay := cfg.Interval
	for {
		r, err := b.GetUserOperationReceipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}

		slog.Debug("User operation pending", "user_op_hash", hash.Hex(), "retry_in", delay)
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return nil, ErrReceiptTimeout
			}
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}

// receiptUpdate maps a receipt to the journal outcome.
func receiptUpdate(r *bundler.Receipt) storage.StatusUpdate {
	u := storage.StatusUpdate{
		Status: domain.OperationStatusIncluded,
		TxHash: r.Receipt.TransactionHash,
	}
	if !r.Success {
		u.Status = domain.OperationStatusReverted
		u.Error = r.Reason
		if u.Error == "" {
			u.Error = "execution reverted"
		}
	}
	return u
}
