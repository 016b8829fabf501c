package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/vietddude/userop/internal/core/config"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/core/noncekey"
	redisclient "github.com/vietddude/userop/internal/infra/redis"
	"github.com/vietddude/userop/internal/infra/storage"
	"github.com/vietddude/userop/internal/infra/storage/memory"
	"github.com/vietddude/userop/internal/infra/storage/postgres"
)

// ErrEphemeralJournal is returned by commands that read back the journal
// when it only lives for the current process.
var ErrEphemeralJournal = errors.New("journal backend is memory: entries do not outlive a single command, configure postgres or redis")

// openPersistentJournal opens the journal for commands that read entries
// written by an earlier run.
func openPersistentJournal(ctx context.Context, cfg config.JournalConfig) (storage.OperationRepository, error) {
	if cfg.Backend == config.JournalMemory || cfg.Backend == "" {
		return nil, ErrEphemeralJournal
	}
	return openJournal(ctx, cfg)
}

// openJournal opens the configured journal backend.
func openJournal(ctx context.Context, cfg config.JournalConfig) (storage.OperationRepository, error) {
	switch cfg.Backend {
	case config.JournalMemory, "":
		return memory.NewOperationRepo(), nil
	case config.JournalPostgres:
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return postgres.NewOperationRepo(db), nil
	case config.JournalRedis:
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return redisclient.NewOperationRepo(client), nil
	default:
		return nil, fmt.Errorf("unknown journal backend %q", cfg.Backend)
	}
}

// newOperation builds the journal entry for one submission attempt.
func newOperation(acct domain.Account, chain domain.Chain, validator *common.Address, hash common.Hash, sendErr error) *domain.Operation {
	now := time.Now().UTC()
	op := &domain.Operation{
		ID:          uuid.NewString(),
		Account:     acct.Address,
		AccountType: acct.Type,
		ChainID:     chain.ID,
		NonceKey:    noncekey.Resolve(acct.Type, validator).Hex(),
		UserOpHash:  hash,
		Status:      domain.OperationStatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if sendErr != nil {
		op.Status = domain.OperationStatusError
		op.Error = sendErr.Error()
	}
	return op
}

// record saves op, logging instead of failing: the operation is already
// with the bundler.
func record(ctx context.Context, repo storage.OperationRepository, op *domain.Operation) {
	if err := repo.Save(ctx, op); err != nil {
		slog.Warn("Failed to record operation", "user_op_hash", op.UserOpHash.Hex(), "error", err)
	}
}
