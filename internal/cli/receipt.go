package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/vietddude/userop/internal/infra/bundler"
	"github.com/vietddude/userop/internal/infra/storage"
)

var receiptFlags struct {
	chain   string
	timeout time.Duration
}

var receiptCmd = &cobra.Command{
	Use:   "receipt <user-op-hash>",
	Short: "Wait for a user operation receipt and record its outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runReceipt,
}

func init() {
	receiptCmd.Flags().StringVar(&receiptFlags.chain, "chain", "", "chain name or id (default: local sepolia)")
	receiptCmd.Flags().DurationVar(&receiptFlags.timeout, "timeout", defaultPoll.Timeout, "how long to poll")
	rootCmd.AddCommand(receiptCmd)
}

func runReceipt(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	raw, err := common.ParseHexOrString(args[0])
	if err != nil || len(raw) != common.HashLength {
		return fmt.Errorf("invalid user operation hash %q", args[0])
	}
	hash := common.BytesToHash(raw)

	chain, err := resolveChain(cfg, receiptFlags.chain)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	client := bundler.Dial(chain.Bundler, cfg.RPC.Timeout, cfg.RPC.RetryConfig())
	defer func() { _ = client.Close() }()

	poll := defaultPoll
	poll.Timeout = receiptFlags.timeout
	r, err := waitForReceipt(ctx, client, hash, poll)
	if err != nil {
		return err
	}

	u := receiptUpdate(r)
	w := newTable(os.Stdout)
	_, _ = fmt.Fprintln(w, "USER OP\tSENDER\tSTATUS\tTX\tBLOCK\tGAS COST")
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		r.UserOpHash.Hex(), r.Sender.Hex(), u.Status, u.TxHash.Hex(),
		bigString(r.Receipt.BlockNumber.ToInt()), bigString(r.ActualGasCost.ToInt()))
	_ = w.Flush()

	repo, err := openPersistentJournal(ctx, cfg.Journal)
	if err != nil {
		slog.Warn("Outcome not recorded", "error", err)
		return nil
	}
	defer func() { _ = repo.Close() }()

	if err := repo.UpdateStatus(ctx, hash, u); err != nil {
		if errors.Is(err, storage.ErrOperationNotFound) {
			slog.Debug("Operation not in journal", "user_op_hash", hash.Hex())
			return nil
		}
		return err
	}
	return nil
}
