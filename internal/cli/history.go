package cli

import (
	"fmt"
	"io"
	"math/big"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journaled user operations, newest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum entries to show (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ctx := cmd.Context()
	repo, err := openPersistentJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	ops, err := repo.List(ctx, historyLimit)
	if err != nil {
		return err
	}

	w := newTable(os.Stdout)
	_, _ = fmt.Fprintln(w, "CREATED\tACCOUNT\tTYPE\tCHAIN\tUSER OP\tSTATUS\tTX")
	for _, op := range ops {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			op.CreatedAt.Format(time.RFC3339),
			op.Account.Hex(),
			op.AccountType,
			op.ChainID,
			hashOrDash(op.UserOpHash),
			op.Status,
			hashOrDash(op.TxHash),
		)
	}
	return w.Flush()
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
}

func hashOrDash(h common.Hash) string {
	if h == (common.Hash{}) {
		return "-"
	}
	return h.Hex()
}

func bigString(v *big.Int) string {
	if v == nil {
		return "-"
	}
	return v.String()
}
