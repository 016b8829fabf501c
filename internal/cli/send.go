package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/core/config"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/bundler"
	"github.com/vietddude/userop/internal/infra/storage"
	"github.com/vietddude/userop/internal/smartclient"
	"github.com/vietddude/userop/internal/submitter"
)

var sendFlags struct {
	accounts  []string
	all       bool
	chain     string
	target    string
	value     string
	data      string
	validator string
	wait      bool
}

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a call as a user operation from one or more accounts",
	Example: `  userop send --account treasury --chain sepolia --target 0x... --value 1000
  userop send --all --chain sepolia --target 0x... --data 0xa9059cbb... --wait`,
	RunE: runSend,
}

func init() {
	f := sendCmd.Flags()
	f.StringArrayVar(&sendFlags.accounts, "account", nil, "account name or address (repeatable)")
	f.BoolVar(&sendFlags.all, "all", false, "send from every configured account concurrently")
	f.StringVar(&sendFlags.chain, "chain", "", "chain name or id (default: local sepolia)")
	f.StringVar(&sendFlags.target, "target", "", "call target address")
	f.StringVar(&sendFlags.value, "value", "0", "call value in wei")
	f.StringVar(&sendFlags.data, "data", "0x", "call data (hex)")
	f.StringVar(&sendFlags.validator, "validator", "", "validator module selecting the nonce key")
	f.BoolVar(&sendFlags.wait, "wait", false, "wait for the operation receipt")
	_ = sendCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	defer startMetrics(cfg)()

	action, err := parseAction(sendFlags.target, sendFlags.value, sendFlags.data)
	if err != nil {
		return err
	}
	chain, err := resolveChain(cfg, sendFlags.chain)
	if err != nil {
		return err
	}
	accounts, err := selectAccounts(cfg, sendFlags.accounts, sendFlags.all)
	if err != nil {
		return err
	}

	s, err := signer.Load(cfg.Signer.PrivateKey, cfg.Signer.KeystorePath, cfg.Signer.KeystorePassword)
	if err != nil {
		return err
	}
	modules, err := cfg.SmartclientModules()
	if err != nil {
		return err
	}
	validator, err := resolveValidator(sendFlags.validator, modules)
	if err != nil {
		return err
	}
	dispatcher := smartclient.NewDispatcher(s,
		smartclient.WithModules(modules),
		smartclient.WithTransports(smartclient.HTTPTransports(cfg.RPC.Timeout, cfg.RPC.RetryConfig())),
		smartclient.WithLogger(slog.Default()),
	)
	sub := submitter.New(dispatcher, submitter.WithLogger(slog.Default()))

	ctx := cmd.Context()
	repo, err := openJournal(ctx, cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = repo.Close() }()

	var bundlerClient *bundler.Client
	if sendFlags.wait {
		bundlerClient = bundler.Dial(chain.Bundler, cfg.RPC.Timeout, cfg.RPC.RetryConfig())
		defer func() { _ = bundlerClient.Close() }()
	}

	var (
		mu     sync.Mutex
		failed []error
	)
	g, gctx := errgroup.WithContext(ctx)
	if !sendFlags.all {
		g.SetLimit(1)
	}
	for _, acct := range accounts {
		g.Go(func() error {
			hash, err := sub.SendUserOp(gctx, submitter.Params{
				Actions:   []domain.Execution{action},
				Account:   acct,
				Chain:     &chain,
				Validator: validator,
			})
			record(gctx, repo, newOperation(acct, chain, validator, hash, err))
			if err != nil {
				slog.Error("Failed to send user operation", "account", acct.String(), "error", err)
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", acct.String(), err))
				mu.Unlock()
				return nil
			}
			_, _ = fmt.Fprintf(os.Stdout, "%s\t%s\n", acct.String(), hash.Hex())

			if bundlerClient != nil {
				waitAndRecord(gctx, bundlerClient, repo, hash)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(failed...)
}

func waitAndRecord(ctx context.Context, b receiptGetter, repo storage.OperationRepository, hash common.Hash) {
	r, err := waitForReceipt(ctx, b, hash, defaultPoll)
	if err != nil {
		slog.Warn("No receipt", "user_op_hash", hash.Hex(), "error", err)
		return
	}
	u := receiptUpdate(r)
	if err := repo.UpdateStatus(ctx, hash, u); err != nil {
		slog.Warn("Failed to update operation", "user_op_hash", hash.Hex(), "error", err)
	}
	slog.Info("User operation included",
		"user_op_hash", hash.Hex(),
		"tx_hash", u.TxHash.Hex(),
		"status", u.Status,
	)
}

// parseAction validates the call flags.
func parseAction(target, value, data string) (domain.Execution, error) {
	if !common.IsHexAddress(target) {
		return domain.Execution{}, fmt.Errorf("invalid target address %q", target)
	}
	v, ok := new(big.Int).SetString(value, 10)
	if !ok || v.Sign() < 0 {
		return domain.Execution{}, fmt.Errorf("invalid value %q: want a non-negative integer in wei", value)
	}
	callData, err := hexutil.Decode(data)
	if err != nil {
		return domain.Execution{}, fmt.Errorf("invalid call data: %w", err)
	}
	return domain.Execution{
		Target:   common.HexToAddress(target),
		Value:    v,
		CallData: callData,
	}, nil
}

func parseOptionalAddress(name, v string) (*common.Address, error) {
	if v == "" {
		return nil, nil
	}
	if !common.IsHexAddress(v) {
		return nil, fmt.Errorf("invalid %s address %q", name, v)
	}
	addr := common.HexToAddress(v)
	return &addr, nil
}

// resolveValidator returns the --validator address, or the configured
// default validator when the flag is empty.
func resolveValidator(flag string, modules smartclient.Modules) (*common.Address, error) {
	v, err := parseOptionalAddress("validator", flag)
	if err != nil || v != nil {
		return v, err
	}
	def := modules.DefaultValidator
	if def == (common.Address{}) {
		def = smartclient.DefaultModules.DefaultValidator
	}
	return &def, nil
}

// resolveChain returns the named chain, or the default chain when name is
// empty.
func resolveChain(cfg *config.AppConfig, name string) (domain.Chain, error) {
	if name == "" {
		return domain.DefaultChain, nil
	}
	ch, ok := cfg.FindChain(name)
	if !ok {
		return domain.Chain{}, fmt.Errorf("unknown chain %q", name)
	}
	return ch.Chain(), nil
}

func selectAccounts(cfg *config.AppConfig, names []string, all bool) ([]domain.Account, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	if all {
		if len(names) > 0 {
			return nil, errors.New("--all and --account are mutually exclusive")
		}
		accounts := reg.All()
		if len(accounts) == 0 {
			return nil, errors.New("no accounts configured")
		}
		return accounts, nil
	}
	if len(names) == 0 {
		return nil, errors.New("specify --account or --all")
	}
	accounts := make([]domain.Account, 0, len(names))
	for _, name := range names {
		acct, ok := reg.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown account %q", name)
		}
		accounts = append(accounts, acct)
	}
	return accounts, nil
}
