package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/core/noncekey"
)

var nonceKeyFlags struct {
	accountType string
	validator   string
}

var nonceKeyCmd = &cobra.Command{
	Use:   "nonce-key",
	Short: "Print the EntryPoint nonce key for an account type and validator",
	RunE:  runNonceKey,
}

func init() {
	nonceKeyCmd.Flags().StringVar(&nonceKeyFlags.accountType, "type", "", "account type (erc7579-implementation, safe, kernel, nexus)")
	nonceKeyCmd.Flags().StringVar(&nonceKeyFlags.validator, "validator", "", "validator module (default: "+noncekey.DefaultValidator.Hex()+")")
	_ = nonceKeyCmd.MarkFlagRequired("type")
	rootCmd.AddCommand(nonceKeyCmd)
}

func runNonceKey(cmd *cobra.Command, args []string) error {
	t, err := domain.ParseAccountType(nonceKeyFlags.accountType)
	if err != nil {
		return err
	}
	validator, err := parseOptionalAddress("validator", nonceKeyFlags.validator)
	if err != nil {
		return err
	}

	key := noncekey.Resolve(t, validator)
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", key.Hex(), key.Dec())
	return nil
}
