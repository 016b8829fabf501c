package account

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
)

// SupportedSafeVersions lists the Safe singleton versions the 4337 module
// signature scheme below is valid for.
var SupportedSafeVersions = []string{"1.4.1"}

// SafeParams configures a Safe account driven through the Safe 4337 /
// ERC-7579 adapter module.
type SafeParams struct {
	Address     common.Address
	Signer      signer.Signer
	EntryPoint  common.Address
	SafeVersion string
	// Safe4337Module is both the fallback handler executing user
	// operations and the EIP-712 verifying contract for SafeOp.
	Safe4337Module common.Address
	// ERC7579Launchpad is the launchpad the Safe was set up through. It is
	// recorded, not used: undeployed accounts must carry their own init
	// code (domain.Account.InitCode), which the client attaches.
	ERC7579Launchpad common.Address
	// Kind lets the generic ERC-7579 reference account reuse the Safe
	// construction while reporting its own type.
	Kind domain.AccountType
	// ValidAfter and ValidUntil bound the signature validity window;
	// zero means unbounded.
	ValidAfter uint64
	ValidUntil uint64
}

// Safe is a Safe smart account.
type Safe struct {
	p SafeParams
}

// NewSafe validates params and builds a Safe account.
func NewSafe(p SafeParams) (*Safe, error) {
	if p.Signer == nil {
		return nil, fmt.Errorf("safe account: signer is required")
	}
	supported := false
	for _, v := range SupportedSafeVersions {
		if v == p.SafeVersion {
			supported = true
			break
		}
	}
	if !supported {
		return nil, fmt.Errorf("safe account: unsupported safe version %q", p.SafeVersion)
	}
	if p.Safe4337Module == (common.Address{}) {
		return nil, fmt.Errorf("safe account: 4337 module address is required")
	}
	if p.Kind == "" {
		p.Kind = domain.AccountTypeSafe
	}
	if p.EntryPoint == (common.Address{}) {
		p.EntryPoint = userop.EntryPointV07
	}
	return &Safe{p: p}, nil
}

func (s *Safe) Address() common.Address    { return s.p.Address }
func (s *Safe) Kind() domain.AccountType   { return s.p.Kind }
func (s *Safe) EntryPoint() common.Address { return s.p.EntryPoint }
func (s *Safe) Launchpad() common.Address  { return s.p.ERC7579Launchpad }
func (s *Safe) Module() common.Address     { return s.p.Safe4337Module }
func (s *Safe) SafeVersion() string        { return s.p.SafeVersion }

func (s *Safe) EncodeCalls(calls []domain.Execution) ([]byte, error) {
	return EncodeExecute(calls)
}

func (s *Safe) DummySignature(context.Context) ([]byte, error) {
	return s.withValidity(ecdsaDummySignature), nil
}

func (s *Safe) SignUserOperation(_ context.Context, op *userop.UserOperation, chainID *big.Int) ([]byte, error) {
	td := SafeOpTypedData(op, chainID, s.p.Safe4337Module, s.p.EntryPoint, s.p.ValidAfter, s.p.ValidUntil)
	sig, err := signer.SignTypedData(s.p.Signer, td)
	if err != nil {
		return nil, fmt.Errorf("sign safe operation: %w", err)
	}
	return s.withValidity(sig), nil
}

// withValidity prefixes sig with uint48 validAfter ‖ uint48 validUntil.
func (s *Safe) withValidity(sig []byte) []byte {
	out := make([]byte, 12, 12+len(sig))
	putUint48(out[0:6], s.p.ValidAfter)
	putUint48(out[6:12], s.p.ValidUntil)
	return append(out, sig...)
}

func putUint48(dst []byte, v uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	copy(dst, buf[2:])
}

// SafeOpTypedData builds the EIP-712 SafeOp message the 4337 module checks.
func SafeOpTypedData(
	op *userop.UserOperation,
	chainID *big.Int,
	module, entryPoint common.Address,
	validAfter, validUntil uint64,
) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"SafeOp": {
				{Name: "safe", Type: "address"},
				{Name: "nonce", Type: "uint256"},
				{Name: "initCode", Type: "bytes"},
				{Name: "callData", Type: "bytes"},
				{Name: "verificationGasLimit", Type: "uint128"},
				{Name: "callGasLimit", Type: "uint128"},
				{Name: "preVerificationGas", Type: "uint256"},
				{Name: "maxPriorityFeePerGas", Type: "uint128"},
				{Name: "maxFeePerGas", Type: "uint128"},
				{Name: "paymasterAndData", Type: "bytes"},
				{Name: "validAfter", Type: "uint48"},
				{Name: "validUntil", Type: "uint48"},
				{Name: "entryPoint", Type: "address"},
			},
		},
		PrimaryType: "SafeOp",
		Domain: apitypes.TypedDataDomain{
			ChainId:           (*math.HexOrDecimal256)(new(big.Int).Set(chainID)),
			VerifyingContract: module.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"safe":                 op.Sender.Hex(),
			"nonce":                decimal(op.Nonce),
			"initCode":             hexutil.Encode(op.InitCode()),
			"callData":             hexutil.Encode(op.CallData),
			"verificationGasLimit": decimal(op.VerificationGasLimit),
			"callGasLimit":         decimal(op.CallGasLimit),
			"preVerificationGas":   decimal(op.PreVerificationGas),
			"maxPriorityFeePerGas": decimal(op.MaxPriorityFeePerGas),
			"maxFeePerGas":         decimal(op.MaxFeePerGas),
			"paymasterAndData":     hexutil.Encode(op.PaymasterAndData()),
			"validAfter":           new(big.Int).SetUint64(validAfter).String(),
			"validUntil":           new(big.Int).SetUint64(validUntil).String(),
			"entryPoint":           entryPoint.Hex(),
		},
	}
}

func decimal(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
