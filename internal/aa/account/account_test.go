package account

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
)

const anvilKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	safeModule = common.HexToAddress("0x3Fdb5BC686e861480ef99A6E3FaAe03c0b9F32e2")
	launchpad  = common.HexToAddress("0xEBe001b3D534B9B6E2500FB78E67a1A137f561CE")
	target     = common.HexToAddress("0xF7C012789aac54B5E33EA5b88064ca1F1172De05")
)

func testSigner(t *testing.T) *signer.KeySigner {
	t.Helper()
	s, err := signer.FromHex(anvilKey)
	require.NoError(t, err)
	return s
}

func TestEncodeExecute_Single(t *testing.T) {
	data, err := EncodeExecute([]domain.Execution{{Target: target, Value: big.NewInt(0)}})
	require.NoError(t, err)
	require.Equal(t,
		"0xe9ae5c53"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000040"+
			"0000000000000000000000000000000000000000000000000000000000000034"+
			"f7c012789aac54b5e33ea5b88064ca1f1172de05"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"000000000000000000000000",
		hexutil.Encode(data))
}

func TestEncodeExecute_Batch(t *testing.T) {
	calls := []domain.Execution{
		{Target: target, Value: big.NewInt(1)},
		{Target: common.HexToAddress("0x1111111111111111111111111111111111111111"), CallData: common.FromHex("0xdeadbeef")},
	}
	data, err := EncodeExecute(calls)
	require.NoError(t, err)
	require.Equal(t,
		"0xe9ae5c53"+
			"0100000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000040"+
			"00000000000000000000000000000000000000000000000000000000000001a0"+
			"0000000000000000000000000000000000000000000000000000000000000020"+
			"0000000000000000000000000000000000000000000000000000000000000002"+
			"0000000000000000000000000000000000000000000000000000000000000040"+
			"00000000000000000000000000000000000000000000000000000000000000c0"+
			"000000000000000000000000f7c012789aac54b5e33ea5b88064ca1f1172de05"+
			"0000000000000000000000000000000000000000000000000000000000000001"+
			"0000000000000000000000000000000000000000000000000000000000000060"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000001111111111111111111111111111111111111111"+
			"0000000000000000000000000000000000000000000000000000000000000000"+
			"0000000000000000000000000000000000000000000000000000000000000060"+
			"0000000000000000000000000000000000000000000000000000000000000004"+
			"deadbeef00000000000000000000000000000000000000000000000000000000",
		hexutil.Encode(data))

	decoded, err := DecodeExecute(data)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	for i := range calls {
		require.Equal(t, calls[i].Target, decoded[i].Target)
		require.Equal(t, 0, calls[i].ValueOrZero().Cmp(decoded[i].Value))
		require.Equal(t, hexutil.Encode(calls[i].CallData), hexutil.Encode(decoded[i].CallData))
	}
}

func TestEncodeExecute_Empty(t *testing.T) {
	_, err := EncodeExecute(nil)
	require.Error(t, err)
}

func TestDecodeExecute_Single(t *testing.T) {
	in := domain.Execution{Target: target, Value: big.NewInt(42), CallData: common.FromHex("0x1234")}
	data, err := EncodeExecute([]domain.Execution{in})
	require.NoError(t, err)

	out, err := DecodeExecute(data)
	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, in.Target, out[0].Target)
	require.Equal(t, int64(42), out[0].Value.Int64())
	require.Equal(t, in.CallData, out[0].CallData)

	_, err = DecodeExecute([]byte{0x01, 0x02, 0x03, 0x04})
	require.Error(t, err)
}

func safeOp() *userop.UserOperation {
	pm := common.HexToAddress("0x1234567890123456789012345678901234567890")
	return &userop.UserOperation{
		Sender:                        common.HexToAddress("0xc2b17e73603dccc195118a36f3203134fd7985f5"),
		Nonce:                         big.NewInt(5),
		CallData:                      common.FromHex("0xdeadbeef"),
		CallGasLimit:                  big.NewInt(200000),
		VerificationGasLimit:          big.NewInt(100000),
		PreVerificationGas:            big.NewInt(50000),
		MaxFeePerGas:                  big.NewInt(2_000_000_000),
		MaxPriorityFeePerGas:          big.NewInt(1_000_000_000),
		Paymaster:                     &pm,
		PaymasterVerificationGasLimit: big.NewInt(30000),
		PaymasterPostOpGasLimit:       big.NewInt(10000),
		PaymasterData:                 common.FromHex("0xabcd"),
	}
}

func TestSafeOpTypedData_Digest(t *testing.T) {
	td := SafeOpTypedData(safeOp(), big.NewInt(11155111), safeModule, userop.EntryPointV07, 0, 0)

	digest, _, err := apitypes.TypedDataAndHash(td)
	require.NoError(t, err)
	require.Equal(t, "0x813aded9134b9b4b470b6e8860824c90a7c2519d0fc7ef2c8be9c99bb23c7e9e", hexutil.Encode(digest))
}

func TestSafe_SignUserOperation(t *testing.T) {
	s := testSigner(t)
	acct, err := NewSafe(SafeParams{
		Address:          common.HexToAddress("0xc2b17e73603dccc195118a36f3203134fd7985f5"),
		Signer:           s,
		SafeVersion:      "1.4.1",
		Safe4337Module:   safeModule,
		ERC7579Launchpad: launchpad,
	})
	require.NoError(t, err)
	require.Equal(t, domain.AccountTypeSafe, acct.Kind())
	require.Equal(t, userop.EntryPointV07, acct.EntryPoint())

	sig, err := acct.SignUserOperation(context.Background(), safeOp(), big.NewInt(11155111))
	require.NoError(t, err)
	require.Len(t, sig, 12+65)
	require.Equal(t, make([]byte, 12), sig[:12])

	digest := common.HexToHash("0x813aded9134b9b4b470b6e8860824c90a7c2519d0fc7ef2c8be9c99bb23c7e9e")
	addr, err := signer.Recover(digest, sig[12:])
	require.NoError(t, err)
	require.Equal(t, s.Address(), addr)

	dummy, err := acct.DummySignature(context.Background())
	require.NoError(t, err)
	require.Len(t, dummy, 12+65)
}

func TestSafe_ValidityWindow(t *testing.T) {
	acct, err := NewSafe(SafeParams{
		Signer:         testSigner(t),
		SafeVersion:    "1.4.1",
		Safe4337Module: safeModule,
		ValidAfter:     1,
		ValidUntil:     0xffffffffffff,
	})
	require.NoError(t, err)

	dummy, err := acct.DummySignature(context.Background())
	require.NoError(t, err)
	require.Equal(t, "0x000000000001ffffffffffff", hexutil.Encode(dummy[:12]))
}

func TestNewSafe_Validation(t *testing.T) {
	s := testSigner(t)

	_, err := NewSafe(SafeParams{SafeVersion: "1.4.1", Safe4337Module: safeModule})
	require.Error(t, err)

	_, err = NewSafe(SafeParams{Signer: s, SafeVersion: "1.3.0", Safe4337Module: safeModule})
	require.ErrorContains(t, err, "unsupported safe version")

	_, err = NewSafe(SafeParams{Signer: s, SafeVersion: "1.4.1"})
	require.Error(t, err)

	acct, err := NewSafe(SafeParams{Signer: s, SafeVersion: "1.4.1", Safe4337Module: safeModule, Kind: domain.AccountTypeERC7579})
	require.NoError(t, err)
	require.Equal(t, domain.AccountTypeERC7579, acct.Kind())
}

func TestECDSAAccounts_SignOpHashAsPersonalMessage(t *testing.T) {
	s := testSigner(t)
	addr := common.HexToAddress("0xee0cbe5e9c49a2cc31881ab9c26e662be68e85dd")

	kernel, err := NewKernel(KernelParams{Address: addr, Signer: s})
	require.NoError(t, err)
	nexus, err := NewNexus(NexusParams{Address: addr, Signer: s})
	require.NoError(t, err)

	chainID := big.NewInt(11155111)
	for _, acct := range []SmartAccount{kernel, nexus} {
		op := safeOp()
		op.Sender = acct.Address()

		sig, err := acct.SignUserOperation(context.Background(), op, chainID)
		require.NoError(t, err)
		require.Len(t, sig, 65)

		hash, err := userop.Hash(op, userop.EntryPointV07, chainID)
		require.NoError(t, err)
		recovered, err := signer.Recover(common.BytesToHash(accounts.TextHash(hash[:])), sig)
		require.NoError(t, err)
		require.Equal(t, s.Address(), recovered, "kind %s", acct.Kind())

		dummy, err := acct.DummySignature(context.Background())
		require.NoError(t, err)
		require.Len(t, dummy, 65)
	}

	require.Equal(t, domain.AccountTypeKernel, kernel.Kind())
	require.Equal(t, domain.AccountTypeNexus, nexus.Kind())
}

func TestDummySignature_Shape(t *testing.T) {
	require.Len(t, ecdsaDummySignature, 65)
	require.Equal(t, strings.Repeat("ff", 15)+"f0", hex.EncodeToString(ecdsaDummySignature[:16]))
	require.Equal(t, make([]byte, 16), ecdsaDummySignature[16:32])
	require.Equal(t, byte(0x7a), ecdsaDummySignature[32])
	require.Equal(t, byte(0x1c), ecdsaDummySignature[64])

	kernel, err := (&Kernel{}).DummySignature(context.Background())
	require.NoError(t, err)
	require.Equal(t, ecdsaDummySignature, kernel)

	safe, err := (&Safe{}).DummySignature(context.Background())
	require.NoError(t, err)
	require.Len(t, safe, 12+65)
	require.Equal(t, ecdsaDummySignature, safe[12:])
}

func TestECDSAAccounts_RequireSigner(t *testing.T) {
	_, err := NewKernel(KernelParams{})
	require.Error(t, err)
	_, err = NewNexus(NexusParams{})
	require.Error(t, err)
}
