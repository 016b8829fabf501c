package userop

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func sponsoredOp(t *testing.T) *UserOperation {
	t.Helper()
	nonce, ok := new(big.Int).SetString("503b54ed1e62365f0c9e4caf1479623b08acbe7700000000000000000007", 16)
	require.True(t, ok)
	pm := common.HexToAddress("0x1234567890123456789012345678901234567890")
	return &UserOperation{
		Sender:                        common.HexToAddress("0xee0cbe5e9c49a2cc31881ab9c26e662be68e85dd"),
		Nonce:                         nonce,
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
		Signature:                     common.FromHex("0x01"),
	}
}

func TestHash_Sponsored(t *testing.T) {
	op := sponsoredOp(t)

	h, err := Hash(op, EntryPointV07, big.NewInt(11155111))
	require.NoError(t, err)
	require.Equal(t, "0xa44f2d0cfcd7a43bfca2af034536272d56ac517e3f8b212aeaad4c28d1dbad37", h.Hex())

	// The signature is not covered by the hash.
	op.Signature = common.FromHex("0xffff")
	h2, err := Hash(op, EntryPointV07, big.NewInt(11155111))
	require.NoError(t, err)
	require.Equal(t, h, h2)

	// The chain id is.
	h3, err := Hash(op, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	require.NotEqual(t, h, h3)
}

func TestHash_WithFactory(t *testing.T) {
	op := sponsoredOp(t)
	op.Nonce = new(big.Int)
	op.Paymaster = nil
	op.PaymasterData = nil
	require.NoError(t, op.SetInitCode(common.FromHex("0x5de4839a76cf55d0c90e2061ef4386d962e15ae3c5265d5d")))

	h, err := Hash(op, EntryPointV07, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, "0x48bc8a544e0b9e4795d8994ba7b98a914932840d4de42697baf63addedff5482", h.Hex())
}

func TestPack_Layout(t *testing.T) {
	op := sponsoredOp(t)
	p := op.Pack()

	require.Equal(t,
		"0x000000000000000000000000000186a000000000000000000000000000030d40",
		hexutil.Encode(p.AccountGasLimits[:]))
	require.Equal(t,
		"0x0000000000000000000000003b9aca0000000000000000000000000077359400",
		hexutil.Encode(p.GasFees[:]))
	require.Equal(t,
		"0x1234567890123456789012345678901234567890"+
			"00000000000000000000000000007530"+
			"00000000000000000000000000002710"+
			"abcd",
		hexutil.Encode(p.PaymasterAndData))
	require.Empty(t, p.InitCode)
}

func TestSetInitCode(t *testing.T) {
	var op UserOperation
	require.Error(t, op.SetInitCode([]byte{0x01, 0x02}))

	require.NoError(t, op.SetInitCode(common.FromHex("0x5de4839a76cf55d0c90e2061ef4386d962e15ae3c5265d5d")))
	require.NotNil(t, op.Factory)
	require.Equal(t, common.HexToAddress("0x5de4839a76cf55d0c90e2061ef4386d962e15ae3"), *op.Factory)
	require.Equal(t, common.FromHex("0xc5265d5d"), op.FactoryData)
	require.Equal(t, common.FromHex("0x5de4839a76cf55d0c90e2061ef4386d962e15ae3c5265d5d"), op.InitCode())

	require.NoError(t, op.SetInitCode(nil))
	require.Nil(t, op.Factory)
	require.Nil(t, op.InitCode())
}

func TestMarshalJSON_OmitsUnsetFactoryAndPaymaster(t *testing.T) {
	op := UserOperation{
		Sender:   common.HexToAddress("0x7227dcfb0c5ec7a5f539f97b18be261c49687ed6"),
		Nonce:    big.NewInt(1),
		CallData: common.FromHex("0x"),
	}

	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	require.Equal(t, "0x1", fields["nonce"])
	require.Equal(t, "0x", fields["callData"])
	require.Equal(t, "0x0", fields["callGasLimit"])
	require.Equal(t, "0x", fields["signature"])
	require.NotContains(t, fields, "factory")
	require.NotContains(t, fields, "factoryData")
	require.NotContains(t, fields, "paymaster")
	require.NotContains(t, fields, "paymasterData")
}

func TestJSON_RoundTripSponsored(t *testing.T) {
	op := sponsoredOp(t)

	raw, err := json.Marshal(op)
	require.NoError(t, err)

	var decoded UserOperation
	require.NoError(t, json.Unmarshal(raw, &decoded))

	want, err := Hash(op, EntryPointV07, big.NewInt(11155111))
	require.NoError(t, err)
	got, err := Hash(&decoded, EntryPointV07, big.NewInt(11155111))
	require.NoError(t, err)
	require.Equal(t, want, got)
	require.Equal(t, op.Signature, decoded.Signature)
}

func TestCopy_IsDeep(t *testing.T) {
	op := sponsoredOp(t)
	cp := op.Copy()

	cp.Nonce.SetInt64(99)
	cp.CallData[0] = 0x00
	*cp.Paymaster = common.Address{}

	require.NotEqual(t, int64(99), op.Nonce.Int64())
	require.Equal(t, byte(0xde), op.CallData[0])
	require.NotEqual(t, common.Address{}, *op.Paymaster)
}
