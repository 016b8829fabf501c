package smartclient

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/userop/internal/aa/account"
	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
)

var target = common.HexToAddress("0xF7C012789aac54B5E33EA5b88064ca1F1172De05")

func buildClient(t *testing.T, typ domain.AccountType, chain domain.Chain, b *fakeBundler, s *fakeSponsor, node *fakeNode, opts Options) Client {
	t.Helper()
	factory, _ := fakeTransports(b, s)
	d := NewDispatcher(testSigner(t), WithTransports(factory))
	if node == nil {
		node = &fakeNode{}
	}
	c, err := d.Build(context.Background(), domain.Account{Address: testAccountAddr, Type: typ}, chain, node, opts)
	require.NoError(t, err)
	return c
}

func TestSendBatch_Sponsored(t *testing.T) {
	b := &fakeBundler{}
	s := &fakeSponsor{}
	c := buildClient(t, domain.AccountTypeKernel, domain.DefaultChain, b, s, nil, Options{})

	calls := []domain.Execution{{Target: target, Value: big.NewInt(0)}}
	hash, err := c.SendBatch(context.Background(), calls, big.NewInt(7))
	require.NoError(t, err)
	require.Equal(t, sentHash, hash)

	require.Equal(t, []string{"gasPrice", "send"}, b.calls)
	require.Len(t, s.seen, 1)
	require.Len(t, b.sent, 1)

	// The paymaster saw the fast fee tier and a dummy signature.
	seen := s.seen[0]
	require.Equal(t, int64(2_000_000_000), seen.MaxFeePerGas.Int64())
	require.Equal(t, int64(1_000_000_000), seen.MaxPriorityFeePerGas.Int64())
	dummy, _ := c.Account().DummySignature(context.Background())
	require.Equal(t, dummy, seen.Signature)
	require.Len(t, seen.Signature, 65)

	op := b.sent[0]
	require.Equal(t, testAccountAddr, op.Sender)
	require.Equal(t, int64(7), op.Nonce.Int64())
	wantCallData, err := account.EncodeExecute(calls)
	require.NoError(t, err)
	require.Equal(t, wantCallData, op.CallData)
	require.Equal(t, testPaymaster, *op.Paymaster)
	require.Equal(t, int64(200000), op.CallGasLimit.Int64())

	// Kernel signs the user operation hash as a personal message.
	opHash, err := userop.Hash(op, userop.EntryPointV07, domain.DefaultChain.BigID())
	require.NoError(t, err)
	signerAddr, err := signer.Recover(common.BytesToHash(accounts.TextHash(opHash[:])), op.Signature)
	require.NoError(t, err)
	require.Equal(t, testSigner(t).Address(), signerAddr)
}

func TestSendBatch_SelfFundedEstimatesGas(t *testing.T) {
	b := &fakeBundler{}
	chain := domain.DefaultChain
	chain.SelfFunded = true
	c := buildClient(t, domain.AccountTypeSafe, chain, b, &fakeSponsor{}, nil, Options{})

	_, err := c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, []string{"gasPrice", "estimate", "send"}, b.calls)
	require.Nil(t, b.sent[0].Paymaster)
	require.Equal(t, int64(50000), b.sent[0].PreVerificationGas.Int64())
}

func TestSendBatch_CustomSigner(t *testing.T) {
	b := &fakeBundler{}
	custom := []byte{0xde, 0xad, 0xbe, 0xef}
	var gotHash common.Hash
	opts := Options{
		SignUserOpHash: func(_ context.Context, h common.Hash) ([]byte, error) {
			gotHash = h
			return custom, nil
		},
	}
	for _, typ := range domain.AccountTypes {
		b.sent = nil
		c := buildClient(t, typ, domain.DefaultChain, b, &fakeSponsor{}, nil, opts)

		_, err := c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(3))
		require.NoError(t, err)
		require.Equal(t, custom, b.sent[0].Signature, typ)

		want, err := userop.Hash(b.sent[0], userop.EntryPointV07, big.NewInt(int64(domain.DefaultChain.ID)))
		require.NoError(t, err)
		require.Equal(t, want, gotHash, typ)
	}
}

func TestSendBatch_CustomDummySignature(t *testing.T) {
	b := &fakeBundler{}
	s := &fakeSponsor{}
	dummy := []byte{0x01, 0x02}
	c := buildClient(t, domain.AccountTypeNexus, domain.DefaultChain, b, s, nil, Options{
		DummySignature: func(context.Context) ([]byte, error) { return dummy, nil },
	})

	_, err := c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
	require.NoError(t, err)
	require.Equal(t, dummy, s.seen[0].Signature)
	require.NotEqual(t, dummy, b.sent[0].Signature)
}

func TestSendBatch_InitCodeOnlyWhenUndeployed(t *testing.T) {
	initCode := common.FromHex("0x5de4839a76cf55d0c90e2061ef4386d962e15ae3c5265d5d")
	acct := domain.Account{Address: testAccountAddr, Type: domain.AccountTypeKernel, InitCode: initCode}

	for _, deployed := range []bool{false, true} {
		b := &fakeBundler{}
		factory, _ := fakeTransports(b, &fakeSponsor{})
		d := NewDispatcher(testSigner(t), WithTransports(factory))

		node := &fakeNode{code: map[common.Address][]byte{}}
		if deployed {
			node.code[testAccountAddr] = []byte{0x60}
		}
		c, err := d.Build(context.Background(), acct, domain.DefaultChain, node, Options{})
		require.NoError(t, err)

		_, err = c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
		require.NoError(t, err)

		if deployed {
			require.Nil(t, b.sent[0].Factory)
		} else {
			require.Equal(t, initCode, b.sent[0].InitCode())
		}
	}
}

func TestSendBatch_SafeWithoutInitCodeSendsNoFactory(t *testing.T) {
	b := &fakeBundler{}
	c := buildClient(t, domain.AccountTypeSafe, domain.DefaultChain, b, &fakeSponsor{}, &fakeNode{}, Options{})

	_, err := c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
	require.NoError(t, err)
	require.Nil(t, b.sent[0].Factory)
	require.Empty(t, b.sent[0].InitCode())
}

func TestSendBatch_Errors(t *testing.T) {
	c := buildClient(t, domain.AccountTypeKernel, domain.DefaultChain, &fakeBundler{}, &fakeSponsor{}, nil, Options{})
	_, err := c.SendBatch(context.Background(), nil, big.NewInt(0))
	require.ErrorIs(t, err, ErrNoExecutions)

	sponsorErr := errors.New("AA21 didn't pay prefund")
	b := &fakeBundler{}
	c = buildClient(t, domain.AccountTypeSafe, domain.DefaultChain, b, &fakeSponsor{err: sponsorErr}, nil, Options{})
	_, err = c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
	require.Same(t, sponsorErr, err)
	require.Empty(t, b.sent)

	signErr := errors.New("user rejected")
	c = buildClient(t, domain.AccountTypeSafe, domain.DefaultChain, &fakeBundler{}, &fakeSponsor{}, nil, Options{
		SignUserOpHash: func(context.Context, common.Hash) ([]byte, error) { return nil, signErr },
	})
	_, err = c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
	require.Same(t, signErr, err)

	sendErr := errors.New("bundler down")
	c = buildClient(t, domain.AccountTypeERC7579, domain.DefaultChain, &fakeBundler{sendErr: sendErr}, &fakeSponsor{}, nil, Options{})
	_, err = c.SendBatch(context.Background(), []domain.Execution{{Target: target}}, big.NewInt(0))
	require.Same(t, sendErr, err)
}
