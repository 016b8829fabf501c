package submitter

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/userop/internal/aa/account"
	"github.com/vietddude/userop/internal/aa/signer"
	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/core/noncekey"
	"github.com/vietddude/userop/internal/smartclient"
)

var (
	kernelAccount = domain.Account{
		Address: common.HexToAddress("0xee0cbe5e9c49a2cc31881ab9c26e662be68e85dd"),
		Type:    domain.AccountTypeKernel,
	}
	opHash = common.HexToHash("0xa44f2d0cfcd7a43bfca2af034536272d56ac517e3f8b212aeaad4c28d1dbad37")
)

type sendCall struct {
	executions []domain.Execution
	nonce      *big.Int
}

type fakeClient struct {
	acct  account.SmartAccount
	chain domain.Chain
	sends []sendCall
	err   error
}

func (f *fakeClient) Account() account.SmartAccount { return f.acct }
func (f *fakeClient) Chain() domain.Chain           { return f.chain }
func (f *fakeClient) SendBatch(_ context.Context, ex []domain.Execution, nonce *big.Int) (common.Hash, error) {
	f.sends = append(f.sends, sendCall{executions: ex, nonce: nonce})
	if f.err != nil {
		return common.Hash{}, f.err
	}
	return opHash, nil
}

type buildCall struct {
	acct  domain.Account
	chain domain.Chain
	opts  smartclient.Options
}

type fakeBuilder struct {
	client *fakeClient
	builds []buildCall
	err    error
}

func (f *fakeBuilder) Build(_ context.Context, acct domain.Account, chain domain.Chain, _ smartclient.Node, opts smartclient.Options) (smartclient.Client, error) {
	f.builds = append(f.builds, buildCall{acct: acct, chain: chain, opts: opts})
	if f.err != nil {
		return nil, f.err
	}
	f.client.chain = chain
	return f.client, nil
}

type fakeNode struct {
	dialedURL  string
	keys       []*uint256.Int
	entryPoint common.Address
	nonce      *big.Int
	err        error
	closed     bool
}

func (f *fakeNode) CodeAt(context.Context, common.Address) ([]byte, error) { return []byte{0x60}, nil }
func (f *fakeNode) Close()                                                 { f.closed = true }
func (f *fakeNode) GetAccountNonce(_ context.Context, _, ep common.Address, key *uint256.Int) (*big.Int, error) {
	f.keys = append(f.keys, key)
	f.entryPoint = ep
	if f.err != nil {
		return nil, f.err
	}
	return f.nonce, nil
}

func newFixture(t *testing.T) (*Submitter, *fakeBuilder, *fakeNode) {
	t.Helper()
	s, err := signer.FromHex("0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80")
	require.NoError(t, err)
	acct, err := account.NewKernel(account.KernelParams{Address: kernelAccount.Address, Signer: s})
	require.NoError(t, err)

	b := &fakeBuilder{client: &fakeClient{acct: acct}}
	n := &fakeNode{nonce: big.NewInt(42)}
	sub := New(b, WithNodeDialer(func(_ context.Context, url string) (NodeClient, error) {
		n.dialedURL = url
		return n, nil
	}))
	return sub, b, n
}

func TestSendUserOp_SubmitsBatchOnce(t *testing.T) {
	sub, b, n := newFixture(t)
	sepolia := domain.Chain{Name: "sepolia", ID: domain.ChainIDSepolia, RPC: "https://rpc.example", Bundler: "https://bundler.example"}

	actions := []domain.Execution{
		{Target: common.HexToAddress("0xF7C012789aac54B5E33EA5b88064ca1F1172De05"), Value: big.NewInt(0), CallData: nil},
		{Target: common.HexToAddress("0x1111111111111111111111111111111111111111"), CallData: common.FromHex("0xdeadbeef")},
	}

	hash, err := sub.SendUserOp(context.Background(), Params{Actions: actions, Account: kernelAccount, Chain: &sepolia})
	require.NoError(t, err)
	require.Equal(t, opHash, hash)

	require.Equal(t, "https://rpc.example", n.dialedURL)
	require.True(t, n.closed)
	require.Len(t, b.builds, 1)
	require.Equal(t, sepolia, b.builds[0].chain)

	sends := b.client.sends
	require.Len(t, sends, 1)
	require.Equal(t, int64(42), sends[0].nonce.Int64())
	require.Len(t, sends[0].executions, 2)
	for i, a := range actions {
		got := sends[0].executions[i]
		require.Equal(t, a.Target, got.Target)
		require.Equal(t, a.CallData, got.CallData)
		require.Equal(t, 0, a.ValueOrZero().Cmp(got.Value))
	}

	// Nonce looked up under the Kernel key for the default validator.
	require.Len(t, n.keys, 1)
	require.Equal(t, noncekey.Resolve(domain.AccountTypeKernel, nil), n.keys[0])
	require.Equal(t, userop.EntryPointV07, n.entryPoint)
}

func TestSendUserOp_DefaultChainAndValidator(t *testing.T) {
	sub, b, n := newFixture(t)
	validator := common.HexToAddress("0x2222222222222222222222222222222222222222")

	_, err := sub.SendUserOp(context.Background(), Params{
		Actions:   []domain.Execution{{Target: common.HexToAddress("0x01")}},
		Account:   kernelAccount,
		Validator: &validator,
	})
	require.NoError(t, err)
	require.Equal(t, domain.DefaultChain.RPC, n.dialedURL)
	require.Equal(t, domain.DefaultChain, b.builds[0].chain)
	require.Equal(t, noncekey.Resolve(domain.AccountTypeKernel, &validator), n.keys[0])
}

func TestSendUserOp_PassesSigningOverrides(t *testing.T) {
	sub, b, _ := newFixture(t)

	sig := []byte{0xaa}
	dummy := []byte{0xbb}
	_, err := sub.SendUserOp(context.Background(), Params{
		Actions:           []domain.Execution{{Target: common.HexToAddress("0x01")}},
		Account:           kernelAccount,
		SignUserOpHash:    func(context.Context, common.Hash) ([]byte, error) { return sig, nil },
		GetDummySignature: func(context.Context) ([]byte, error) { return dummy, nil },
	})
	require.NoError(t, err)

	opts := b.builds[0].opts
	require.NotNil(t, opts.SignUserOpHash)
	require.NotNil(t, opts.DummySignature)
	got, _ := opts.SignUserOpHash(context.Background(), common.Hash{})
	require.Equal(t, sig, got)
	got, _ = opts.DummySignature(context.Background())
	require.Equal(t, dummy, got)
}

func TestSendUserOp_NoOverridesKeepsDefaults(t *testing.T) {
	sub, b, _ := newFixture(t)
	_, err := sub.SendUserOp(context.Background(), Params{
		Actions: []domain.Execution{{Target: common.HexToAddress("0x01")}},
		Account: kernelAccount,
	})
	require.NoError(t, err)
	require.Nil(t, b.builds[0].opts.SignUserOpHash)
	require.Nil(t, b.builds[0].opts.DummySignature)
}

func TestSendUserOp_NoActions(t *testing.T) {
	sub, b, n := newFixture(t)
	_, err := sub.SendUserOp(context.Background(), Params{Account: kernelAccount})
	require.ErrorIs(t, err, ErrNoActions)
	require.Empty(t, b.builds)
	require.Empty(t, n.dialedURL)
}

func TestSendUserOp_PropagatesErrorsUnmodified(t *testing.T) {
	actions := []domain.Execution{{Target: common.HexToAddress("0x01")}}

	t.Run("dial", func(t *testing.T) {
		dialErr := errors.New("dial tcp: connection refused")
		sub := New(&fakeBuilder{}, WithNodeDialer(func(context.Context, string) (NodeClient, error) {
			return nil, dialErr
		}))
		_, err := sub.SendUserOp(context.Background(), Params{Actions: actions, Account: kernelAccount})
		require.Same(t, dialErr, err)
	})

	t.Run("unknown account type", func(t *testing.T) {
		sub, b, n := newFixture(t)
		b.err = &domain.UnknownAccountTypeError{Type: "light"}
		_, err := sub.SendUserOp(context.Background(), Params{Actions: actions, Account: domain.Account{Type: "light"}})
		require.ErrorIs(t, err, domain.ErrUnknownAccountType)
		require.Same(t, b.err, err)
		require.Empty(t, n.keys)
	})

	t.Run("nonce", func(t *testing.T) {
		sub, b, n := newFixture(t)
		n.err = errors.New("execution reverted")
		_, err := sub.SendUserOp(context.Background(), Params{Actions: actions, Account: kernelAccount})
		require.Same(t, n.err, err)
		require.Empty(t, b.client.sends)
	})

	t.Run("send", func(t *testing.T) {
		sub, b, _ := newFixture(t)
		b.client.err = errors.New("AA25 invalid account nonce")
		_, err := sub.SendUserOp(context.Background(), Params{Actions: actions, Account: kernelAccount})
		require.Same(t, b.client.err, err)
		require.Len(t, b.client.sends, 1)
	})
}

func TestSendUserOp_SingleAction(t *testing.T) {
	tests := []struct {
		name    string
		typ     domain.AccountType
		wantKey string
	}{
		{"erc7579 implementation", domain.AccountTypeERC7579, "0x503b54ed1e62365f0c9e4caf1479623b08acbe7700000000"},
		{"safe", domain.AccountTypeSafe, "0x503b54ed1e62365f0c9e4caf1479623b08acbe7700000000"},
		{"kernel", domain.AccountTypeKernel, "0x503b54ed1e62365f0c9e4caf1479623b08acbe770000"},
		{"nexus", domain.AccountTypeNexus, "0x503b54ed1e62365f0c9e4caf1479623b08acbe7700000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, b, n := newFixture(t)
			acct := domain.Account{
				Address: common.HexToAddress("0xee0cbe5e9c49a2cc31881ab9c26e662be68e85dd"),
				Type:    tt.typ,
			}
			action := domain.Execution{
				Target:   common.HexToAddress("0xF7C012789aac54B5E33EA5b88064ca1F1172De05"),
				Value:    big.NewInt(0),
				CallData: []byte{},
			}

			hash, err := sub.SendUserOp(context.Background(), Params{Actions: []domain.Execution{action}, Account: acct})
			require.NoError(t, err)
			require.Equal(t, opHash, hash)

			require.Len(t, b.builds, 1)
			require.Equal(t, tt.typ, b.builds[0].acct.Type)
			require.Equal(t, domain.DefaultChain, b.builds[0].chain)

			require.Len(t, n.keys, 1)
			require.Equal(t, tt.wantKey, n.keys[0].Hex())

			sends := b.client.sends
			require.Len(t, sends, 1)
			require.Len(t, sends[0].executions, 1)
			got := sends[0].executions[0]
			require.Equal(t, action.Target, got.Target)
			require.Zero(t, got.Value.Sign())
			require.Empty(t, got.CallData)
		})
	}
}
