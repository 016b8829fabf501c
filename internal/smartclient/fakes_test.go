package smartclient

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/vietddude/userop/internal/aa/userop"
	"github.com/vietddude/userop/internal/core/domain"
	"github.com/vietddude/userop/internal/infra/bundler"
)

var (
	testPaymaster = common.HexToAddress("0x1234567890123456789012345678901234567890")
	sentHash      = common.HexToHash("0xa44f2d0cfcd7a43bfca2af034536272d56ac517e3f8b212aeaad4c28d1dbad37")
)

func hb(v int64) *hexutil.Big { return (*hexutil.Big)(big.NewInt(v)) }

type fakeBundler struct {
	mu        sync.Mutex
	calls     []string
	estimated []*userop.UserOperation
	sent      []*userop.UserOperation
	sendErr   error
	priceErr  error
}

func (f *fakeBundler) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBundler) GetUserOperationGasPrice(context.Context) (*bundler.GasPrices, error) {
	f.record("gasPrice")
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	return &bundler.GasPrices{
		Slow:     bundler.GasPrice{MaxFeePerGas: hb(1), MaxPriorityFeePerGas: hb(1)},
		Standard: bundler.GasPrice{MaxFeePerGas: hb(2), MaxPriorityFeePerGas: hb(1)},
		Fast:     bundler.GasPrice{MaxFeePerGas: hb(2_000_000_000), MaxPriorityFeePerGas: hb(1_000_000_000)},
	}, nil
}

func (f *fakeBundler) EstimateUserOperationGas(_ context.Context, op *userop.UserOperation, _ common.Address) (*bundler.GasEstimate, error) {
	f.record("estimate")
	f.mu.Lock()
	f.estimated = append(f.estimated, op.Copy())
	f.mu.Unlock()
	return &bundler.GasEstimate{
		PreVerificationGas:   hb(50000),
		VerificationGasLimit: hb(100000),
		CallGasLimit:         hb(200000),
	}, nil
}

func (f *fakeBundler) SendUserOperation(_ context.Context, op *userop.UserOperation, _ common.Address) (common.Hash, error) {
	f.record("send")
	if f.sendErr != nil {
		return common.Hash{}, f.sendErr
	}
	f.mu.Lock()
	f.sent = append(f.sent, op.Copy())
	f.mu.Unlock()
	return sentHash, nil
}

type fakeSponsor struct {
	seen []*userop.UserOperation
	err  error
}

func (f *fakeSponsor) SponsorUserOperation(_ context.Context, op *userop.UserOperation, _ common.Address) (*bundler.Sponsorship, error) {
	f.seen = append(f.seen, op.Copy())
	if f.err != nil {
		return nil, f.err
	}
	return &bundler.Sponsorship{
		Paymaster:                     testPaymaster,
		PaymasterData:                 common.FromHex("0xabcd"),
		PaymasterVerificationGasLimit: hb(30000),
		PaymasterPostOpGasLimit:       hb(10000),
		PreVerificationGas:            hb(50000),
		VerificationGasLimit:          hb(100000),
		CallGasLimit:                  hb(200000),
	}, nil
}

type fakeNode struct {
	code map[common.Address][]byte
}

func (f *fakeNode) CodeAt(_ context.Context, addr common.Address) ([]byte, error) {
	return f.code[addr], nil
}

// fakeTransports returns a factory handing out the given fakes and a
// pointer recording how often it was invoked.
func fakeTransports(b *fakeBundler, s *fakeSponsor) (TransportFactory, *int) {
	n := 0
	return func(chain domain.Chain) Transports {
		n++
		t := Transports{Bundler: b}
		if s != nil && !chain.SelfFunded {
			t.Sponsor = s
		}
		return t
	}, &n
}
