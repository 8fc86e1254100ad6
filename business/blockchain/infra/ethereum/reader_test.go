package ethereum

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/chain-oracles/business/blockchain/domain"
	"github.com/fd1az/chain-oracles/internal/apperror"
	"github.com/fd1az/chain-oracles/internal/logger"
)

type fakeClient struct {
	chainID  *big.Int
	code     map[common.Address][]byte
	callOut  []byte
	callErr  error
	codeErr  error
	codeHits int
	deadline bool
}

func (f *fakeClient) ChainID(context.Context) (*big.Int, error) {
	if f.chainID == nil {
		return nil, errors.New("dial tcp: connection refused")
	}
	return f.chainID, nil
}

func (f *fakeClient) CodeAt(_ context.Context, account common.Address, _ *big.Int) ([]byte, error) {
	f.codeHits++
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	return f.code[account], nil
}

func (f *fakeClient) CallContract(ctx context.Context, _ ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	_, f.deadline = ctx.Deadline()
	return f.callOut, f.callErr
}

var deployed = common.HexToAddress("0x1F98431c8aD98523631AE4a59f267346ea31F984")

func newTestReader(t *testing.T, client Client, opts ...ReaderOption) *Reader {
	t.Helper()
	r, err := NewReader(client, logger.NewNop(), opts...)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	return r
}

func TestReader_ConnectResolvesNetwork(t *testing.T) {
	r := newTestReader(t, &fakeClient{chainID: big.NewInt(5)})

	if r.Network() != domain.Unknown {
		t.Fatalf("expected unknown network before connect, got %s", r.Network())
	}
	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if r.Network() != domain.Goerli {
		t.Errorf("expected goerli, got %s", r.Network())
	}
}

func TestReader_ConnectUnknownChain(t *testing.T) {
	r, err := Dial(context.Background(), &fakeClient{chainID: big.NewInt(1337)}, logger.NewNop())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	if r.Network().IsKnown() {
		t.Errorf("expected unknown network, got %s", r.Network())
	}
	if r.Network().ChainID() != 1337 {
		t.Errorf("expected chain id 1337, got %d", r.Network().ChainID())
	}
}

func TestReader_PinnedNetworkSkipsChainID(t *testing.T) {
	// chainID is nil so a call would fail
	r := newTestReader(t, &fakeClient{}, WithNetwork(domain.Polygon))

	if err := r.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if r.Network() != domain.Polygon {
		t.Errorf("expected polygon, got %s", r.Network())
	}
}

func TestReader_ConnectFailureIsTransport(t *testing.T) {
	r := newTestReader(t, &fakeClient{})

	err := r.Connect(context.Background())
	if !domain.IsTransportError(err) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestReader_ContractExistsCachesPositive(t *testing.T) {
	client := &fakeClient{code: map[common.Address][]byte{deployed: {0x60, 0x80}}}
	r := newTestReader(t, client, WithNetwork(domain.Mainnet))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := r.ContractExists(ctx, deployed)
		if err != nil {
			t.Fatalf("ContractExists: %v", err)
		}
		if !ok {
			t.Fatal("expected contract to exist")
		}
	}
	if client.codeHits != 1 {
		t.Errorf("expected 1 eth_getCode, got %d", client.codeHits)
	}

	missing := common.HexToAddress("0x0000000000000000000000000000000000000001")
	for i := 0; i < 2; i++ {
		ok, err := r.ContractExists(ctx, missing)
		if err != nil {
			t.Fatalf("ContractExists: %v", err)
		}
		if ok {
			t.Fatal("expected no contract")
		}
	}
	if client.codeHits != 3 {
		t.Errorf("negative answers should not be cached, got %d calls", client.codeHits)
	}
}

func TestReader_CallContractClassifiesErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  apperror.Code
		transport bool
	}{
		{"revert", errors.New("execution reverted"), apperror.CodeContractCallFailed, false},
		{"revert with reason", errors.New("execution reverted: STF"), apperror.CodeContractCallFailed, false},
		{"network", errors.New("read tcp: i/o timeout"), apperror.CodeEthereumRPCError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestReader(t, &fakeClient{callErr: tt.err}, WithNetwork(domain.Mainnet))

			_, err := r.CallContract(context.Background(), ethereum.CallMsg{To: &deployed}, nil)
			if !apperror.HasCode(err, tt.wantCode) {
				t.Fatalf("expected %s, got %v", tt.wantCode, err)
			}
			if domain.IsTransportError(err) != tt.transport {
				t.Errorf("IsTransportError = %v, want %v", domain.IsTransportError(err), tt.transport)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("expected cause to be preserved")
			}
		})
	}
}

func TestReader_CallContractAppliesTimeout(t *testing.T) {
	client := &fakeClient{callOut: []byte{1}}
	r := newTestReader(t, client, WithNetwork(domain.Mainnet), WithCallTimeout(time.Second))

	out, err := r.CallContract(context.Background(), ethereum.CallMsg{To: &deployed}, nil)
	if err != nil {
		t.Fatalf("CallContract: %v", err)
	}
	if len(out) != 1 {
		t.Errorf("expected passthrough output, got %x", out)
	}
	if !client.deadline {
		t.Error("expected a deadline on the call context")
	}
}

func TestReader_BreakerOpensOnTransportFailures(t *testing.T) {
	client := &fakeClient{callErr: errors.New("connection reset by peer")}
	r := newTestReader(t, client, WithNetwork(domain.Mainnet))
	ctx := context.Background()

	var err error
	for i := 0; i < 6; i++ {
		_, err = r.CallContract(ctx, ethereum.CallMsg{To: &deployed}, nil)
	}
	if !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Fatalf("expected open circuit after repeated failures, got %v", err)
	}
	if !domain.IsTransportError(err) {
		t.Error("open circuit should count as transport failure")
	}
}

func TestReader_RevertsDoNotTripBreaker(t *testing.T) {
	client := &fakeClient{callErr: errors.New("execution reverted")}
	r := newTestReader(t, client, WithNetwork(domain.Mainnet))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := r.CallContract(ctx, ethereum.CallMsg{To: &deployed}, nil)
		if !apperror.HasCode(err, apperror.CodeContractCallFailed) {
			t.Fatalf("call %d: expected revert, got %v", i, err)
		}
	}
}
