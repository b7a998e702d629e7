package eth

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"testing"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const testPassphrase = "lottery"

var testChainID = big.NewInt(1337)

// sentCall is a decoded token transaction
type sentCall struct {
	from   ethcommon.Address
	method string
	args   []interface{}
}

// stubBackend answers token calls from a balance map and mines every transaction at once
type stubBackend struct {
	mu sync.Mutex

	abi       abi.ABI
	balances  map[ethcommon.Address]*big.Int
	callErrs  int
	calls     int
	sent      []sentCall
	revert    bool
	nonce     uint64
	receipts  map[ethcommon.Hash]*types.Receipt
	sendError error
}

func newStubBackend(t *testing.T) *stubBackend {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	require.Nil(t, err)
	return &stubBackend{
		abi:      parsed,
		balances: make(map[ethcommon.Address]*big.Int),
		receipts: make(map[ethcommon.Hash]*types.Receipt),
	}
}

func (b *stubBackend) CodeAt(ctx context.Context, contract ethcommon.Address, blockNumber *big.Int) ([]byte, error) {
	return []byte{1}, nil
}

func (b *stubBackend) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.callErrs > 0 {
		b.callErrs--
		return nil, errors.New("connection refused")
	}
	method, err := b.abi.MethodById(call.Data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(call.Data[4:])
	if err != nil {
		return nil, err
	}
	switch method.Name {
	case "balanceOf":
		bal, ok := b.balances[args[0].(ethcommon.Address)]
		if !ok {
			bal = big.NewInt(0)
		}
		return method.Outputs.Pack(bal)
	case "totalSupply":
		total := big.NewInt(0)
		for _, v := range b.balances {
			total.Add(total, v)
		}
		return method.Outputs.Pack(total)
	}
	return method.Outputs.Pack(big.NewInt(0))
}

func (b *stubBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(1)}, nil
}

func (b *stubBackend) PendingCodeAt(ctx context.Context, account ethcommon.Address) ([]byte, error) {
	return []byte{1}, nil
}

func (b *stubBackend) PendingNonceAt(ctx context.Context, account ethcommon.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.nonce, nil
}

func (b *stubBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *stubBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *stubBackend) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	return 60000, nil
}

func (b *stubBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendError != nil {
		return b.sendError
	}

	from, err := types.Sender(types.LatestSignerForChainID(testChainID), tx)
	if err != nil {
		return err
	}
	method, err := b.abi.MethodById(tx.Data()[:4])
	if err != nil {
		return err
	}
	args, err := method.Inputs.Unpack(tx.Data()[4:])
	if err != nil {
		return err
	}
	b.sent = append(b.sent, sentCall{from: from, method: method.Name, args: args})
	b.nonce++

	status := types.ReceiptStatusSuccessful
	if b.revert {
		status = types.ReceiptStatusFailed
	}
	b.receipts[tx.Hash()] = &types.Receipt{Status: status, TxHash: tx.Hash()}
	return nil
}

func (b *stubBackend) TransactionReceipt(ctx context.Context, txHash ethcommon.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.receipts[txHash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (b *stubBackend) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *stubBackend) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("not supported")
}

func (b *stubBackend) ChainID(ctx context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.callErrs > 0 {
		b.callErrs--
		return nil, errors.New("connection refused")
	}
	return testChainID, nil
}

// newTestAccountManager creates a keystore holding one account and returns an unlocked
// manager for it
func newTestAccountManager(t *testing.T) AccountManager {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.NewAccount(testPassphrase)
	require.Nil(t, err)

	am, err := NewAccountManager(acct.Address, dir, testChainID)
	require.Nil(t, err)
	require.Nil(t, am.Unlock(testPassphrase))
	return am
}
