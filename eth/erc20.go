package eth

import (
	"context"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/pkg/errors"
)

// ERC20ABI is the subset of the ERC-20 interface the lottery uses
const ERC20ABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"},
	{"constant":true,"inputs":[],"name":"totalSupply","outputs":[{"name":"","type":"uint256"}],"type":"function","stateMutability":"view"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function","stateMutability":"view"},
	{"constant":true,"inputs":[],"name":"symbol","outputs":[{"name":"","type":"string"}],"type":"function","stateMutability":"view"},
	{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function","stateMutability":"nonpayable"},
	{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"type":"function","stateMutability":"nonpayable"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function","stateMutability":"nonpayable"},
	{"anonymous":false,"inputs":[{"indexed":true,"name":"from","type":"address"},{"indexed":true,"name":"to","type":"address"},{"indexed":false,"name":"value","type":"uint256"}],"name":"Transfer","type":"event"}
]`

var ErrTxFailed = errors.New("transaction reverted")

// Backend is the part of an Ethereum client the token needs. *ethclient.Client implements it
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// ERC20Config tunes an ERC20 token. Zero values select the defaults
type ERC20Config struct {
	// TxTimeout bounds the wait for a transaction to be mined
	TxTimeout time.Duration
	// CallRetries and RetryInterval control retries of read calls
	CallRetries   uint64
	RetryInterval time.Duration
	// GasLimit and GasPrice are passed to every transaction. Zero values are estimated
	GasLimit uint64
	GasPrice *big.Int
}

func (c *ERC20Config) setDefaults() {
	if c.TxTimeout <= 0 {
		c.TxTimeout = 5 * time.Minute
	}
	if c.CallRetries == 0 {
		c.CallRetries = 3
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
}

// ERC20 is an ERC-20 contract used through the lottery account held by am. It implements
// lottery.Token. Transactions are sent one at a time and each call returns once the
// transaction has been mined.
type ERC20 struct {
	address  ethcommon.Address
	backend  Backend
	contract *bind.BoundContract
	am       AccountManager
	cfg      ERC20Config

	txMu sync.Mutex
}

func NewERC20(address ethcommon.Address, backend Backend, am AccountManager, cfg ERC20Config) (*ERC20, error) {
	parsed, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, err
	}
	cfg.setDefaults()

	return &ERC20{
		address:  address,
		backend:  backend,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
		am:       am,
		cfg:      cfg,
	}, nil
}

func (t *ERC20) Address() ethcommon.Address {
	return t.address
}

// Account returns the address the token acts for
func (t *ERC20) Account() ethcommon.Address {
	return t.am.Account().Address
}

func (t *ERC20) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	return t.callBig("balanceOf", addr)
}

func (t *ERC20) Allowance(owner, spender ethcommon.Address) (*big.Int, error) {
	return t.callBig("allowance", owner, spender)
}

func (t *ERC20) TotalSupply() (*big.Int, error) {
	return t.callBig("totalSupply")
}

// Transfer sends amount from the lottery account to to
func (t *ERC20) Transfer(to ethcommon.Address, amount *big.Int) error {
	return t.transact("transfer", to, amount)
}

// TransferFrom moves amount from from to to using the allowance granted to the lottery account
func (t *ERC20) TransferFrom(from, to ethcommon.Address, amount *big.Int) error {
	return t.transact("transferFrom", from, to, amount)
}

// Approve lets spender move amount of the lottery account's tokens
func (t *ERC20) Approve(spender ethcommon.Address, amount *big.Int) error {
	return t.transact("approve", spender, amount)
}

func (t *ERC20) callBig(method string, params ...interface{}) (*big.Int, error) {
	var val *big.Int
	call := func() error {
		var out []interface{}
		if err := t.contract.Call(&bind.CallOpts{Context: context.Background()}, &out, method, params...); err != nil {
			return err
		}
		if len(out) != 1 {
			return &backoff.PermanentError{Err: errors.Errorf("unexpected %v output length %d", method, len(out))}
		}
		v, ok := out[0].(*big.Int)
		if !ok {
			return &backoff.PermanentError{Err: errors.Errorf("unexpected %v output type %T", method, out[0])}
		}
		val = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		glog.Warningf("Token call failed method=%v retry in %v err=%q", method, wait, err)
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(t.cfg.RetryInterval), t.cfg.CallRetries)
	if err := backoff.RetryNotify(call, b, notify); err != nil {
		return nil, errors.Wrapf(err, "token call %v", method)
	}
	return val, nil
}

func (t *ERC20) transact(method string, params ...interface{}) error {
	t.txMu.Lock()
	defer t.txMu.Unlock()

	opts, err := t.am.CreateTransactOpts(t.cfg.GasLimit, t.cfg.GasPrice)
	if err != nil {
		return err
	}
	tx, err := t.contract.Transact(opts, method, params...)
	if err != nil {
		return errors.Wrapf(err, "could not send %v", method)
	}

	glog.V(common.DEBUG).Infof("Sent token tx method=%v hash=%v", method, tx.Hash().Hex())

	return t.checkTx(tx)
}

func (t *ERC20) checkTx(tx *types.Transaction) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.TxTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(ctx, t.backend, tx)
	if err != nil {
		return err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return errors.Wrapf(ErrTxFailed, "tx %v", tx.Hash().Hex())
	}
	return nil
}
