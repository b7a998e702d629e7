/*
Package token provides an in-memory ERC-20 style ledger used when the lottery runs off-chain.
*/
package token

import (
	"math/big"
	"sync"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/pkg/errors"
)

var (
	ErrInsufficientBalance   = errors.New("ERC20: transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("ERC20: insufficient allowance")
	ErrZeroAddress           = errors.New("ERC20: zero address")
	ErrNegativeAmount        = errors.New("ERC20: negative amount")
)

// Ledger keeps balances and allowances in memory
type Ledger struct {
	mu         sync.RWMutex
	balances   map[ethcommon.Address]*big.Int
	allowances map[ethcommon.Address]map[ethcommon.Address]*big.Int
	supply     *big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:   make(map[ethcommon.Address]*big.Int),
		allowances: make(map[ethcommon.Address]map[ethcommon.Address]*big.Int),
		supply:     new(big.Int),
	}
}

func checkAmount(to ethcommon.Address, amount *big.Int) error {
	if to == (ethcommon.Address{}) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (l *Ledger) balance(addr ethcommon.Address) *big.Int {
	b, ok := l.balances[addr]
	if !ok {
		b = new(big.Int)
		l.balances[addr] = b
	}
	return b
}

// Mint creates amount tokens for to
func (l *Ledger) Mint(to ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(to, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.balance(to).Add(l.balance(to), amount)
	l.supply.Add(l.supply, amount)

	glog.V(common.DEBUG).Infof("Minted tokens to=%x amount=%v", to, amount)
	return nil
}

// Approve sets the amount spender may move out of owner's balance
func (l *Ledger) Approve(owner, spender ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(spender, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.allowances[owner]; !ok {
		l.allowances[owner] = make(map[ethcommon.Address]*big.Int)
	}
	l.allowances[owner][spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining amount spender may move out of owner's balance
func (l *Ledger) Allowance(owner, spender ethcommon.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if a, ok := l.allowances[owner][spender]; ok {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

func (l *Ledger) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

func (l *Ledger) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.supply)
}

// Transfer moves amount from from to to
func (l *Ledger) Transfer(from, to ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(to, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom moves amount from from to to on behalf of spender, consuming allowance
func (l *Ledger) TransferFrom(spender, from, to ethcommon.Address, amount *big.Int) error {
	if err := checkAmount(to, amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, ok := l.allowances[from][spender]
	if !ok || allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (l *Ledger) move(from, to ethcommon.Address, amount *big.Int) error {
	if l.balance(from).Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "from=%x balance=%v amount=%v", from, l.balance(from), amount)
	}
	l.balance(from).Sub(l.balance(from), amount)
	l.balance(to).Add(l.balance(to), amount)

	glog.V(common.VERBOSE).Infof("Token transfer from=%x to=%x amount=%v", from, to, amount)
	return nil
}

// Account binds the ledger to the address whose funds Transfer spends and which acts as the
// spender of TransferFrom, matching how a contract holding the pool uses an ERC-20 token
type Account struct {
	ledger  *Ledger
	address ethcommon.Address
}

// ForAccount returns a view of the ledger acting for address
func (l *Ledger) ForAccount(address ethcommon.Address) *Account {
	return &Account{ledger: l, address: address}
}

func (a *Account) Address() ethcommon.Address {
	return a.address
}

func (a *Account) TransferFrom(from, to ethcommon.Address, amount *big.Int) error {
	return a.ledger.TransferFrom(a.address, from, to, amount)
}

func (a *Account) Transfer(to ethcommon.Address, amount *big.Int) error {
	return a.ledger.Transfer(a.address, to, amount)
}

func (a *Account) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	return a.ledger.BalanceOf(addr)
}
