package lottery

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

type stubTransfer struct {
	from   ethcommon.Address
	to     ethcommon.Address
	amount *big.Int
}

// stubToken is a balance-only token acting for the account address
type stubToken struct {
	account   ethcommon.Address
	balances  map[ethcommon.Address]*big.Int
	transfers []stubTransfer

	balanceShouldFail      bool
	transferFromShouldFail bool
	transferShouldFail     bool
}

func newStubToken(account ethcommon.Address) *stubToken {
	return &stubToken{
		account:  account,
		balances: make(map[ethcommon.Address]*big.Int),
	}
}

func (t *stubToken) SetBalance(addr ethcommon.Address, amount *big.Int) {
	t.balances[addr] = new(big.Int).Set(amount)
}

func (t *stubToken) balance(addr ethcommon.Address) *big.Int {
	if b, ok := t.balances[addr]; ok {
		return b
	}
	b := new(big.Int)
	t.balances[addr] = b
	return b
}

func (t *stubToken) move(from, to ethcommon.Address, amount *big.Int) error {
	if t.balance(from).Cmp(amount) < 0 {
		return errors.New("stub token: insufficient balance")
	}
	t.balance(from).Sub(t.balance(from), amount)
	t.balance(to).Add(t.balance(to), amount)
	t.transfers = append(t.transfers, stubTransfer{from: from, to: to, amount: new(big.Int).Set(amount)})
	return nil
}

func (t *stubToken) TransferFrom(from ethcommon.Address, to ethcommon.Address, amount *big.Int) error {
	if t.transferFromShouldFail {
		return errors.New("stub token: transferFrom error")
	}
	return t.move(from, to, amount)
}

func (t *stubToken) Transfer(to ethcommon.Address, amount *big.Int) error {
	if t.transferShouldFail {
		return errors.New("stub token: transfer error")
	}
	return t.move(t.account, to, amount)
}

func (t *stubToken) BalanceOf(addr ethcommon.Address) (*big.Int, error) {
	if t.balanceShouldFail {
		return nil, errors.New("stub token: balanceOf error")
	}
	return new(big.Int).Set(t.balance(addr)), nil
}

// stubOracle hands out sequential request ids and never answers by itself
type stubOracle struct {
	requests   []uint64
	shouldFail bool
}

func (o *stubOracle) RequestRandomValue(roundIndex uint64) (string, error) {
	if o.shouldFail {
		return "", errors.New("stub oracle: request error")
	}
	o.requests = append(o.requests, roundIndex)
	return fmt.Sprintf("request-%d", len(o.requests)), nil
}

func (o *stubOracle) LastRequestID() string {
	return fmt.Sprintf("request-%d", len(o.requests))
}

type stubEventSink struct {
	events []*Event
}

func (s *stubEventSink) HandleEvent(ev *Event) {
	s.events = append(s.events, ev)
}

func (s *stubEventSink) Kinds() []EventKind {
	kinds := make([]EventKind, len(s.events))
	for i, ev := range s.events {
		kinds[i] = ev.Kind
	}
	return kinds
}
