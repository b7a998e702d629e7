/*
Core wires a lottery to the services around it: the token it settles in, its journal and the
event stream.
*/
package core

import (
	"errors"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/monitor"
	"github.com/livepeer/go-lottery/token"
)

var ErrLotteryNode = errors.New("ErrLotteryNode")
var ErrNoLedger = errors.New("node does not run an off-chain token ledger")
var LotteryVersion = "0.1.0-unstable"

// LotteryNode holds a lottery and everything the operator API needs next to it
type LotteryNode struct {
	NodeID   string
	Lottery  *lottery.Lottery
	Token    lottery.Token
	Database *common.DB
	// Ledger is set when the node runs its own token instead of an ERC-20 contract
	Ledger *token.Ledger
}

// NewLotteryNode creates a node around l. db and ledger can be nil.
func NewLotteryNode(nodeID string, l *lottery.Lottery, tok lottery.Token, db *common.DB, ledger *token.Ledger) (*LotteryNode, error) {
	if l == nil || tok == nil {
		glog.Errorf("Cannot create a LotteryNode without a lottery and a token")
		return nil, ErrLotteryNode
	}
	if db != nil {
		l.AddEventSink(NewJournal(db))
	}
	l.AddEventSink(monitor.NewEventSink())

	return &LotteryNode{
		NodeID:   nodeID,
		Lottery:  l,
		Token:    tok,
		Database: db,
		Ledger:   ledger,
	}, nil
}

// TokenBalance returns the balance of addr in the token the lottery settles in
func (n *LotteryNode) TokenBalance(addr ethcommon.Address) (*big.Int, error) {
	return n.Token.BalanceOf(addr)
}

// Mint credits amount to addr on the off-chain ledger
func (n *LotteryNode) Mint(to ethcommon.Address, amount *big.Int) error {
	if n.Ledger == nil {
		return ErrNoLedger
	}
	if err := n.Ledger.Mint(to, amount); err != nil {
		return err
	}
	glog.Infof("Minted tokens to=%x amount=%v", to, amount)
	return nil
}

// Approve lets the lottery account spend amount of owner's off-chain balance
func (n *LotteryNode) Approve(owner ethcommon.Address, amount *big.Int) error {
	if n.Ledger == nil {
		return ErrNoLedger
	}
	return n.Ledger.Approve(owner, n.Lottery.Account(), amount)
}

// RoundHistory returns the journaled rounds, nil without a database
func (n *LotteryNode) RoundHistory() ([]*common.DBRound, error) {
	return n.Database.SelectRounds()
}

// Payouts returns the journaled settlement transfers matching filter
func (n *LotteryNode) Payouts(filter *common.DBPayoutFilter) ([]*common.DBPayout, error) {
	return n.Database.SelectPayouts(filter)
}

// JournaledTickets returns the journaled tickets of a round, including rounds the lottery no
// longer keeps in memory
func (n *LotteryNode) JournaledTickets(round uint64) ([]*common.DBTicket, error) {
	return n.Database.SelectTickets(round)
}
