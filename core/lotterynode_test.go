package core

import (
	"math/big"
	"sync/atomic"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/oracle"
	"github.com/livepeer/go-lottery/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	owner   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000a1")
	account = ethcommon.HexToAddress("0x00000000000000000000000000000000000000ff")
	buyer   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b1")
	friend  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b2")
	seller  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1")
)

func tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), lottery.RatioScale)
}

type testClock struct {
	now int64
}

func (c *testClock) Now() int64 {
	return atomic.LoadInt64(&c.now)
}

func (c *testClock) Advance(sec int64) {
	atomic.AddInt64(&c.now, sec)
}

func newTestNode(t *testing.T, db *common.DB) (*LotteryNode, *oracle.Fixed, *testClock) {
	clock := &testClock{now: 1700000000}
	ledger := token.NewLedger()
	acct := ledger.ForAccount(account)
	fixed := oracle.NewFixed(nil)

	l, err := lottery.NewLottery(lottery.Config{
		Name:                  "weeklyLottery",
		Symbol:                "WLT",
		Owner:                 owner,
		Account:               account,
		TicketPrice:           tokens(10),
		Cycle:                 3600,
		SellerCommissionRatio: lottery.Percent(1),
		Clock:                 clock.Now,
	}, acct, fixed)
	require.Nil(t, err)
	fixed.SetFulfiller(l)

	n, err := NewLotteryNode("node", l, acct, db, ledger)
	require.Nil(t, err)
	return n, fixed, clock
}

func TestNewLotteryNode_Errors(t *testing.T) {
	_, err := NewLotteryNode("node", nil, token.NewLedger().ForAccount(account), nil, nil)
	assert.Equal(t, ErrLotteryNode, err)
}

func TestLotteryNode_OffchainToken(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	n, _, _ := newTestNode(t, nil)

	require.Nil(n.Mint(buyer, tokens(100)))
	bal, err := n.TokenBalance(buyer)
	require.Nil(err)
	assert.Equal(tokens(100), bal)

	require.Nil(n.Approve(buyer, tokens(30)))
	assert.Equal(tokens(30), n.Ledger.Allowance(buyer, account))

	// without a database the journal queries are empty
	rounds, err := n.RoundHistory()
	assert.Nil(err)
	assert.Empty(rounds)

	n.Ledger = nil
	assert.Equal(ErrNoLedger, n.Mint(buyer, tokens(1)))
	assert.Equal(ErrNoLedger, n.Approve(buyer, tokens(1)))
}

func TestLotteryNode_JournalsRound(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	db, _, err := common.TempDB(t)
	require.Nil(err)
	defer db.Close()
	n, fixed, clock := newTestNode(t, db)
	l := n.Lottery

	for _, addr := range []ethcommon.Address{owner, buyer} {
		require.Nil(n.Mint(addr, tokens(100)))
		require.Nil(n.Approve(addr, tokens(100)))
	}

	_, err = l.CreateRandomSendingRule(owner, lottery.Percent(50), 1)
	require.Nil(err)
	require.Nil(l.ComplatedRuleSetting(owner))
	require.Nil(l.StatusToAccepting(owner, 0))

	_, err = l.BuyTicket(buyer, 2, seller)
	require.Nil(err)
	_, err = l.BuyTicket(owner, 1, seller)
	require.Nil(err)
	require.Nil(l.SendTicket(owner, 0, friend))

	clock.Advance(3600)
	require.Nil(l.StatusToRandomValueGetting(owner))
	fixed.Wait()
	require.Nil(l.StatusToRandomValueGetting(owner))
	require.Equal(lottery.TokenSending, l.Status())

	require.Nil(l.SendToSeller(owner))
	winner, err := l.WinnerTicketID()
	require.Nil(err)
	require.Nil(l.RandomSend(owner, winner))
	require.Equal(lottery.Done, l.Status())

	rounds, err := n.RoundHistory()
	require.Nil(err)
	require.Len(rounds, 1)
	assert.Equal(uint64(1), rounds[0].Index)
	assert.Equal("DONE", rounds[0].Status)
	assert.Equal(big.NewInt(oracle.DefaultFixedValue), rounds[0].RandomValue)
	// 30 tokens less the 1% commission
	assert.Equal(new(big.Int).Div(tokens(2970), big.NewInt(100)), rounds[0].TotalSupply)

	tickets, err := n.JournaledTickets(1)
	require.Nil(err)
	require.Len(tickets, 2)
	assert.Equal(buyer, tickets[0].Owner)
	assert.Equal(uint64(2), tickets[0].LastNumber)
	assert.Equal(tokens(20), tickets[0].Cost)
	assert.Equal(friend, tickets[1].Owner)
	assert.Equal(seller, tickets[1].Seller)

	payouts, err := n.Payouts(nil)
	require.Nil(err)
	require.Len(payouts, 2)
	assert.Equal("seller_paid", payouts[0].Kind)
	assert.Equal(seller, payouts[0].Recipient)
	assert.Equal(new(big.Int).Div(tokens(30), big.NewInt(100)), payouts[0].Amount)
	assert.Equal("random_sent", payouts[1].Kind)
	assert.Equal(uint64(1), payouts[1].RuleID)
	assert.Equal(uint64(1), payouts[1].DrawIndex)
	assert.Equal(winner, payouts[1].TicketID)
	assert.Equal(l.TicketOwner(1, winner), payouts[1].Recipient)
	assert.Equal(new(big.Int).Div(tokens(1485), big.NewInt(100)), payouts[1].Amount)

	bal, err := n.TokenBalance(payouts[1].Recipient)
	require.Nil(err)
	assert.True(bal.Cmp(payouts[1].Amount) >= 0)

	kinds, err := n.Payouts(&common.DBPayoutFilter{Kind: "random_sent"})
	require.Nil(err)
	assert.Len(kinds, 1)
}
