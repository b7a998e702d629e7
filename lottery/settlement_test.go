package lottery

import (
	"errors"
	"math/big"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedLottery(t *testing.T, token Token) (*Lottery, *stubOracle) {
	setTime(testStartTime)
	oracle := &stubOracle{}
	l, err := NewLottery(defaultConfig(), token, oracle)
	require.Nil(t, err)
	return l, oracle
}

func TestSettlement_MockedTokenCalls(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	token := NewMockToken(ctrl)
	l, oracle := newMockedLottery(t, token)

	_, err := l.CreateDefinitelySendingRule(owner, Percent(10), partner)
	require.Nil(err)
	require.Nil(l.ComplatedRuleSetting(owner))
	require.Nil(l.StatusToAccepting(owner, 0))

	cost := TicketCost(ticketPrice, 2)
	gomock.InOrder(
		token.EXPECT().BalanceOf(buyer1).Return(initialBalance, nil),
		token.EXPECT().TransferFrom(buyer1, account, cost).Return(nil),
	)
	_, err = l.BuyTicket(buyer1, 2, seller)
	require.Nil(err)

	closeAndFulfill(t, l, oracle, 10000)

	// seller payout fails on the token and leaves the cursor untouched
	commission := big.NewInt(200000000000000000)
	gomock.InOrder(
		token.EXPECT().BalanceOf(account).Return(cost, nil),
		token.EXPECT().Transfer(seller, commission).Return(errors.New("reverted")),
	)
	err = l.SendToSeller(owner)
	assert.Equal("TransferFailed", ErrorCode(err))
	assert.Contains(err.Error(), "reverted")
	assert.Equal(0, l.SendToSellerIndex())

	gomock.InOrder(
		token.EXPECT().BalanceOf(account).Return(nil, errors.New("rpc down")),
	)
	err = l.SendToSeller(owner)
	assert.Equal(ClassTransfer, Class(err))

	gomock.InOrder(
		token.EXPECT().BalanceOf(account).Return(cost, nil),
		token.EXPECT().Transfer(seller, commission).Return(nil),
	)
	require.Nil(l.SendToSeller(owner))

	// no random rules: straight to the partner, 10% of 1.98e19
	partnerShare := big.NewInt(1980000000000000000)
	gomock.InOrder(
		token.EXPECT().BalanceOf(account).Return(cost, nil),
		token.EXPECT().Transfer(partner, partnerShare).Return(nil),
	)
	require.Nil(l.DefinitelySend(owner))
	assert.Equal(Done, l.Status())
}

func TestSettlement_ZeroAmountSkipsToken(t *testing.T) {
	require := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	// no calls are expected on the token
	token := NewMockToken(ctrl)
	l, oracle := newMockedLottery(t, token)

	_, err := l.CreateDefinitelySendingRule(owner, Percent(10), partner)
	require.Nil(err)
	require.Nil(l.ComplatedRuleSetting(owner))
	require.Nil(l.StatusToAccepting(owner, 0))

	closeAndFulfill(t, l, oracle, 1)
	require.Nil(l.DefinitelySend(owner))
	require.Equal(Done, l.Status())
}

func TestSettlement_RandomSendTicketMismatch(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	l, token, oracle, sink := newAcceptingLottery(t)

	_, err := l.BuyTicket(buyer1, 3, seller)
	require.Nil(err)
	_, err = l.BuyTicket(buyer2, 3, seller)
	require.Nil(err)
	closeAndFulfill(t, l, oracle, 10000)
	require.Nil(l.SendToSeller(owner))

	before := len(token.transfers)
	events := len(sink.events)

	// winner of rule 1 draw 1 out of 6 numbers
	winner, err := l.WinnerTicketID()
	require.Nil(err)
	for _, id := range []uint64{0, 3, 3 - winner} {
		err = l.RandomSend(owner, id)
		assert.Equal(ErrTicketIDMismatch, err)
		assert.Equal(ClassConsistency, Class(err))
	}
	assert.Len(token.transfers, before)
	assert.Len(sink.events, events)
	assert.Equal(uint64(1), l.CurrentRandomSendingRuleSendingCount())

	require.Nil(l.RandomSend(stranger, winner))
	assert.Len(token.transfers, before+1)
}

func TestSettlement_PaysCurrentTicketOwner(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	l, token, oracle, _ := newAcceptingLottery(t)

	// the owner holds every ticket then hands one to buyer3
	_, err := l.BuyTicket(owner, 9, seller)
	require.Nil(err)
	require.Nil(l.SendTicket(owner, 0, buyer3))

	closeAndFulfill(t, l, oracle, 10000)
	require.Nil(l.SendToSeller(owner))

	id, err := l.WinnerTicketID()
	require.Nil(err)
	assert.Equal(uint64(1), id)

	before := new(big.Int).Set(token.balance(buyer3))
	require.Nil(l.RandomSend(owner, id))
	gain := new(big.Int).Sub(token.balance(buyer3), before)
	assert.Equal(RandomDrawPayout(l.TotalSupplyByIndex(1), Percent(25), 1), gain)
}

func TestSettlement_StepsRejectedOutsideTokenSending(t *testing.T) {
	assert := assert.New(t)
	l, _, _, _ := newAcceptingLottery(t)

	assert.Equal(ErrInvalidStatus, l.SendToSeller(owner))
	assert.Equal(ErrInvalidStatus, l.RandomSend(owner, 1))
	assert.Equal(ErrInvalidStatus, l.DefinitelySend(owner))
	_, err := l.ConvertRandomValueToWinnerTicketNumber()
	assert.Equal(ErrInvalidStatus, err)
	_, err = l.WinnerTicketID()
	assert.Equal(ErrInvalidStatus, err)
}

func TestSettlement_EventOrder(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	l, _, oracle, sink := newAcceptingLottery(t)

	_, err := l.BuyTicket(buyer1, 1, seller)
	require.Nil(err)
	closeAndFulfill(t, l, oracle, 10000)
	require.Nil(l.SendToSeller(owner))
	for i := 0; i < 5; i++ {
		require.Nil(l.RandomSend(owner, 1))
	}
	require.Nil(l.DefinitelySend(owner))
	require.Nil(l.DefinitelySend(owner))

	assert.Equal([]EventKind{
		EventStatusChanged, // DONE
		EventStatusChanged, // ACCEPTING
		EventTicketPurchased,
		EventStatusChanged, // RANDOM_VALUE_GETTING
		EventRandomValueFulfilled,
		EventStatusChanged, // TOKEN_SENDING
		EventSellerPaid,
		EventRandomSent,
		EventRandomSent,
		EventRandomSent,
		EventRandomSent,
		EventRandomSent,
		EventDefinitelySent,
		EventDefinitelySent,
		EventStatusChanged, // DONE
	}, sink.Kinds())

	last := sink.events[len(sink.events)-1]
	assert.Equal(Done, last.Status)
	assert.Equal(uint64(1), last.Round)
}
