package lottery

import (
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	testCycle = int64(3600)
	// 1700000000 % 3600 == 800
	testStartTime = int64(1700000000)
)

var (
	owner    = ethcommon.HexToAddress("0x00000000000000000000000000000000000000a1")
	account  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000ff")
	buyer1   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b1")
	buyer2   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b2")
	buyer3   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000b3")
	seller   = ethcommon.HexToAddress("0x00000000000000000000000000000000000000c1")
	partner  = ethcommon.HexToAddress("0x00000000000000000000000000000000000000d1")
	stranger = ethcommon.HexToAddress("0x00000000000000000000000000000000000000e1")

	// 10^19
	ticketPrice, _ = new(big.Int).SetString("10000000000000000000", 10)
	// 10^20
	initialBalance, _ = new(big.Int).SetString("100000000000000000000", 10)
)

func setTime(t int64) {
	unixNow = func() int64 {
		return t
	}
}

func increaseTime(sec int64) {
	now := unixNow()
	setTime(now + sec)
}

func bigString(t *testing.T, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "invalid big int %v", s)
	return v
}

func defaultConfig() Config {
	return Config{
		Name:                  "weeklyLottery",
		Symbol:                "WLT",
		Owner:                 owner,
		Account:               account,
		TicketPrice:           ticketPrice,
		Cycle:                 testCycle,
		SellerCommissionRatio: Percent(1),
	}
}

func newTestLottery(t *testing.T, cfg Config) (*Lottery, *stubToken, *stubOracle, *stubEventSink) {
	setTime(testStartTime)

	token := newStubToken(account)
	for _, addr := range []ethcommon.Address{owner, buyer1, buyer2, buyer3, stranger} {
		token.SetBalance(addr, initialBalance)
	}
	oracle := &stubOracle{}
	sink := &stubEventSink{}

	l, err := NewLottery(cfg, token, oracle)
	require.Nil(t, err)
	l.AddEventSink(sink)

	return l, token, oracle, sink
}

// newAcceptingLottery configures the rules used throughout the tests and opens round 1:
// random 25% x1, random 5% x4, definitely 10% to owner, definitely 5% to partner
func newAcceptingLottery(t *testing.T) (*Lottery, *stubToken, *stubOracle, *stubEventSink) {
	require := require.New(t)

	l, token, oracle, sink := newTestLottery(t, defaultConfig())

	_, err := l.CreateRandomSendingRule(owner, Percent(25), 1)
	require.Nil(err)
	_, err = l.CreateRandomSendingRule(owner, Percent(5), 4)
	require.Nil(err)
	_, err = l.CreateDefinitelySendingRule(owner, Percent(10), owner)
	require.Nil(err)
	_, err = l.CreateDefinitelySendingRule(owner, Percent(5), partner)
	require.Nil(err)

	require.Nil(l.ComplatedRuleSetting(owner))
	require.Nil(l.StatusToAccepting(owner, 0))

	return l, token, oracle, sink
}

// closeAndFulfill moves an accepting round to TOKEN_SENDING with the given random value
func closeAndFulfill(t *testing.T, l *Lottery, oracle *stubOracle, value int64) {
	require := require.New(t)

	setTime(l.CloseTimestamp())
	require.Nil(l.StatusToRandomValueGetting(owner))
	require.Nil(l.FulfillRandomValue(oracle.LastRequestID(), big.NewInt(value)))
	require.Nil(l.StatusToRandomValueGetting(owner))
}
