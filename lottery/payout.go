package lottery

import (
	"math/big"
)

// RatioScale is the fixed point denominator of every ratio (10^18 == 100%)
var RatioScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Percent returns p% as a scaled ratio. Only used for readable configuration.
func Percent(p int64) *big.Int {
	r := new(big.Int).Mul(RatioScale, big.NewInt(p))
	return r.Div(r, big.NewInt(100))
}

// SplitCommission splits a gross purchase amount into the seller's commission and the
// pool contribution. sellerShare = floor(gross * ratio / 10^18), pool = gross - sellerShare
func SplitCommission(gross, ratio *big.Int) (sellerShare *big.Int, pool *big.Int) {
	sellerShare = new(big.Int).Mul(gross, ratio)
	sellerShare.Div(sellerShare, RatioScale)
	pool = new(big.Int).Sub(gross, sellerShare)
	return sellerShare, pool
}

// RandomDrawPayout returns the amount paid to the winner of a single draw of a random
// sending rule: floor(total * ratio / (sendingCount * 10^18))
func RandomDrawPayout(total, ratio *big.Int, sendingCount uint64) *big.Int {
	denom := new(big.Int).Mul(RatioScale, new(big.Int).SetUint64(sendingCount))
	amount := new(big.Int).Mul(total, ratio)
	return amount.Div(amount, denom)
}

// DefinitelyPayout returns the amount paid to the destination of a definitely sending
// rule: floor(total * ratio / 10^18)
func DefinitelyPayout(total, ratio *big.Int) *big.Int {
	amount := new(big.Int).Mul(total, ratio)
	return amount.Div(amount, RatioScale)
}

// TicketCost returns unitCount * ticketPrice
func TicketCost(ticketPrice *big.Int, unitCount uint64) *big.Int {
	return new(big.Int).Mul(ticketPrice, new(big.Int).SetUint64(unitCount))
}
