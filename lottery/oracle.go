package lottery

// RandomOracle is the source of a round's random value. Requests are answered
// asynchronously through Lottery.FulfillRandomValue. Implementations must not call back into
// the lottery from within RequestRandomValue.
type RandomOracle interface {
	// RequestRandomValue asks for a random value for the round and returns the request id
	// the answer will carry
	RequestRandomValue(roundIndex uint64) (string, error)
}
