/*
Package oracle provides random value sources for the lottery. Requests are answered
asynchronously through a Fulfiller, the way an on-chain oracle calls back into a contract.
*/
package oracle

import (
	"math/big"

	"github.com/pkg/errors"
)

// Fulfiller receives the random value for a request made through an oracle
type Fulfiller interface {
	FulfillRandomValue(requestID string, value *big.Int) error
}

var (
	ErrNoFulfiller = errors.New("oracle has no fulfiller")
	ErrQueueFull   = errors.New("oracle request queue is full")
	ErrStopped     = errors.New("oracle is stopped")
)
