package oracle

import (
	"math/big"
	"sync"

	"github.com/golang/glog"
	"github.com/google/uuid"
)

// DefaultFixedValue is the value answered by a Fixed oracle created without one
const DefaultFixedValue = 10000

// Fixed answers every request with the same value. It makes draws reproducible in test
// deployments.
type Fixed struct {
	value *big.Int

	mu        sync.Mutex
	fulfiller Fulfiller
	requests  map[string]uint64
	wg        sync.WaitGroup
}

// NewFixed creates a Fixed oracle answering value, or DefaultFixedValue when value is nil
func NewFixed(value *big.Int) *Fixed {
	if value == nil || value.Sign() <= 0 {
		value = big.NewInt(DefaultFixedValue)
	}
	return &Fixed{
		value:    new(big.Int).Set(value),
		requests: make(map[string]uint64),
	}
}

// SetFulfiller sets the receiver of the answers
func (o *Fixed) SetFulfiller(f Fulfiller) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.fulfiller = f
}

func (o *Fixed) Value() *big.Int {
	return new(big.Int).Set(o.value)
}

// RequestRandomValue registers a request and answers it on a separate goroutine
func (o *Fixed) RequestRandomValue(roundIndex uint64) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.fulfiller == nil {
		return "", ErrNoFulfiller
	}
	id := uuid.New().String()
	o.requests[id] = roundIndex

	o.wg.Add(1)
	go o.deliver(o.fulfiller, id, roundIndex)

	return id, nil
}

func (o *Fixed) deliver(f Fulfiller, id string, roundIndex uint64) {
	defer o.wg.Done()

	if err := f.FulfillRandomValue(id, o.Value()); err != nil {
		glog.Errorf("Fixed oracle could not fulfill request round=%d requestID=%v err=%q", roundIndex, id, err)
		return
	}
	glog.Infof("Fixed oracle fulfilled request round=%d requestID=%v value=%v", roundIndex, id, o.value)
}

// Round returns the round index a request was made for
func (o *Fixed) Round(requestID string) (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r, ok := o.requests[requestID]
	return r, ok
}

// Wait blocks until every answer has been delivered
func (o *Fixed) Wait() {
	o.wg.Wait()
}
