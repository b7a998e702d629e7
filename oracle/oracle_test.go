package oracle

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/livepeer/go-lottery/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type stubFulfiller struct {
	mu        sync.Mutex
	values    map[string]*big.Int
	failCount int
	calls     int
	done      chan string
}

func newStubFulfiller() *stubFulfiller {
	return &stubFulfiller{
		values: make(map[string]*big.Int),
		done:   make(chan string, 10),
	}
}

func (f *stubFulfiller) FulfillRandomValue(requestID string, value *big.Int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failCount > 0 {
		f.failCount--
		return errors.New("fulfill error")
	}
	f.values[requestID] = value
	f.done <- requestID
	return nil
}

func (f *stubFulfiller) value(id string) *big.Int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.values[id]
}

func waitFor(t *testing.T, ch chan string) string {
	select {
	case id := <-ch:
		return id
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for fulfillment")
	}
	return ""
}

func TestFixed(t *testing.T) {
	defer goleak.VerifyNone(t, common.IgnoreRoutines()...)
	assert := assert.New(t)
	require := require.New(t)

	o := NewFixed(nil)
	assert.Equal(big.NewInt(DefaultFixedValue), o.Value())

	_, err := o.RequestRandomValue(1)
	assert.Equal(ErrNoFulfiller, err)

	f := newStubFulfiller()
	o.SetFulfiller(f)
	id, err := o.RequestRandomValue(3)
	require.Nil(err)
	assert.Equal(id, waitFor(t, f.done))
	o.Wait()

	assert.Equal(big.NewInt(10000), f.value(id))
	round, ok := o.Round(id)
	assert.True(ok)
	assert.Equal(uint64(3), round)

	id2, err := NewFixed(big.NewInt(42)).withFulfiller(f).RequestRandomValue(4)
	require.Nil(err)
	assert.NotEqual(id, id2)
	waitFor(t, f.done)
	assert.Equal(big.NewInt(42), f.value(id2))
}

func (o *Fixed) withFulfiller(f Fulfiller) *Fixed {
	o.SetFulfiller(f)
	return o
}

func TestLocal_ProveAndVerify(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	o := NewLocal(key, nil, LocalConfig{})

	p1, err := o.Prove("request", 1)
	require.Nil(err)
	assert.True(p1.Value.Sign() > 0)
	assert.True(VerifyProof(o.Address(), p1))

	// deterministic per request
	p2, err := o.Prove("request", 1)
	require.Nil(err)
	assert.Equal(p1.Value, p2.Value)

	p3, err := o.Prove("request", 2)
	require.Nil(err)
	assert.NotEqual(p1.Value, p3.Value)

	// tampered proofs are rejected
	forged := *p1
	forged.Value = new(big.Int).Add(p1.Value, big.NewInt(1))
	assert.False(VerifyProof(o.Address(), &forged))
	forged = *p1
	forged.Round = 2
	assert.False(VerifyProof(o.Address(), &forged))

	other, err := crypto.GenerateKey()
	require.Nil(err)
	assert.False(VerifyProof(crypto.PubkeyToAddress(other.PublicKey), p1))
	assert.False(VerifyProof(o.Address(), nil))
}

func TestLocal_AnswersRequests(t *testing.T) {
	defer goleak.VerifyNone(t, common.IgnoreRoutines()...)
	assert := assert.New(t)
	require := require.New(t)

	key, err := crypto.GenerateKey()
	require.Nil(err)
	f := newStubFulfiller()
	f.failCount = 2
	o := NewLocal(key, f, LocalConfig{RetryInterval: time.Millisecond, Delay: time.Millisecond})

	done := make(chan struct{})
	go func() {
		assert.Nil(o.Start())
		close(done)
	}()

	id, err := o.RequestRandomValue(7)
	require.Nil(err)
	_, ok := o.Pending(id)
	assert.True(ok)

	assert.Equal(id, waitFor(t, f.done))
	proof, err := o.Prove(id, 7)
	require.Nil(err)
	assert.Equal(proof.Value, f.value(id))
	assert.Equal(3, f.calls)

	o.Stop()
	<-done

	// answered requests are no longer pending and a stopped oracle refuses new ones
	_, ok = o.Pending(id)
	assert.False(ok)
	_, err = o.RequestRandomValue(8)
	assert.Equal(ErrStopped, err)
	o.Stop()
}

func TestLocal_QueueFull(t *testing.T) {
	assert := assert.New(t)
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	o := NewLocal(key, newStubFulfiller(), LocalConfig{QueueSize: 1})

	id, err := o.RequestRandomValue(1)
	assert.Nil(err)
	_, err = o.RequestRandomValue(1)
	assert.Equal(ErrQueueFull, err)

	_, ok := o.Pending(id)
	assert.True(ok)
}

func TestLocal_StartWithoutFulfiller(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.Nil(t, err)
	assert.Equal(t, ErrNoFulfiller, NewLocal(key, nil, LocalConfig{}).Start())
}
