package oracle

import (
	"crypto/ecdsa"
	"math/big"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/livepeer/go-lottery/common"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
)

const uint256Size = 32

// Request is a random value request waiting to be answered
type Request struct {
	ID          string
	Round       uint64
	RequestedAt time.Time
}

// Proof lets anyone holding the oracle's address check that Value was derived from the
// request by the oracle's key
type Proof struct {
	RequestID string
	Round     uint64
	Signature []byte
	Value     *big.Int
}

// LocalConfig tunes a Local oracle. Zero values select the defaults
type LocalConfig struct {
	// Delay before a request is answered
	Delay time.Duration
	// RequestTTL is how long an unanswered request is kept
	RequestTTL time.Duration
	// QueueSize bounds the number of requests waiting to be answered
	QueueSize int
	// RetryInterval and MaxRetries control redelivery when fulfillment fails
	RetryInterval time.Duration
	MaxRetries    uint64
}

func (c *LocalConfig) setDefaults() {
	if c.RequestTTL <= 0 {
		c.RequestTTL = time.Hour
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 16
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = 2 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 5
	}
}

// Local is a signing oracle. The value of a request is keccak256 of the deterministic
// secp256k1 signature of the request digest, so it cannot be chosen by the requester and
// can be verified against the oracle's address.
type Local struct {
	key       *ecdsa.PrivateKey
	fulfiller Fulfiller
	cfg       LocalConfig

	pending *cache.Cache
	queue   chan *Request
	quit    chan struct{}
	once    sync.Once
}

// NewLocal creates a Local oracle answering through fulfiller. Start must be running for
// requests to be answered.
func NewLocal(key *ecdsa.PrivateKey, fulfiller Fulfiller, cfg LocalConfig) *Local {
	cfg.setDefaults()
	return &Local{
		key:       key,
		fulfiller: fulfiller,
		cfg:       cfg,
		pending:   cache.New(cfg.RequestTTL, cfg.RequestTTL),
		queue:     make(chan *Request, cfg.QueueSize),
		quit:      make(chan struct{}),
	}
}

// SetFulfiller sets the receiver of the answers. It must be called before Start
func (o *Local) SetFulfiller(f Fulfiller) {
	o.fulfiller = f
}

// Address returns the account whose signatures back the values
func (o *Local) Address() ethcommon.Address {
	return crypto.PubkeyToAddress(o.key.PublicKey)
}

// RequestRandomValue queues a request and returns its id
func (o *Local) RequestRandomValue(roundIndex uint64) (string, error) {
	select {
	case <-o.quit:
		return "", ErrStopped
	default:
	}

	req := &Request{
		ID:          uuid.New().String(),
		Round:       roundIndex,
		RequestedAt: time.Now(),
	}
	o.pending.Set(req.ID, req, cache.DefaultExpiration)
	select {
	case o.queue <- req:
	default:
		o.pending.Delete(req.ID)
		return "", ErrQueueFull
	}

	glog.V(common.DEBUG).Infof("Queued random value request round=%d requestID=%v", roundIndex, req.ID)

	return req.ID, nil
}

// Pending returns a request that has not been answered yet
func (o *Local) Pending(requestID string) (*Request, bool) {
	v, ok := o.pending.Get(requestID)
	if !ok {
		return nil, false
	}
	return v.(*Request), true
}

// Start answers queued requests until Stop is called
func (o *Local) Start() error {
	if o.fulfiller == nil {
		return ErrNoFulfiller
	}
	for {
		select {
		case <-o.quit:
			glog.Infof("Stopping local oracle")
			return nil
		case req := <-o.queue:
			if o.cfg.Delay > 0 {
				select {
				case <-o.quit:
					glog.Infof("Stopping local oracle")
					return nil
				case <-time.After(o.cfg.Delay):
				}
			}
			if err := o.answer(req); err != nil {
				glog.Errorf("Could not answer random value request round=%d requestID=%v err=%q", req.Round, req.ID, err)
			}
		}
	}
}

// Stop signals the answering loop to exit
func (o *Local) Stop() {
	o.once.Do(func() {
		close(o.quit)
	})
}

func (o *Local) answer(req *Request) error {
	if _, ok := o.pending.Get(req.ID); !ok {
		return errors.Errorf("request expired after %v", o.cfg.RequestTTL)
	}
	proof, err := o.Prove(req.ID, req.Round)
	if err != nil {
		return err
	}

	fulfill := func() error {
		return o.fulfiller.FulfillRandomValue(req.ID, proof.Value)
	}
	notify := func(err error, wait time.Duration) {
		glog.Warningf("Random value fulfillment failed round=%d requestID=%v retry in %v err=%q", req.Round, req.ID, wait, err)
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(o.cfg.RetryInterval), o.cfg.MaxRetries)
	if err := backoff.RetryNotify(fulfill, b, notify); err != nil {
		return err
	}
	o.pending.Delete(req.ID)

	glog.Infof("Answered random value request round=%d requestID=%v", req.Round, req.ID)
	return nil
}

func requestDigest(requestID string, roundIndex uint64) []byte {
	return crypto.Keccak256(
		[]byte(requestID),
		ethcommon.LeftPadBytes(new(big.Int).SetUint64(roundIndex).Bytes(), uint256Size),
	)
}

// Prove derives the value for a request together with its signature
func (o *Local) Prove(requestID string, roundIndex uint64) (*Proof, error) {
	sig, err := crypto.Sign(requestDigest(requestID, roundIndex), o.key)
	if err != nil {
		return nil, errors.Wrap(err, "could not sign request")
	}
	return &Proof{
		RequestID: requestID,
		Round:     roundIndex,
		Signature: sig,
		Value:     valueFromSignature(sig),
	}, nil
}

func valueFromSignature(sig []byte) *big.Int {
	v := new(big.Int).SetBytes(crypto.Keccak256(sig))
	// zero is reserved for "not fulfilled"
	if v.Sign() == 0 {
		v.SetInt64(1)
	}
	return v
}

// VerifyProof checks that p was produced by signer
func VerifyProof(signer ethcommon.Address, p *Proof) bool {
	if p == nil || len(p.Signature) != crypto.SignatureLength {
		return false
	}
	pub, err := crypto.SigToPub(requestDigest(p.RequestID, p.Round), p.Signature)
	if err != nil {
		return false
	}
	if crypto.PubkeyToAddress(*pub) != signer {
		return false
	}
	return valueFromSignature(p.Signature).Cmp(p.Value) == 0
}
