package lottery

import (
	"math/big"
	"sync"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/pkg/errors"
)

var unixNow = func() int64 {
	return time.Now().Unix()
}

// Config holds the immutable parameters of a lottery
type Config struct {
	Name   string
	Symbol string

	// Owner is allowed to manage rules, lifecycle and tickets
	Owner ethcommon.Address
	// Account is the token account that holds the pool
	Account ethcommon.Address
	// TokenAddress is informational, e.g. the ERC-20 contract address
	TokenAddress ethcommon.Address

	TicketPrice *big.Int
	// IsOnlyOwner restricts ticket purchases to the owner
	IsOnlyOwner bool
	// Cycle is the length in seconds every close timestamp is aligned to
	Cycle int64
	// CloseTimestamp is the close time of the first round. Zero selects the next cycle boundary
	CloseTimestamp int64
	// MaxSendingCount bounds SendingCount of random sending rules. Zero selects DefaultMaxSendingCount
	MaxSendingCount uint64
	// SellerCommissionRatio is the initial commission scaled by 10^18
	SellerCommissionRatio *big.Int
	// Clock returns the current unix time. Nil selects the system clock
	Clock func() int64
}

// Lottery is a round based ticket lottery. Every state changing operation is serialized and
// either fully applied or rejected without effect.
type Lottery struct {
	cfg    Config
	token  Token
	oracle RandomOracle

	mu                    sync.RWMutex
	status                Status
	index                 uint64
	rounds                map[uint64]*round
	registry              *RuleRegistry
	sellerCommissionRatio *big.Int
	// random value request id -> round index
	requests map[string]uint64
	sinks    []EventSink
}

// NewLottery creates a lottery in RULE_SETTING with round index 1
func NewLottery(cfg Config, token Token, oracle RandomOracle) (*Lottery, error) {
	if token == nil {
		return nil, errors.New("missing token")
	}
	if oracle == nil {
		return nil, errors.New("missing random oracle")
	}
	if cfg.TicketPrice == nil || cfg.TicketPrice.Sign() <= 0 {
		return nil, errors.Wrap(ErrZeroValue, "ticket price")
	}
	if cfg.Cycle <= 0 {
		return nil, errors.Wrap(ErrZeroValue, "cycle")
	}
	commission := new(big.Int)
	if cfg.SellerCommissionRatio != nil {
		if err := checkCommissionRatio(cfg.SellerCommissionRatio); err != nil {
			return nil, errors.Wrap(err, "seller commission ratio")
		}
		commission.Set(cfg.SellerCommissionRatio)
	}
	cfg.TicketPrice = new(big.Int).Set(cfg.TicketPrice)

	l := &Lottery{
		cfg:                   cfg,
		token:                 token,
		oracle:                oracle,
		status:                RuleSetting,
		index:                 1,
		rounds:                make(map[uint64]*round),
		registry:              NewRuleRegistry(cfg.MaxSendingCount),
		sellerCommissionRatio: commission,
		requests:              make(map[string]uint64),
	}
	l.rounds[1] = newRound(1)

	return l, nil
}

// AddEventSink registers a sink for committed events
func (l *Lottery) AddEventSink(sink EventSink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sinks = append(l.sinks, sink)
}

func (l *Lottery) emit(ev *Event) {
	ev.Timestamp = l.now()
	for _, sink := range l.sinks {
		sink.HandleEvent(ev)
	}
}

func (l *Lottery) now() int64 {
	if l.cfg.Clock != nil {
		return l.cfg.Clock()
	}
	return unixNow()
}

func (l *Lottery) current() *round {
	return l.rounds[l.index]
}

func (l *Lottery) setStatus(status Status) {
	prev := l.status
	l.status = status
	cur := l.current()
	glog.Infof("Lottery status changed round=%d from=%v to=%v", cur.index, prev, status)
	l.emit(&Event{
		Kind:           EventStatusChanged,
		Round:          cur.index,
		Status:         status,
		CloseTimestamp: cur.closeTimestamp,
		Amount:         new(big.Int).Set(cur.ledger.totalSupply),
	})
}

func (l *Lottery) onlyOwner(caller ethcommon.Address) error {
	if caller != l.cfg.Owner {
		return ErrNotOwner
	}
	return nil
}

func (l *Lottery) onlyRuleSetting(caller ethcommon.Address) error {
	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	if l.status != RuleSetting {
		return ErrInvalidStatus
	}
	return nil
}

func checkCommissionRatio(ratio *big.Int) error {
	if ratio.Sign() < 0 {
		return ErrZeroValue
	}
	if ratio.Cmp(RatioScale) >= 0 {
		return ErrRatioOverflow
	}
	return nil
}

// CreateRandomSendingRule registers a rule that draws sendingCount winners, each paid
// ratio/sendingCount of the pool
func (l *Lottery) CreateRandomSendingRule(caller ethcommon.Address, ratio *big.Int, sendingCount uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyRuleSetting(caller); err != nil {
		return 0, err
	}
	id, err := l.registry.AddRandom(ratio, sendingCount)
	if err != nil {
		return 0, err
	}

	glog.Infof("Created random sending rule id=%d ratio=%v sendingCount=%d", id, ratio, sendingCount)

	return id, nil
}

// DeleteRandomSendingRule removes a random sending rule
func (l *Lottery) DeleteRandomSendingRule(caller ethcommon.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyRuleSetting(caller); err != nil {
		return err
	}
	if err := l.registry.RemoveRandom(id); err != nil {
		return err
	}

	glog.Infof("Deleted random sending rule id=%d", id)

	return nil
}

// CreateDefinitelySendingRule registers a rule that pays ratio of the pool to destination
func (l *Lottery) CreateDefinitelySendingRule(caller ethcommon.Address, ratio *big.Int, destination ethcommon.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyRuleSetting(caller); err != nil {
		return 0, err
	}
	id, err := l.registry.AddDefinitely(ratio, destination)
	if err != nil {
		return 0, err
	}

	glog.Infof("Created definitely sending rule id=%d ratio=%v destination=%x", id, ratio, destination)

	return id, nil
}

// DeleteDefinitelySendingRule removes a definitely sending rule
func (l *Lottery) DeleteDefinitelySendingRule(caller ethcommon.Address, id uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyRuleSetting(caller); err != nil {
		return err
	}
	if err := l.registry.RemoveDefinitely(id); err != nil {
		return err
	}

	glog.Infof("Deleted definitely sending rule id=%d", id)

	return nil
}

// ComplatedRuleSetting freezes the rule registry
func (l *Lottery) ComplatedRuleSetting(caller ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyRuleSetting(caller); err != nil {
		return err
	}
	l.setStatus(Done)

	return nil
}

// StatusToRuleSetting reopens the rule registry between rounds
func (l *Lottery) StatusToRuleSetting(caller ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	if l.status != Done {
		return ErrInvalidStatus
	}
	l.setStatus(RuleSetting)

	return nil
}

// SetSellerCommissionRatio changes the commission deducted from future purchases
func (l *Lottery) SetSellerCommissionRatio(caller ethcommon.Address, ratio *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	if l.status != RuleSetting && l.status != Done {
		return ErrInvalidStatus
	}
	if ratio == nil {
		return ErrZeroValue
	}
	if err := checkCommissionRatio(ratio); err != nil {
		return err
	}
	l.sellerCommissionRatio = new(big.Int).Set(ratio)

	glog.Infof("Seller commission ratio set to %v", ratio)

	return nil
}

// StatusToAccepting opens a round for purchases. When the current round has already been
// opened a new round with the next index is created. closeTimestamp is aligned down to the
// cycle; zero selects the next cycle boundary.
func (l *Lottery) StatusToAccepting(caller ethcommon.Address, closeTimestamp int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}

	cur := l.current()
	switch l.status {
	case Done:
	case RuleSetting:
		// the first round has to go through ComplatedRuleSetting
		if !cur.opened {
			return ErrInvalidStatus
		}
	default:
		return ErrInvalidStatus
	}

	closeAt, err := l.nextCloseTimestamp(cur, closeTimestamp, l.now())
	if err != nil {
		return err
	}

	if cur.opened {
		l.index++
		cur = newRound(l.index)
		l.rounds[l.index] = cur
	}
	cur.opened = true
	cur.closeTimestamp = closeAt
	cur.rules = l.registry.Snapshot()

	l.setStatus(Accepting)

	return nil
}

func (l *Lottery) nextCloseTimestamp(cur *round, requested, now int64) (int64, error) {
	cycle := l.cfg.Cycle
	if requested != 0 {
		aligned := requested - requested%cycle
		if aligned <= now {
			return 0, ErrInvalidCloseTimestamp
		}
		return aligned, nil
	}

	if cur.index == 1 && !cur.opened && l.cfg.CloseTimestamp > now {
		aligned := l.cfg.CloseTimestamp - l.cfg.CloseTimestamp%cycle
		if aligned > now {
			return aligned, nil
		}
	}

	return now - now%cycle + cycle, nil
}

// StatusToRandomValueGetting closes the current round. From ACCEPTING it freezes the pool and
// requests a random value; once the value has been fulfilled a further call starts settlement.
func (l *Lottery) StatusToRandomValueGetting(caller ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur := l.current()
	switch l.status {
	case Accepting:
		if l.now() < cur.closeTimestamp {
			return ErrTooEarly
		}
		requestID, err := l.oracle.RequestRandomValue(cur.index)
		if err != nil {
			return errors.Wrapf(err, "could not request random value round=%d", cur.index)
		}
		cur.totalSupplyByIndex = new(big.Int).Set(cur.ledger.totalSupply)
		cur.requestID = requestID
		l.requests[requestID] = cur.index

		glog.Infof("Requested random value round=%d requestID=%v totalSupply=%v", cur.index, requestID, cur.totalSupplyByIndex)

		l.setStatus(RandomValueGetting)
		return nil
	case RandomValueGetting:
		if cur.randomValue.Sign() == 0 {
			return ErrRandomValueNotReady
		}
		l.startTokenSending(cur)
		return nil
	default:
		return ErrInvalidStatus
	}
}

// FulfillRandomValue stores the oracle's answer for the round the request was made for
func (l *Lottery) FulfillRandomValue(requestID string, value *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	index, ok := l.requests[requestID]
	if !ok {
		return ErrUnknownRequest
	}
	if value == nil || value.Sign() <= 0 {
		return ErrZeroValue
	}
	r := l.rounds[index]
	if r.randomValue.Sign() != 0 {
		glog.Warningf("Ignoring repeated random value fulfillment round=%d requestID=%v", index, requestID)
		return nil
	}
	r.randomValue = new(big.Int).Set(value)

	glog.Infof("Random value fulfilled round=%d requestID=%v", index, requestID)

	l.emit(&Event{
		Kind:        EventRandomValueFulfilled,
		Round:       index,
		RandomValue: new(big.Int).Set(value),
	})

	return nil
}

// BuyTicket buys unitCount ticket numbers for the caller at the ticket price and credits the
// commission to seller. It returns the new ticket id.
func (l *Lottery) BuyTicket(caller ethcommon.Address, unitCount uint64, seller ethcommon.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cfg.IsOnlyOwner {
		if err := l.onlyOwner(caller); err != nil {
			return 0, err
		}
	}

	cur := l.current()
	now := l.now()
	if l.status != Accepting || now >= cur.closeTimestamp {
		return 0, ErrInvalidStatus
	}
	if unitCount == 0 || seller == (ethcommon.Address{}) {
		return 0, ErrZeroValue
	}

	cost := TicketCost(l.cfg.TicketPrice, unitCount)
	balance, err := l.token.BalanceOf(caller)
	if err != nil {
		return 0, errors.Wrapf(ErrTransferFailed, "could not fetch balance of %x: %v", caller, err)
	}
	if balance.Cmp(cost) < 0 {
		return 0, ErrInsufficientBalance
	}
	if err := l.token.TransferFrom(caller, l.cfg.Account, cost); err != nil {
		return 0, errors.Wrapf(ErrTransferFailed, "buyer=%x amount=%v: %v", caller, cost, err)
	}

	sellerShare, pool := SplitCommission(cost, l.sellerCommissionRatio)
	t := cur.ledger.append(caller, seller, unitCount, sellerShare, pool, now)

	glog.V(common.DEBUG).Infof("Ticket purchased round=%d ticketID=%d units=%d buyer=%x seller=%x", cur.index, t.ID, unitCount, caller, seller)

	l.emit(&Event{
		Kind:         EventTicketPurchased,
		Round:        cur.index,
		TicketID:     t.ID,
		TicketNumber: t.LastNumber,
		Units:        unitCount,
		Account:      caller,
		Counterparty: seller,
		Amount:       cost,
	})

	return t.ID, nil
}

// SendTicket moves the ticket at position indexInOwnerList of the caller's ticket list to
// newOwner. The ticket keeps its numbers.
func (l *Lottery) SendTicket(caller ethcommon.Address, indexInOwnerList uint64, newOwner ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.onlyOwner(caller); err != nil {
		return err
	}
	if l.status != Accepting {
		return ErrInvalidStatus
	}

	cur := l.current()
	id, err := cur.ledger.transfer(caller, indexInOwnerList, newOwner)
	if err != nil {
		return err
	}

	glog.V(common.DEBUG).Infof("Ticket sent round=%d ticketID=%d from=%x to=%x", cur.index, id, caller, newOwner)

	l.emit(&Event{
		Kind:         EventTicketSent,
		Round:        cur.index,
		TicketID:     id,
		Account:      newOwner,
		Counterparty: caller,
	})

	return nil
}
