package lottery

import (
	"math/big"
	"sort"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// Ticket is a purchase record. It owns the numbers (LastNumber-Count, LastNumber] of its round
type Ticket struct {
	ID         uint64
	Count      uint64
	LastNumber uint64
	Owner      ethcommon.Address
	Seller     ethcommon.Address
	ReceivedAt int64
}

// FirstNumber returns the lowest ticket number owned by t
func (t *Ticket) FirstNumber() uint64 {
	return t.LastNumber - t.Count + 1
}

// ledger is the append-only ticket book of a single round. Tickets are stored in an arena
// indexed by id-1 and lastNumbers holds the running prefix sum of their counts.
type ledger struct {
	tickets     []*Ticket
	lastNumbers []uint64

	ticketIDs        map[ethcommon.Address][]uint64
	participated     map[ethcommon.Address]bool
	participantCount uint64

	sellers             []ethcommon.Address
	tokenAmountToSeller map[ethcommon.Address]*big.Int

	totalSupply *big.Int
}

func newLedger() *ledger {
	return &ledger{
		ticketIDs:           make(map[ethcommon.Address][]uint64),
		participated:        make(map[ethcommon.Address]bool),
		tokenAmountToSeller: make(map[ethcommon.Address]*big.Int),
		totalSupply:         new(big.Int),
	}
}

func (l *ledger) ticketLastID() uint64 {
	return uint64(len(l.tickets))
}

func (l *ledger) ticketLastNumber() uint64 {
	if len(l.lastNumbers) == 0 {
		return 0
	}
	return l.lastNumbers[len(l.lastNumbers)-1]
}

func (l *ledger) ticket(id uint64) *Ticket {
	if id == 0 || id > uint64(len(l.tickets)) {
		return nil
	}
	return l.tickets[id-1]
}

// append records a purchase of count units and credits the commission and pool shares.
// The caller has already validated the inputs and moved the funds.
func (l *ledger) append(buyer, seller ethcommon.Address, count uint64, sellerShare, pool *big.Int, now int64) *Ticket {
	t := &Ticket{
		ID:         l.ticketLastID() + 1,
		Count:      count,
		LastNumber: l.ticketLastNumber() + count,
		Owner:      buyer,
		Seller:     seller,
		ReceivedAt: now,
	}
	l.tickets = append(l.tickets, t)
	l.lastNumbers = append(l.lastNumbers, t.LastNumber)

	l.markParticipant(buyer)
	l.ticketIDs[buyer] = append(l.ticketIDs[buyer], t.ID)

	if _, ok := l.tokenAmountToSeller[seller]; !ok {
		l.sellers = append(l.sellers, seller)
		l.tokenAmountToSeller[seller] = new(big.Int)
	}
	l.tokenAmountToSeller[seller].Add(l.tokenAmountToSeller[seller], sellerShare)
	l.totalSupply.Add(l.totalSupply, pool)

	return t
}

func (l *ledger) markParticipant(addr ethcommon.Address) {
	if !l.participated[addr] {
		l.participated[addr] = true
		l.participantCount++
	}
}

// transfer moves the ticket at position idx of from's list to the end of to's list
func (l *ledger) transfer(from ethcommon.Address, idx uint64, to ethcommon.Address) (uint64, error) {
	ids := l.ticketIDs[from]
	if idx >= uint64(len(ids)) {
		return 0, ErrIndexOutOfBounds
	}
	id := ids[idx]

	rest := make([]uint64, 0, len(ids)-1)
	rest = append(rest, ids[:idx]...)
	rest = append(rest, ids[idx+1:]...)
	l.ticketIDs[from] = rest

	l.ticketIDs[to] = append(l.ticketIDs[to], id)
	l.tickets[id-1].Owner = to
	l.markParticipant(to)

	return id, nil
}

// ticketIDByNumber returns the id of the ticket whose range contains number, using a
// binary search over the prefix sums. It returns 0 when number is outside [1, ticketLastNumber]
func (l *ledger) ticketIDByNumber(number uint64) uint64 {
	if number == 0 || number > l.ticketLastNumber() {
		return 0
	}
	i := sort.Search(len(l.lastNumbers), func(i int) bool {
		return l.lastNumbers[i] >= number
	})
	return uint64(i) + 1
}

func (l *ledger) isSeller(addr ethcommon.Address) bool {
	_, ok := l.tokenAmountToSeller[addr]
	return ok
}

func (l *ledger) sellerAmount(addr ethcommon.Address) *big.Int {
	amount, ok := l.tokenAmountToSeller[addr]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(amount)
}
