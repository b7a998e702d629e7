package lottery

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func (l *Lottery) Name() string { return l.cfg.Name }
func (l *Lottery) Symbol() string { return l.cfg.Symbol }
func (l *Lottery) Owner() ethcommon.Address { return l.cfg.Owner }
func (l *Lottery) Account() ethcommon.Address { return l.cfg.Account }
func (l *Lottery) TokenAddress() ethcommon.Address { return l.cfg.TokenAddress }
func (l *Lottery) TicketPrice() *big.Int { return new(big.Int).Set(l.cfg.TicketPrice) }
func (l *Lottery) IsOnlyOwner() bool { return l.cfg.IsOnlyOwner }
func (l *Lottery) Cycle() int64 { return l.cfg.Cycle }
func (l *Lottery) MaxSendingCount() uint64 { return l.registry.MaxSendingCount() }

// SellerCommissionRatio returns the commission applied to new purchases
func (l *Lottery) SellerCommissionRatio() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.sellerCommissionRatio)
}

// Index returns the current round index
func (l *Lottery) Index() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.index
}

// Status returns the lifecycle status of the current round
func (l *Lottery) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}

// TokenSendingStatus returns the settlement phase of the current round
func (l *Lottery) TokenSendingStatus() TokenSendingStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current().cursor.Phase
}

// CloseTimestamp returns the close time of the current round
func (l *Lottery) CloseTimestamp() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current().closeTimestamp
}

// TotalSupply returns the pool accumulated by the current round
func (l *Lottery) TotalSupply() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.current().ledger.totalSupply)
}

// Cursor returns the settlement cursor of the current round
func (l *Lottery) Cursor() SettlementCursor {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current().cursor
}

// SendToSellerIndex returns the position of the next seller to be paid
func (l *Lottery) SendToSellerIndex() int {
	return l.Cursor().SellerPos
}

// CurrentRandomSendingRuleSendingCount returns the 1-based draw of the current random rule
func (l *Lottery) CurrentRandomSendingRuleSendingCount() uint64 {
	return l.Cursor().DrawIndex
}

// CurrentRandomSendingRuleID returns the id of the random rule being drawn, 0 when exhausted
func (l *Lottery) CurrentRandomSendingRuleID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rule := l.current().currentRandomRule(); rule != nil {
		return rule.ID
	}
	return 0
}

// CurrentDefinitelySendingID returns the id of the next definitely rule to pay, 0 when exhausted
func (l *Lottery) CurrentDefinitelySendingID() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if rule := l.current().currentDefinitelyRule(); rule != nil {
		return rule.ID
	}
	return 0
}

// TotalRatio returns the sum of all live rule ratios
func (l *Lottery) TotalRatio() *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.TotalRatio()
}

func (l *Lottery) RandomSendingRuleIDs() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.RandomIDs()
}

func (l *Lottery) RandomSendingRule(id uint64) (RandomSendingRule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Random(id)
}

func (l *Lottery) DefinitelySendingRuleIDs() []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.DefinitelyIDs()
}

func (l *Lottery) DefinitelySendingRule(id uint64) (DefinitelySendingRule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Definitely(id)
}

// Rules returns the live registry in processing order
func (l *Lottery) Rules() *RuleSet {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.registry.Snapshot()
}

// RulesByIndex returns the rule set frozen when the round was opened
func (l *Lottery) RulesByIndex(index uint64) *RuleSet {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.rounds[index]
	if !ok {
		return &RuleSet{}
	}
	rs := &RuleSet{
		RandomRules:     make([]RandomSendingRule, len(r.rules.RandomRules)),
		DefinitelyRules: make([]DefinitelySendingRule, len(r.rules.DefinitelyRules)),
	}
	for i := range r.rules.RandomRules {
		rs.RandomRules[i] = copyRandomRule(&r.rules.RandomRules[i])
	}
	for i := range r.rules.DefinitelyRules {
		rs.DefinitelyRules[i] = copyDefinitelyRule(&r.rules.DefinitelyRules[i])
	}
	return rs
}

// Round returns a summary of the round with the given index
func (l *Lottery) Round(index uint64) (RoundInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	r, ok := l.rounds[index]
	if !ok {
		return RoundInfo{}, false
	}
	return r.info(), true
}

func (l *Lottery) ledgerAt(index uint64) *ledger {
	r, ok := l.rounds[index]
	if !ok {
		return newLedger()
	}
	return r.ledger
}

func (l *Lottery) TicketLastID(index uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).ticketLastID()
}

// TicketLastNumber returns the highest number owned by ticket id. Id 0 yields 0
func (l *Lottery) TicketLastNumber(index, id uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t := l.ledgerAt(index).ticket(id); t != nil {
		return t.LastNumber
	}
	return 0
}

func (l *Lottery) TicketCount(index, id uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t := l.ledgerAt(index).ticket(id); t != nil {
		return t.Count
	}
	return 0
}

func (l *Lottery) TicketOwner(index, id uint64) ethcommon.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t := l.ledgerAt(index).ticket(id); t != nil {
		return t.Owner
	}
	return ethcommon.Address{}
}

func (l *Lottery) TicketReceivedAt(index, id uint64) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if t := l.ledgerAt(index).ticket(id); t != nil {
		return t.ReceivedAt
	}
	return 0
}

// Tickets returns copies of every ticket of a round ordered by id
func (l *Lottery) Tickets(index uint64) []Ticket {
	l.mu.RLock()
	defer l.mu.RUnlock()
	lg := l.ledgerAt(index)
	tickets := make([]Ticket, len(lg.tickets))
	for i, t := range lg.tickets {
		tickets[i] = *t
	}
	return tickets
}

// TicketIDByNumber returns the id of the ticket owning number, 0 if none does
func (l *Lottery) TicketIDByNumber(index, number uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).ticketIDByNumber(number)
}

func (l *Lottery) TicketIDs(index uint64, owner ethcommon.Address) []uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]uint64(nil), l.ledgerAt(index).ticketIDs[owner]...)
}

func (l *Lottery) IsParticipated(index uint64, addr ethcommon.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).participated[addr]
}

func (l *Lottery) ParticipantCount(index uint64) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).participantCount
}

func (l *Lottery) Sellers(index uint64) []ethcommon.Address {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]ethcommon.Address(nil), l.ledgerAt(index).sellers...)
}

func (l *Lottery) IsSeller(index uint64, addr ethcommon.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).isSeller(addr)
}

func (l *Lottery) TokenAmountToSeller(index uint64, addr ethcommon.Address) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.ledgerAt(index).sellerAmount(addr)
}

// TotalSupplyByIndex returns the pool frozen when the round left ACCEPTING, or the running
// pool while it is still open
func (l *Lottery) TotalSupplyByIndex(index uint64) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rounds[index]
	if !ok {
		return new(big.Int)
	}
	if r.totalSupplyByIndex != nil {
		return new(big.Int).Set(r.totalSupplyByIndex)
	}
	return new(big.Int).Set(r.ledger.totalSupply)
}

// RandomValue returns the oracle value of a round, 0 while unset
func (l *Lottery) RandomValue(index uint64) *big.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rounds[index]
	if !ok {
		return new(big.Int)
	}
	return new(big.Int).Set(r.randomValue)
}
