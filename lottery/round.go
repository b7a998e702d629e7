package lottery

import (
	"fmt"
	"math/big"
)

// Status is the lifecycle state of the current round
type Status uint8

// The numeric values match the deployed contract enum
const (
	Accepting Status = iota
	RandomValueGetting
	TokenSending
	Done
	RuleSetting
)

var statusNames = map[Status]string{
	Accepting:          "ACCEPTING",
	RandomValueGetting: "RANDOM_VALUE_GETTING",
	TokenSending:       "TOKEN_SENDING",
	Done:               "DONE",
	RuleSetting:        "RULE_SETTING",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// TokenSendingStatus is the settlement phase while a round is TOKEN_SENDING
type TokenSendingStatus uint8

const (
	SendToSeller TokenSendingStatus = iota
	RandomSend
	DefinitelySend
)

var tokenSendingStatusNames = map[TokenSendingStatus]string{
	SendToSeller:   "SEND_TO_SELLER",
	RandomSend:     "RANDOM_SEND",
	DefinitelySend: "DEFINITELY_SEND",
}

func (s TokenSendingStatus) String() string {
	if name, ok := tokenSendingStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TokenSendingStatus(%d)", uint8(s))
}

// SettlementCursor tracks settlement progress of a round. It is only advanced by the
// settlement steps while the round is TOKEN_SENDING.
type SettlementCursor struct {
	Phase TokenSendingStatus
	// SellerPos is the position of the next seller to pay
	SellerPos int
	// RandomRulePos is the position of the current rule in the frozen registration order
	RandomRulePos int
	// DrawIndex is the 1-based draw of the current random rule
	DrawIndex uint64
	// DefinitelyPos is the position of the next definitely sending rule to pay
	DefinitelyPos int
}

// round is one sale-and-draw cycle
type round struct {
	index          uint64
	opened         bool
	closeTimestamp int64

	ledger *ledger
	rules  *RuleSet

	// frozen when the round leaves ACCEPTING
	totalSupplyByIndex *big.Int

	requestID   string
	randomValue *big.Int

	cursor SettlementCursor
}

func newRound(index uint64) *round {
	return &round{
		index:       index,
		ledger:      newLedger(),
		rules:       &RuleSet{},
		randomValue: new(big.Int),
	}
}

func (r *round) currentRandomRule() *RandomSendingRule {
	if r.cursor.RandomRulePos >= len(r.rules.RandomRules) {
		return nil
	}
	return &r.rules.RandomRules[r.cursor.RandomRulePos]
}

func (r *round) currentDefinitelyRule() *DefinitelySendingRule {
	if r.cursor.DefinitelyPos >= len(r.rules.DefinitelyRules) {
		return nil
	}
	return &r.rules.DefinitelyRules[r.cursor.DefinitelyPos]
}

// RoundInfo is a read-only summary of a round
type RoundInfo struct {
	Index              uint64
	CloseTimestamp     int64
	TicketLastID       uint64
	TicketLastNumber   uint64
	ParticipantCount   uint64
	TotalSupply        *big.Int
	TotalSupplyByIndex *big.Int
	RandomValue        *big.Int
	RequestID          string
	Sellers            int
	Cursor             SettlementCursor
}

func (r *round) info() RoundInfo {
	info := RoundInfo{
		Index:            r.index,
		CloseTimestamp:   r.closeTimestamp,
		TicketLastID:     r.ledger.ticketLastID(),
		TicketLastNumber: r.ledger.ticketLastNumber(),
		ParticipantCount: r.ledger.participantCount,
		TotalSupply:      new(big.Int).Set(r.ledger.totalSupply),
		RandomValue:      new(big.Int).Set(r.randomValue),
		RequestID:        r.requestID,
		Sellers:          len(r.ledger.sellers),
		Cursor:           r.cursor,
	}
	if r.totalSupplyByIndex != nil {
		info.TotalSupplyByIndex = new(big.Int).Set(r.totalSupplyByIndex)
	}
	return info
}
