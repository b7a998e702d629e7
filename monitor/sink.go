package monitor

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/livepeer/go-lottery/lottery"
)

// EventData is the Kafka payload of a lottery event. Amounts are decimal strings of base
// token units.
type EventData struct {
	Round          uint64 `json:"round"`
	Status         string `json:"status,omitempty"`
	CloseTimestamp int64  `json:"close_timestamp,omitempty"`
	TicketID       uint64 `json:"ticket_id,omitempty"`
	TicketNumber   uint64 `json:"ticket_number,omitempty"`
	Units          uint64 `json:"units,omitempty"`
	RuleID         uint64 `json:"rule_id,omitempty"`
	DrawIndex      uint64 `json:"draw_index,omitempty"`
	Account        string `json:"account,omitempty"`
	Counterparty   string `json:"counterparty,omitempty"`
	Amount         string `json:"amount,omitempty"`
	RandomValue    string `json:"random_value,omitempty"`
	Timestamp      int64  `json:"timestamp"`
}

// EventSink records lottery events as metrics when Enabled and publishes them to Kafka
// when a producer has been initialized.
type EventSink struct{}

func NewEventSink() *EventSink {
	return &EventSink{}
}

func (s *EventSink) HandleEvent(ev *lottery.Event) {
	if Enabled {
		recordEvent(ev)
	}
	SendQueueEventAsync(ev.Kind.String(), NewEventData(ev))
}

func recordEvent(ev *lottery.Event) {
	switch {
	case ev.Kind == lottery.EventStatusChanged:
		RoundStatus(ev.Round, ev.Status.String(), int64(ev.Status), ev.Amount)
	case ev.Kind == lottery.EventTicketPurchased:
		TicketPurchased(ev.Units, ev.Amount)
	case ev.Kind == lottery.EventTicketSent:
		TicketSent()
	case ev.Kind == lottery.EventRandomValueFulfilled:
		RandomValueFulfilled()
	case ev.Kind.IsPayout():
		Payout(ev.Kind.String(), ev.Amount)
	}
}

func NewEventData(ev *lottery.Event) *EventData {
	d := &EventData{
		Round:          ev.Round,
		CloseTimestamp: ev.CloseTimestamp,
		TicketID:       ev.TicketID,
		TicketNumber:   ev.TicketNumber,
		Units:          ev.Units,
		RuleID:         ev.RuleID,
		DrawIndex:      ev.DrawIndex,
		Amount:         bigString(ev.Amount),
		RandomValue:    bigString(ev.RandomValue),
		Timestamp:      ev.Timestamp,
	}
	if ev.Kind == lottery.EventStatusChanged {
		d.Status = ev.Status.String()
	}
	if ev.Account != (ethcommon.Address{}) {
		d.Account = ev.Account.Hex()
	}
	if ev.Counterparty != (ethcommon.Address{}) {
		d.Counterparty = ev.Counterparty.Hex()
	}
	return d
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
