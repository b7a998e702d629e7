package lottery

import (
	"fmt"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

// EventKind identifies the state change an Event describes
type EventKind uint8

const (
	EventStatusChanged EventKind = iota
	EventTicketPurchased
	EventTicketSent
	EventRandomValueFulfilled
	EventSellerPaid
	EventRandomSent
	EventDefinitelySent
)

var eventKindNames = map[EventKind]string{
	EventStatusChanged:        "status_changed",
	EventTicketPurchased:      "ticket_purchased",
	EventTicketSent:           "ticket_sent",
	EventRandomValueFulfilled: "random_value_fulfilled",
	EventSellerPaid:           "seller_paid",
	EventRandomSent:           "random_sent",
	EventDefinitelySent:       "definitely_sent",
}

func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", uint8(k))
}

// IsPayout returns true for the settlement transfers
func (k EventKind) IsPayout() bool {
	return k == EventSellerPaid || k == EventRandomSent || k == EventDefinitelySent
}

// Event describes a committed state change. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind
	Round     uint64
	Timestamp int64

	Status         Status
	CloseTimestamp int64

	TicketID     uint64
	TicketNumber uint64
	Units        uint64
	RuleID       uint64
	DrawIndex    uint64

	// Account is the buyer, payee or new ticket owner
	Account ethcommon.Address
	// Counterparty is the seller of a purchase or previous owner of a sent ticket
	Counterparty ethcommon.Address
	// Amount is the transferred value, or the round's pool for status changes
	Amount      *big.Int
	RandomValue *big.Int
}

// EventSink receives every Event after the state change has been committed. Sinks are called
// synchronously while the lottery is locked and must not call back into it.
type EventSink interface {
	HandleEvent(ev *Event)
}
