package core

import (
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/lottery"
)

// Journal persists committed lottery events so rounds, tickets and payouts can be queried
// after the in-memory state has moved on. Write failures are logged and do not affect the
// lottery.
type Journal struct {
	db *common.DB
}

func NewJournal(db *common.DB) *Journal {
	return &Journal{db: db}
}

func (j *Journal) HandleEvent(ev *lottery.Event) {
	var err error
	switch {
	case ev.Kind == lottery.EventStatusChanged:
		err = j.db.UpdateRound(&common.DBRound{
			Index:          ev.Round,
			Status:         ev.Status.String(),
			CloseTimestamp: ev.CloseTimestamp,
			TotalSupply:    ev.Amount,
		})
	case ev.Kind == lottery.EventTicketPurchased:
		err = j.db.InsertTicket(&common.DBTicket{
			Round:      ev.Round,
			ID:         ev.TicketID,
			Units:      ev.Units,
			LastNumber: ev.TicketNumber,
			Owner:      ev.Account,
			Seller:     ev.Counterparty,
			Cost:       ev.Amount,
			ReceivedAt: ev.Timestamp,
		})
	case ev.Kind == lottery.EventTicketSent:
		err = j.db.UpdateTicketOwner(ev.Round, ev.TicketID, ev.Account)
	case ev.Kind == lottery.EventRandomValueFulfilled:
		err = j.db.SetRandomValue(ev.Round, ev.RandomValue)
	case ev.Kind.IsPayout():
		err = j.db.InsertPayout(&common.DBPayout{
			Round:     ev.Round,
			Kind:      ev.Kind.String(),
			RuleID:    ev.RuleID,
			DrawIndex: ev.DrawIndex,
			TicketID:  ev.TicketID,
			Recipient: ev.Account,
			Amount:    ev.Amount,
			CreatedAt: ev.Timestamp,
		})
	}
	if err != nil {
		glog.Errorf("Unable to journal lottery event kind=%v round=%d err=%q", ev.Kind, ev.Round, err)
	}
}
