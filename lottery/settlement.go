package lottery

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/pkg/errors"
)

func (l *Lottery) startTokenSending(cur *round) {
	cur.cursor = SettlementCursor{
		Phase:     SendToSeller,
		DrawIndex: 1,
	}
	l.setStatus(TokenSending)
	l.skipEmptyPhases(cur)
}

// skipEmptyPhases advances the cursor past phases that have nothing left to pay and marks
// the round DONE once every phase is exhausted
func (l *Lottery) skipEmptyPhases(cur *round) {
	for {
		switch cur.cursor.Phase {
		case SendToSeller:
			if cur.cursor.SellerPos < len(cur.ledger.sellers) {
				return
			}
			cur.cursor.Phase = RandomSend
		case RandomSend:
			if cur.ledger.ticketLastNumber() > 0 && cur.currentRandomRule() != nil {
				return
			}
			cur.cursor.Phase = DefinitelySend
		case DefinitelySend:
			if cur.currentDefinitelyRule() == nil {
				l.setStatus(Done)
			}
			return
		}
		glog.V(common.DEBUG).Infof("Token sending phase advanced round=%d phase=%v", cur.index, cur.cursor.Phase)
	}
}

func (l *Lottery) settlingRound(phase TokenSendingStatus) (*round, error) {
	if l.status != TokenSending {
		return nil, ErrInvalidStatus
	}
	cur := l.current()
	if cur.cursor.Phase != phase {
		return nil, ErrInvalidStatus
	}
	return cur, nil
}

// pay transfers amount from the lottery account to addr. A zero amount is a no-op
func (l *Lottery) pay(to ethcommon.Address, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	balance, err := l.token.BalanceOf(l.cfg.Account)
	if err != nil {
		return errors.Wrapf(ErrTransferFailed, "could not fetch lottery balance: %v", err)
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := l.token.Transfer(to, amount); err != nil {
		return errors.Wrapf(ErrTransferFailed, "to=%x amount=%v: %v", to, amount, err)
	}
	return nil
}

// SendToSeller pays the next seller the commission accumulated during the round
func (l *Lottery) SendToSeller(caller ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.settlingRound(SendToSeller)
	if err != nil {
		return err
	}

	seller := cur.ledger.sellers[cur.cursor.SellerPos]
	amount := cur.ledger.sellerAmount(seller)
	if err := l.pay(seller, amount); err != nil {
		return err
	}
	cur.cursor.SellerPos++

	glog.Infof("Paid seller round=%d seller=%x amount=%v", cur.index, seller, amount)

	l.emit(&Event{
		Kind:    EventSellerPaid,
		Round:   cur.index,
		Account: seller,
		Amount:  amount,
	})
	l.skipEmptyPhases(cur)

	return nil
}

// RandomSend performs the current draw of the current random sending rule and pays the
// current owner of the winning ticket. expectedTicketID must match the winning ticket.
func (l *Lottery) RandomSend(caller ethcommon.Address, expectedTicketID uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.settlingRound(RandomSend)
	if err != nil {
		return err
	}

	rule := cur.currentRandomRule()
	drawIndex := cur.cursor.DrawIndex
	number := WinningTicketNumber(cur.randomValue, rule.ID, drawIndex, cur.ledger.ticketLastNumber())
	ticketID := cur.ledger.ticketIDByNumber(number)
	if ticketID != expectedTicketID {
		return ErrTicketIDMismatch
	}

	winner := cur.ledger.ticket(ticketID).Owner
	amount := RandomDrawPayout(cur.totalSupplyByIndex, rule.Ratio, rule.SendingCount)
	if err := l.pay(winner, amount); err != nil {
		return err
	}

	if drawIndex >= rule.SendingCount {
		cur.cursor.RandomRulePos++
		cur.cursor.DrawIndex = 1
	} else {
		cur.cursor.DrawIndex++
	}

	glog.Infof("Random send round=%d ruleID=%d draw=%d number=%d ticketID=%d winner=%x amount=%v",
		cur.index, rule.ID, drawIndex, number, ticketID, winner, amount)

	l.emit(&Event{
		Kind:         EventRandomSent,
		Round:        cur.index,
		RuleID:       rule.ID,
		DrawIndex:    drawIndex,
		TicketID:     ticketID,
		TicketNumber: number,
		Account:      winner,
		Amount:       amount,
	})
	l.skipEmptyPhases(cur)

	return nil
}

// DefinitelySend pays the next definitely sending rule's destination
func (l *Lottery) DefinitelySend(caller ethcommon.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	cur, err := l.settlingRound(DefinitelySend)
	if err != nil {
		return err
	}

	rule := cur.currentDefinitelyRule()
	amount := DefinitelyPayout(cur.totalSupplyByIndex, rule.Ratio)
	if err := l.pay(rule.Destination, amount); err != nil {
		return err
	}
	cur.cursor.DefinitelyPos++

	glog.Infof("Definitely send round=%d ruleID=%d destination=%x amount=%v", cur.index, rule.ID, rule.Destination, amount)

	l.emit(&Event{
		Kind:    EventDefinitelySent,
		Round:   cur.index,
		RuleID:  rule.ID,
		Account: rule.Destination,
		Amount:  amount,
	})
	l.skipEmptyPhases(cur)

	return nil
}

// ConvertRandomValueToWinnerTicketNumber returns the ticket number the next RandomSend
// will pay
func (l *Lottery) ConvertRandomValueToWinnerTicketNumber() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cur, err := l.settlingRound(RandomSend)
	if err != nil {
		return 0, err
	}
	rule := cur.currentRandomRule()
	return WinningTicketNumber(cur.randomValue, rule.ID, cur.cursor.DrawIndex, cur.ledger.ticketLastNumber()), nil
}

// WinnerTicketID returns the ticket id the next RandomSend expects
func (l *Lottery) WinnerTicketID() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cur, err := l.settlingRound(RandomSend)
	if err != nil {
		return 0, err
	}
	rule := cur.currentRandomRule()
	number := WinningTicketNumber(cur.randomValue, rule.ID, cur.cursor.DrawIndex, cur.ledger.ticketLastNumber())
	return cur.ledger.ticketIDByNumber(number), nil
}
