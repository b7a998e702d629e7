package server

import (
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/lottery"
)

// Token amounts are encoded as decimal strings and ratios as percentages

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Class string `json:"class"`
}

type StatusResponse struct {
	NodeID                string            `json:"nodeID"`
	Version               string            `json:"version"`
	Name                  string            `json:"name"`
	Symbol                string            `json:"symbol"`
	Owner                 ethcommon.Address `json:"owner"`
	Account               ethcommon.Address `json:"account"`
	TokenAddress          ethcommon.Address `json:"tokenAddress"`
	TicketPrice           string            `json:"ticketPrice"`
	IsOnlyOwner           bool              `json:"isOnlyOwner"`
	Cycle                 int64             `json:"cycle"`
	MaxSendingCount       uint64            `json:"maxSendingCount"`
	SellerCommissionRatio string            `json:"sellerCommissionRatio"`
	TotalRatio            string            `json:"totalRatio"`
	Index                 uint64            `json:"index"`
	Status                string            `json:"status"`
	TokenSendingStatus    string            `json:"tokenSendingStatus"`
	CloseTimestamp        int64             `json:"closeTimestamp"`
	TotalSupply           string            `json:"totalSupply"`
	Cursor                CursorResponse    `json:"cursor"`
}

type CursorResponse struct {
	Phase         string `json:"phase"`
	SellerPos     int    `json:"sellerPos"`
	RandomRulePos int    `json:"randomRulePos"`
	DrawIndex     uint64 `json:"drawIndex"`
	DefinitelyPos int    `json:"definitelyPos"`
}

func newCursorResponse(c lottery.SettlementCursor) CursorResponse {
	return CursorResponse{
		Phase:         c.Phase.String(),
		SellerPos:     c.SellerPos,
		RandomRulePos: c.RandomRulePos,
		DrawIndex:     c.DrawIndex,
		DefinitelyPos: c.DefinitelyPos,
	}
}

type RandomRuleResponse struct {
	ID           uint64 `json:"id"`
	Ratio        string `json:"ratio"`
	SendingCount uint64 `json:"sendingCount"`
}

type DefinitelyRuleResponse struct {
	ID          uint64            `json:"id"`
	Ratio       string            `json:"ratio"`
	Destination ethcommon.Address `json:"destination"`
}

type RulesResponse struct {
	RandomRules     []RandomRuleResponse     `json:"randomRules"`
	DefinitelyRules []DefinitelyRuleResponse `json:"definitelyRules"`
}

func newRulesResponse(rs *lottery.RuleSet) RulesResponse {
	resp := RulesResponse{
		RandomRules:     make([]RandomRuleResponse, 0, len(rs.RandomRules)),
		DefinitelyRules: make([]DefinitelyRuleResponse, 0, len(rs.DefinitelyRules)),
	}
	for _, r := range rs.RandomRules {
		resp.RandomRules = append(resp.RandomRules, RandomRuleResponse{ID: r.ID, Ratio: common.FormatRatio(r.Ratio), SendingCount: r.SendingCount})
	}
	for _, r := range rs.DefinitelyRules {
		resp.DefinitelyRules = append(resp.DefinitelyRules, DefinitelyRuleResponse{ID: r.ID, Ratio: common.FormatRatio(r.Ratio), Destination: r.Destination})
	}
	return resp
}

type RoundResponse struct {
	Index              uint64         `json:"index"`
	CloseTimestamp     int64          `json:"closeTimestamp"`
	TicketLastID       uint64         `json:"ticketLastID"`
	TicketLastNumber   uint64         `json:"ticketLastNumber"`
	ParticipantCount   uint64         `json:"participantCount"`
	TotalSupply        string         `json:"totalSupply"`
	TotalSupplyByIndex string         `json:"totalSupplyByIndex"`
	RandomValue        string         `json:"randomValue,omitempty"`
	RequestID          string         `json:"requestID,omitempty"`
	Sellers            int            `json:"sellers"`
	Cursor             CursorResponse `json:"cursor"`
}

func newRoundResponse(info lottery.RoundInfo) RoundResponse {
	return RoundResponse{
		Index:              info.Index,
		CloseTimestamp:     info.CloseTimestamp,
		TicketLastID:       info.TicketLastID,
		TicketLastNumber:   info.TicketLastNumber,
		ParticipantCount:   info.ParticipantCount,
		TotalSupply:        amount(info.TotalSupply),
		TotalSupplyByIndex: amount(info.TotalSupplyByIndex),
		RandomValue:        optionalAmount(info.RandomValue),
		RequestID:          info.RequestID,
		Sellers:            info.Sellers,
		Cursor:             newCursorResponse(info.Cursor),
	}
}

type JournaledRoundResponse struct {
	Index          uint64 `json:"index"`
	Status         string `json:"status"`
	CloseTimestamp int64  `json:"closeTimestamp"`
	TotalSupply    string `json:"totalSupply"`
	RandomValue    string `json:"randomValue,omitempty"`
}

func newJournaledRoundResponse(r *common.DBRound) JournaledRoundResponse {
	return JournaledRoundResponse{
		Index:          r.Index,
		Status:         r.Status,
		CloseTimestamp: r.CloseTimestamp,
		TotalSupply:    amount(r.TotalSupply),
		RandomValue:    optionalAmount(r.RandomValue),
	}
}

type TicketResponse struct {
	ID          uint64            `json:"id"`
	Count       uint64            `json:"count"`
	FirstNumber uint64            `json:"firstNumber"`
	LastNumber  uint64            `json:"lastNumber"`
	Owner       ethcommon.Address `json:"owner"`
	Seller      ethcommon.Address `json:"seller"`
	ReceivedAt  int64             `json:"receivedAt"`
}

func newTicketResponse(t lottery.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		Count:       t.Count,
		FirstNumber: t.FirstNumber(),
		LastNumber:  t.LastNumber,
		Owner:       t.Owner,
		Seller:      t.Seller,
		ReceivedAt:  t.ReceivedAt,
	}
}

type SellerResponse struct {
	Address ethcommon.Address `json:"address"`
	Amount  string            `json:"amount"`
}

type PayoutResponse struct {
	Round     uint64            `json:"round"`
	Kind      string            `json:"kind"`
	RuleID    uint64            `json:"ruleID,omitempty"`
	DrawIndex uint64            `json:"drawIndex,omitempty"`
	TicketID  uint64            `json:"ticketID,omitempty"`
	Recipient ethcommon.Address `json:"recipient"`
	Amount    string            `json:"amount"`
	CreatedAt int64             `json:"createdAt"`
}

func newPayoutResponse(p *common.DBPayout) PayoutResponse {
	return PayoutResponse{
		Round:     p.Round,
		Kind:      p.Kind,
		RuleID:    p.RuleID,
		DrawIndex: p.DrawIndex,
		TicketID:  p.TicketID,
		Recipient: p.Recipient,
		Amount:    amount(p.Amount),
		CreatedAt: p.CreatedAt,
	}
}

type WinnerResponse struct {
	Round        uint64            `json:"round"`
	RuleID       uint64            `json:"ruleID"`
	DrawIndex    uint64            `json:"drawIndex"`
	TicketNumber uint64            `json:"ticketNumber"`
	TicketID     uint64            `json:"ticketID"`
	Owner        ethcommon.Address `json:"owner"`
}

type BalanceResponse struct {
	Address ethcommon.Address `json:"address"`
	Balance string            `json:"balance"`
}

type BuyTicketResponse struct {
	Round      uint64 `json:"round"`
	TicketID   uint64 `json:"ticketID"`
	LastNumber uint64 `json:"lastNumber"`
}

type RuleIDResponse struct {
	ID uint64 `json:"id"`
}

type RoundOpenedResponse struct {
	Round          uint64 `json:"round"`
	CloseTimestamp int64  `json:"closeTimestamp"`
}

type SettlementResponse struct {
	Round              uint64 `json:"round"`
	Status             string `json:"status"`
	TokenSendingStatus string `json:"tokenSendingStatus"`
}

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optionalAmount(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
