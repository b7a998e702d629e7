package server

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/core"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/monitor"
)

func logAndRespondWithError(w http.ResponseWriter, errMsg string, code int) {
	glog.Error(errMsg)
	http.Error(w, errMsg, code)
}

func mustHaveFormParams(h http.Handler, params ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, int64(common.MaxRequestSize))
		if err := r.ParseForm(); err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "parse form error", http.StatusInternalServerError)
			return
		}

		for _, param := range params {
			if r.FormValue(param) == "" {
				logAndRespondWithError(w, fmt.Sprintf("missing form param: %s", param), http.StatusBadRequest)
				return
			}
		}

		h.ServeHTTP(w, r)
	})
}

func respondJson(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Errorf("Unable to encode response err=%q", err)
	}
}

func respondOk(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(msg))
}

// statusCode maps a lottery error to the HTTP status returned for it
func statusCode(err error) int {
	switch lottery.Class(err) {
	case lottery.ClassAuthorization:
		return http.StatusForbidden
	case lottery.ClassState, lottery.ClassConsistency:
		return http.StatusConflict
	case lottery.ClassValidation:
		return http.StatusBadRequest
	case lottery.ClassTransfer:
		if lottery.ErrorCode(err) == "TransferFailed" {
			return http.StatusBadGateway
		}
		return http.StatusPaymentRequired
	}
	return http.StatusInternalServerError
}

// respondWithLotteryError writes err as a JSON error body carrying its stable code
func respondWithLotteryError(w http.ResponseWriter, op string, err error) {
	code := lottery.ErrorCode(err)
	glog.Errorf("Lottery operation failed op=%v code=%v err=%q", op, code, err)
	if monitor.Enabled {
		monitor.LotteryError(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode(err))
	json.NewEncoder(w).Encode(ErrorResponse{
		Error: err.Error(),
		Code:  code,
		Class: string(lottery.Class(err)),
	})
}

func formAddress(w http.ResponseWriter, r *http.Request, param string) (ethcommon.Address, bool) {
	addr, err := common.ParseAddress(r.FormValue(param))
	if err != nil {
		logAndRespondWithError(w, fmt.Sprintf("invalid %s", param), http.StatusBadRequest)
		return ethcommon.Address{}, false
	}
	return addr, true
}

// formAddressOr returns the address in param, or def when the param is absent
func formAddressOr(w http.ResponseWriter, r *http.Request, param string, def ethcommon.Address) (ethcommon.Address, bool) {
	if r.FormValue(param) == "" {
		return def, true
	}
	return formAddress(w, r, param)
}

func formUint(w http.ResponseWriter, r *http.Request, param string) (uint64, bool) {
	v, err := strconv.ParseUint(r.FormValue(param), 10, 64)
	if err != nil {
		logAndRespondWithError(w, fmt.Sprintf("invalid %s", param), http.StatusBadRequest)
		return 0, false
	}
	return v, true
}

// formUintOr returns the unsigned integer in param, or def when the param is absent
func formUintOr(w http.ResponseWriter, r *http.Request, param string, def uint64) (uint64, bool) {
	if r.FormValue(param) == "" {
		return def, true
	}
	return formUint(w, r, param)
}

func formAmount(w http.ResponseWriter, r *http.Request, param string) (*big.Int, bool) {
	v, err := common.ParseBigInt(r.FormValue(param))
	if err != nil || v.Sign() < 0 {
		logAndRespondWithError(w, fmt.Sprintf("invalid %s", param), http.StatusBadRequest)
		return nil, false
	}
	return v, true
}

func formRatio(w http.ResponseWriter, r *http.Request, param string) (*big.Int, bool) {
	v, err := common.ParseRatio(r.FormValue(param))
	if err != nil {
		logAndRespondWithError(w, fmt.Sprintf("invalid %s", param), http.StatusBadRequest)
		return nil, false
	}
	return v, true
}

// roundParam returns the round index in the "round" param, defaulting to the current round
func roundParam(w http.ResponseWriter, r *http.Request, l *lottery.Lottery) (uint64, bool) {
	return formUintOr(w, r, "round", l.Index())
}

// Queries

func statusHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		respondJson(w, StatusResponse{
			NodeID:                node.NodeID,
			Version:               core.LotteryVersion,
			Name:                  l.Name(),
			Symbol:                l.Symbol(),
			Owner:                 l.Owner(),
			Account:               l.Account(),
			TokenAddress:          l.TokenAddress(),
			TicketPrice:           l.TicketPrice().String(),
			IsOnlyOwner:           l.IsOnlyOwner(),
			Cycle:                 l.Cycle(),
			MaxSendingCount:       l.MaxSendingCount(),
			SellerCommissionRatio: common.FormatRatio(l.SellerCommissionRatio()),
			TotalRatio:            common.FormatRatio(l.TotalRatio()),
			Index:                 l.Index(),
			Status:                l.Status().String(),
			TokenSendingStatus:    l.TokenSendingStatus().String(),
			CloseTimestamp:        l.CloseTimestamp(),
			TotalSupply:           amount(l.TotalSupply()),
			Cursor:                newCursorResponse(l.Cursor()),
		})
	})
}

func rulesHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		rules := l.Rules()
		if r.FormValue("round") != "" {
			index, ok := formUint(w, r, "round")
			if !ok {
				return
			}
			rules = l.RulesByIndex(index)
		}
		respondJson(w, newRulesResponse(rules))
	})
}

func roundHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		index, ok := roundParam(w, r, node.Lottery)
		if !ok {
			return
		}
		info, ok := node.Lottery.Round(index)
		if !ok {
			logAndRespondWithError(w, fmt.Sprintf("unknown round %d", index), http.StatusNotFound)
			return
		}
		respondJson(w, newRoundResponse(info))
	})
}

func roundsHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rounds, err := node.RoundHistory()
		if err != nil {
			logAndRespondWithError(w, "could not fetch rounds", http.StatusInternalServerError)
			return
		}
		resp := make([]JournaledRoundResponse, 0, len(rounds))
		for _, rd := range rounds {
			resp = append(resp, newJournaledRoundResponse(rd))
		}
		respondJson(w, resp)
	})
}

func ticketsHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		index, ok := roundParam(w, r, l)
		if !ok {
			return
		}
		tickets := l.Tickets(index)
		if r.FormValue("owner") != "" {
			owner, ok := formAddress(w, r, "owner")
			if !ok {
				return
			}
			var owned []lottery.Ticket
			for _, t := range tickets {
				if t.Owner == owner {
					owned = append(owned, t)
				}
			}
			tickets = owned
		}
		resp := make([]TicketResponse, 0, len(tickets))
		for _, t := range tickets {
			resp = append(resp, newTicketResponse(t))
		}
		respondJson(w, resp)
	})
}

func sellersHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		index, ok := roundParam(w, r, l)
		if !ok {
			return
		}
		sellers := l.Sellers(index)
		resp := make([]SellerResponse, 0, len(sellers))
		for _, s := range sellers {
			resp = append(resp, SellerResponse{Address: s, Amount: amount(l.TokenAmountToSeller(index, s))})
		}
		respondJson(w, resp)
	})
}

func payoutsHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		filter := &common.DBPayoutFilter{Kind: r.FormValue("kind")}
		if r.FormValue("round") != "" {
			index, ok := formUint(w, r, "round")
			if !ok {
				return
			}
			filter.Round = &index
		}
		if r.FormValue("recipient") != "" {
			addr, ok := formAddress(w, r, "recipient")
			if !ok {
				return
			}
			filter.Recipient = &addr
		}
		payouts, err := node.Payouts(filter)
		if err != nil {
			logAndRespondWithError(w, "could not fetch payouts", http.StatusInternalServerError)
			return
		}
		resp := make([]PayoutResponse, 0, len(payouts))
		for _, p := range payouts {
			resp = append(resp, newPayoutResponse(p))
		}
		respondJson(w, resp)
	})
}

func winnerHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		number, err := l.ConvertRandomValueToWinnerTicketNumber()
		if err != nil {
			respondWithLotteryError(w, "winner", err)
			return
		}
		id, err := l.WinnerTicketID()
		if err != nil {
			respondWithLotteryError(w, "winner", err)
			return
		}
		index := l.Index()
		respondJson(w, WinnerResponse{
			Round:        index,
			RuleID:       l.CurrentRandomSendingRuleID(),
			DrawIndex:    l.CurrentRandomSendingRuleSendingCount(),
			TicketNumber: number,
			TicketID:     id,
			Owner:        l.TicketOwner(index, id),
		})
	})
}

func tokenBalanceHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		addr, ok := formAddress(w, r, "address")
		if !ok {
			return
		}
		bal, err := node.TokenBalance(addr)
		if err != nil {
			glog.Error(err)
			logAndRespondWithError(w, "could not fetch token balance", http.StatusBadGateway)
			return
		}
		respondJson(w, BalanceResponse{Address: addr, Balance: amount(bal)})
	})
}

// Tickets

func buyTicketHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		units, ok := formUint(w, r, "units")
		if !ok {
			return
		}
		seller, ok := formAddress(w, r, "seller")
		if !ok {
			return
		}
		from, ok := formAddressOr(w, r, "from", l.Owner())
		if !ok {
			return
		}
		id, err := l.BuyTicket(from, units, seller)
		if err != nil {
			respondWithLotteryError(w, "buyTicket", err)
			return
		}
		respondJson(w, BuyTicketResponse{Round: l.Index(), TicketID: id, LastNumber: l.TicketLastNumber(l.Index(), id)})
	})
}

func sendTicketHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		index, ok := formUint(w, r, "index")
		if !ok {
			return
		}
		to, ok := formAddress(w, r, "to")
		if !ok {
			return
		}
		if err := l.SendTicket(l.Owner(), index, to); err != nil {
			respondWithLotteryError(w, "sendTicket", err)
			return
		}
		respondOk(w, "sendTicket success")
	})
}

// Rules

func createRandomSendingRuleHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		ratio, ok := formRatio(w, r, "ratio")
		if !ok {
			return
		}
		count, ok := formUint(w, r, "sendingCount")
		if !ok {
			return
		}
		id, err := l.CreateRandomSendingRule(l.Owner(), ratio, count)
		if err != nil {
			respondWithLotteryError(w, "createRandomSendingRule", err)
			return
		}
		respondJson(w, RuleIDResponse{ID: id})
	})
}

func deleteRandomSendingRuleHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		id, ok := formUint(w, r, "id")
		if !ok {
			return
		}
		if err := l.DeleteRandomSendingRule(l.Owner(), id); err != nil {
			respondWithLotteryError(w, "deleteRandomSendingRule", err)
			return
		}
		respondOk(w, "deleteRandomSendingRule success")
	})
}

func createDefinitelySendingRuleHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		ratio, ok := formRatio(w, r, "ratio")
		if !ok {
			return
		}
		dest, ok := formAddress(w, r, "destination")
		if !ok {
			return
		}
		id, err := l.CreateDefinitelySendingRule(l.Owner(), ratio, dest)
		if err != nil {
			respondWithLotteryError(w, "createDefinitelySendingRule", err)
			return
		}
		respondJson(w, RuleIDResponse{ID: id})
	})
}

func deleteDefinitelySendingRuleHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		id, ok := formUint(w, r, "id")
		if !ok {
			return
		}
		if err := l.DeleteDefinitelySendingRule(l.Owner(), id); err != nil {
			respondWithLotteryError(w, "deleteDefinitelySendingRule", err)
			return
		}
		respondOk(w, "deleteDefinitelySendingRule success")
	})
}

func setSellerCommissionRatioHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		ratio, ok := formRatio(w, r, "ratio")
		if !ok {
			return
		}
		if err := l.SetSellerCommissionRatio(l.Owner(), ratio); err != nil {
			respondWithLotteryError(w, "setSellerCommissionRatio", err)
			return
		}
		respondOk(w, "setSellerCommissionRatio success")
	})
}

// Lifecycle and settlement

// ownerStepHandler serves an operation performed as the lottery owner without parameters
func ownerStepHandler(node *core.LotteryNode, op string, step func(*lottery.Lottery, ethcommon.Address) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		if err := step(l, l.Owner()); err != nil {
			respondWithLotteryError(w, op, err)
			return
		}
		glog.V(common.VERBOSE).Infof("Lottery operation op=%v status=%v", op, l.Status())
		respondOk(w, op+" success")
	})
}

func statusToAcceptingHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		closeAt, ok := formUintOr(w, r, "closeTimestamp", 0)
		if !ok {
			return
		}
		if err := l.StatusToAccepting(l.Owner(), int64(closeAt)); err != nil {
			respondWithLotteryError(w, "statusToAccepting", err)
			return
		}
		respondJson(w, RoundOpenedResponse{Round: l.Index(), CloseTimestamp: l.CloseTimestamp()})
	})
}

func settlementStepHandler(node *core.LotteryNode, phase lottery.TokenSendingStatus) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		l := node.Lottery
		var err error
		switch phase {
		case lottery.SendToSeller:
			err = l.SendToSeller(l.Owner())
		case lottery.RandomSend:
			var id uint64
			if r.FormValue("ticketID") != "" {
				var ok bool
				if id, ok = formUint(w, r, "ticketID"); !ok {
					return
				}
			} else if id, err = l.WinnerTicketID(); err != nil {
				break
			}
			err = l.RandomSend(l.Owner(), id)
		case lottery.DefinitelySend:
			err = l.DefinitelySend(l.Owner())
		}
		if err != nil {
			respondWithLotteryError(w, phase.String(), err)
			return
		}
		if monitor.Enabled {
			monitor.SettlementStep(phase.String())
		}
		respondJson(w, SettlementResponse{
			Round:              l.Index(),
			Status:             l.Status().String(),
			TokenSendingStatus: l.TokenSendingStatus().String(),
		})
	})
}

// Off-chain token

func mintHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		to, ok := formAddress(w, r, "to")
		if !ok {
			return
		}
		amt, ok := formAmount(w, r, "amount")
		if !ok {
			return
		}
		if err := node.Mint(to, amt); err != nil {
			logAndRespondWithError(w, err.Error(), tokenErrorCode(err))
			return
		}
		respondOk(w, "mint success")
	})
}

func approveHandler(node *core.LotteryNode) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		from, ok := formAddress(w, r, "from")
		if !ok {
			return
		}
		amt, ok := formAmount(w, r, "amount")
		if !ok {
			return
		}
		if err := node.Approve(from, amt); err != nil {
			logAndRespondWithError(w, err.Error(), tokenErrorCode(err))
			return
		}
		respondOk(w, "approve success")
	})
}

func tokenErrorCode(err error) int {
	if err == core.ErrNoLedger {
		return http.StatusNotImplemented
	}
	return http.StatusBadRequest
}
