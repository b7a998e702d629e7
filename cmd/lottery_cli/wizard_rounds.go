package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/server"
)

func (w *wizard) openRound() {
	fmt.Fprintf(w.out, "Enter the close time as a unix timestamp (default = next cycle boundary) - ")
	closeAt := w.read()

	params := url.Values{}
	if closeAt != "" {
		params.Set("closeTimestamp", closeAt)
	}
	var opened server.RoundOpenedResponse
	if err := w.post("/statusToAccepting", params, &opened); err != nil {
		glog.Errorf("Error opening round err=%q", err)
		return
	}
	fmt.Fprintf(w.out, "Opened round %d closing %v\n", opened.Round, formatCloseTime(opened.CloseTimestamp, time.Now()))
}

func (w *wizard) buyTicket() {
	fmt.Fprintf(w.out, "Enter the number of ticket units - ")
	units := w.readUint()
	fmt.Fprintf(w.out, "Enter the seller address - ")
	seller := w.readAddress()
	fmt.Fprintf(w.out, "Enter the buyer address (default = lottery owner) - ")
	from := w.readDefaultAddress(ethcommon.Address{})

	params := url.Values{"units": {strconv.FormatUint(units, 10)}, "seller": {seller.Hex()}}
	if (from != ethcommon.Address{}) {
		params.Set("from", from.Hex())
	}
	var bought server.BuyTicketResponse
	if err := w.post("/buyTicket", params, &bought); err != nil {
		glog.Errorf("Error buying ticket err=%q", err)
		return
	}
	fmt.Fprintf(w.out, "Bought ticket %d in round %d, numbers %d-%d\n", bought.TicketID, bought.Round, bought.LastNumber-units+1, bought.LastNumber)
}

func (w *wizard) sendTicket() {
	fmt.Fprintf(w.out, "Enter the position of the ticket in the owner's ticket list (starting at 0) - ")
	index := w.readUint()
	fmt.Fprintf(w.out, "Enter the new owner address - ")
	to := w.readAddress()
	w.postAndReport("/sendTicket", url.Values{"index": {strconv.FormatUint(index, 10)}, "to": {to.Hex()}})
}

func (w *wizard) closeRound() {
	var status server.StatusResponse
	if err := w.getJSON("/status", nil, &status); err != nil {
		glog.Errorf("Error getting lottery status err=%q", err)
		return
	}
	if status.Status == "ACCEPTING" {
		fmt.Fprintf(w.out, "Close round %d and request the random value? (y/n) - ", status.Index)
		if w.readStringYesOrNo() != "y" {
			return
		}
	}
	w.postAndReport("/statusToRandomValueGetting", url.Values{})
}

// settlementPath returns the endpoint performing the next settlement step
func settlementPath(tokenSendingStatus string) (string, bool) {
	switch tokenSendingStatus {
	case "SEND_TO_SELLER":
		return "/sendToSeller", true
	case "RANDOM_SEND":
		return "/randomSend", true
	case "DEFINITELY_SEND":
		return "/definitelySend", true
	}
	return "", false
}

func (w *wizard) settleRound() {
	for {
		var status server.StatusResponse
		if err := w.getJSON("/status", nil, &status); err != nil {
			glog.Errorf("Error getting lottery status err=%q", err)
			return
		}
		if status.Status != "TOKEN_SENDING" {
			fmt.Fprintf(w.out, "Round %d is %v\n", status.Index, status.Status)
			return
		}
		path, ok := settlementPath(status.TokenSendingStatus)
		if !ok {
			glog.Errorf("Unknown settlement phase %v", status.TokenSendingStatus)
			return
		}
		if path == "/randomSend" {
			var winner server.WinnerResponse
			if err := w.getJSON("/winner", nil, &winner); err == nil {
				fmt.Fprintf(w.out, "Rule %d draw %d: ticket number %d, ticket %d owned by %v\n", winner.RuleID, winner.DrawIndex, winner.TicketNumber, winner.TicketID, winner.Owner.Hex())
			}
		}
		var step server.SettlementResponse
		if err := w.post(path, url.Values{}, &step); err != nil {
			glog.Errorf("Settlement step failed phase=%v err=%q", status.TokenSendingStatus, err)
			return
		}
	}
}
