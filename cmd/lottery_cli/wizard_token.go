package main

import (
	"fmt"
	"net/url"

	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/server"
)

func (w *wizard) mint() {
	fmt.Fprintf(w.out, "Enter the recipient address - ")
	to := w.readAddress()
	fmt.Fprintf(w.out, "Enter the amount in base units - ")
	amount := w.readBigInt()
	w.postAndReport("/mint", url.Values{"to": {to.Hex()}, "amount": {amount.String()}})
}

func (w *wizard) approve() {
	fmt.Fprintf(w.out, "Enter the token holder address - ")
	from := w.readAddress()
	fmt.Fprintf(w.out, "Enter the amount the lottery may spend in base units - ")
	amount := w.readBigInt()
	w.postAndReport("/approve", url.Values{"from": {from.Hex()}, "amount": {amount.String()}})
}

func (w *wizard) tokenBalance() {
	fmt.Fprintf(w.out, "Enter the address - ")
	addr := w.readAddress()

	var bal server.BalanceResponse
	if err := w.getJSON("/tokenBalance", url.Values{"address": {addr.Hex()}}, &bal); err != nil {
		glog.Errorf("Error getting token balance err=%q", err)
		return
	}
	fmt.Fprintf(w.out, "Token balance of %v: %v\n", bal.Address.Hex(), formatAmount(bal.Balance))
}
