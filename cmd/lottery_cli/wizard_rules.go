package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/server"
)

func (w *wizard) createRandomSendingRule() {
	fmt.Fprintf(w.out, "Enter the share of the pool paid by this rule (e.g. 20%%) - ")
	ratio := w.readRatio()
	fmt.Fprintf(w.out, "Enter the number of winners - ")
	count := w.readUint()

	var id server.RuleIDResponse
	params := url.Values{"ratio": {ratio}, "sendingCount": {strconv.FormatUint(count, 10)}}
	if err := w.post("/createRandomSendingRule", params, &id); err != nil {
		glog.Errorf("Error creating random sending rule err=%q", err)
		return
	}
	fmt.Fprintf(w.out, "Created random sending rule %d\n", id.ID)
}

func (w *wizard) createDefinitelySendingRule() {
	fmt.Fprintf(w.out, "Enter the share of the pool paid by this rule (e.g. 5%%) - ")
	ratio := w.readRatio()
	fmt.Fprintf(w.out, "Enter the destination address - ")
	dest := w.readAddress()

	var id server.RuleIDResponse
	params := url.Values{"ratio": {ratio}, "destination": {dest.Hex()}}
	if err := w.post("/createDefinitelySendingRule", params, &id); err != nil {
		glog.Errorf("Error creating definitely sending rule err=%q", err)
		return
	}
	fmt.Fprintf(w.out, "Created definitely sending rule %d\n", id.ID)
}

func (w *wizard) deleteRule() {
	w.showRules()
	fmt.Fprintf(w.out, "Delete a random sending rule? (y/n, n deletes a definitely sending rule) - ")
	random := w.readStringYesOrNo() == "y"
	fmt.Fprintf(w.out, "Enter the rule ID - ")
	id := w.readUint()

	path := "/deleteDefinitelySendingRule"
	if random {
		path = "/deleteRandomSendingRule"
	}
	w.postAndReport(path, url.Values{"id": {strconv.FormatUint(id, 10)}})
}

func (w *wizard) completeRuleSetting() {
	w.showRules()
	fmt.Fprintf(w.out, "Freeze these rules? (y/n) - ")
	if w.readStringYesOrNo() != "y" {
		return
	}
	w.postAndReport("/completeRuleSetting", url.Values{})
}

func (w *wizard) statusToRuleSetting() {
	w.postAndReport("/statusToRuleSetting", url.Values{})
}

func (w *wizard) setSellerCommissionRatio() {
	fmt.Fprintf(w.out, "Enter the seller commission (e.g. 2.5%%) - ")
	ratio := w.readRatio()
	w.postAndReport("/setSellerCommissionRatio", url.Values{"ratio": {ratio}})
}
