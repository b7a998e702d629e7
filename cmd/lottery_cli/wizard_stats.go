package main

import (
	"fmt"
	"io"
	"math/big"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/server"
	"github.com/olekukonko/tablewriter"
)

func (w *wizard) stats() {
	var status server.StatusResponse
	if err := w.getJSON("/status", nil, &status); err != nil {
		glog.Errorf("Error getting lottery status err=%q", err)
		return
	}
	renderStatus(w.out, &status, time.Now())
}

func renderStatus(out io.Writer, status *server.StatusResponse, now time.Time) {
	table := tablewriter.NewWriter(out)
	data := [][]string{
		{"Node ID", status.NodeID},
		{"Node Version", status.Version},
		{"Lottery", fmt.Sprintf("%v (%v)", status.Name, status.Symbol)},
		{"Owner", status.Owner.Hex()},
		{"Pool Account", status.Account.Hex()},
		{"Token", status.TokenAddress.Hex()},
		{"Ticket Price", formatAmount(status.TicketPrice)},
		{"Only Owner Buys", strconv.FormatBool(status.IsOnlyOwner)},
		{"Cycle", (time.Duration(status.Cycle) * time.Second).String()},
		{"Seller Commission", status.SellerCommissionRatio},
		{"Total Rule Ratio", status.TotalRatio},
		{"Round", strconv.FormatUint(status.Index, 10)},
		{"Status", status.Status},
		{"Close Time", formatCloseTime(status.CloseTimestamp, now)},
		{"Pool", formatAmount(status.TotalSupply)},
	}
	if status.Status == "TOKEN_SENDING" {
		data = append(data, []string{"Settlement Phase", status.TokenSendingStatus})
	}

	for _, v := range data {
		table.Append(v)
	}
	table.SetRowLine(true)
	table.SetColumnSeparator("|")
	table.SetColWidth(80)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()
}

func (w *wizard) showRules() {
	var rules server.RulesResponse
	if err := w.getJSON("/rules", nil, &rules); err != nil {
		glog.Errorf("Error getting sending rules err=%q", err)
		return
	}
	renderRules(w.out, &rules)
}

func renderRules(out io.Writer, rules *server.RulesResponse) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Kind", "ID", "Ratio", "Winners", "Destination"})
	for _, r := range rules.RandomRules {
		table.Append([]string{"random", strconv.FormatUint(r.ID, 10), r.Ratio, strconv.FormatUint(r.SendingCount, 10), "-"})
	}
	for _, r := range rules.DefinitelyRules {
		table.Append([]string{"definitely", strconv.FormatUint(r.ID, 10), r.Ratio, "-", r.Destination.Hex()})
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()
}

func (w *wizard) showTickets() {
	fmt.Fprintf(w.out, "Enter round (default = current round) - ")
	round := w.read()
	fmt.Fprintf(w.out, "Enter owner address (default = all owners) - ")
	owner := w.read()

	params := url.Values{}
	if round != "" {
		params.Set("round", round)
	}
	if owner != "" {
		params.Set("owner", owner)
	}
	var tickets []server.TicketResponse
	if err := w.getJSON("/tickets", params, &tickets); err != nil {
		glog.Errorf("Error getting tickets err=%q", err)
		return
	}
	renderTickets(w.out, tickets)
}

func renderTickets(out io.Writer, tickets []server.TicketResponse) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"ID", "Units", "Numbers", "Owner", "Seller", "Received"})
	for _, t := range tickets {
		table.Append([]string{
			strconv.FormatUint(t.ID, 10),
			humanize.Comma(int64(t.Count)),
			fmt.Sprintf("%d-%d", t.FirstNumber, t.LastNumber),
			t.Owner.Hex(),
			t.Seller.Hex(),
			time.Unix(t.ReceivedAt, 0).UTC().Format(time.RFC3339),
		})
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()
}

func (w *wizard) showPayouts() {
	fmt.Fprintf(w.out, "Enter round (default = all rounds) - ")
	round := w.read()

	params := url.Values{}
	if round != "" {
		params.Set("round", round)
	}
	var payouts []server.PayoutResponse
	if err := w.getJSON("/payouts", params, &payouts); err != nil {
		glog.Errorf("Error getting payouts err=%q", err)
		return
	}
	renderPayouts(w.out, payouts)
}

func renderPayouts(out io.Writer, payouts []server.PayoutResponse) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Round", "Kind", "Rule", "Draw", "Ticket", "Recipient", "Amount"})
	for _, p := range payouts {
		table.Append([]string{
			strconv.FormatUint(p.Round, 10),
			p.Kind,
			optionalUint(p.RuleID),
			optionalUint(p.DrawIndex),
			optionalUint(p.TicketID),
			p.Recipient.Hex(),
			formatAmount(p.Amount),
		})
	}
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.Render()
}

// formatAmount renders a decimal token amount with thousands separators
func formatAmount(amount string) string {
	v, ok := new(big.Int).SetString(amount, 10)
	if !ok {
		return amount
	}
	return humanize.BigComma(v)
}

func formatCloseTime(ts int64, now time.Time) string {
	if ts == 0 {
		return "-"
	}
	closeAt := time.Unix(ts, 0)
	return fmt.Sprintf("%v (%v)", closeAt.UTC().Format(time.RFC3339), humanize.RelTime(closeAt, now, "ago", "from now"))
}

func optionalUint(v uint64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatUint(v, 10)
}
