package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/livepeer/go-lottery/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWizard(t *testing.T, handler http.Handler, input string) (*wizard, *bytes.Buffer) {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	u, err := url.Parse(srv.URL)
	require.Nil(t, err)

	var out bytes.Buffer
	return &wizard{
		endpoint: srv.URL + "/status",
		host:     u.Hostname(),
		httpPort: u.Port(),
		in:       bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}, &out
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestFormatAmount(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("1,000,000,000,000,000,000", formatAmount("1000000000000000000"))
	assert.Equal("900", formatAmount("900"))
	assert.Equal("n/a", formatAmount("n/a"))
}

func TestFormatCloseTime(t *testing.T) {
	assert := assert.New(t)
	now := time.Unix(1700000000, 0)
	assert.Equal("-", formatCloseTime(0, now))
	assert.Equal("2023-11-15T00:13:20Z (2 hours from now)", formatCloseTime(1700000000+7200, now))
	assert.Contains(formatCloseTime(1700000000-60, now), "ago")
}

func TestSettlementPath(t *testing.T) {
	assert := assert.New(t)
	path, ok := settlementPath("SEND_TO_SELLER")
	assert.True(ok)
	assert.Equal("/sendToSeller", path)
	path, _ = settlementPath("RANDOM_SEND")
	assert.Equal("/randomSend", path)
	path, _ = settlementPath("DEFINITELY_SEND")
	assert.Equal("/definitelySend", path)
	_, ok = settlementPath("DONE")
	assert.False(ok)
}

func TestResponseError(t *testing.T) {
	assert := assert.New(t)
	body, _ := json.Marshal(server.ErrorResponse{Error: "onlyByStatus", Code: "InvalidStatus", Class: "state"})
	assert.EqualError(responseError(http.StatusConflict, body), "InvalidStatus (state): onlyByStatus")
	assert.EqualError(responseError(http.StatusBadRequest, []byte("missing form param: id\n")), "request failed status=400: missing form param: id")
}

func TestRenderStatus(t *testing.T) {
	assert := assert.New(t)
	var out bytes.Buffer
	status := &server.StatusResponse{
		Name:               "weekly",
		Symbol:             "WLT",
		Owner:              ethcommon.HexToAddress("0xa1"),
		TicketPrice:        "1000000",
		Cycle:              3600,
		Index:              3,
		Status:             "TOKEN_SENDING",
		TokenSendingStatus: "RANDOM_SEND",
		TotalSupply:        "9000",
	}
	renderStatus(&out, status, time.Unix(1700000000, 0))

	s := out.String()
	assert.Contains(s, "weekly (WLT)")
	assert.Contains(s, "1,000,000")
	assert.Contains(s, "1h0m0s")
	assert.Contains(s, "RANDOM_SEND")
	assert.Contains(s, "9,000")
}

func TestRenderPayouts(t *testing.T) {
	var out bytes.Buffer
	renderPayouts(&out, []server.PayoutResponse{
		{Round: 1, Kind: "seller_paid", Recipient: ethcommon.HexToAddress("0xc1"), Amount: "1000"},
		{Round: 1, Kind: "random_sent", RuleID: 1, DrawIndex: 2, TicketID: 4, Recipient: ethcommon.HexToAddress("0xb1"), Amount: "900"},
	})
	s := out.String()
	assert.Contains(t, s, "seller_paid")
	assert.Contains(t, s, "1,000")
	assert.Contains(t, s, "random_sent")
}

func TestWizard_BuyTicket(t *testing.T) {
	assert := assert.New(t)
	var form url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/buyTicket", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		form = r.PostForm
		writeJSON(w, server.BuyTicketResponse{Round: 2, TicketID: 5, LastNumber: 40})
	})

	seller := "0x00000000000000000000000000000000000000c1"
	w, out := newTestWizard(t, mux, "10\nnot an address\n"+seller+"\n\n")
	w.buyTicket()

	assert.Equal("10", form.Get("units"))
	assert.Equal(ethcommon.HexToAddress(seller).Hex(), form.Get("seller"))
	assert.Empty(form.Get("from"))
	assert.Contains(out.String(), "Bought ticket 5 in round 2, numbers 31-40")
}

func TestWizard_SettleRound(t *testing.T) {
	assert := assert.New(t)
	phases := []string{"SEND_TO_SELLER", "RANDOM_SEND", "RANDOM_SEND", "DEFINITELY_SEND"}
	var calls []string

	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		status := server.StatusResponse{Index: 1, Status: "DONE"}
		if len(phases) > 0 {
			status.Status = "TOKEN_SENDING"
			status.TokenSendingStatus = phases[0]
		}
		writeJSON(w, status)
	})
	mux.HandleFunc("/winner", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, server.WinnerResponse{Round: 1, RuleID: 1, DrawIndex: 1, TicketNumber: 7, TicketID: 2})
	})
	step := func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.Path)
		phases = phases[1:]
		writeJSON(w, server.SettlementResponse{Round: 1})
	}
	mux.HandleFunc("/sendToSeller", step)
	mux.HandleFunc("/randomSend", step)
	mux.HandleFunc("/definitelySend", step)

	w, out := newTestWizard(t, mux, "")
	w.settleRound()

	assert.Equal([]string{"/sendToSeller", "/randomSend", "/randomSend", "/definitelySend"}, calls)
	assert.Contains(out.String(), "ticket number 7, ticket 2")
	assert.Contains(out.String(), "Round 1 is DONE")
}

func TestWizard_SettleRoundStopsOnError(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, server.StatusResponse{Index: 1, Status: "TOKEN_SENDING", TokenSendingStatus: "SEND_TO_SELLER"})
	})
	mux.HandleFunc("/sendToSeller", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusPaymentRequired)
		writeJSON(w, server.ErrorResponse{Error: "insufficient token balance", Code: "InsufficientBalance", Class: "transfer"})
	})

	w, _ := newTestWizard(t, mux, "")
	w.settleRound()
	assert.Equal(t, 1, calls)
}
