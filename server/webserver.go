package server

import (
	"context"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/core"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/monitor"
)

const shutdownTimeout = 5 * time.Second

// LotteryServer exposes a lottery node over the CLI HTTP API
type LotteryServer struct {
	Node *core.LotteryNode

	srv *http.Server
}

func NewLotteryServer(node *core.LotteryNode) *LotteryServer {
	return &LotteryServer{Node: node}
}

// StartCliWebserver serves the CLI API on bindAddr until Stop is called
func (s *LotteryServer) StartCliWebserver(bindAddr string) error {
	s.srv = &http.Server{
		Addr:              bindAddr,
		Handler:           s.cliWebServerHandlers(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	glog.Infof("CLI server listening on %v", bindAddr)
	err := s.srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *LotteryServer) Stop() error {
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *LotteryServer) cliWebServerHandlers() *http.ServeMux {
	mux := http.NewServeMux()
	node := s.Node

	// Queries
	mux.Handle("/status", statusHandler(node))
	mux.Handle("/rules", mustHaveFormParams(rulesHandler(node)))
	mux.Handle("/round", mustHaveFormParams(roundHandler(node)))
	mux.Handle("/rounds", roundsHandler(node))
	mux.Handle("/tickets", mustHaveFormParams(ticketsHandler(node)))
	mux.Handle("/sellers", mustHaveFormParams(sellersHandler(node)))
	mux.Handle("/payouts", mustHaveFormParams(payoutsHandler(node)))
	mux.Handle("/winner", winnerHandler(node))
	mux.Handle("/tokenBalance", mustHaveFormParams(tokenBalanceHandler(node), "address"))

	// Tickets
	mux.Handle("/buyTicket", mustHaveFormParams(buyTicketHandler(node), "units", "seller"))
	mux.Handle("/sendTicket", mustHaveFormParams(sendTicketHandler(node), "index", "to"))

	// Rules
	mux.Handle("/createRandomSendingRule", mustHaveFormParams(createRandomSendingRuleHandler(node), "ratio", "sendingCount"))
	mux.Handle("/deleteRandomSendingRule", mustHaveFormParams(deleteRandomSendingRuleHandler(node), "id"))
	mux.Handle("/createDefinitelySendingRule", mustHaveFormParams(createDefinitelySendingRuleHandler(node), "ratio", "destination"))
	mux.Handle("/deleteDefinitelySendingRule", mustHaveFormParams(deleteDefinitelySendingRuleHandler(node), "id"))
	mux.Handle("/completeRuleSetting", ownerStepHandler(node, "completeRuleSetting", (*lottery.Lottery).ComplatedRuleSetting))
	mux.Handle("/statusToRuleSetting", ownerStepHandler(node, "statusToRuleSetting", (*lottery.Lottery).StatusToRuleSetting))
	mux.Handle("/setSellerCommissionRatio", mustHaveFormParams(setSellerCommissionRatioHandler(node), "ratio"))

	// Round lifecycle
	mux.Handle("/statusToAccepting", mustHaveFormParams(statusToAcceptingHandler(node)))
	mux.Handle("/statusToRandomValueGetting", ownerStepHandler(node, "statusToRandomValueGetting", (*lottery.Lottery).StatusToRandomValueGetting))

	// Settlement
	mux.Handle("/sendToSeller", settlementStepHandler(node, lottery.SendToSeller))
	mux.Handle("/randomSend", mustHaveFormParams(settlementStepHandler(node, lottery.RandomSend)))
	mux.Handle("/definitelySend", settlementStepHandler(node, lottery.DefinitelySend))

	// Off-chain token
	mux.Handle("/mint", mustHaveFormParams(mintHandler(node), "to", "amount"))
	mux.Handle("/approve", mustHaveFormParams(approveHandler(node), "from", "amount"))

	if monitor.Enabled && monitor.Exporter != nil {
		mux.Handle("/metrics", monitor.Exporter)
	}

	return mux
}
