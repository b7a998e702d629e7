package monitor

import (
	"context"
	"math/big"
	"runtime"
	"sync"

	"github.com/golang/glog"

	"contrib.go.opencensus.io/exporter/prometheus"
	rprom "github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

// Enabled true if metrics was enabled in command line
var Enabled bool

type censusMetricsCounter struct {
	nodeID string
	ctx    context.Context

	kNodeID    tag.Key
	kLottery   tag.Key
	kKind      tag.Key
	kPhase     tag.Key
	kStatus    tag.Key
	kErrorCode tag.Key

	mTicketsPurchased *stats.Int64Measure
	mTicketUnits      *stats.Int64Measure
	mTicketsSent      *stats.Int64Measure
	mTicketSales      *stats.Float64Measure
	mPoolValue        *stats.Float64Measure
	mCurrentRound     *stats.Int64Measure
	mRoundStatus      *stats.Int64Measure
	mPayouts          *stats.Int64Measure
	mPayoutValue      *stats.Float64Measure
	mSettlementSteps  *stats.Int64Measure
	mLotteryErrors    *stats.Int64Measure
	mRandomValues     *stats.Int64Measure

	mu sync.Mutex
}

// Exporter Prometheus exporter that handles `/metrics` endpoint
var Exporter *prometheus.Exporter

var census censusMetricsCounter

// used in unit tests
var unitTestMode bool

// base units per whole token
var tokenUnit = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

func InitCensus(nodeID, lotteryName, version string) {
	census = censusMetricsCounter{
		nodeID: nodeID,
	}
	var err error
	census.kNodeID, _ = tag.NewKey("node_id")
	census.kLottery, _ = tag.NewKey("lottery")
	census.kKind, _ = tag.NewKey("kind")
	census.kPhase, _ = tag.NewKey("phase")
	census.kStatus, _ = tag.NewKey("status")
	census.kErrorCode, _ = tag.NewKey("error_code")
	census.ctx, err = tag.New(context.Background(), tag.Insert(census.kNodeID, nodeID), tag.Insert(census.kLottery, lotteryName))
	if err != nil {
		glog.Fatal("Error creating context", err)
	}
	census.mTicketsPurchased = stats.Int64("tickets_purchased_total", "TicketsPurchased", "tot")
	census.mTicketUnits = stats.Int64("ticket_units_total", "Ticket numbers sold", "tot")
	census.mTicketsSent = stats.Int64("tickets_sent_total", "TicketsSent", "tot")
	census.mTicketSales = stats.Float64("ticket_sales_value", "Value paid for tickets, in tokens", "tok")
	census.mPoolValue = stats.Float64("pool_value", "Prize pool of the current round, in tokens", "tok")
	census.mCurrentRound = stats.Int64("current_round", "Index of the current round", "num")
	census.mRoundStatus = stats.Int64("round_status", "Lifecycle status of the current round", "num")
	census.mPayouts = stats.Int64("payouts_total", "Settlement transfers", "tot")
	census.mPayoutValue = stats.Float64("payout_value", "Value of settlement transfers, in tokens", "tok")
	census.mSettlementSteps = stats.Int64("settlement_steps_total", "Settlement steps executed", "tot")
	census.mLotteryErrors = stats.Int64("lottery_errors_total", "Rejected lottery operations", "tot")
	census.mRandomValues = stats.Int64("random_values_fulfilled_total", "Random values received from the oracle", "tot")

	glog.Infof("Compiler: %s Arch %s OS %s Go version %s", runtime.Compiler, runtime.GOARCH, runtime.GOOS, runtime.Version())
	glog.Infof("Lottery version: %s", version)
	glog.Infof("Node ID %s lottery %s", nodeID, lotteryName)
	mVersions := stats.Int64("versions", "Version information.", "Num")
	compiler, _ := tag.NewKey("compiler")
	goarch, _ := tag.NewKey("goarch")
	goos, _ := tag.NewKey("goos")
	goversion, _ := tag.NewKey("goversion")
	lotteryversion, _ := tag.NewKey("lotteryversion")
	ctx, err := tag.New(context.Background(), tag.Insert(census.kNodeID, nodeID),
		tag.Insert(compiler, runtime.Compiler), tag.Insert(goarch, runtime.GOARCH), tag.Insert(goos, runtime.GOOS),
		tag.Insert(goversion, runtime.Version()), tag.Insert(lotteryversion, version))
	if err != nil {
		glog.Fatal("Error creating tagged context", err)
	}
	baseTags := []tag.Key{census.kNodeID, census.kLottery}
	views := []*view.View{
		{
			Name:        "versions",
			Measure:     mVersions,
			Description: "Versions used by the lottery node.",
			TagKeys:     []tag.Key{census.kNodeID, compiler, goos, goversion, lotteryversion},
			Aggregation: view.LastValue(),
		},
		{
			Name:        "tickets_purchased_total",
			Measure:     census.mTicketsPurchased,
			Description: "Number of tickets purchased",
			TagKeys:     baseTags,
			Aggregation: view.Count(),
		},
		{
			Name:        "ticket_units_total",
			Measure:     census.mTicketUnits,
			Description: "Number of ticket numbers sold",
			TagKeys:     baseTags,
			Aggregation: view.Sum(),
		},
		{
			Name:        "tickets_sent_total",
			Measure:     census.mTicketsSent,
			Description: "Number of tickets handed to another owner",
			TagKeys:     baseTags,
			Aggregation: view.Count(),
		},
		{
			Name:        "ticket_sales_value",
			Measure:     census.mTicketSales,
			Description: "Value paid for tickets, in tokens",
			TagKeys:     baseTags,
			Aggregation: view.Sum(),
		},
		{
			Name:        "pool_value",
			Measure:     census.mPoolValue,
			Description: "Prize pool of the current round, in tokens",
			TagKeys:     baseTags,
			Aggregation: view.LastValue(),
		},
		{
			Name:        "current_round",
			Measure:     census.mCurrentRound,
			Description: "Index of the current round",
			TagKeys:     baseTags,
			Aggregation: view.LastValue(),
		},
		{
			Name:        "round_status",
			Measure:     census.mRoundStatus,
			Description: "Lifecycle status of the current round",
			TagKeys:     append([]tag.Key{census.kStatus}, baseTags...),
			Aggregation: view.LastValue(),
		},
		{
			Name:        "payouts_total",
			Measure:     census.mPayouts,
			Description: "Number of settlement transfers",
			TagKeys:     append([]tag.Key{census.kKind}, baseTags...),
			Aggregation: view.Count(),
		},
		{
			Name:        "payout_value",
			Measure:     census.mPayoutValue,
			Description: "Value of settlement transfers, in tokens",
			TagKeys:     append([]tag.Key{census.kKind}, baseTags...),
			Aggregation: view.Sum(),
		},
		{
			Name:        "settlement_steps_total",
			Measure:     census.mSettlementSteps,
			Description: "Number of settlement steps executed",
			TagKeys:     append([]tag.Key{census.kPhase}, baseTags...),
			Aggregation: view.Count(),
		},
		{
			Name:        "lottery_errors_total",
			Measure:     census.mLotteryErrors,
			Description: "Number of rejected lottery operations",
			TagKeys:     append([]tag.Key{census.kErrorCode}, baseTags...),
			Aggregation: view.Count(),
		},
		{
			Name:        "random_values_fulfilled_total",
			Measure:     census.mRandomValues,
			Description: "Number of random values received from the oracle",
			TagKeys:     baseTags,
			Aggregation: view.Count(),
		},
	}
	// Register the views
	if err := view.Register(views...); err != nil {
		glog.Fatalf("Failed to register views: %v", err)
	}
	if !unitTestMode {
		registry := rprom.NewRegistry()
		registry.MustRegister(rprom.NewProcessCollector(rprom.ProcessCollectorOpts{}))
		registry.MustRegister(rprom.NewGoCollector())
		pe, err := prometheus.NewExporter(prometheus.Options{
			Namespace: "lottery",
			Registry:  registry,
		})
		if err != nil {
			glog.Fatalf("Failed to create the Prometheus stats exporter: %v", err)
		}

		// Register the Prometheus exporters as a stats exporter.
		view.RegisterExporter(pe)
		Exporter = pe
	}
	stats.Record(ctx, mVersions.M(1))
}

func tokens(amount *big.Int) float64 {
	if amount == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), tokenUnit).Float64()
	return f
}

func (cen *censusMetricsCounter) record(ms ...stats.Measurement) {
	stats.Record(cen.ctx, ms...)
}

func (cen *censusMetricsCounter) recordTagged(key tag.Key, val string, ms ...stats.Measurement) {
	if err := stats.RecordWithTags(cen.ctx, []tag.Mutator{tag.Insert(key, val)}, ms...); err != nil {
		glog.Errorf("Error recording metrics err=%q", err)
	}
}

// TicketPurchased records a purchase of units ticket numbers for cost
func TicketPurchased(units uint64, cost *big.Int) {
	census.record(census.mTicketsPurchased.M(1), census.mTicketUnits.M(int64(units)), census.mTicketSales.M(tokens(cost)))
}

func TicketSent() {
	census.record(census.mTicketsSent.M(1))
}

// RoundStatus records the status of the current round
func RoundStatus(round uint64, status string, statusCode int64, pool *big.Int) {
	census.mu.Lock()
	defer census.mu.Unlock()
	census.record(census.mCurrentRound.M(int64(round)), census.mPoolValue.M(tokens(pool)))
	census.recordTagged(census.kStatus, status, census.mRoundStatus.M(statusCode))
}

// Payout records a settlement transfer of the given kind
func Payout(kind string, amount *big.Int) {
	census.recordTagged(census.kKind, kind, census.mPayouts.M(1), census.mPayoutValue.M(tokens(amount)))
}

// SettlementStep records a settlement step of the given phase
func SettlementStep(phase string) {
	census.recordTagged(census.kPhase, phase, census.mSettlementSteps.M(1))
}

func RandomValueFulfilled() {
	census.record(census.mRandomValues.M(1))
}

// LotteryError records a rejected operation
func LotteryError(code string) {
	census.recordTagged(census.kErrorCode, code, census.mLotteryErrors.M(1))
}
