/*
Package keeper drives rounds through their lifecycle without operator intervention: it
closes a round once its close time has passed, starts settlement when the random value has
arrived, performs every settlement step and optionally opens the next round.
*/
package keeper

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/clog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/monitor"
	"github.com/pkg/errors"
)

// Engine is the part of the lottery the keeper drives. *lottery.Lottery implements it
type Engine interface {
	Index() uint64
	Status() lottery.Status
	CloseTimestamp() int64
	TokenSendingStatus() lottery.TokenSendingStatus
	StatusToRandomValueGetting(caller ethcommon.Address) error
	StatusToAccepting(caller ethcommon.Address, closeTimestamp int64) error
	SendToSeller(caller ethcommon.Address) error
	RandomSend(caller ethcommon.Address, expectedTicketID uint64) error
	DefinitelySend(caller ethcommon.Address) error
	WinnerTicketID() (uint64, error)
}

// Config tunes a RoundKeeper. Zero values select the defaults
type Config struct {
	// PollInterval is the time between two checks of the lottery
	PollInterval time.Duration
	// RetryInterval and MaxRetries bound the wait for the random value within one check
	RetryInterval time.Duration
	MaxRetries    uint64
	// MaxStepsPerTick bounds the settlement steps performed in one check
	MaxStepsPerTick int
	// AutoReopen opens the next round once a round is DONE
	AutoReopen bool
	// Clock returns the current unix time. Nil selects the system clock
	Clock func() int64
}

func (c *Config) setDefaults() {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.MaxStepsPerTick <= 0 {
		c.MaxStepsPerTick = 100
	}
	if c.Clock == nil {
		c.Clock = func() int64 { return time.Now().Unix() }
	}
}

// RoundKeeper periodically advances the lottery on behalf of caller
type RoundKeeper struct {
	engine Engine
	caller ethcommon.Address
	cfg    Config

	quit chan struct{}
	once sync.Once
	mu   sync.Mutex
}

func NewRoundKeeper(engine Engine, caller ethcommon.Address, cfg Config) *RoundKeeper {
	cfg.setDefaults()
	return &RoundKeeper{
		engine: engine,
		caller: caller,
		cfg:    cfg,
		quit:   make(chan struct{}),
	}
}

// Start kicks off a loop that checks the lottery every poll interval until Stop is called
func (k *RoundKeeper) Start() error {
	ticker := time.NewTicker(k.cfg.PollInterval)
	defer ticker.Stop()

	glog.Infof("Starting round keeper pollInterval=%v autoReopen=%v", k.cfg.PollInterval, k.cfg.AutoReopen)

	for {
		select {
		case <-k.quit:
			glog.Infof("Stopping round keeper")
			return nil
		case <-ticker.C:
			if err := k.Tick(); err != nil {
				ctx := clog.AddRound(context.Background(), k.engine.Index())
				clog.Errorf(ctx, "Round keeper could not advance the lottery err=%q", err)
				if monitor.Enabled {
					monitor.LotteryError(lottery.ErrorCode(err))
				}
			}
		}
	}
}

// Stop signals the polling loop to exit gracefully
func (k *RoundKeeper) Stop() {
	k.once.Do(func() {
		close(k.quit)
	})
}

// Tick advances the lottery as far as it can go right now
func (k *RoundKeeper) Tick() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	ctx := clog.AddRound(context.Background(), k.engine.Index())

	switch k.engine.Status() {
	case lottery.Accepting:
		if k.cfg.Clock() < k.engine.CloseTimestamp() {
			return nil
		}
		if err := k.engine.StatusToRandomValueGetting(k.caller); err != nil {
			return errors.Wrap(err, "could not close round")
		}
		clog.Infof(ctx, "Closed round, waiting for the random value")
		fallthrough
	case lottery.RandomValueGetting:
		if err := k.startSettlement(ctx); err != nil {
			return err
		}
		if k.engine.Status() != lottery.TokenSending {
			return nil
		}
		fallthrough
	case lottery.TokenSending:
		if err := k.settle(ctx); err != nil {
			return err
		}
		if k.engine.Status() != lottery.Done {
			return nil
		}
		fallthrough
	case lottery.Done:
		return k.reopen(ctx)
	}
	return nil
}

func (k *RoundKeeper) startSettlement(ctx context.Context) error {
	start := func() error {
		err := k.engine.StatusToRandomValueGetting(k.caller)
		if errors.Cause(err) == lottery.ErrRandomValueNotReady {
			return err
		}
		if err != nil {
			return &backoff.PermanentError{Err: err}
		}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		clog.V(common.DEBUG).Infof(ctx, "Random value not ready, retrying in %v", wait)
	}
	b := backoff.WithMaxRetries(backoff.NewConstantBackOff(k.cfg.RetryInterval), k.cfg.MaxRetries)
	err := backoff.RetryNotify(start, b, notify)
	if errors.Cause(err) == lottery.ErrRandomValueNotReady {
		// the next tick tries again
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "could not start settlement")
	}
	clog.Infof(ctx, "Random value received, settling round")
	return nil
}

func (k *RoundKeeper) settle(ctx context.Context) error {
	for i := 0; i < k.cfg.MaxStepsPerTick && k.engine.Status() == lottery.TokenSending; i++ {
		phase := k.engine.TokenSendingStatus()
		if err := k.step(phase); err != nil {
			return errors.Wrapf(err, "settlement step %v failed", phase)
		}
		if monitor.Enabled {
			monitor.SettlementStep(phase.String())
		}
		clog.V(common.VERBOSE).Infof(ctx, "Performed settlement step phase=%v", phase)
	}
	if k.engine.Status() == lottery.Done {
		clog.Infof(ctx, "Round settled")
	}
	return nil
}

func (k *RoundKeeper) step(phase lottery.TokenSendingStatus) error {
	switch phase {
	case lottery.SendToSeller:
		return k.engine.SendToSeller(k.caller)
	case lottery.RandomSend:
		id, err := k.engine.WinnerTicketID()
		if err != nil {
			return err
		}
		return k.engine.RandomSend(k.caller, id)
	case lottery.DefinitelySend:
		return k.engine.DefinitelySend(k.caller)
	}
	return errors.Errorf("unknown phase %v", phase)
}

func (k *RoundKeeper) reopen(ctx context.Context) error {
	if !k.cfg.AutoReopen {
		return nil
	}
	if err := k.engine.StatusToAccepting(k.caller, 0); err != nil {
		return errors.Wrap(err, "could not open the next round")
	}
	clog.Infof(ctx, "Opened round=%d closeTimestamp=%d", k.engine.Index(), k.engine.CloseTimestamp())
	return nil
}
