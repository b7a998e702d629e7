package starter

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/user"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/common"
	"github.com/livepeer/go-lottery/core"
	"github.com/livepeer/go-lottery/eth"
	"github.com/livepeer/go-lottery/keeper"
	"github.com/livepeer/go-lottery/lottery"
	"github.com/livepeer/go-lottery/monitor"
	"github.com/livepeer/go-lottery/oracle"
	"github.com/livepeer/go-lottery/server"
	"github.com/livepeer/go-lottery/token"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
)

const (
	OracleFixed = "fixed"
	OracleLocal = "local"

	ethDialTimeout = 30 * time.Second
)

type LotteryConfig struct {
	NodeID                *string
	Datadir               *string
	CliAddr               *string
	Name                  *string
	Symbol                *string
	Owner                 *string
	Account               *string
	TicketPrice           *string
	Cycle                 *int64
	CloseTimestamp        *int64
	MaxSendingCount       *uint64
	SellerCommission      *string
	IsOnlyOwner           *bool
	EthUrl                *string
	EthKeystorePath       *string
	EthAcctAddr           *string
	EthPassword           *string
	TokenAddr             *string
	GasLimit              *uint64
	GasPrice              *string
	TxTimeout             *time.Duration
	Oracle                *string
	OracleValue           *string
	OracleKey             *string
	OracleDelay           *time.Duration
	Keeper                *bool
	KeeperInterval        *time.Duration
	AutoReopen            *bool
	Monitor               *bool
	KafkaBootstrapServers *string
	KafkaUsername         *string
	KafkaPassword         *string
	KafkaTopic            *string
}

// DefaultLotteryConfig creates LotteryConfig exactly the same as when no flags are passed to the lottery process.
func DefaultLotteryConfig() LotteryConfig {
	// Node:
	defaultNodeID := ""
	defaultDatadir := ""
	defaultCliAddr := "127.0.0.1:7935"

	// Lottery:
	defaultName := "lottery"
	defaultSymbol := "LOT"
	defaultOwner := ""
	defaultAccount := ""
	defaultTicketPrice := "1000000000000000000"
	defaultCycle := int64(86400)
	defaultCloseTimestamp := int64(0)
	defaultMaxSendingCount := uint64(lottery.DefaultMaxSendingCount)
	defaultSellerCommission := "0%"
	defaultIsOnlyOwner := false

	// Token:
	defaultEthUrl := ""
	defaultEthKeystorePath := ""
	defaultEthAcctAddr := ""
	defaultEthPassword := ""
	defaultTokenAddr := ""
	defaultGasLimit := uint64(0)
	defaultGasPrice := ""
	defaultTxTimeout := 5 * time.Minute

	// Oracle:
	defaultOracle := OracleFixed
	defaultOracleValue := fmt.Sprint(oracle.DefaultFixedValue)
	defaultOracleKey := ""
	defaultOracleDelay := time.Duration(0)

	// Keeper:
	defaultKeeper := false
	defaultKeeperInterval := 10 * time.Second
	defaultAutoReopen := false

	// Metrics & logging:
	defaultMonitor := false
	defaultKafkaBootstrapServers := ""
	defaultKafkaUsername := ""
	defaultKafkaPassword := ""
	defaultKafkaTopic := ""

	return LotteryConfig{
		NodeID:  &defaultNodeID,
		Datadir: &defaultDatadir,
		CliAddr: &defaultCliAddr,

		Name:             &defaultName,
		Symbol:           &defaultSymbol,
		Owner:            &defaultOwner,
		Account:          &defaultAccount,
		TicketPrice:      &defaultTicketPrice,
		Cycle:            &defaultCycle,
		CloseTimestamp:   &defaultCloseTimestamp,
		MaxSendingCount:  &defaultMaxSendingCount,
		SellerCommission: &defaultSellerCommission,
		IsOnlyOwner:      &defaultIsOnlyOwner,

		EthUrl:          &defaultEthUrl,
		EthKeystorePath: &defaultEthKeystorePath,
		EthAcctAddr:     &defaultEthAcctAddr,
		EthPassword:     &defaultEthPassword,
		TokenAddr:       &defaultTokenAddr,
		GasLimit:        &defaultGasLimit,
		GasPrice:        &defaultGasPrice,
		TxTimeout:       &defaultTxTimeout,

		Oracle:      &defaultOracle,
		OracleValue: &defaultOracleValue,
		OracleKey:   &defaultOracleKey,
		OracleDelay: &defaultOracleDelay,

		Keeper:         &defaultKeeper,
		KeeperInterval: &defaultKeeperInterval,
		AutoReopen:     &defaultAutoReopen,

		Monitor:               &defaultMonitor,
		KafkaBootstrapServers: &defaultKafkaBootstrapServers,
		KafkaUsername:         &defaultKafkaUsername,
		KafkaPassword:         &defaultKafkaPassword,
		KafkaTopic:            &defaultKafkaTopic,
	}
}

func (cfg LotteryConfig) PrintConfig(w io.Writer) {
	// compare current settings with default values, and print the difference
	defCfg := DefaultLotteryConfig()
	vDefCfg := reflect.ValueOf(defCfg)
	vCfg := reflect.ValueOf(cfg)
	cfgType := vCfg.Type()
	paramTable := tablewriter.NewWriter(w)

	sensitiveFields := map[string]bool{
		"EthPassword":   true,
		"OracleKey":     true,
		"KafkaPassword": true,
	}

	for i := 0; i < cfgType.NumField(); i++ {
		if !vDefCfg.Field(i).IsNil() && !vCfg.Field(i).IsNil() && vCfg.Field(i).Elem().Interface() != vDefCfg.Field(i).Elem().Interface() {
			val := fmt.Sprintf("%v", vCfg.Field(i).Elem())
			if _, ok := sensitiveFields[cfgType.Field(i).Name]; ok {
				val = "***"
			}
			paramTable.Append([]string{cfgType.Field(i).Name, val})
		}
	}
	paramTable.SetAlignment(tablewriter.ALIGN_LEFT)
	paramTable.SetCenterSeparator("*")
	paramTable.SetColumnSeparator("|")
	paramTable.Render()
}

// tokenSetup is the token the lottery settles in and the accounts acting on it
type tokenSetup struct {
	token   lottery.Token
	ledger  *token.Ledger
	owner   ethcommon.Address
	account ethcommon.Address
	address ethcommon.Address
	close   func()
}

// lotteryOracle is a random oracle answering through the lottery it serves
type lotteryOracle interface {
	lottery.RandomOracle
	SetFulfiller(f oracle.Fulfiller)
}

func StartLottery(ctx context.Context, cfg LotteryConfig) {
	if *cfg.NodeID == "" {
		hostname, err := os.Hostname()
		if err != nil {
			exit("Cannot determine the node id: %v", err)
		}
		*cfg.NodeID = hostname
	}

	if *cfg.Datadir == "" {
		homedir := os.Getenv("HOME")
		if homedir == "" {
			usr, err := user.Current()
			if err != nil {
				exit("Cannot find current user: %v", err)
			}
			homedir = usr.HomeDir
		}
		*cfg.Datadir = filepath.Join(homedir, ".lottery", *cfg.Name)
	}

	//Make sure datadir is present
	if _, err := os.Stat(*cfg.Datadir); os.IsNotExist(err) {
		glog.Infof("Creating data dir: %v", *cfg.Datadir)
		if err = os.MkdirAll(*cfg.Datadir, 0755); err != nil {
			glog.Errorf("Error creating datadir: %v", err)
		}
	}

	//Set up DB
	dbh, err := common.InitDB(filepath.Join(*cfg.Datadir, "lottery.sqlite3"))
	if err != nil {
		exit("Error opening DB: %v", err)
	}
	defer dbh.Close()

	ts, err := setupToken(cfg)
	if err != nil {
		exit("Error setting up the token: %v", err)
	}
	defer ts.close()

	if *cfg.Monitor {
		monitor.Enabled = true
		monitor.InitCensus(*cfg.NodeID, *cfg.Name, core.LotteryVersion)

		if err := startKafkaProducer(cfg, ts.account); err != nil {
			exit("Error while starting Kafka producer: %v", err)
		}
		defer monitor.StopKafkaProducer()
	}

	lotCfg, err := lotteryConfig(cfg, ts)
	if err != nil {
		exit("Invalid lottery configuration: %v", err)
	}

	orc, err := newOracle(cfg)
	if err != nil {
		exit("Error setting up the oracle: %v", err)
	}

	l, err := lottery.NewLottery(lotCfg, ts.token, orc)
	if err != nil {
		exit("Error creating the lottery: %v", err)
	}
	orc.SetFulfiller(l)

	if local, ok := orc.(*oracle.Local); ok {
		go func() {
			if err := local.Start(); err != nil {
				glog.Errorf("Local oracle stopped err=%q", err)
			}
		}()
		defer local.Stop()
		glog.Infof("Local oracle answering as %v", local.Address().Hex())
	}

	n, err := core.NewLotteryNode(*cfg.NodeID, l, ts.token, dbh, ts.ledger)
	if err != nil {
		exit("Error creating the lottery node: %v", err)
	}

	if *cfg.Keeper {
		k := keeper.NewRoundKeeper(l, ts.owner, keeper.Config{
			PollInterval: *cfg.KeeperInterval,
			AutoReopen:   *cfg.AutoReopen,
		})
		go func() {
			if err := k.Start(); err != nil {
				glog.Errorf("Round keeper stopped err=%q", err)
			}
		}()
		defer k.Stop()
	}

	srv := server.NewLotteryServer(n)
	wc := make(chan error, 1)
	go func() {
		wc <- srv.StartCliWebserver(*cfg.CliAddr)
	}()

	glog.Infof("***Lottery %v (%v) is running owner=%v account=%v token=%v***", *cfg.Name, *cfg.Symbol, ts.owner.Hex(), ts.account.Hex(), ts.address.Hex())
	glog.Infof("Lottery Node version: %v", core.LotteryVersion)

	select {
	case err := <-wc:
		glog.Infof("CLI webserver shut down err=%v", err)
	case <-ctx.Done():
		if err := srv.Stop(); err != nil {
			glog.Errorf("Error stopping CLI webserver: %v", err)
		}
	}
}

func lotteryConfig(cfg LotteryConfig, ts *tokenSetup) (lottery.Config, error) {
	price, err := common.ParseBigInt(*cfg.TicketPrice)
	if err != nil {
		return lottery.Config{}, errors.Wrap(err, "invalid -ticketPrice")
	}
	commission, err := common.ParseRatio(*cfg.SellerCommission)
	if err != nil {
		return lottery.Config{}, errors.Wrap(err, "invalid -sellerCommission")
	}
	return lottery.Config{
		Name:                  *cfg.Name,
		Symbol:                *cfg.Symbol,
		Owner:                 ts.owner,
		Account:               ts.account,
		TokenAddress:          ts.address,
		TicketPrice:           price,
		IsOnlyOwner:           *cfg.IsOnlyOwner,
		Cycle:                 *cfg.Cycle,
		CloseTimestamp:        *cfg.CloseTimestamp,
		MaxSendingCount:       *cfg.MaxSendingCount,
		SellerCommissionRatio: commission,
	}, nil
}

func setupToken(cfg LotteryConfig) (*tokenSetup, error) {
	if *cfg.EthUrl == "" {
		return setupLedger(cfg)
	}
	return setupERC20(cfg)
}

// defaultPoolAccount derives the off-chain pool address from the lottery name
func defaultPoolAccount(name string) ethcommon.Address {
	return ethcommon.BytesToAddress(crypto.Keccak256([]byte("lottery:" + name)))
}

func setupLedger(cfg LotteryConfig) (*tokenSetup, error) {
	owner, err := common.ParseAddress(*cfg.Owner)
	if err != nil {
		return nil, errors.New("-owner is required with the off-chain token")
	}
	account := defaultPoolAccount(*cfg.Name)
	if *cfg.Account != "" {
		if account, err = common.ParseAddress(*cfg.Account); err != nil {
			return nil, errors.Wrap(err, "invalid -account")
		}
	}

	glog.Infof("***Using the off-chain token ledger***")

	ledger := token.NewLedger()
	return &tokenSetup{
		token:   ledger.ForAccount(account),
		ledger:  ledger,
		owner:   owner,
		account: account,
		close:   func() {},
	}, nil
}

func setupERC20(cfg LotteryConfig) (*tokenSetup, error) {
	tokenAddr, err := common.ParseAddress(*cfg.TokenAddr)
	if err != nil {
		return nil, errors.New("-tokenAddr is required with -ethUrl")
	}
	var gasPrice *big.Int
	if *cfg.GasPrice != "" {
		if gasPrice, err = common.ParseBigInt(*cfg.GasPrice); err != nil {
			return nil, errors.Wrap(err, "invalid -gasPrice")
		}
	}

	client, chainID, err := eth.Dial(*cfg.EthUrl, ethDialTimeout)
	if err != nil {
		return nil, err
	}

	keystoreDir := *cfg.EthKeystorePath
	if keystoreDir == "" {
		keystoreDir = filepath.Join(*cfg.Datadir, "keystore")
	}
	am, err := eth.NewAccountManager(ethcommon.HexToAddress(*cfg.EthAcctAddr), keystoreDir, chainID)
	if err != nil {
		client.Close()
		return nil, err
	}
	password, _ := common.ReadFromFile(*cfg.EthPassword)
	if err := am.Unlock(password); err != nil {
		client.Close()
		return nil, err
	}

	erc20, err := eth.NewERC20(tokenAddr, client, am, eth.ERC20Config{
		TxTimeout: *cfg.TxTimeout,
		GasLimit:  *cfg.GasLimit,
		GasPrice:  gasPrice,
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	account := am.Account().Address
	owner := account
	if *cfg.Owner != "" {
		if owner, err = common.ParseAddress(*cfg.Owner); err != nil {
			client.Close()
			return nil, errors.Wrap(err, "invalid -owner")
		}
	}

	glog.Infof("***Using ERC-20 token %v on chain %v***", tokenAddr.Hex(), chainID)

	return &tokenSetup{
		token:   erc20,
		owner:   owner,
		account: account,
		address: tokenAddr,
		close:   client.Close,
	}, nil
}

func newOracle(cfg LotteryConfig) (lotteryOracle, error) {
	switch *cfg.Oracle {
	case OracleFixed:
		value, err := common.ParseBigInt(*cfg.OracleValue)
		if err != nil || value.Sign() <= 0 {
			return nil, errors.New("-oracleValue must be a positive integer")
		}
		glog.Warningf("Using the fixed oracle value=%v. Draws are predictable", value)
		return oracle.NewFixed(value), nil
	case OracleLocal:
		key, err := oracleKey(*cfg.OracleKey)
		if err != nil {
			return nil, err
		}
		return oracle.NewLocal(key, nil, oracle.LocalConfig{Delay: *cfg.OracleDelay}), nil
	}
	return nil, fmt.Errorf("unknown oracle %q, expected %v or %v", *cfg.Oracle, OracleFixed, OracleLocal)
}

func oracleKey(keyOrPath string) (*ecdsa.PrivateKey, error) {
	if keyOrPath == "" {
		glog.Warning("No -oracleKey given, generating an ephemeral oracle key")
		return crypto.GenerateKey()
	}
	text, _ := common.ReadFromFile(keyOrPath)
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(text), "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "invalid -oracleKey")
	}
	return key, nil
}

func exit(msg string, args ...any) {
	glog.Errorf(msg, args...)
	os.Exit(2)
}
