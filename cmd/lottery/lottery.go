/*
Lottery is the daemon running a round based token lottery and its operator API.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/golang/glog"
	"github.com/livepeer/go-lottery/cmd/lottery/starter"
	"github.com/livepeer/go-lottery/core"
	"github.com/peterbourgon/ff/v3"
)

func main() {
	// Override the default flag set since there are dependencies that
	// incorrectly add their own flags (specifically, due to the 'testing'
	// package being linked)
	flag.Set("logtostderr", "true")
	vFlag := flag.Lookup("v")
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)

	// Help & Log
	version := flag.Bool("version", false, "Print out the version")
	verbosity := flag.String("v", "3", "Log verbosity.  {4|5|6}")

	cfg := starter.NewLotteryConfig(flag.CommandLine)

	// Config file
	_ = flag.String("config", "", "Config file in the format 'key value', flags and env vars take precedence over the config file")
	err := ff.Parse(flag.CommandLine, os.Args[1:],
		ff.WithConfigFileFlag("config"),
		ff.WithEnvVarPrefix("LOTTERY"),
		ff.WithConfigFileParser(ff.PlainParser),
	)
	if err != nil {
		glog.Exit("Error parsing config: ", err)
	}

	vFlag.Value.Set(*verbosity)

	if *version {
		fmt.Println("Lottery Node Version: " + core.LotteryVersion)
		fmt.Printf("Golang runtime version: %s %s\n", runtime.Compiler, runtime.Version())
		fmt.Printf("Architecture: %s\n", runtime.GOARCH)
		fmt.Printf("Operating system: %s\n", runtime.GOOS)
		return
	}

	cfg.PrintConfig(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lc := make(chan struct{})
	go func() {
		starter.StartLottery(ctx, cfg)
		lc <- struct{}{}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-c:
		glog.Infof("Exiting Lottery: %v", sig)
		cancel()
		select {
		case <-lc:
		case <-time.After(5 * time.Second):
		}
	case <-lc:
	}
}
