package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/urfave/cli"
)

func main() {
	flag.Set("logtostderr", "true")
	flag.CommandLine.Parse([]string{})

	app := cli.NewApp()
	app.Name = "lottery-cli"
	app.Usage = "interact with a local lottery node"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "http",
			Usage: "local http port",
			Value: "7935",
		},
		cli.StringFlag{
			Name:  "host",
			Usage: "host for the lottery node",
			Value: "localhost",
		},
		cli.StringFlag{
			Name:  "loglevel",
			Value: "3",
			Usage: "log level to emit to the screen",
		},
	}
	app.Action = func(c *cli.Context) error {
		flag.Set("v", c.String("loglevel"))

		// Start the wizard and relinquish control
		w := &wizard{
			endpoint: fmt.Sprintf("http://%v:%v/status", c.String("host"), c.String("http")),
			httpPort: c.String("http"),
			host:     c.String("host"),
			in:       bufio.NewReader(os.Stdin),
			out:      os.Stdout,
		}
		w.run()

		return nil
	}
	app.Run(os.Args)
}

type wizard struct {
	endpoint string // Local lottery node
	httpPort string
	host     string
	in       *bufio.Reader // Wrapper around stdin to allow reading user input
	out      io.Writer
}

func (w *wizard) run() {
	// Make sure there is a local node running
	resp, err := httpClient.Get(w.endpoint)
	if err != nil {
		glog.Errorf("Cannot find local node. Is your node running on http:%v?", w.httpPort)
		return
	}
	resp.Body.Close()

	fmt.Fprintln(w.out, "+-----------------------------------------------------------+")
	fmt.Fprintln(w.out, "| Welcome to lottery-cli, your lottery command line tool    |")
	fmt.Fprintln(w.out, "|                                                           |")
	fmt.Fprintln(w.out, "| This tool lets you manage the rules and rounds of a local |")
	fmt.Fprintln(w.out, "| lottery node and buy and send tickets.                    |")
	fmt.Fprintln(w.out, "|                                                           |")
	fmt.Fprintln(w.out, "+-----------------------------------------------------------+")
	fmt.Fprintln(w.out)

	w.stats()
	// Basics done, loop ad infinitum about what to do
	for {
		fmt.Fprintln(w.out)
		fmt.Fprintln(w.out, "What would you like to do? (default = stats)")

		opts := w.options()
		for i, opt := range opts {
			fmt.Fprintf(w.out, "%d. %s\n", i+1, opt.desc)
		}
		w.doCLIOpt(w.read(), opts)
	}
}

type wizardOpt struct {
	desc   string
	invoke func()
}

func (w *wizard) options() []wizardOpt {
	return []wizardOpt{
		{desc: "Get lottery status", invoke: w.stats},
		{desc: "List sending rules", invoke: w.showRules},
		{desc: "Create a random sending rule", invoke: w.createRandomSendingRule},
		{desc: "Create a definitely sending rule", invoke: w.createDefinitelySendingRule},
		{desc: "Delete a sending rule", invoke: w.deleteRule},
		{desc: "Complete rule setting", invoke: w.completeRuleSetting},
		{desc: "Reopen rule setting", invoke: w.statusToRuleSetting},
		{desc: "Set seller commission ratio", invoke: w.setSellerCommissionRatio},
		{desc: "Open a round", invoke: w.openRound},
		{desc: "Buy tickets", invoke: w.buyTicket},
		{desc: "Send a ticket", invoke: w.sendTicket},
		{desc: "List tickets", invoke: w.showTickets},
		{desc: "Close the round", invoke: w.closeRound},
		{desc: "Settle the round", invoke: w.settleRound},
		{desc: "Show payouts", invoke: w.showPayouts},
		{desc: "Mint test tokens", invoke: w.mint},
		{desc: "Approve the lottery to spend tokens", invoke: w.approve},
		{desc: "Get token balance", invoke: w.tokenBalance},
	}
}

func (w *wizard) doCLIOpt(choice string, options []wizardOpt) {
	if choice == "" {
		w.stats()
		return
	}
	index, err := strconv.Atoi(choice)
	index--
	if err == nil && index >= 0 && index < len(options) {
		options[index].invoke()
		return
	}
	glog.Error("That's not something I can do")
}
