package eth

import (
	"context"
	"math/big"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// chainIDFetcher is satisfied by *ethclient.Client
type chainIDFetcher interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Dial connects to an Ethereum node and returns the client with the node's chain id
func Dial(url string, timeout time.Duration) (*ethclient.Client, *big.Int, error) {
	client, err := ethclient.Dial(url)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to connect to Ethereum node %v", url)
	}
	chainID, err := fetchChainID(client, timeout)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	glog.Infof("Connected to Ethereum node url=%v chainID=%v", url, chainID)
	return client, chainID, nil
}

func fetchChainID(c chainIDFetcher, timeout time.Duration) (*big.Int, error) {
	var chainID *big.Int
	get := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		id, err := c.ChainID(ctx)
		if err != nil {
			return err
		}
		chainID = id
		return nil
	}
	notify := func(err error, wait time.Duration) {
		glog.Warningf("Unable to fetch chain id, retrying in %v err=%q", wait, err)
	}
	if err := backoff.RetryNotify(get, backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Second), 3), notify); err != nil {
		return nil, errors.Wrap(err, "failed to fetch chain id")
	}
	return chainID, nil
}
