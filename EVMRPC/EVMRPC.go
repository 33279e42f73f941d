package EVMRPC

import (
	"context"
	"math/big"

	"gobridgerelay/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Clients gives read and write access to every configured network. One value
// is built at startup and shared; connections are dialed per call and failed
// over across the network's RPC list.
type Clients struct {
	registry *config.Registry
	logger   *logrus.Logger
}

func New(registry *config.Registry, logger *logrus.Logger) *Clients {
	return &Clients{registry: registry, logger: logger}
}

// WithClient runs f against the first RPC endpoint of the network that both
// dials and answers, in list order.
func WithClient[T any](c *Clients, chainID int, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	network, ok := c.registry.Resolve(chainID)
	if !ok {
		err = errors.Errorf("unknown network %d", chainID)
		return
	}

	var client *ethclient.Client
	for _, url := range network.RPCList {
		client, err = ethclient.Dial(url)
		if err != nil {
			c.logger.WithField("chain", network.Name).WithError(err).Warnf("error connecting to %s", url)
			continue
		}

		res, err = f(client)
		client.Close()
		if err == nil {
			return
		}
	}
	return
}

// LatestBlock returns the current block height of the network.
func (c *Clients) LatestBlock(ctx context.Context, chainID int) (uint64, error) {
	return WithClient(c, chainID, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

// FilterLogs queries logs emitted by contract with the given topic0 over the
// inclusive block range.
func (c *Clients) FilterLogs(ctx context.Context, chainID int, contract common.Address, topic0 common.Hash, fromBlock, toBlock int64) ([]ethtypes.Log, error) {
	return WithClient(c, chainID, func(client *ethclient.Client) ([]ethtypes.Log, error) {
		return client.FilterLogs(ctx, ethereum.FilterQuery{
			FromBlock: big.NewInt(fromBlock),
			ToBlock:   big.NewInt(toBlock),
			Addresses: []common.Address{contract},
			Topics:    [][]common.Hash{{topic0}},
		})
	})
}

// CallContract performs an eth_call against the latest block.
func (c *Clients) CallContract(ctx context.Context, chainID int, contract common.Address, data []byte) ([]byte, error) {
	return WithClient(c, chainID, func(client *ethclient.Client) ([]byte, error) {
		return client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	})
}

// NativeBalance returns the native-coin balance of an address.
func (c *Clients) NativeBalance(ctx context.Context, chainID int, address common.Address) (*big.Int, error) {
	return WithClient(c, chainID, func(client *ethclient.Client) (*big.Int, error) {
		return client.BalanceAt(ctx, address, nil)
	})
}

// HasSigner reports whether a signing credential is configured for the
// network, i.e. whether Execute can be called against it.
func (c *Clients) HasSigner(chainID int) bool {
	_, ok := c.registry.Signer(chainID)
	return ok
}

// SignerAddress returns the wallet address the relay transacts from on the
// network.
func (c *Clients) SignerAddress(chainID int) (common.Address, bool) {
	s, ok := c.registry.Signer(chainID)
	return s.Address, ok
}
