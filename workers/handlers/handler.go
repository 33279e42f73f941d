package handlers

import (
	"context"
	"math/big"

	"gobridgerelay/config"
	"gobridgerelay/rates"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// WalletReader exposes the relay wallets for the status endpoint.
// Implemented by EVMRPC.Clients.
type WalletReader interface {
	SignerAddress(chainID int) (common.Address, bool)
	NativeBalance(ctx context.Context, chainID int, address common.Address) (*big.Int, error)
}

// LedgerInfo exposes operational counters and failure records.
// Implemented by redis.Store.
type LedgerInfo interface {
	ProcessedCount() int
	ListFailures() ([]*types.FailureRecord, error)
}

// Quoter resolves exchange rates for the quote endpoints.
// Implemented by rates.Resolver.
type Quoter interface {
	Resolve(ctx context.Context, chainID int, from, to string) rates.Rate
	FallbackTable() map[string]float64
	ContractRates(ctx context.Context, chainID int) map[string]float64
}

// Dispatcher executes manual and simulated transfers.
// Implemented by bridge.Relay.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev *types.DecodedEvent) error
}

// Handler carries the API endpoints' dependencies.
type Handler struct {
	registry *config.Registry
	wallets  WalletReader
	ledger   LedgerInfo
	quoter   Quoter
	relay    Dispatcher
	logger   *logrus.Logger

	// network whose rate oracle backs quotes; zero means fallback-only
	quoteChain int
}

func New(registry *config.Registry, wallets WalletReader, ledger LedgerInfo, quoter Quoter, relay Dispatcher, logger *logrus.Logger) *Handler {
	h := &Handler{
		registry: registry,
		wallets:  wallets,
		ledger:   ledger,
		quoter:   quoter,
		relay:    relay,
		logger:   logger,
	}
	for id, n := range registry.Networks() {
		if n.RateOracleAddress != "" {
			h.quoteChain = id
			break
		}
	}
	return h
}
