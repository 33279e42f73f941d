package bridge

import (
	"context"
	"math/big"
	"time"

	"gobridgerelay/config"
	"gobridgerelay/rates"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TxSender submits a destination-chain contract call and waits for its
// confirmation receipt. Implemented by EVMRPC.Clients.
type TxSender interface {
	HasSigner(chainID int) bool
	Execute(ctx context.Context, chainID int, contract common.Address, abiJSON, method string, args ...interface{}) (common.Hash, error)
}

// Ledger is the idempotency ledger keyed by namespaced transaction keys.
type Ledger interface {
	HasProcessed(key string) bool
	MarkProcessed(key string) error
}

// FailureSink records dispatches that did not reach a confirmed receipt.
type FailureSink interface {
	SaveFailure(rec *types.FailureRecord) error
}

// RateSource resolves conversion multipliers for cross-token transfers.
type RateSource interface {
	Resolve(ctx context.Context, chainID int, from, to string) rates.Rate
}

// Relay executes the destination action for decoded bridge events. Exactly
// one destination-chain transaction per successfully dispatched event; a key
// is committed to the ledger only after the receipt confirms.
type Relay struct {
	registry  *config.Registry
	mechanism Mechanism
	sender    TxSender
	ledger    Ledger
	failures  FailureSink
	rates     RateSource
	logger    *logrus.Logger
}

func NewRelay(
	registry *config.Registry,
	mechanism Mechanism,
	sender TxSender,
	ledger Ledger,
	failures FailureSink,
	rateSource RateSource,
	logger *logrus.Logger,
) *Relay {
	return &Relay{
		registry:  registry,
		mechanism: mechanism,
		sender:    sender,
		ledger:    ledger,
		failures:  failures,
		rates:     rateSource,
		logger:    logger,
	}
}

func (r *Relay) Mechanism() Mechanism { return r.mechanism }

// Dispatch runs the active mechanism's destination action for the event.
// All failures are reported through the returned error and the failure sink;
// callers log and continue, nothing here may take down a poll loop.
func (r *Relay) Dispatch(ctx context.Context, ev *types.DecodedEvent) error {
	r.logger.WithFields(logrus.Fields{
		"kind":        ev.Kind,
		"sourceChain": ev.SourceChain,
		"targetChain": ev.TargetChain,
		"sender":      ev.Sender.Hex(),
		"recipient":   ev.Recipient.Hex(),
		"amount":      ev.Amount,
		"txKey":       common.BytesToHash(ev.TransactionID[:]).Hex(),
		"sourceTx":    ev.SourceTxHash.Hex(),
	}).Info("observed bridge event")

	return r.mechanism.Dispatch(ctx, r, ev)
}

// fail records a dropped dispatch and returns the error the caller logs.
// The transaction key stays unmarked so an operator replay can still go
// through; the poll cursor has already moved on.
func (r *Relay) fail(ev *types.DecodedEvent, symbol, msg string) error {
	rec := &types.FailureRecord{
		Mechanism:     string(r.mechanism.Name()),
		SourceChain:   ev.SourceChain,
		TargetChain:   ev.TargetChain,
		TokenSymbol:   symbol,
		Recipient:     ev.Recipient.Hex(),
		TransactionID: common.BytesToHash(ev.TransactionID[:]).Hex(),
		SourceTxHash:  ev.SourceTxHash.Hex(),
		TsFound:       time.Now().Unix(),
		Message:       msg,
	}
	if ev.Amount != nil {
		rec.Amount = ev.Amount.String()
	}
	if err := r.failures.SaveFailure(rec); err != nil {
		r.logger.WithError(err).Error("cannot save failure record")
	}

	err := errors.Errorf("dropping event %s: %s", rec.TransactionID, msg)
	r.logger.WithFields(logrus.Fields{
		"sourceChain": ev.SourceChain,
		"targetChain": ev.TargetChain,
		"sourceTx":    ev.SourceTxHash.Hex(),
	}).Error(err.Error())
	return err
}

// convert resolves the conversion multiplier and computes the destination
// amount when source and destination symbols differ; identity otherwise.
func (r *Relay) convert(ctx context.Context, ev *types.DecodedEvent, fromSym, toSym string) *big.Int {
	if fromSym == toSym {
		return ev.Amount
	}
	rate := r.rates.Resolve(ctx, ev.TargetChain, fromSym, toSym)
	out := rates.Convert(ev.Amount, rate)
	r.logger.WithFields(logrus.Fields{
		"from":      fromSym,
		"to":        toSym,
		"rate":      rate.Float(),
		"source":    rate.Source,
		"amountIn":  ev.Amount,
		"amountOut": out,
	}).Info("converted cross-token amount")
	return out
}

func (m mintBurn) Dispatch(ctx context.Context, r *Relay, ev *types.DecodedEvent) error {
	key := ev.ProcessedKey(m.Name())
	if r.ledger.HasProcessed(key) {
		r.logger.WithField("key", key).Debug("event already processed, skipping")
		return nil
	}

	dest, ok := r.registry.Resolve(ev.TargetChain)
	if !ok {
		return r.fail(ev, ev.TokenSymbol, "destination network is not configured")
	}
	if dest.BridgeAddress == "" {
		return r.fail(ev, ev.TokenSymbol, "destination network has no bridge contract")
	}
	if !r.sender.HasSigner(ev.TargetChain) {
		return r.fail(ev, ev.TokenSymbol, "no signer configured for destination network")
	}

	outSym := ev.TokenSymbol
	if ev.TokenSymbolOut != "" {
		outSym = ev.TokenSymbolOut
	}
	amount := r.convert(ctx, ev, ev.TokenSymbol, outSym)

	txHash, err := r.sender.Execute(ctx, ev.TargetChain, common.HexToAddress(dest.BridgeAddress),
		MintBurnBridgeABI, "releaseTokens",
		outSym, ev.Recipient, amount, big.NewInt(int64(ev.SourceChain)), ev.TransactionID)
	if err != nil {
		return r.fail(ev, outSym, "releaseTokens failed: "+err.Error())
	}

	r.logger.WithFields(logrus.Fields{
		"token":     outSym,
		"amount":    amount,
		"recipient": ev.Recipient.Hex(),
		"destTx":    txHash.Hex(),
	}).Info("released tokens on destination")

	return r.ledger.MarkProcessed(key)
}

func (m lockRelease) Dispatch(ctx context.Context, r *Relay, ev *types.DecodedEvent) error {
	key := ev.ProcessedKey(m.Name())
	if r.ledger.HasProcessed(key) {
		r.logger.WithField("key", key).Debug("event already processed, skipping")
		return nil
	}

	dest, ok := r.registry.Resolve(ev.TargetChain)
	if !ok {
		return r.fail(ev, ev.TokenSymbol, "destination network is not configured")
	}
	if !r.sender.HasSigner(ev.TargetChain) {
		return r.fail(ev, ev.TokenSymbol, "no signer configured for destination network")
	}

	fromSym := ev.TokenSymbol
	if fromSym == "" {
		srcNet, ok := r.registry.Resolve(ev.SourceChain)
		if !ok {
			return r.fail(ev, "", "source network is not configured")
		}
		fromSym, ok = srcNet.TokenSymbol(ev.TokenIn.Hex())
		if !ok {
			return r.fail(ev, "", "unknown source token "+ev.TokenIn.Hex())
		}
	}

	toSym := fromSym
	switch {
	case ev.TokenSymbolOut != "":
		toSym = ev.TokenSymbolOut
	case ev.TokenOut != (common.Address{}):
		sym, ok := dest.TokenSymbol(ev.TokenOut.Hex())
		if !ok {
			return r.fail(ev, fromSym, "unknown destination token "+ev.TokenOut.Hex())
		}
		toSym = sym
	}

	amount := r.convert(ctx, ev, fromSym, toSym)

	poolAddr, hasPool := dest.PoolFor(toSym)
	switch {
	case hasPool:
		if common.HexToAddress(poolAddr) == (common.Address{}) {
			return r.fail(ev, toSym, "token is not supported on destination (zero pool address)")
		}
		txHash, err := r.sender.Execute(ctx, ev.TargetChain, common.HexToAddress(poolAddr),
			PoolABI, "release",
			ev.Recipient, amount, ev.TransactionID, big.NewInt(int64(ev.SourceChain)))
		if err != nil {
			return r.fail(ev, toSym, "pool release failed: "+err.Error())
		}
		r.logger.WithFields(logrus.Fields{
			"token":     toSym,
			"amount":    amount,
			"recipient": ev.Recipient.Hex(),
			"pool":      poolAddr,
			"destTx":    txHash.Hex(),
		}).Info("released tokens from destination pool")

	case dest.BridgeAddress != "":
		// legacy mint/burn interop when the destination has no pool
		txHash, err := r.sender.Execute(ctx, ev.TargetChain, common.HexToAddress(dest.BridgeAddress),
			MintBurnBridgeABI, "releaseTokens",
			toSym, ev.Recipient, amount, big.NewInt(int64(ev.SourceChain)), ev.TransactionID)
		if err != nil {
			return r.fail(ev, toSym, "releaseTokens fallback failed: "+err.Error())
		}
		r.logger.WithFields(logrus.Fields{
			"token":     toSym,
			"amount":    amount,
			"recipient": ev.Recipient.Hex(),
			"destTx":    txHash.Hex(),
		}).Info("released tokens through legacy bridge")

	default:
		return r.fail(ev, toSym, "destination network has neither a pool for "+toSym+" nor a bridge contract")
	}

	return r.ledger.MarkProcessed(key)
}
