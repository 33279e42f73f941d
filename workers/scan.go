package workers

import (
	"context"
	"sync/atomic"
	"time"

	"gobridgerelay/bridge"
	"gobridgerelay/config"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// WorkerShutdown signals every worker loop to exit; set by the HTTP worker
// when the process receives a termination signal.
var WorkerShutdown atomic.Bool

const scanInterval = 15 * time.Second
const cycleTimeout = 2 * time.Minute

// ChainReader is the read-only chain access a scan worker needs.
// Implemented by EVMRPC.Clients.
type ChainReader interface {
	LatestBlock(ctx context.Context, chainID int) (uint64, error)
	FilterLogs(ctx context.Context, chainID int, contract common.Address, topic0 common.Hash, fromBlock, toBlock int64) ([]ethtypes.Log, error)
}

// CursorStore persists the last fully-scanned block height per network.
// Implemented by redis.Store.
type CursorStore interface {
	GetScannedBlock(chainID int) (int64, error)
	SetScannedBlock(chainID int, height int64) error
}

// Dispatcher executes destination actions for decoded events.
// Implemented by bridge.Relay.
type Dispatcher interface {
	Mechanism() bridge.Mechanism
	Dispatch(ctx context.Context, ev *types.DecodedEvent) error
}

// ScanWorker polls one source network for bridge events. Every configured
// network gets its own worker goroutine so a hung RPC endpoint cannot stall
// the other networks' polls; within one cycle events are decoded and
// dispatched sequentially in chain log order.
type ScanWorker struct {
	chainID int
	network config.NetworkConfig
	reader  ChainReader
	cursors CursorStore
	relay   Dispatcher
	logger  *logrus.Logger
}

func NewScanWorker(chainID int, network config.NetworkConfig, reader ChainReader, cursors CursorStore, relay Dispatcher, logger *logrus.Logger) *ScanWorker {
	return &ScanWorker{
		chainID: chainID,
		network: network,
		reader:  reader,
		cursors: cursors,
		relay:   relay,
		logger:  logger,
	}
}

// Run polls on a fixed cadence until shutdown. Latency of <30 sec is fine
// for EVM chains.
func (w *ScanWorker) Run() {
	w.logger.Infof("starting scan worker for %s (%d)", w.network.Name, w.chainID)

	for !WorkerShutdown.Load() {
		time.Sleep(scanInterval)

		ctx, cancel := context.WithTimeout(context.Background(), cycleTimeout)
		if err := w.RunCycle(ctx); err != nil {
			w.logger.WithField("chain", w.network.Name).WithError(err).Error("scan cycle failed")
		}
		cancel()
	}

	w.logger.Infof("scan worker for %s stopped", w.network.Name)
}

// RunCycle scans every block above the stored cursor once. The cursor is
// advanced to the latest observed height at the end of the cycle regardless
// of per-event dispatch outcomes; only a failed log query stops the advance
// at the last fully-queried batch.
func (w *ScanWorker) RunCycle(ctx context.Context) error {
	stored, err := w.cursors.GetScannedBlock(w.chainID)
	if err != nil {
		return err
	}

	latest, err := w.reader.LatestBlock(ctx, w.chainID)
	if err != nil {
		return err
	}

	scannedBlockNum := stored
	if scannedBlockNum == -1 {
		scannedBlockNum = int64(latest) - int64(w.network.SafetyWindow)
	} else {
		// re-scan the safety window; the idempotency ledger absorbs the
		// duplicate deliveries
		scannedBlockNum = scannedBlockNum - int64(w.network.SafetyWindow)
	}
	if scannedBlockNum < 0 {
		scannedBlockNum = 0
	}

	watched := w.relay.Mechanism().Watched(w.network)
	lastScanned := stored

	for blockNum := scannedBlockNum + 1; blockNum <= int64(latest); blockNum += int64(w.network.BlockBatch) {
		fromBlock := blockNum
		toBlock := blockNum + int64(w.network.BlockBatch) - 1
		if toBlock > int64(latest) {
			toBlock = int64(latest)
		}
		w.logger.Debugf("scanning blocks %s from %v to %v (latest %v)", w.network.Name, fromBlock, toBlock, latest)

		queryFailed := false
		for _, contract := range watched {
			logs, err := w.reader.FilterLogs(ctx, w.chainID, contract.Address, contract.Topic0, fromBlock, toBlock)
			if err != nil {
				w.logger.WithField("chain", w.network.Name).WithError(err).Error("error querying EVM RPC")
				queryFailed = true
				break
			}

			for _, l := range logs {
				w.handleLog(ctx, contract.Kind, l)
			}
		}
		if queryFailed {
			break
		}

		lastScanned = toBlock
		time.Sleep(50 * time.Millisecond)
	}

	if lastScanned > stored {
		return w.cursors.SetScannedBlock(w.chainID, lastScanned)
	}
	return nil
}

// handleLog decodes and dispatches one log. Failures are logged with the
// full raw payload and never propagate; the event is dropped and the cursor
// still advances.
func (w *ScanWorker) handleLog(ctx context.Context, kind types.EventKind, l ethtypes.Log) {
	ev, err := w.relay.Mechanism().Decode(kind, l, w.chainID)
	if err != nil {
		w.logger.WithFields(logrus.Fields{
			"chain":  w.network.Name,
			"tx":     l.TxHash.Hex(),
			"topics": l.Topics,
			"data":   common.Bytes2Hex(l.Data),
		}).WithError(err).Error("cannot decode bridge log")
		return
	}

	if err := w.relay.Dispatch(ctx, ev); err != nil {
		// already recorded by the relay, keep the loop alive
		w.logger.WithField("chain", w.network.Name).WithError(err).Error("dispatch failed")
	}
}
