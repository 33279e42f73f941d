package bridge

import (
	"context"

	"gobridgerelay/config"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// WatchedContract is one contract/event filter a poller queries per cycle.
type WatchedContract struct {
	Address common.Address
	Topic0  common.Hash
	Kind    types.EventKind
}

// Mechanism is one bridge model. A single implementation is selected at
// startup and all decode/dispatch branching happens through it.
type Mechanism interface {
	Name() types.Mechanism
	// Watched lists the contracts and event signatures to poll on a source
	// network.
	Watched(network config.NetworkConfig) []WatchedContract
	// Decode extracts a structured event from a raw log of the given kind.
	Decode(kind types.EventKind, log ethtypes.Log, sourceChain int) (*types.DecodedEvent, error)
	// Dispatch executes the destination action for a decoded event, at most
	// once per transaction key.
	Dispatch(ctx context.Context, r *Relay, ev *types.DecodedEvent) error
}

// ForMechanism returns the implementation for a configured mechanism name.
func ForMechanism(m types.Mechanism) (Mechanism, error) {
	switch m {
	case types.MechanismMintBurn:
		return mintBurn{}, nil
	case types.MechanismLockRelease:
		return lockRelease{}, nil
	default:
		return nil, errors.Errorf("unknown bridge mechanism %q", m)
	}
}

type mintBurn struct{}

func (mintBurn) Name() types.Mechanism { return types.MechanismMintBurn }

func (mintBurn) Watched(network config.NetworkConfig) []WatchedContract {
	if network.BridgeAddress == "" {
		return nil
	}
	return []WatchedContract{{
		Address: common.HexToAddress(network.BridgeAddress),
		Topic0:  mintBurnABI.Events[eventTokensBurned].ID,
		Kind:    types.EventBurn,
	}}
}

func (mintBurn) Decode(kind types.EventKind, log ethtypes.Log, sourceChain int) (*types.DecodedEvent, error) {
	if kind != types.EventBurn {
		return nil, errors.Errorf("mint-burn mechanism cannot decode %s events", kind)
	}
	return decodeBurn(log, sourceChain)
}

type lockRelease struct{}

func (lockRelease) Name() types.Mechanism { return types.MechanismLockRelease }

func (lockRelease) Watched(network config.NetworkConfig) []WatchedContract {
	var watched []WatchedContract
	if network.FactoryAddress != "" {
		watched = append(watched, WatchedContract{
			Address: common.HexToAddress(network.FactoryAddress),
			Topic0:  factoryABI.Events[eventTokensLocked].ID,
			Kind:    types.EventLock,
		})
	}
	if network.SwapBridgeAddress != "" {
		watched = append(watched, WatchedContract{
			Address: common.HexToAddress(network.SwapBridgeAddress),
			Topic0:  swapABI.Events[eventSwapInitiated].ID,
			Kind:    types.EventSwap,
		})
	}
	if network.SimpleSwapBridgeAddress != "" {
		watched = append(watched, WatchedContract{
			Address: common.HexToAddress(network.SimpleSwapBridgeAddress),
			Topic0:  simpleSwapABI.Events[eventSimpleSwapInitiated].ID,
			Kind:    types.EventSimpleSwap,
		})
	}
	return watched
}

func (lockRelease) Decode(kind types.EventKind, log ethtypes.Log, sourceChain int) (*types.DecodedEvent, error) {
	switch kind {
	case types.EventLock:
		return decodeLock(log, sourceChain)
	case types.EventSwap:
		return decodeSwap(log, sourceChain, false)
	case types.EventSimpleSwap:
		return decodeSwap(log, sourceChain, true)
	default:
		return nil, errors.Errorf("lock-release mechanism cannot decode %s events", kind)
	}
}
