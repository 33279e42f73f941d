package bridge

import (
	"math/big"

	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
)

// Decoding is pure and deterministic: the same raw log always yields the
// same DecodedEvent. A malformed log is an error, never a silently-dropped
// success.

func decodeBurn(log ethtypes.Log, sourceChain int) (*types.DecodedEvent, error) {
	if len(log.Topics) != 3 {
		return nil, errors.Errorf("burn log %s: expected 3 topics, got %d", log.TxHash.Hex(), len(log.Topics))
	}

	vals, err := mintBurnABI.Events[eventTokensBurned].Inputs.Unpack(log.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "burn log %s: cannot unpack data %#x", log.TxHash.Hex(), log.Data)
	}
	if len(vals) != 5 {
		return nil, errors.Errorf("burn log %s: expected 5 data fields, got %d", log.TxHash.Hex(), len(vals))
	}

	token, ok := vals[0].(string)
	if !ok {
		return nil, errors.Errorf("burn log %s: token field is not a string", log.TxHash.Hex())
	}

	amount, fee := toBigInt(vals[1]), toBigInt(vals[2])
	targetChain := toBigInt(vals[3])
	txID, ok := vals[4].([32]byte)
	if !ok || amount == nil || fee == nil || targetChain == nil {
		return nil, errors.Errorf("burn log %s: malformed data fields", log.TxHash.Hex())
	}

	return &types.DecodedEvent{
		Kind:          types.EventBurn,
		SourceChain:   sourceChain,
		Sender:        common.HexToAddress(log.Topics[1].Hex()),
		Recipient:     common.HexToAddress(log.Topics[2].Hex()),
		TokenSymbol:   token,
		Amount:        amount,
		Fee:           fee,
		TargetChain:   int(targetChain.Int64()),
		TransactionID: txID,
		SourceTxHash:  log.TxHash,
	}, nil
}

func decodeLock(log ethtypes.Log, sourceChain int) (*types.DecodedEvent, error) {
	if len(log.Topics) != 3 {
		return nil, errors.Errorf("lock log %s: expected 3 topics, got %d", log.TxHash.Hex(), len(log.Topics))
	}

	vals, err := factoryABI.Events[eventTokensLocked].Inputs.Unpack(log.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "lock log %s: cannot unpack data %#x", log.TxHash.Hex(), log.Data)
	}
	if len(vals) != 6 {
		return nil, errors.Errorf("lock log %s: expected 6 data fields, got %d", log.TxHash.Hex(), len(vals))
	}

	token, tokOK := vals[0].(common.Address)
	pool, poolOK := vals[1].(common.Address)
	amount, fee := toBigInt(vals[2]), toBigInt(vals[3])
	targetChain := toBigInt(vals[4])
	txID, idOK := vals[5].([32]byte)
	if !tokOK || !poolOK || !idOK || amount == nil || fee == nil || targetChain == nil {
		return nil, errors.Errorf("lock log %s: malformed data fields", log.TxHash.Hex())
	}

	return &types.DecodedEvent{
		Kind:          types.EventLock,
		SourceChain:   sourceChain,
		Sender:        common.HexToAddress(log.Topics[1].Hex()),
		Recipient:     common.HexToAddress(log.Topics[2].Hex()),
		TokenIn:       token,
		Pool:          pool,
		Amount:        amount,
		Fee:           fee,
		TargetChain:   int(targetChain.Int64()),
		TransactionID: txID,
		SourceTxHash:  log.TxHash,
	}, nil
}

func decodeSwap(log ethtypes.Log, sourceChain int, simple bool) (*types.DecodedEvent, error) {
	if len(log.Topics) != 3 {
		return nil, errors.Errorf("swap log %s: expected 3 topics, got %d", log.TxHash.Hex(), len(log.Topics))
	}

	contractABI, eventName, fields := swapABI, eventSwapInitiated, 5
	kind := types.EventSwap
	if simple {
		contractABI, eventName, fields = simpleSwapABI, eventSimpleSwapInitiated, 6
		kind = types.EventSimpleSwap
	}

	vals, err := contractABI.Events[eventName].Inputs.Unpack(log.Data)
	if err != nil {
		return nil, errors.Wrapf(err, "swap log %s: cannot unpack data %#x", log.TxHash.Hex(), log.Data)
	}
	if len(vals) != fields {
		return nil, errors.Errorf("swap log %s: expected %d data fields, got %d", log.TxHash.Hex(), fields, len(vals))
	}

	tokenIn, inOK := vals[0].(common.Address)
	tokenOut, outOK := vals[1].(common.Address)
	amountIn := toBigInt(vals[2])

	var minOut *big.Int
	next := 3
	if simple {
		minOut = toBigInt(vals[3])
		if minOut == nil {
			return nil, errors.Errorf("swap log %s: malformed minAmountOut", log.TxHash.Hex())
		}
		next = 4
	}

	targetChain := toBigInt(vals[next])
	txID, idOK := vals[next+1].([32]byte)
	if !inOK || !outOK || !idOK || amountIn == nil || targetChain == nil {
		return nil, errors.Errorf("swap log %s: malformed data fields", log.TxHash.Hex())
	}

	return &types.DecodedEvent{
		Kind:          kind,
		SourceChain:   sourceChain,
		Sender:        common.HexToAddress(log.Topics[1].Hex()),
		Recipient:     common.HexToAddress(log.Topics[2].Hex()),
		TokenIn:       tokenIn,
		TokenOut:      tokenOut,
		Amount:        amountIn,
		MinAmountOut:  minOut,
		TargetChain:   int(targetChain.Int64()),
		TransactionID: txID,
		SourceTxHash:  log.TxHash,
	}, nil
}

func toBigInt(v interface{}) *big.Int {
	b, ok := v.(*big.Int)
	if !ok {
		return nil
	}
	return b
}
