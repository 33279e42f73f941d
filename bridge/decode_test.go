package bridge

import (
	"math/big"
	"testing"

	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	testSender    = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testTokenIn   = common.HexToAddress("0x3333333333333333333333333333333333333333")
	testTokenOut  = common.HexToAddress("0x4444444444444444444444444444444444444444")
	testPool      = common.HexToAddress("0x5555555555555555555555555555555555555555")
	testTxKey     = [32]byte(common.HexToHash("0xabababababababababababababababababababababababababababababababab"))
)

func burnLog(t *testing.T) ethtypes.Log {
	t.Helper()
	data, err := mintBurnABI.Events[eventTokensBurned].Inputs.NonIndexed().Pack(
		"AXS", big.NewInt(1000), big.NewInt(5), big.NewInt(97), testTxKey)
	require.NoError(t, err)

	return ethtypes.Log{
		Topics: []common.Hash{
			mintBurnABI.Events[eventTokensBurned].ID,
			common.BytesToHash(testSender.Bytes()),
			common.BytesToHash(testRecipient.Bytes()),
		},
		Data:   data,
		TxHash: common.HexToHash("0x01"),
	}
}

func TestDecodeBurn(t *testing.T) {
	ev, err := decodeBurn(burnLog(t), 1)
	require.NoError(t, err)

	require.Equal(t, types.EventBurn, ev.Kind)
	require.Equal(t, 1, ev.SourceChain)
	require.Equal(t, testSender, ev.Sender)
	require.Equal(t, testRecipient, ev.Recipient)
	require.Equal(t, "AXS", ev.TokenSymbol)
	require.Equal(t, "1000", ev.Amount.String())
	require.Equal(t, "5", ev.Fee.String())
	require.Equal(t, 97, ev.TargetChain)
	require.Equal(t, testTxKey, ev.TransactionID)
}

func TestDecodeBurnDeterministic(t *testing.T) {
	l := burnLog(t)
	first, err := decodeBurn(l, 1)
	require.NoError(t, err)
	second, err := decodeBurn(l, 1)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestDecodeBurnMalformed(t *testing.T) {
	l := burnLog(t)
	l.Data = l.Data[:96]
	_, err := decodeBurn(l, 1)
	require.Error(t, err)

	l = burnLog(t)
	l.Topics = l.Topics[:2]
	_, err = decodeBurn(l, 1)
	require.Error(t, err)
}

func TestDecodeLock(t *testing.T) {
	data, err := factoryABI.Events[eventTokensLocked].Inputs.NonIndexed().Pack(
		testTokenIn, testPool, big.NewInt(1000), big.NewInt(0), big.NewInt(97), testTxKey)
	require.NoError(t, err)

	l := ethtypes.Log{
		Topics: []common.Hash{
			factoryABI.Events[eventTokensLocked].ID,
			common.BytesToHash(testSender.Bytes()),
			common.BytesToHash(testRecipient.Bytes()),
		},
		Data:   data,
		TxHash: common.HexToHash("0x02"),
	}

	ev, err := decodeLock(l, 1)
	require.NoError(t, err)
	require.Equal(t, types.EventLock, ev.Kind)
	require.Equal(t, testTokenIn, ev.TokenIn)
	require.Equal(t, testPool, ev.Pool)
	require.Equal(t, "1000", ev.Amount.String())
	require.Equal(t, 97, ev.TargetChain)
	require.Equal(t, testTxKey, ev.TransactionID)
}

func TestDecodeSwapVariants(t *testing.T) {
	swapData, err := swapABI.Events[eventSwapInitiated].Inputs.NonIndexed().Pack(
		testTokenIn, testTokenOut, big.NewInt(100), big.NewInt(97), testTxKey)
	require.NoError(t, err)

	simpleData, err := simpleSwapABI.Events[eventSimpleSwapInitiated].Inputs.NonIndexed().Pack(
		testTokenIn, testTokenOut, big.NewInt(100), big.NewInt(95), big.NewInt(97), testTxKey)
	require.NoError(t, err)

	swapLog := ethtypes.Log{
		Topics: []common.Hash{
			swapABI.Events[eventSwapInitiated].ID,
			common.BytesToHash(testSender.Bytes()),
			common.BytesToHash(testRecipient.Bytes()),
		},
		Data: swapData,
	}
	simpleLog := swapLog
	simpleLog.Topics = append([]common.Hash{simpleSwapABI.Events[eventSimpleSwapInitiated].ID}, swapLog.Topics[1:]...)
	simpleLog.Data = simpleData

	ev, err := decodeSwap(swapLog, 1, false)
	require.NoError(t, err)
	require.Equal(t, types.EventSwap, ev.Kind)
	require.Equal(t, testTokenIn, ev.TokenIn)
	require.Equal(t, testTokenOut, ev.TokenOut)
	require.Equal(t, "100", ev.Amount.String())
	require.Nil(t, ev.MinAmountOut)

	ev, err = decodeSwap(simpleLog, 1, true)
	require.NoError(t, err)
	require.Equal(t, types.EventSimpleSwap, ev.Kind)
	require.Equal(t, "95", ev.MinAmountOut.String())
	require.Equal(t, 97, ev.TargetChain)

	// a simple-swap log does not decode under the plain swap layout
	_, err = decodeSwap(swapLog, 1, true)
	require.Error(t, err)
}

func TestMechanismWatched(t *testing.T) {
	mb, err := ForMechanism(types.MechanismMintBurn)
	require.NoError(t, err)
	lr, err := ForMechanism(types.MechanismLockRelease)
	require.NoError(t, err)

	network := networkFixture()
	require.Len(t, mb.Watched(network), 1)
	require.Len(t, lr.Watched(network), 3)

	_, err = ForMechanism(types.Mechanism("teleport"))
	require.Error(t, err)
}
