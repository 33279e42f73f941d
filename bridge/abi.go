package bridge

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Event and call fragments of the bridge contract family. Only the members
// the relay decodes or invokes are declared.

// mint-burn bridge: emits burns on the source side, owns releaseTokens on
// the destination side
const MintBurnBridgeABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"from","type":"address"},
		{"indexed":true,"name":"to","type":"address"},
		{"indexed":false,"name":"token","type":"string"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"fee","type":"uint256"},
		{"indexed":false,"name":"targetChain","type":"uint256"},
		{"indexed":false,"name":"transactionId","type":"bytes32"}
	],"name":"TokensBurned","type":"event"},
	{"inputs":[
		{"name":"token","type":"string"},
		{"name":"recipient","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"sourceChain","type":"uint256"},
		{"name":"transactionId","type":"bytes32"}
	],"name":"releaseTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// lock-release factory: emits locks on the source side
const FactoryABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":true,"name":"recipient","type":"address"},
		{"indexed":false,"name":"token","type":"address"},
		{"indexed":false,"name":"pool","type":"address"},
		{"indexed":false,"name":"amount","type":"uint256"},
		{"indexed":false,"name":"fee","type":"uint256"},
		{"indexed":false,"name":"targetChain","type":"uint256"},
		{"indexed":false,"name":"transactionId","type":"bytes32"}
	],"name":"TokensLocked","type":"event"}
]`

// liquidity pool: owns release on the destination side
const PoolABI = `[
	{"inputs":[
		{"name":"recipient","type":"address"},
		{"name":"amount","type":"uint256"},
		{"name":"transactionId","type":"bytes32"},
		{"name":"sourceChain","type":"uint256"}
	],"name":"release","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// cross-token swap bridge
const SwapBridgeABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":true,"name":"recipient","type":"address"},
		{"indexed":false,"name":"tokenIn","type":"address"},
		{"indexed":false,"name":"tokenOut","type":"address"},
		{"indexed":false,"name":"amountIn","type":"uint256"},
		{"indexed":false,"name":"targetChain","type":"uint256"},
		{"indexed":false,"name":"transactionId","type":"bytes32"}
	],"name":"SwapInitiated","type":"event"}
]`

// simple swap bridge, same layout plus a minimum-out bound
const SimpleSwapBridgeABI = `[
	{"anonymous":false,"inputs":[
		{"indexed":true,"name":"sender","type":"address"},
		{"indexed":true,"name":"recipient","type":"address"},
		{"indexed":false,"name":"tokenIn","type":"address"},
		{"indexed":false,"name":"tokenOut","type":"address"},
		{"indexed":false,"name":"amountIn","type":"uint256"},
		{"indexed":false,"name":"minAmountOut","type":"uint256"},
		{"indexed":false,"name":"targetChain","type":"uint256"},
		{"indexed":false,"name":"transactionId","type":"bytes32"}
	],"name":"SimpleSwapInitiated","type":"event"}
]`

const (
	eventTokensBurned        = "TokensBurned"
	eventTokensLocked        = "TokensLocked"
	eventSwapInitiated       = "SwapInitiated"
	eventSimpleSwapInitiated = "SimpleSwapInitiated"
)

var (
	mintBurnABI   = mustABI(MintBurnBridgeABI)
	factoryABI    = mustABI(FactoryABI)
	swapABI       = mustABI(SwapBridgeABI)
	simpleSwapABI = mustABI(SimpleSwapBridgeABI)
)

func mustABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		// the fragments are compile-time constants
		panic(err)
	}
	return parsed
}
