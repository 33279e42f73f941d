package config

import (
	"strings"

	"gobridgerelay/types"
)

type Configuration struct {
	// Server config
	Server struct {
		UseSSL    bool   `yaml:"ssl"`
		RedisPort int    `yaml:"redis_port"`
		RedisHost string `yaml:"redis_host"`
	} `yaml:"server"`
	// Bridge mechanism, "mint-burn" or "lock-release"
	Mechanism string `yaml:"mechanism" envconfig:"BRIDGE_MECHANISM"`
	// important private stuff: chain id -> hex private key
	Signers map[int]string `yaml:"signers" envconfig:"SIGNERS"`
	// optional chain id override used by the simulation endpoint
	SimulateSourceChain int `yaml:"simulate_source_chain" envconfig:"SIMULATE_SOURCE_CHAIN"`
	// static fallback exchange rates, "FROM:TO" -> rate scaled by rates.Scale
	FallbackRates map[string]int64 `yaml:"fallback_rates"`
	// per-network overrides replacing entries of the built-in Networks table
	Networks map[int]NetworkConfig `yaml:"networks"`
}

var Config Configuration

// maximum number of EVM RPC retries
const EVM_RETRIES = 3

// NetworkConfig describes one EVM network the relay talks to. A network is a
// polling source when it carries the watched contract set for the active
// mechanism, and a dispatch destination when it carries the release contract
// and a signer.
type NetworkConfig struct {
	Name    string   `yaml:"name"`
	ChainID int      `yaml:"chain_id"`
	RPCList []string `yaml:"rpc_list"`

	// mint-burn: the bridge contract emits burn events and owns releaseTokens
	BridgeAddress string `yaml:"bridge"`
	// lock-release: the factory emits lock events on the source side
	FactoryAddress string `yaml:"factory"`
	// lock-release destination: one pre-funded pool per token symbol; an
	// explicit zero-address entry marks the token as unsupported
	Pools map[string]string `yaml:"pools"`
	// cross-token swap bridges (lock-release family)
	SwapBridgeAddress       string `yaml:"swap_bridge"`
	SimpleSwapBridgeAddress string `yaml:"simple_swap_bridge"`
	// mock exchange-rate contract, optional
	RateOracleAddress string `yaml:"rate_oracle"`

	// token contract address (lowercase hex) -> symbol
	Tokens map[string]string `yaml:"tokens"`

	MinConfirmations int `yaml:"min_confirmations"`
	BlockBatch       int `yaml:"block_batch"`
	// as logs go in another thread, make some room, and also to pick up
	// txs sent by the bridge itself to finalize
	SafetyWindow int `yaml:"safety_window"`
}

// Networks is the built-in network table; entries from the config file
// replace matching entries during Init.
var Networks = map[int]NetworkConfig{
	97: {
		Name:             "BSC Testnet",
		ChainID:          97,
		RPCList:          []string{"https://data-seed-prebsc-1-s1.binance.org:8545", "https://bsc-testnet.publicnode.com"},
		MinConfirmations: 3,
		BlockBatch:       512,
		SafetyWindow:     10,
	},
	11155111: {
		Name:             "Sepolia",
		ChainID:          11155111,
		RPCList:          []string{"https://rpc.sepolia.org", "https://sepolia.drpc.org"},
		MinConfirmations: 3,
		BlockBatch:       512,
		SafetyWindow:     10,
	},
}

// IsSource reports whether the network emits events the relay watches under
// the given mechanism.
func (n *NetworkConfig) IsSource(mechanism types.Mechanism) bool {
	if mechanism == types.MechanismMintBurn {
		return n.BridgeAddress != ""
	}
	return n.FactoryAddress != "" || n.SwapBridgeAddress != "" || n.SimpleSwapBridgeAddress != ""
}

// IsDestination reports whether the network carries a contract the relay can
// release funds through under the given mechanism. Whether a signer is
// present is checked separately, at dispatch time.
func (n *NetworkConfig) IsDestination(mechanism types.Mechanism) bool {
	if mechanism == types.MechanismMintBurn {
		return n.BridgeAddress != ""
	}
	return len(n.Pools) > 0 || n.BridgeAddress != ""
}

// TokenSymbol resolves a token contract address to its configured symbol.
func (n *NetworkConfig) TokenSymbol(address string) (string, bool) {
	sym, ok := n.Tokens[strings.ToLower(address)]
	return sym, ok
}

// PoolFor returns the configured pool address for a token symbol. The second
// result is false when no entry exists at all; a present entry may still be
// the zero address, which dispatch treats as an unsupported token.
func (n *NetworkConfig) PoolFor(symbol string) (string, bool) {
	addr, ok := n.Pools[symbol]
	return addr, ok
}
