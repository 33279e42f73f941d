// Package rates resolves conversion multipliers between token symbols for
// cross-token bridging. Rates are fixed-point integers scaled by Scale; all
// amount math is big.Int with truncation toward zero so on-chain-bound
// values never pick up floating-point drift.
package rates

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"gobridgerelay/config"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// Scale is the fixed-point denominator used both by the on-chain mock rate
// contract and the fallback table: a stored value of 700000000 means 7000.0.
const Scale = 100000

// rate oracle view, returns 0 for unknown pairs
const oracleABI = `[{"constant":true,"inputs":[{"name":"fromToken","type":"string"},{"name":"toToken","type":"string"}],"name":"getExchangeRate","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

// Source names where a resolved rate came from, for quotes and logs.
type Source string

const (
	SourceContract        Source = "contract"
	SourceContractInverse Source = "contract-inverse"
	SourceFallback        Source = "fallback"
	SourceFallbackInverse Source = "fallback-inverse"
	SourceDefault         Source = "default"
)

// Rate is a conversion multiplier scaled by Scale.
type Rate struct {
	Scaled *big.Int
	Source Source
}

// Float returns the decimal multiplier for display purposes only; amount
// conversion must go through Convert.
func (r Rate) Float() float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(r.Scaled), big.NewFloat(Scale)).Float64()
	return f
}

// Convert applies the rate to an amount in smallest units, truncating
// toward zero.
func Convert(amount *big.Int, rate Rate) *big.Int {
	out := new(big.Int).Mul(amount, rate.Scaled)
	return out.Quo(out, big.NewInt(Scale))
}

// invert returns Scale^2/scaled, the scaled multiplicative inverse.
func invert(scaled *big.Int) *big.Int {
	num := new(big.Int).Mul(big.NewInt(Scale), big.NewInt(Scale))
	return num.Quo(num, scaled)
}

func pairKey(from, to string) string {
	return fmt.Sprintf("%s:%s", from, to)
}

// defaultFallback covers the token pairs the bridge ships with; the config
// file can add to or replace entries.
var defaultFallback = map[string]int64{
	"VNST:VNDC": 1 * Scale,
	"KNC:VNST":  7000 * Scale,
	"AXS:VNST":  120000 * Scale,
	"SLP:VNST":  60 * Scale,
}

// ContractCaller is the read-only chain access the resolver needs.
type ContractCaller interface {
	CallContract(ctx context.Context, chainID int, contract common.Address, data []byte) ([]byte, error)
}

// Resolver resolves conversion rates, consulting the on-chain mock-rate
// contract first and the static fallback table after. Rates drift over time
// and are re-resolved per conversion, never cached.
type Resolver struct {
	caller   ContractCaller
	registry *config.Registry
	oracle   abi.ABI
	fallback map[string]*big.Int
	logger   *logrus.Logger
}

func NewResolver(caller ContractCaller, registry *config.Registry, overrides map[string]int64, logger *logrus.Logger) *Resolver {
	parsed, err := abi.JSON(strings.NewReader(oracleABI))
	if err != nil {
		// the ABI is a compile-time constant
		panic(err)
	}

	fallback := make(map[string]*big.Int, len(defaultFallback)+len(overrides))
	for k, v := range defaultFallback {
		fallback[k] = big.NewInt(v)
	}
	// a rate is a divisor once inverted, so non-positive entries can never
	// be stored; dropping the pair makes it unresolvable instead
	for k, v := range overrides {
		if v <= 0 {
			logger.Warnf("ignoring non-positive fallback rate %d for %s", v, k)
			delete(fallback, k)
			continue
		}
		fallback[k] = big.NewInt(v)
	}

	return &Resolver{
		caller:   caller,
		registry: registry,
		oracle:   parsed,
		fallback: fallback,
		logger:   logger,
	}
}

// Resolve returns the conversion multiplier from one token symbol to
// another on the given network. Order: on-chain rate, inverted on-chain
// reverse rate, fallback table, inverted reverse fallback, 1:1.
func (r *Resolver) Resolve(ctx context.Context, chainID int, from, to string) Rate {
	if from == to {
		return Rate{Scaled: big.NewInt(Scale), Source: SourceDefault}
	}

	if scaled := r.contractRate(ctx, chainID, from, to); scaled != nil {
		return Rate{Scaled: scaled, Source: SourceContract}
	}
	if scaled := r.contractRate(ctx, chainID, to, from); scaled != nil {
		return Rate{Scaled: invert(scaled), Source: SourceContractInverse}
	}
	if scaled, ok := r.fallback[pairKey(from, to)]; ok {
		return Rate{Scaled: new(big.Int).Set(scaled), Source: SourceFallback}
	}
	if scaled, ok := r.fallback[pairKey(to, from)]; ok {
		return Rate{Scaled: invert(scaled), Source: SourceFallbackInverse}
	}

	r.logger.Warnf("no exchange rate for %s->%s, assuming 1:1", from, to)
	return Rate{Scaled: big.NewInt(Scale), Source: SourceDefault}
}

// contractRate reads the mock rate contract, returning nil when the network
// has no oracle, the call fails, or the pair is unknown to the contract.
func (r *Resolver) contractRate(ctx context.Context, chainID int, from, to string) *big.Int {
	network, ok := r.registry.Resolve(chainID)
	if !ok || network.RateOracleAddress == "" {
		return nil
	}

	data, err := r.oracle.Pack("getExchangeRate", from, to)
	if err != nil {
		r.logger.WithError(err).Error("error packing getExchangeRate call")
		return nil
	}

	raw, err := r.caller.CallContract(ctx, chainID, common.HexToAddress(network.RateOracleAddress), data)
	if err != nil {
		r.logger.WithError(err).Warnf("error reading rate contract for %s->%s on chain %d", from, to, chainID)
		return nil
	}

	out, err := r.oracle.Unpack("getExchangeRate", raw)
	if err != nil || len(out) != 1 {
		r.logger.WithError(err).Warn("error unpacking getExchangeRate result")
		return nil
	}

	scaled, ok := out[0].(*big.Int)
	if !ok || scaled.Sign() <= 0 {
		return nil
	}
	return scaled
}

// FallbackTable returns the static table as decimal multipliers, for the
// exchange-rates endpoint.
func (r *Resolver) FallbackTable() map[string]float64 {
	out := make(map[string]float64, len(r.fallback))
	for pair, scaled := range r.fallback {
		out[pair] = Rate{Scaled: scaled}.Float()
	}
	return out
}

// ContractRates reads the oracle for every known pair and returns those it
// answers, as decimal multipliers.
func (r *Resolver) ContractRates(ctx context.Context, chainID int) map[string]float64 {
	out := make(map[string]float64)
	for pair := range r.fallback {
		parts := strings.SplitN(pair, ":", 2)
		if scaled := r.contractRate(ctx, chainID, parts[0], parts[1]); scaled != nil {
			out[pair] = Rate{Scaled: scaled}.Float()
		}
	}
	return out
}
