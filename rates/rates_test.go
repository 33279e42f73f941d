package rates

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"gobridgerelay/config"
	"gobridgerelay/types"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const testOracleChain = 1337

// fakeCaller answers getExchangeRate from a static pair table and returns
// zero for everything else, like the mock rate contract does.
type fakeCaller struct {
	rates map[string]int64
}

func (f *fakeCaller) CallContract(ctx context.Context, chainID int, contract common.Address, data []byte) ([]byte, error) {
	parsed, err := abi.JSON(strings.NewReader(oracleABI))
	if err != nil {
		return nil, err
	}

	method := parsed.Methods["getExchangeRate"]
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, err
	}

	scaled := f.rates[args[0].(string)+":"+args[1].(string)]
	return method.Outputs.Pack(big.NewInt(scaled))
}

func testResolver(t *testing.T, contractRates map[string]int64) *Resolver {
	t.Helper()
	registry := config.NewRegistry(types.MechanismLockRelease, map[int]config.NetworkConfig{
		testOracleChain: {
			Name:              "testnet",
			ChainID:           testOracleChain,
			RPCList:           []string{"http://localhost:8545"},
			RateOracleAddress: "0x00000000000000000000000000000000000000aa",
		},
	}, nil)

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewResolver(&fakeCaller{rates: contractRates}, registry, nil, logger)
}

func TestResolveContractRate(t *testing.T) {
	r := testResolver(t, map[string]int64{"KNC:VNST": 7000 * Scale})

	rate := r.Resolve(context.Background(), testOracleChain, "KNC", "VNST")
	require.Equal(t, SourceContract, rate.Source)
	require.Equal(t, float64(7000), rate.Float())

	out := Convert(big.NewInt(1), rate)
	require.Equal(t, "7000", out.String())
}

func TestResolveContractReverseInverted(t *testing.T) {
	r := testResolver(t, map[string]int64{"KNC:VNST": 2 * Scale})

	rate := r.Resolve(context.Background(), testOracleChain, "VNST", "KNC")
	require.Equal(t, SourceContractInverse, rate.Source)
	require.Equal(t, 0.5, rate.Float())
}

func TestResolveFallbackOrder(t *testing.T) {
	r := testResolver(t, nil)

	rate := r.Resolve(context.Background(), testOracleChain, "VNST", "VNDC")
	require.Equal(t, SourceFallback, rate.Source)

	// Scenario: VNST -> VNDC at 1.0, amountIn 100 -> 100
	out := Convert(big.NewInt(100), rate)
	require.Equal(t, "100", out.String())
}

func TestResolveUnknownPairDefaultsToIdentity(t *testing.T) {
	r := testResolver(t, nil)

	rate := r.Resolve(context.Background(), testOracleChain, "FOO", "BAR")
	require.Equal(t, SourceDefault, rate.Source)
	require.Equal(t, "42", Convert(big.NewInt(42), rate).String())
}

func TestFallbackInversionRoundTrips(t *testing.T) {
	r := testResolver(t, nil)
	ctx := context.Background()

	for _, pair := range [][2]string{{"KNC", "VNST"}, {"AXS", "VNST"}, {"SLP", "VNST"}} {
		forward := r.Resolve(ctx, testOracleChain, pair[0], pair[1])
		backward := r.Resolve(ctx, testOracleChain, pair[1], pair[0])
		require.Equal(t, SourceFallback, forward.Source)
		require.Equal(t, SourceFallbackInverse, backward.Source)

		product := forward.Float() * backward.Float()
		require.InDelta(t, 1.0, product, 0.001, "rate(%s,%s) * rate(%s,%s)", pair[0], pair[1], pair[1], pair[0])
	}
}

func TestConvertTruncatesTowardZero(t *testing.T) {
	half := Rate{Scaled: big.NewInt(Scale / 2)}
	require.Equal(t, "500", Convert(big.NewInt(1000), half).String())

	// 1001 * 0.5 = 500.5, truncated
	require.Equal(t, "500", Convert(big.NewInt(1001), half).String())

	third := Rate{Scaled: big.NewInt(Scale / 3)}
	// 100 * 33333/100000 = 33.333
	require.Equal(t, "33", Convert(big.NewInt(100), third).String())
}

func TestNonPositiveOverridesAreDropped(t *testing.T) {
	registry := config.NewRegistry(types.MechanismLockRelease, map[int]config.NetworkConfig{}, nil)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	r := NewResolver(&fakeCaller{}, registry, map[string]int64{
		"FOO:BAR":   0,
		"KNC:VNST":  -7000 * Scale,
		"VNST:VNDC": 3 * Scale,
	}, logger)
	ctx := context.Background()

	// a zeroed pair resolves as unknown in both directions instead of
	// dividing by the stored value
	require.Equal(t, SourceDefault, r.Resolve(ctx, 0, "FOO", "BAR").Source)
	require.Equal(t, SourceDefault, r.Resolve(ctx, 0, "BAR", "FOO").Source)

	// a negative override removes the built-in entry too
	require.Equal(t, SourceDefault, r.Resolve(ctx, 0, "KNC", "VNST").Source)
	require.Equal(t, SourceDefault, r.Resolve(ctx, 0, "VNST", "KNC").Source)

	// positive overrides still land
	require.Equal(t, float64(3), r.Resolve(ctx, 0, "VNST", "VNDC").Float())
}

func TestFallbackOverrides(t *testing.T) {
	registry := config.NewRegistry(types.MechanismLockRelease, map[int]config.NetworkConfig{}, nil)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	r := NewResolver(&fakeCaller{}, registry, map[string]int64{"VNST:VNDC": 2 * Scale}, logger)
	rate := r.Resolve(context.Background(), 0, "VNST", "VNDC")
	require.Equal(t, float64(2), rate.Float())
}
