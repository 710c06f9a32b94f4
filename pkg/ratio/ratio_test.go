package ratio

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpolateLinearBoundaries(t *testing.T) {
	minAmt := big.NewInt(100)
	maxAmt := big.NewInt(1000)

	require.EqualValues(t, 2, InterpolateLinear(big.NewInt(50), minAmt, maxAmt, 2, 12))
	require.EqualValues(t, 2, InterpolateLinear(big.NewInt(100), minAmt, maxAmt, 2, 12))
	require.EqualValues(t, 12, InterpolateLinear(big.NewInt(1000), minAmt, maxAmt, 2, 12))
	require.EqualValues(t, 7, InterpolateLinear(big.NewInt(550), minAmt, maxAmt, 2, 12))
}

func TestInterpolateLinearMonotoneNonDecreasing(t *testing.T) {
	minAmt := big.NewInt(100)
	maxAmt := big.NewInt(1000)
	prev := uint32(0)
	for amt := int64(0); amt <= 1100; amt += 17 {
		v := InterpolateLinear(big.NewInt(amt), minAmt, maxAmt, 2, 12)
		require.GreaterOrEqual(t, v, prev)
		prev = v
	}
}

func TestCompareDecimalValuesSymmetricReflexive(t *testing.T) {
	a := parseUnits("1234.567890", 6)
	b := parseUnits("1234.567890", 18)
	require.True(t, CompareDecimalValues(a, 6, b, 18))
	require.True(t, CompareDecimalValues(b, 18, a, 6))

	require.True(t, CompareDecimalValues(a, 6, a, 6))

	c := parseUnits("11245.123456789012345678", 18)
	d := parseUnits("11245.123456", 6)
	require.False(t, CompareDecimalValues(c, 18, d, 6))
}

// parseUnits mimics ethers.js parseUnits for test fixtures: it shifts the
// decimal point of a literal string value by `decimals` places.
func parseUnits(value string, decimals uint8) *big.Int {
	neg := false
	if len(value) > 0 && value[0] == '-' {
		neg = true
		value = value[1:]
	}
	intPart, fracPart := value, ""
	for i, c := range value {
		if c == '.' {
			intPart, fracPart = value[:i], value[i+1:]
			break
		}
	}
	for len(fracPart) < int(decimals) {
		fracPart += "0"
	}
	fracPart = fracPart[:decimals]

	combined := intPart + fracPart
	n := new(big.Int)
	n.SetString(combined, 10)
	if neg {
		n.Neg(n)
	}
	return n
}
