// Package ratio provides arbitrary-precision arithmetic helpers used
// wherever spec.md forbids IEEE-754 float loss: confirmation-policy
// interpolation and cross-decimal amount comparisons. It is built entirely
// on math/big — no decimal library appears anywhere in the retrieved
// corpus, and go-ethereum's own client code (pkg/ethereum/client.go) is
// itself built on math/big for all wei-denominated arithmetic.
package ratio

import "math/big"

// InterpolateLinear computes minVal + (maxVal-minVal)*(amount-minAmount)/(maxAmount-minAmount),
// clamped to [minVal, maxVal] and rounded half-up to the nearest integer.
// When maxAmount <= minAmount (a degenerate config) the result is a step:
// minVal for amounts at or below minAmount, maxVal for amounts above it.
func InterpolateLinear(amount, minAmount, maxAmount *big.Int, minVal, maxVal uint32) uint32 {
	if amount.Cmp(minAmount) <= 0 {
		return minVal
	}
	if amount.Cmp(maxAmount) >= 0 {
		return maxVal
	}
	span := new(big.Int).Sub(maxAmount, minAmount)
	if span.Sign() <= 0 {
		return minVal
	}

	// value = minVal + (maxVal-minVal) * (amount-minAmount) / span, half-up.
	deltaVal := big.NewInt(int64(maxVal) - int64(minVal))
	deltaAmt := new(big.Int).Sub(amount, minAmount)

	num := new(big.Rat).SetInt(new(big.Int).Mul(deltaVal, deltaAmt))
	den := new(big.Rat).SetInt(span)
	frac := new(big.Rat).Quo(num, den)

	rounded := roundHalfUp(frac)
	result := new(big.Int).Add(big.NewInt(int64(minVal)), rounded)

	if result.Cmp(big.NewInt(int64(minVal))) < 0 {
		return minVal
	}
	if result.Cmp(big.NewInt(int64(maxVal))) > 0 {
		return maxVal
	}
	return uint32(result.Int64())
}

// roundHalfUp rounds a non-negative rational to the nearest integer,
// breaking ties upward (away from zero for non-negative inputs).
func roundHalfUp(r *big.Rat) *big.Int {
	num := new(big.Int).Set(r.Num())
	den := r.Denom()

	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	twiceRem := new(big.Int).Mul(rem, big.NewInt(2))
	if twiceRem.CmpAbs(den) >= 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}

// ScaleToDecimals left-scales amount, expressed with fromDecimals of
// precision, to toDecimals of precision. Used to compare or convert amounts
// across tokens with differing decimal counts without ever using float64.
func ScaleToDecimals(amount *big.Int, fromDecimals, toDecimals uint8) *big.Int {
	if fromDecimals == toDecimals {
		return new(big.Int).Set(amount)
	}
	if toDecimals > fromDecimals {
		factor := pow10(toDecimals - fromDecimals)
		return new(big.Int).Mul(amount, factor)
	}
	factor := pow10(fromDecimals - toDecimals)
	return new(big.Int).Quo(amount, factor)
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// CompareDecimalValues reports whether a (with da decimals) and b (with db
// decimals) represent the same underlying quantity, after left-scaling both
// to the higher of the two decimal counts. Symmetric and reflexive per
// spec.md §8 invariant 2.
func CompareDecimalValues(a *big.Int, da uint8, b *big.Int, db uint8) bool {
	target := da
	if db > target {
		target = db
	}
	sa := ScaleToDecimals(a, da, target)
	sb := ScaleToDecimals(b, db, target)
	return sa.Cmp(sb) == 0
}
