package fillstrategy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindsCompatibleSameKind(t *testing.T) {
	require.True(t, kindsCompatible(kindUSDC, kindUSDC))
}

func TestKindsCompatibleNativeAndWeth(t *testing.T) {
	require.True(t, kindsCompatible(kindNative, kindWETH))
	require.True(t, kindsCompatible(kindWETH, kindNative))
}

func TestKindsCompatibleRejectsMismatch(t *testing.T) {
	require.False(t, kindsCompatible(kindUSDC, kindUSDT))
	require.False(t, kindsCompatible(kindDAI, kindNative))
}

func TestKindsCompatibleRejectsUnknown(t *testing.T) {
	require.False(t, kindsCompatible(kindUnknown, kindUSDC))
}
