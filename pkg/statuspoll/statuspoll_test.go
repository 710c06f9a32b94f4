package statuspoll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/hyperfill/intent-filler/pkg/bridgehost"
)

type fakeSource struct {
	mu       sync.Mutex
	sequence []bridgehost.RequestStatusWithMetadata
	calls    int
}

func (f *fakeSource) QueryStatus(ctx context.Context, commitment common.Hash) (bridgehost.RequestStatusWithMetadata, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.sequence) {
		return bridgehost.RequestStatusWithMetadata{}, false, nil
	}
	s := f.sequence[f.calls]
	f.calls++
	return s, true, nil
}

func drain(t *testing.T, ch <-chan bridgehost.RequestStatusWithMetadata, timeout time.Duration) []bridgehost.RequestStatusWithMetadata {
	t.Helper()
	var got []bridgehost.RequestStatusWithMetadata
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, ev)
		case <-deadline:
			t.Fatal("timed out waiting for stream to close")
		}
	}
}

func TestStreamEmitsStrictlyIncreasingAndDedupes(t *testing.T) {
	src := &fakeSource{sequence: []bridgehost.RequestStatusWithMetadata{
		{Status: bridgehost.StatusSource},
		{Status: bridgehost.StatusSource}, // duplicate, must be dropped
		{Status: bridgehost.StatusSourceFinalized},
		{Status: bridgehost.StatusHyperbridgeDelivered},
		{Status: bridgehost.StatusDestination},
	}}
	p := New(src, 5*time.Millisecond)

	ch, err := p.Stream(context.Background(), common.HexToHash("0x01"))
	require.NoError(t, err)

	got := drain(t, ch, 2*time.Second)
	require.Len(t, got, 4)
	require.Equal(t, bridgehost.StatusSource, got[0].Status)
	require.Equal(t, bridgehost.StatusSourceFinalized, got[1].Status)
	require.Equal(t, bridgehost.StatusHyperbridgeDelivered, got[2].Status)
	require.Equal(t, bridgehost.StatusDestination, got[3].Status)
}

func TestStreamClosesOnContextCancel(t *testing.T) {
	src := &fakeSource{} // never reports any status
	p := New(src, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := p.Stream(ctx, common.HexToHash("0x02"))
	require.NoError(t, err)

	cancel()

	select {
	case _, ok := <-ch:
		require.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close after cancel")
	}
}
