package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	r := New()
	r.OrdersAdmitted.WithLabelValues("EVM-10200").Inc()
	r.PendingQueueSize.Set(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "hyperfill_filler_scheduler_orders_admitted_total"))
	require.True(t, strings.Contains(body, "hyperfill_filler_scheduler_pending_queue_size 3"))
}
