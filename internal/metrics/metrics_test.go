package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecorders(t *testing.T) {
	m := New()

	m.RecordRequest("/api/message", 200, 10*time.Millisecond)
	m.RecordRequest("/api/message", 200, 20*time.Millisecond)
	m.RecordRequest("/api/message", 500, time.Millisecond)
	m.RecordLLMCall("ok", time.Second)
	m.RecordStoreOp("save_conversation", "error", time.Millisecond)
	m.RecordContextMode("detail")
	m.RecordPersona("neutral")
	m.RecordPersona("neutral")

	require.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/message", "200")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("/api/message", "500")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.LLMCallsTotal.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StoreOperationsTotal.WithLabelValues("save_conversation", "error")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.ContextInjectionsTotal.WithLabelValues("detail")))
	require.Equal(t, 2.0, testutil.ToFloat64(m.PersonasTotal.WithLabelValues("neutral")))
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordPersona("comforting")
	require.Equal(t, 0.0, testutil.ToFloat64(b.PersonasTotal.WithLabelValues("comforting")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.RecordLLMCall("error", time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `rental_llm_calls_total{status="error"} 1`)
	require.Contains(t, string(body), "rental_llm_call_duration_seconds_bucket")
}
