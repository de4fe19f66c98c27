package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistersAllCollectorsWithoutPanicking(t *testing.T) {
	m, reg := New()
	require.NotNil(t, m)
	require.NotNil(t, reg)

	m.HTTPRequestsTotal.WithLabelValues("GetSearchResults", "json", "2xx").Inc()
	m.ImportProblemsTotal.Inc()
	m.ImportDuration.Observe(1.5)
}

func TestNewConstructsIndependentRegistriesPerCall(t *testing.T) {
	// Repeated construction must not panic on duplicate registration,
	// since tests (and table-driven router setups) call New() many times.
	require.NotPanics(t, func() {
		New()
		New()
		New()
	})
}

func TestHandlerServesMetricsEndpoint(t *testing.T) {
	m, reg := New()
	m.ImportRunsTotal.WithLabelValues("success").Inc()

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	require.Contains(t, rec.Body.String(), "tomato_import_runs_total")
}
