package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRebuild(t *testing.T) {
	before := testutil.ToFloat64(locationRebuilds.WithLabelValues("rebuilt"))
	samplesBefore := testutil.ToFloat64(samplesWritten)

	ObserveRebuild("rebuilt", 20*time.Millisecond, 28)

	assert.Equal(t, before+1, testutil.ToFloat64(locationRebuilds.WithLabelValues("rebuilt")))
	assert.Equal(t, samplesBefore+28, testutil.ToFloat64(samplesWritten))
}

func TestLatencyHandlerRecordsRouteAndCode(t *testing.T) {
	r := mux.NewRouter()
	r.Use(LatencyHandler)
	r.HandleFunc("/api/v1/locations/{id}/graph", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/locations/42/graph", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1, testutil.CollectAndCount(requestLatency))

	var m dto.Metric
	observer := requestLatency.WithLabelValues(http.MethodGet, "/api/v1/locations/{id}/graph", "404")
	require.NoError(t, observer.(prometheus.Metric).Write(&m))
	assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
}
