package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveLookup(t *testing.T) {
	r := NewRegistry(false)

	r.ObserveLookup("YAHOO", "hit", 200*time.Millisecond)
	r.ObserveLookup("YAHOO", "hit", 300*time.Millisecond)
	r.ObserveLookup("YAHOO", "cached", 0)
	r.ObserveLookup("SCREENER", "error", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Lookups.WithLabelValues("YAHOO", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Lookups.WithLabelValues("YAHOO", "cached")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Lookups.WithLabelValues("SCREENER", "error")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.LookupLatency))
}

func TestObserveScanAndVerdicts(t *testing.T) {
	r := NewRegistry(false)

	r.ObserveScan("completed", 2*time.Second)
	r.ObserveScan("no_signals", 10*time.Millisecond)
	r.ObserveVerdicts(3, 7)
	r.ObserveVerdicts(1, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Scans.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Scans.WithLabelValues("no_signals")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.Candidates.WithLabelValues("accepted")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.Candidates.WithLabelValues("rejected")))
}

func TestHandler(t *testing.T) {
	r := NewRegistry(true)
	r.ObserveScan("completed", time.Second)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `insider_radar_scans_total{outcome="completed"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
