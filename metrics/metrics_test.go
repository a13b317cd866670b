package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest_IncrementsCounter(t *testing.T) {
	m := New("mcjars_registry_test_a", nil, nil)

	m.ObserveRequest("GET", "/api/types", 200, 5*time.Millisecond)
	m.ObserveRequest("GET", "/api/types", 404, 2*time.Millisecond)

	require.Equal(t, float64(1), testutil.ToFloat64(m.RequestTotal.WithLabelValues("GET", "/api/types", "2xx")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.RequestTotal.WithLabelValues("GET", "/api/types", "4xx")))
}

func TestObserveDrain_RecordsBatchSize(t *testing.T) {
	m := New("mcjars_registry_test_b", nil, nil)

	m.ObserveDrain(50*time.Millisecond, 12)

	require.Equal(t, uint64(1), testutil.CollectAndCount(m.DrainBatch))
}

func TestStatusClass(t *testing.T) {
	cases := map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 500: "5xx", 0: "other"}
	for status, want := range cases {
		require.Equal(t, want, statusClass(status))
	}
}
