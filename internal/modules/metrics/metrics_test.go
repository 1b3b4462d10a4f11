package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncTransition("install")
	m.IncTransition("install")
	m.IncRejection("disable")
	m.IncCache("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Transitions.WithLabelValues("install")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("disable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues("miss")))
}
