package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestDomainMetricsCount(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewDomainMetrics(reg)

	m.CartMutation("add")
	m.CartMutation("add")
	m.StatusTransition("PENDING", "CONFIRMED")
	m.PaymentCallback("DONE")

	require.Equal(t, 2.0, testutil.ToFloat64(m.cartMutations.WithLabelValues("add")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.statusTransitions.WithLabelValues("PENDING", "CONFIRMED")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.paymentCallbacks.WithLabelValues("DONE")))
}

func TestServerMetricsRegister(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg, "api")
	m.Requests.WithLabelValues("/health", "GET", "200").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Equal(t, "commerce_api_http_requests_total", families[0].GetName())
}
