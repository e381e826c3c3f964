package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordAuth(t *testing.T) {
	before := testutil.ToFloat64(AuthEvents.WithLabelValues("login", OutcomeFailure))
	RecordAuth("login", errors.New("Password is wrong"))
	RecordAuth("login", nil)
	require.Equal(t, before+1, testutil.ToFloat64(AuthEvents.WithLabelValues("login", OutcomeFailure)))
	require.GreaterOrEqual(t, testutil.ToFloat64(AuthEvents.WithLabelValues("login", OutcomeSuccess)), 1.0)
}

func TestRegisterCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { RegisterCollectors(reg) })
	require.Panics(t, func() { RegisterCollectors(reg) })
}
