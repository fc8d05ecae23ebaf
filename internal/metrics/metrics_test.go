// Package metrics tests sync instrumentation.
// Related: internal/metrics/metrics.go
// Tags: metrics, prometheus

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSync(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	s, err := NewSync(reg)
	require.NoError(t, err)

	s.Event(ResultApplied)
	s.Event(ResultApplied)
	s.Event(ResultFailed)
	s.ProjectSeeded()
	s.SetCommands(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.events.WithLabelValues(ResultApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.events.WithLabelValues(ResultFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.seededProjects))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.commands))
}

func TestSync_DoubleRegistrationFails(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := NewSync(reg)
	require.NoError(t, err)
	_, err = NewSync(reg)
	assert.Error(t, err)
}

func TestSync_NilIsNoop(t *testing.T) {
	t.Parallel()

	var s *Sync
	assert.NotPanics(t, func() {
		s.Event(ResultIgnored)
		s.ProjectSeeded()
		s.SetCommands(1)
	})
}
