package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.PolicyDecision("send", "blocked", "hard_cap_exceeded")
	m.PolicyDecision("send", "blocked", "hard_cap_exceeded")
	m.WriteDecision("user_declined")
	m.Backup("confirmed")
	m.Unlock("wrong_passphrase")
	m.AuditFailure()

	require.Equal(t, 2.0, testutil.ToFloat64(
		m.decisions.WithLabelValues("send", "blocked", "hard_cap_exceeded")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.confirmations.WithLabelValues("user_declined")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.backups.WithLabelValues("confirmed")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.unlocks.WithLabelValues("wrong_passphrase")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.auditFailures))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.True(t, strings.Contains(string(body), "seashail_policy_decisions_total"))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	require.NotPanics(t, func() {
		m.PolicyDecision("send", "auto_approve", "within_auto_approve")
		m.WriteDecision("auto_approved")
		m.Backup("declined")
		m.Unlock("ok")
		m.AuditFailure()
	})
}
