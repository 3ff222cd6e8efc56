package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterExposesCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	Register(reg)

	RecordAuthAttempt("login", OutcomeSuccess)
	RecordDenial("team_admin")
	RecordHTTPRequest("/api/health", "GET", "200", 10*time.Millisecond)

	families, err := reg.Gather()
	require.NoError(t, err)

	registered := make(map[string]bool)
	for _, family := range families {
		registered[family.GetName()] = true
	}

	for _, name := range []string{
		"teamroster_http_requests_total",
		"teamroster_http_request_duration_seconds",
		"teamroster_auth_attempts_total",
		"teamroster_authorization_denials_total",
	} {
		assert.True(t, registered[name], "metric %q should be registered", name)
	}
}

func TestRegisterTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		Register(prometheus.NewRegistry())
		Register(prometheus.NewRegistry())
	})
}

func TestRecordAuthAttemptIncrements(t *testing.T) {
	before := testutil.ToFloat64(AuthAttemptsTotal.WithLabelValues("register", OutcomeFailure))
	RecordAuthAttempt("register", OutcomeFailure)
	after := testutil.ToFloat64(AuthAttemptsTotal.WithLabelValues("register", OutcomeFailure))
	assert.Equal(t, before+1, after)
}

func TestRecordDenialIncrements(t *testing.T) {
	before := testutil.ToFloat64(AuthorizationDenialsTotal.WithLabelValues("member"))
	RecordDenial("member")
	assert.Equal(t, before+1, testutil.ToFloat64(AuthorizationDenialsTotal.WithLabelValues("member")))
}
