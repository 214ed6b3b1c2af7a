package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Login("success")
	m.Login("success")
	m.Login("invalid_credentials")
	m.CaptchaIssued()
	m.CaptchaVerified("ok")
	m.TokenValidated("revoked")
	m.TokenRevoked()
	m.Swept(3)
	m.Swept(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginsTotal.WithLabelValues("invalid_credentials")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captchaIssuedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.tokenValidations.WithLabelValues("revoked")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sweptTotal))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Login("success")
		m.CaptchaIssued()
		m.CaptchaVerified("ok")
		m.TokenValidated("ok")
		m.TokenRevoked()
		m.Swept(1)
		m.TrackStoreSize("revocations", func() int { return 1 })
	})
}

func TestTrackStoreSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	size := 2
	m.TrackStoreSize("revocations", func() int { return size })
	m.TrackStoreSize("challenges", func() int { return 5 })

	expected := `
# HELP gatekeeper_store_entries Entries held by in-memory stores
# TYPE gatekeeper_store_entries gauge
gatekeeper_store_entries{store="challenges"} 5
gatekeeper_store_entries{store="revocations"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "gatekeeper_store_entries"))

	size = 7
	expected = strings.Replace(expected, `{store="revocations"} 2`, `{store="revocations"} 7`, 1)
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "gatekeeper_store_entries"))
}
