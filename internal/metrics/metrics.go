// Package metrics provides Prometheus metrics for authentication operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service. A nil *Metrics is a no-op.
type Metrics struct {
	factory promauto.Factory

	loginsTotal          *prometheus.CounterVec
	captchaIssuedTotal   prometheus.Counter
	captchaVerifiedTotal *prometheus.CounterVec
	tokenValidations     *prometheus.CounterVec
	revocationsTotal     prometheus.Counter
	sweptTotal           prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		factory: factory,

		loginsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
		captchaIssuedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_captcha_issued_total",
			Help: "Captcha challenges issued",
		}),
		captchaVerifiedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_captcha_verified_total",
			Help: "Captcha verifications by result",
		}, []string{"result"}),
		tokenValidations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_token_validations_total",
			Help: "Token validations by result",
		}, []string{"result"}),
		revocationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_token_revocations_total",
			Help: "Tokens revoked",
		}),
		sweptTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_sweep_removed_total",
			Help: "Expired entries removed by the sweeper",
		}),
	}
}

// Login counts a login attempt by result.
func (m *Metrics) Login(result string) {
	if m == nil {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

// CaptchaIssued counts an issued challenge.
func (m *Metrics) CaptchaIssued() {
	if m == nil {
		return
	}
	m.captchaIssuedTotal.Inc()
}

// CaptchaVerified counts a challenge verification by result.
func (m *Metrics) CaptchaVerified(result string) {
	if m == nil {
		return
	}
	m.captchaVerifiedTotal.WithLabelValues(result).Inc()
}

// TokenValidated counts a token validation by result.
func (m *Metrics) TokenValidated(result string) {
	if m == nil {
		return
	}
	m.tokenValidations.WithLabelValues(result).Inc()
}

// TokenRevoked counts a revocation.
func (m *Metrics) TokenRevoked() {
	if m == nil {
		return
	}
	m.revocationsTotal.Inc()
}

// Swept adds n removed entries.
func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweptTotal.Add(float64(n))
}

// TrackStoreSize exports the number of entries in an in-memory store, read at scrape time.
func (m *Metrics) TrackStoreSize(store string, size func() int) {
	if m == nil {
		return
	}
	m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "gatekeeper_store_entries",
		Help:        "Entries held by in-memory stores",
		ConstLabels: prometheus.Labels{"store": store},
	}, func() float64 { return float64(size()) })
}
