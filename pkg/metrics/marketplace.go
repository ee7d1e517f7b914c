package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Marketplace tracks checkout, payment verification and gateway latency.
type Marketplace struct {
	checkouts     *prometheus.CounterVec
	verifications *prometheus.CounterVec
	refunds       *prometheus.CounterVec
	gateway       *prometheus.HistogramVec
}

func NewMarketplace(reg prometheus.Registerer) *Marketplace {
	if reg == nil {
		return &Marketplace{}
	}
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bidmart_checkouts_total",
		Help: "Checkout attempts by path and outcome.",
	}, []string{"path", "outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bidmart_payment_verifications_total",
		Help: "Payment verification callbacks by outcome.",
	}, []string{"outcome"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bidmart_refunds_total",
		Help: "Refund requests by outcome.",
	}, []string{"outcome"})
	gateway := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bidmart_gateway_request_duration_seconds",
		Help:    "Payment gateway call latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})
	reg.MustRegister(checkouts, verifications, refunds, gateway)
	return &Marketplace{
		checkouts:     checkouts,
		verifications: verifications,
		refunds:       refunds,
		gateway:       gateway,
	}
}

func (m *Marketplace) IncCheckout(path, outcome string) {
	if m == nil || m.checkouts == nil {
		return
	}
	m.checkouts.WithLabelValues(normalizeLabel(path), normalizeLabel(outcome)).Inc()
}

func (m *Marketplace) IncVerification(outcome string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *Marketplace) IncRefund(outcome string) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveGateway records one gateway round trip.
func (m *Marketplace) ObserveGateway(operation string, err error, elapsed time.Duration) {
	if m == nil || m.gateway == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.gateway.WithLabelValues(normalizeLabel(operation), outcome).Observe(elapsed.Seconds())
}
