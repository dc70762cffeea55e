// Package metrics exports engine activity as Prometheus metrics.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/bitfsorg/libgacha-go/gacha"
)

const namespace = "gacha"

var _ gacha.Observer = (*Recorder)(nil)

// Recorder is an engine observer that updates Prometheus collectors.
type Recorder struct {
	events        *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	pulls         *prometheus.CounterVec
	revenue       *prometheus.CounterVec
	settles       prometheus.Counter
	pending       *prometheus.GaugeVec
	keysRemaining *prometheus.GaugeVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Count of committed audit events by kind.",
		}, []string{"kind"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Count of rejected commands by operation and error code.",
		}, []string{"op", "code"}),
		pulls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pulls_total",
			Help:      "Count of accepted pulls by payment method.",
		}, []string{"method"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_total",
			Help:      "Sum of prices paid for accepted pulls, in base units of the payment method.",
		}, []string{"method"}),
		settles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settles_total",
			Help:      "Count of settled pulls.",
		}),
		pending: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_pulls",
			Help:      "Pulls accepted but not yet settled, per pool.",
		}, []string{"pool"}),
		keysRemaining: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "keys_remaining",
			Help:      "Undrawn rewards, per pool.",
		}, []string{"pool"}),
	}

	err := multierr.Combine(
		reg.Register(r.events),
		reg.Register(r.rejections),
		reg.Register(r.pulls),
		reg.Register(r.revenue),
		reg.Register(r.settles),
		reg.Register(r.pending),
		reg.Register(r.keysRemaining),
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Recorder) Committed(_ context.Context, events []gacha.Event) {
	for _, ev := range events {
		r.events.WithLabelValues(string(ev.Kind)).Inc()
		pool := poolLabel(ev.Pool)

		switch p := ev.Payload.(type) {
		case gacha.KeyAdded:
			r.keysRemaining.WithLabelValues(pool).Set(float64(p.TotalKeys))
		case gacha.Pulled:
			method := p.Method.String()
			r.pulls.WithLabelValues(method).Inc()
			r.revenue.WithLabelValues(method).Add(float64(p.Price))
			r.pending.WithLabelValues(pool).Set(float64(p.Pending))
		case gacha.Settled:
			r.settles.Inc()
			r.pending.WithLabelValues(pool).Set(float64(p.Pending))
			r.keysRemaining.WithLabelValues(pool).Set(float64(p.Remaining))
		}
	}
}

func (r *Recorder) Rejected(_ context.Context, op gacha.Op, _ gacha.PoolID, err error) {
	code := gacha.CodeOf(err)
	if code == "" {
		code = "Unknown"
	}
	r.rejections.WithLabelValues(string(op), code).Inc()
}

func poolLabel(id gacha.PoolID) string {
	return strconv.FormatUint(uint64(id), 10)
}
