package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg                 *prom.Registry
	transitions         *prom.CounterVec
	acquisitionDuration *prom.HistogramVec
	installerDuration   *prom.HistogramVec
	operationDuration   *prom.HistogramVec
	operationResults    *prom.CounterVec
	lastSuccess         *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers the metrics on reg, or on a
// fresh registry when reg is nil.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.transitions = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "mcm",
		Name:      "transitions_total",
		Help:      "Persisted package status transitions",
	}, []string{"from", "to"})
	pr.acquisitionDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "mcm",
		Name:      "acquisition_duration_seconds",
		Help:      "Duration of package acquisition attempts",
		Buckets:   prom.DefBuckets,
	}, []string{"mechanism", "result"})
	pr.installerDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "mcm",
		Name:      "installer_duration_seconds",
		Help:      "Duration of scm invocations",
		Buckets:   prom.DefBuckets,
	}, []string{"action", "result"})
	pr.operationDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "mcm",
		Name:      "operation_duration_seconds",
		Help:      "Duration of lifecycle operations",
		Buckets:   prom.DefBuckets,
	}, []string{"operation"})
	pr.operationResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "mcm",
		Name:      "operation_results_total",
		Help:      "Lifecycle operation outcomes by error category",
	}, []string{"operation", "result", "category"})
	pr.lastSuccess = prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: "mcm",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix time of the last successful operation",
	}, []string{"operation"})
	reg.MustRegister(pr.transitions, pr.acquisitionDuration, pr.installerDuration,
		pr.operationDuration, pr.operationResults, pr.lastSuccess)
	return pr
}

// Registry returns the registry the metrics live in.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) IncTransition(from, to string) {
	if p == nil {
		return
	}
	p.transitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) ObserveAcquisition(kind descriptor.MechanismKind, d time.Duration, err error) {
	if p == nil {
		return
	}
	p.acquisitionDuration.WithLabelValues(string(kind), string(resultOf(err))).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveInstaller(action string, d time.Duration, err error) {
	if p == nil {
		return
	}
	p.installerDuration.WithLabelValues(action, string(resultOf(err))).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveOperation(op string, d time.Duration, err error) {
	if p == nil {
		return
	}
	p.operationDuration.WithLabelValues(op).Observe(d.Seconds())
	category := ""
	if err != nil {
		category = string(errors.GetCategory(err))
	} else {
		p.lastSuccess.WithLabelValues(op).SetToCurrentTime()
	}
	p.operationResults.WithLabelValues(op, string(resultOf(err)), category).Inc()
}
