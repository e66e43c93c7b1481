// Package metrics records lifecycle metrics.
//
// Components receive a Recorder. NoopRecorder is the default; a
// PrometheusRecorder is swapped in when metrics.textfile is configured and
// its registry is written to a node-exporter textfile when the process exits.
package metrics

import (
	"time"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
)

// ResultLabel enumerates outcome labels for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

func resultOf(err error) ResultLabel {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}

// Recorder defines the metric hooks. All methods must be safe to call on the
// zero NoopRecorder.
type Recorder interface {
	IncTransition(from, to string)
	ObserveAcquisition(kind descriptor.MechanismKind, d time.Duration, err error)
	ObserveInstaller(action string, d time.Duration, err error)
	ObserveOperation(op string, d time.Duration, err error)
}

// NoopRecorder does nothing.
type NoopRecorder struct{}

func (NoopRecorder) IncTransition(string, string)                                  {}
func (NoopRecorder) ObserveAcquisition(descriptor.MechanismKind, time.Duration, error) {}
func (NoopRecorder) ObserveInstaller(string, time.Duration, error)                 {}
func (NoopRecorder) ObserveOperation(string, time.Duration, error)                 {}
