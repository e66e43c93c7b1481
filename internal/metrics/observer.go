package metrics

import (
	"context"
	"time"

	"git.home.luguber.info/inful/mcm/internal/installer"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
)

// Observer feeds lifecycle transitions and runs into a Recorder.
type Observer struct {
	rec Recorder
}

// NewObserver wraps rec.
func NewObserver(rec Recorder) *Observer { return &Observer{rec: rec} }

func (o *Observer) ObserveTransition(_ context.Context, t lifecycle.Transition) {
	o.rec.IncTransition(string(t.From), string(t.To))
}

func (o *Observer) ObserveRun(_ context.Context, r *lifecycle.Report, err error) {
	o.rec.ObserveOperation(string(r.Operation), r.Duration(), err)
}

// InstrumentBridge times every installer call.
func InstrumentBridge(b installer.Bridge, rec Recorder) installer.Bridge {
	return &instrumentedBridge{inner: b, rec: rec}
}

type instrumentedBridge struct {
	inner installer.Bridge
	rec   Recorder
}

func (b *instrumentedBridge) Install(ctx context.Context, req installer.Request) error {
	start := time.Now()
	err := b.inner.Install(ctx, req)
	b.rec.ObserveInstaller(string(installer.ActionInstall), time.Since(start), err)
	return err
}

func (b *instrumentedBridge) Remove(ctx context.Context, req installer.Request) error {
	start := time.Now()
	err := b.inner.Remove(ctx, req)
	b.rec.ObserveInstaller(string(installer.ActionRemove), time.Since(start), err)
	return err
}
