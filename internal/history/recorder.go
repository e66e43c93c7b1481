package history

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// Recorder journals lifecycle transitions and runs. Journal failures are
// logged and never fail the operation.
type Recorder struct {
	store *Store
}

// NewRecorder wraps store.
func NewRecorder(store *Store) *Recorder { return &Recorder{store: store} }

func (r *Recorder) ObserveTransition(ctx context.Context, t lifecycle.Transition) {
	err := r.store.AppendTransition(ctx, Entry{
		RunID:     t.RunID,
		Operation: string(t.Operation),
		Meta:      t.Meta,
		Package:   t.Package,
		From:      string(t.From),
		To:        string(t.To),
		Mechanism: t.Mechanism,
		At:        t.At,
	})
	if err != nil {
		slog.WarnContext(ctx, "Failed to journal transition", logfields.Meta(t.Meta), logfields.Package(t.Package), logfields.Error(err))
	}
}

func (r *Recorder) ObserveRun(ctx context.Context, rep *lifecycle.Report, opErr error) {
	if rep.Operation == lifecycle.OpList {
		return
	}
	run := Run{
		RunID:       rep.RunID,
		Operation:   string(rep.Operation),
		Started:     rep.Started,
		Finished:    rep.Finished,
		Transitions: len(rep.Transitions),
		Warnings:    len(rep.Warnings),
	}
	if opErr != nil {
		run.Error = opErr.Error()
	}
	if err := r.store.AppendRun(ctx, run); err != nil {
		slog.WarnContext(ctx, "Failed to journal run", logfields.RunID(rep.RunID), logfields.Error(err))
	}
}
