// Package events publishes lifecycle transitions and run outcomes to NATS.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
	"git.home.luguber.info/inful/mcm/internal/lifecycle"
	"git.home.luguber.info/inful/mcm/internal/logfields"
)

// DefaultSubject prefixes every published subject.
const DefaultSubject = "mcm.lifecycle"

const flushTimeout = 2 * time.Second

// Publisher is the subset of *nats.Conn the emitter needs.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// TransitionEvent is the payload published for every status change.
type TransitionEvent struct {
	RunID     string    `json:"run_id"`
	Operation string    `json:"operation"`
	Meta      string    `json:"meta_package"`
	Package   string    `json:"package"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Mechanism string    `json:"mechanism,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// RunEvent is the payload published when an operation finishes.
type RunEvent struct {
	RunID       string    `json:"run_id"`
	Operation   string    `json:"operation"`
	Started     time.Time `json:"started"`
	Finished    time.Time `json:"finished"`
	Transitions int       `json:"transitions"`
	Warnings    []string  `json:"warnings,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// Emitter publishes lifecycle events. Publish failures are logged only.
type Emitter struct {
	pub     Publisher
	conn    *nats.Conn
	subject string
}

// NewEmitter publishes through pub under subject.
func NewEmitter(pub Publisher, subject string) *Emitter {
	if subject == "" {
		subject = DefaultSubject
	}
	e := &Emitter{pub: pub, subject: subject}
	if c, ok := pub.(*nats.Conn); ok {
		e.conn = c
	}
	return e
}

// Connect dials url and returns an emitter owning the connection.
func Connect(url, subject string) (*Emitter, error) {
	conn, err := nats.Connect(url, nats.Name("mcm"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).WithContext("url", url).Build()
	}
	slog.Debug("Connected to NATS", slog.String("url", url), slog.String("subject", subject))
	return NewEmitter(conn, subject), nil
}

// TransitionSubject is <subject>.<meta>.<pkg>.
func (e *Emitter) TransitionSubject(meta, pkg string) string {
	return e.subject + "." + token(meta) + "." + token(pkg)
}

// RunSubject is <subject>.run.<operation>.
func (e *Emitter) RunSubject(op string) string {
	return e.subject + ".run." + token(op)
}

func (e *Emitter) ObserveTransition(ctx context.Context, t lifecycle.Transition) {
	e.publish(ctx, e.TransitionSubject(t.Meta, t.Package), TransitionEvent{
		RunID:     t.RunID,
		Operation: string(t.Operation),
		Meta:      t.Meta,
		Package:   t.Package,
		From:      string(t.From),
		To:        string(t.To),
		Mechanism: t.Mechanism,
		Timestamp: t.At,
	})
}

func (e *Emitter) ObserveRun(ctx context.Context, r *lifecycle.Report, opErr error) {
	if r.Operation == lifecycle.OpList {
		return
	}
	ev := RunEvent{
		RunID:       r.RunID,
		Operation:   string(r.Operation),
		Started:     r.Started,
		Finished:    r.Finished,
		Transitions: len(r.Transitions),
	}
	for _, w := range r.Warnings {
		ev.Warnings = append(ev.Warnings, w.String())
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	e.publish(ctx, e.RunSubject(ev.Operation), ev)
	if e.conn != nil {
		if err := e.conn.FlushTimeout(flushTimeout); err != nil {
			slog.WarnContext(ctx, "Failed to flush NATS events", logfields.Error(err))
		}
	}
}

func (e *Emitter) publish(ctx context.Context, subject string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.WarnContext(ctx, "Failed to encode event", slog.String("subject", subject), logfields.Error(err))
		return
	}
	if err := e.pub.Publish(subject, data); err != nil {
		slog.WarnContext(ctx, "Failed to publish event", slog.String("subject", subject), logfields.Error(err))
		return
	}
	slog.DebugContext(ctx, "Published event", slog.String("subject", subject))
}

// Close drains and closes an owned connection.
func (e *Emitter) Close() {
	if e.conn != nil {
		_ = e.conn.Drain()
	}
}

// token makes s safe as a single subject token.
func token(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}
