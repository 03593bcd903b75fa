// Package dispatch carries attendance side effects (notifications and audit
// entries) out of the engine. Every call is fire-and-forget: implementations
// log their own failures and never report them to the caller.
package dispatch

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=dispatch.go -destination=mock/dispatcher_mock.go -package=mock
type Dispatcher interface {
	Notify(ctx context.Context, targetUserID uuid.UUID, kind string, payload map[string]any)
	Audit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID)
}

type noop struct{}

func Noop() Dispatcher { return noop{} }

func (noop) Notify(context.Context, uuid.UUID, string, map[string]any) {}
func (noop) Audit(context.Context, uuid.UUID, string, uuid.UUID)       {}

type split struct {
	notifier Dispatcher
	auditor  Dispatcher
}

// Split sends notifications to notifier and audit entries to auditor, so
// each side effect has exactly one sink. A nil side is dropped.
func Split(notifier, auditor Dispatcher) Dispatcher {
	if notifier == nil {
		notifier = Noop()
	}
	if auditor == nil {
		auditor = Noop()
	}
	return split{notifier: notifier, auditor: auditor}
}

func (s split) Notify(ctx context.Context, targetUserID uuid.UUID, kind string, payload map[string]any) {
	s.notifier.Notify(ctx, targetUserID, kind, payload)
}

func (s split) Audit(ctx context.Context, actorID uuid.UUID, action string, entityID uuid.UUID) {
	s.auditor.Audit(ctx, actorID, action, entityID)
}
