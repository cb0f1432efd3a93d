package sideeffects

import (
	"context"
	"fmt"
	"log/slog"

	"devcycle/internal/domain/notifications"
	"devcycle/internal/domain/workflow"
)

type Notifier interface {
	Create(ctx context.Context, userID int64, ntype, title, body string) error
}

type ActionLogger interface {
	Record(ctx context.Context, actorID int64, action, entityType string, entityID int64, requestID string, details map[string]any) error
}

// Queue is satisfied by jobs.Service.
type Queue interface {
	Enqueue(name string, run func(context.Context) error) bool
}

// Dispatcher turns committed workflow events into notifications and
// recent-action entries on the background queue.
type Dispatcher struct {
	Queue    Queue
	Notifier Notifier
	Actions  ActionLogger
}

func New(queue Queue, notifier Notifier, actions ActionLogger) *Dispatcher {
	return &Dispatcher{Queue: queue, Notifier: notifier, Actions: actions}
}

func (d *Dispatcher) Emit(_ context.Context, evt workflow.Event) {
	if d.Queue == nil {
		return
	}
	d.Queue.Enqueue(evt.Action, func(ctx context.Context) error {
		d.handle(ctx, evt)
		return nil
	})
}

func (d *Dispatcher) handle(ctx context.Context, evt workflow.Event) {
	if d.Actions != nil {
		if err := d.Actions.Record(ctx, evt.ActorID, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.Details); err != nil {
			slog.Warn("recent action record failed", "err", err, "action", evt.Action, "entityId", evt.EntityID, "requestId", evt.RequestID)
		}
	}

	if d.Notifier == nil {
		return
	}
	recipient, ntype, title, body, ok := notificationFor(evt)
	if !ok || recipient <= 0 {
		return
	}
	if err := d.Notifier.Create(ctx, recipient, ntype, title, body); err != nil {
		slog.Warn("notification create failed", "err", err, "action", evt.Action, "entityId", evt.EntityID, "requestId", evt.RequestID)
	}
}

// notificationFor picks the recipient: creations go to the employee,
// submissions to the supervisor. Updates notify nobody.
func notificationFor(evt workflow.Event) (int64, string, string, string, bool) {
	switch evt.Action {
	case workflow.ActionLevelingCreated:
		return evt.EmployeeID, notifications.TypeLevelingCreated,
			"Competency leveling opened",
			fmt.Sprintf("Competency leveling #%d has been created for you.", evt.EntityID), true
	case workflow.ActionLevelingSubmitted:
		return evt.SupervisorID, notifications.TypeLevelingSubmitted,
			"Competency leveling awaiting approval",
			fmt.Sprintf("Competency leveling #%d was submitted and is pending your approval.", evt.EntityID), true
	case workflow.ActionDevPlanCreated:
		return evt.EmployeeID, notifications.TypeDevPlanCreated,
			"Development plan opened",
			fmt.Sprintf("Individual development plan #%d has been created for you.", evt.EntityID), true
	case workflow.ActionDevPlanSubmitted:
		return evt.SupervisorID, notifications.TypeDevPlanSubmitted,
			"Development plan awaiting approval",
			fmt.Sprintf("Individual development plan #%d was submitted and is pending your approval.", evt.EntityID), true
	}
	return 0, "", "", "", false
}
