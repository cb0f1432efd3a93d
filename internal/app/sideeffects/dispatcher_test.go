package sideeffects

import (
	"context"
	"errors"
	"testing"
	"time"

	"devcycle/internal/domain/notifications"
	"devcycle/internal/domain/workflow"
	"devcycle/internal/platform/jobs"
)

type syncQueue struct{ names []string }

func (q *syncQueue) Enqueue(name string, run func(context.Context) error) bool {
	q.names = append(q.names, name)
	_ = run(context.Background())
	return true
}

type notice struct {
	userID int64
	ntype  string
}

type fakeNotifier struct {
	got []notice
	err error
}

func (f *fakeNotifier) Create(_ context.Context, userID int64, ntype, _, _ string) error {
	f.got = append(f.got, notice{userID: userID, ntype: ntype})
	return f.err
}

type fakeActions struct {
	actions []string
	err     error
}

func (f *fakeActions) Record(_ context.Context, _ int64, action, _ string, _ int64, _ string, _ map[string]any) error {
	f.actions = append(f.actions, action)
	return f.err
}

func TestDispatcherRecipients(t *testing.T) {
	tests := []struct {
		action string
		want   []notice
	}{
		{action: workflow.ActionLevelingCreated, want: []notice{{10, notifications.TypeLevelingCreated}}},
		{action: workflow.ActionLevelingSubmitted, want: []notice{{2, notifications.TypeLevelingSubmitted}}},
		{action: workflow.ActionLevelingUpdated},
		{action: workflow.ActionDevPlanCreated, want: []notice{{10, notifications.TypeDevPlanCreated}}},
		{action: workflow.ActionDevPlanSubmitted, want: []notice{{2, notifications.TypeDevPlanSubmitted}}},
		{action: workflow.ActionDevPlanUpdated},
	}
	for _, tc := range tests {
		t.Run(tc.action, func(t *testing.T) {
			queue := &syncQueue{}
			notifier := &fakeNotifier{}
			actions := &fakeActions{}
			New(queue, notifier, actions).Emit(context.Background(), workflow.Event{
				Action: tc.action, EntityID: 1, EmployeeID: 10, SupervisorID: 2,
			})

			if len(actions.actions) != 1 || actions.actions[0] != tc.action {
				t.Fatalf("expected action recorded, got %v", actions.actions)
			}
			if len(notifier.got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, notifier.got)
			}
			for i := range tc.want {
				if notifier.got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, notifier.got)
				}
			}
		})
	}
}

func TestDispatcherFailuresDoNotStopOtherEffects(t *testing.T) {
	notifier := &fakeNotifier{err: errors.New("insert failed")}
	actions := &fakeActions{err: errors.New("insert failed")}
	New(&syncQueue{}, notifier, actions).Emit(context.Background(), workflow.Event{
		Action: workflow.ActionLevelingCreated, EntityID: 1, EmployeeID: 10,
	})
	if len(actions.actions) != 1 || len(notifier.got) != 1 {
		t.Fatalf("expected both effects attempted, got %v / %v", actions.actions, notifier.got)
	}
}

func TestDispatcherSkipsMissingRecipient(t *testing.T) {
	notifier := &fakeNotifier{}
	New(&syncQueue{}, notifier, nil).Emit(context.Background(), workflow.Event{Action: workflow.ActionDevPlanSubmitted, EntityID: 1})
	if len(notifier.got) != 0 {
		t.Fatalf("expected no notification, got %v", notifier.got)
	}
}

func TestDispatcherRunsOnJobQueue(t *testing.T) {
	svc := jobs.New(jobs.Options{QueueSize: 4, Timeout: time.Second})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc.Start(ctx)
	defer svc.Stop()

	done := make(chan string, 1)
	notifier := notifierFunc(func(userID int64, ntype string) { done <- ntype })
	New(svc, notifier, nil).Emit(context.Background(), workflow.Event{Action: workflow.ActionDevPlanCreated, EntityID: 3, EmployeeID: 10})

	select {
	case got := <-done:
		if got != notifications.TypeDevPlanCreated {
			t.Fatalf("unexpected type %s", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not delivered")
	}
}

type notifierFunc func(userID int64, ntype string)

func (f notifierFunc) Create(_ context.Context, userID int64, ntype, _, _ string) error {
	f(userID, ntype)
	return nil
}
