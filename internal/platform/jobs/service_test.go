package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

type countingDropper struct{ dropped []string }

func (d *countingDropper) JobDropped(job string) { d.dropped = append(d.dropped, job) }

func TestEnqueueRunsJob(t *testing.T) {
	svc := New(Options{QueueSize: 4, Timeout: time.Second})
	svc.Start(context.Background())
	defer svc.Stop()

	done := make(chan struct{})
	if !svc.Enqueue("notify", func(context.Context) error {
		close(done)
		return nil
	}) {
		t.Fatal("expected job to be accepted")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestEnqueueDropsWhenFull(t *testing.T) {
	dropper := &countingDropper{}
	svc := New(Options{QueueSize: 1, Dropper: dropper})

	noop := func(context.Context) error { return nil }
	if !svc.Enqueue("first", noop) {
		t.Fatal("expected first job to be queued")
	}
	if svc.Enqueue("second", noop) {
		t.Fatal("expected second job to be dropped")
	}
	if len(dropper.dropped) != 1 || dropper.dropped[0] != "second" {
		t.Fatalf("unexpected drops: %+v", dropper.dropped)
	}
}

func TestRunNowRecoversPanic(t *testing.T) {
	svc := New(Options{})
	err := svc.RunNow(context.Background(), "explode", func(context.Context) error {
		panic("mailer nil")
	})
	if err == nil {
		t.Fatal("expected panic to become an error")
	}
}

func TestRunNowAppliesTimeout(t *testing.T) {
	svc := New(Options{Timeout: 10 * time.Millisecond})
	err := svc.RunNow(context.Background(), "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestStopWithoutStart(t *testing.T) {
	svc := New(Options{})
	svc.Stop()
}

func TestStopLetsRunningJobFinish(t *testing.T) {
	svc := New(Options{QueueSize: 1, Timeout: time.Second})
	svc.Start(context.Background())

	started := make(chan struct{})
	result := make(chan error, 1)
	svc.Enqueue("notify", func(ctx context.Context) error {
		close(started)
		select {
		case <-time.After(100 * time.Millisecond):
			result <- nil
		case <-ctx.Done():
			result <- ctx.Err()
		}
		return nil
	})

	<-started
	svc.Stop()

	select {
	case err := <-result:
		if err != nil {
			t.Fatalf("running job was cut short: %v", err)
		}
	default:
		t.Fatal("Stop returned before the running job finished")
	}
}

func TestStopIgnoresStartContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	svc := New(Options{QueueSize: 1, Timeout: time.Second})
	svc.Start(ctx)
	cancel()

	done := make(chan error, 1)
	svc.Enqueue("record", func(ctx context.Context) error {
		done <- ctx.Err()
		return nil
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("job context already done: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run after parent cancel")
	}
	svc.Stop()
	svc.Stop()
}
