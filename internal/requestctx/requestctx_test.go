package requestctx

import (
	"context"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	ctx := WithActorID(WithRequestID(context.Background(), "req-1"), 42)
	if got := GetRequestID(ctx); got != "req-1" {
		t.Fatalf("expected req-1, got %q", got)
	}
	if got := GetActorID(ctx); got != 42 {
		t.Fatalf("expected actor 42, got %d", got)
	}
}

func TestEmptyContext(t *testing.T) {
	ctx := context.Background()
	if GetRequestID(ctx) != "" || GetActorID(ctx) != 0 {
		t.Fatal("expected zero values on empty context")
	}
}
