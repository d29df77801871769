package triggers

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func TestRouterMatchesPatternAndExtractsParams(t *testing.T) {
	r := NewRouter(testLogger())

	var gotParams map[string]string
	r.Register("chats/{chatId}/messages/{messageId}", Create, "msg", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		gotParams = params
		return nil
	})

	invoked := r.Dispatch(context.Background(), ChangeEvent{
		EventID: "ev_1",
		Path:    "chats/c1/messages/m1",
		Kind:    Create,
	})
	if invoked != 1 {
		t.Fatalf("expected 1 handler invoked, got %d", invoked)
	}
	if gotParams["chatId"] != "c1" || gotParams["messageId"] != "m1" {
		t.Fatalf("unexpected params: %v", gotParams)
	}
}

func TestRouterFiltersByKind(t *testing.T) {
	r := NewRouter(testLogger())

	called := false
	r.Register("leads/{leadId}", Create, "lead", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		called = true
		return nil
	})

	r.Dispatch(context.Background(), ChangeEvent{Path: "leads/l1", Kind: Update})
	if called {
		t.Fatalf("create handler fired for update event")
	}
}

func TestRouterRejectsPathLengthMismatch(t *testing.T) {
	r := NewRouter(testLogger())
	r.Register("leads/{leadId}", Create, "lead", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		t.Fatalf("handler fired for nested path")
		return nil
	})
	if got := r.Dispatch(context.Background(), ChangeEvent{Path: "leads/l1/notes/n1", Kind: Create}); got != 0 {
		t.Fatalf("expected no handler, got %d", got)
	}
}

func TestRouterHandlerFailureDoesNotBlockSiblings(t *testing.T) {
	r := NewRouter(testLogger())

	secondRan := false
	r.Register("leads/{leadId}", Create, "failing", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		return errors.New("boom")
	})
	r.Register("leads/{leadId}", Create, "sibling", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		secondRan = true
		return nil
	})

	invoked := r.Dispatch(context.Background(), ChangeEvent{Path: "leads/l1", Kind: Create})
	if invoked != 2 {
		t.Fatalf("expected both handlers invoked, got %d", invoked)
	}
	if !secondRan {
		t.Fatalf("sibling handler blocked by failing handler")
	}
}

func TestRouterContainsHandlerPanic(t *testing.T) {
	r := NewRouter(testLogger())

	secondRan := false
	r.Register("properties/{propertyId}", Update, "panicking", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		panic("boom")
	})
	r.Register("properties/{propertyId}", Update, "sibling", func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		secondRan = true
		return nil
	})

	r.Dispatch(context.Background(), ChangeEvent{Path: "properties/p1", Kind: Update})
	if !secondRan {
		t.Fatalf("sibling handler blocked by panicking handler")
	}
}

func TestDocumentID(t *testing.T) {
	ev := ChangeEvent{Path: "chats/c1/messages/m9"}
	if got := ev.DocumentID(); got != "m9" {
		t.Fatalf("expected m9, got %q", got)
	}
}

func TestSnapshotSelectsBeforeForDeletes(t *testing.T) {
	ev := ChangeEvent{
		Kind:   Delete,
		Before: map[string]any{"agentId": "a1"},
		After:  nil,
	}
	if ev.Snapshot()["agentId"] != "a1" {
		t.Fatalf("delete events must expose the before snapshot")
	}
}
