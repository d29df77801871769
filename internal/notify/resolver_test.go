package notify

import (
	"context"
	"errors"
	"testing"

	realestate "io.realgram.engine/internal/models/realestate"
	"io.realgram.engine/internal/store/storetest"
)

func TestResolveReturnsTokenAndName(t *testing.T) {
	fake := storetest.NewFake()
	fake.Users["agent_1"] = &realestate.User{Name: "Priya", FCMToken: "tok_1"}
	r := NewResolver(fake, nil, testLogger())

	recipient, err := r.Resolve(context.Background(), "agent_1", "Agent")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if recipient.Token != "tok_1" || recipient.DisplayName != "Priya" {
		t.Fatalf("unexpected recipient: %+v", recipient)
	}
}

func TestResolveMissingUserFallsBack(t *testing.T) {
	r := NewResolver(storetest.NewFake(), nil, testLogger())

	recipient, err := r.Resolve(context.Background(), "ghost", "New buyer")
	if err != nil {
		t.Fatalf("missing user must not be an error, got %v", err)
	}
	if recipient.Token != "" {
		t.Fatalf("missing user must have no token, got %q", recipient.Token)
	}
	if recipient.DisplayName != "New buyer" {
		t.Fatalf("expected fallback name, got %q", recipient.DisplayName)
	}
}

func TestResolveUnnamedUserFallsBack(t *testing.T) {
	fake := storetest.NewFake()
	fake.Users["u1"] = &realestate.User{FCMToken: "tok"}
	r := NewResolver(fake, nil, testLogger())

	recipient, err := r.Resolve(context.Background(), "u1", "Someone")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if recipient.DisplayName != "Someone" {
		t.Fatalf("expected fallback for empty name, got %q", recipient.DisplayName)
	}
}

func TestResolveStoreFailureIsError(t *testing.T) {
	fake := storetest.NewFake()
	fake.Err = errors.New("store unreachable")
	r := NewResolver(fake, nil, testLogger())

	if _, err := r.Resolve(context.Background(), "u1", "Someone"); err == nil {
		t.Fatalf("expected error for unreachable store")
	}
}

func TestDisplayNameSwallowsStoreFailure(t *testing.T) {
	fake := storetest.NewFake()
	fake.Err = errors.New("store unreachable")
	r := NewResolver(fake, nil, testLogger())

	if got := r.DisplayName(context.Background(), "u1", "Someone"); got != "Someone" {
		t.Fatalf("expected fallback name on store failure, got %q", got)
	}
}
