package store

import (
	"context"
	"errors"
	"time"

	realestate "io.realgram.engine/internal/models/realestate"
)

// ErrNotFound reports a referenced document that does not exist. Event
// handlers treat it as a degraded no-op, never as a reason to fail the
// triggering event.
var ErrNotFound = errors.New("document not found")

// Store is the narrow surface of the shared document store this engine
// touches. Mutations are field-scoped so sweep jobs and live handlers can
// write the same documents concurrently without clobbering one another.
type Store interface {
	GetUser(ctx context.Context, userID string) (*realestate.User, error)
	GetChat(ctx context.Context, chatID string) (*realestate.Chat, error)
	GetProperty(ctx context.Context, propertyID string) (*realestate.Property, error)

	// ClearDeviceToken nulls the user's push token after a permanent
	// delivery failure.
	ClearDeviceToken(ctx context.Context, userID string) error

	// AdjustLeadTotal applies an atomic increment to the agent's lead
	// counter. Callers pass +1 on lead creation and -1 on deletion.
	AdjustLeadTotal(ctx context.Context, agentID string, delta int64) error

	// IncrementPropertyViews applies an atomic +1 to the view counter.
	IncrementPropertyViews(ctx context.Context, propertyID string) error

	// ApproveProperty transitions status to approved and stamps approvedAt.
	ApproveProperty(ctx context.Context, propertyID string) error

	// ActivateSubscription and ActivateBoost apply verified payment
	// transitions.
	ActivateSubscription(ctx context.Context, userID, plan string, expiry time.Time) error
	ActivateBoost(ctx context.Context, propertyID string, level int64, expiry time.Time) error

	// ExpiredBoostProperties returns ids of properties whose boost has
	// lapsed; ResetBoosts clears level and expiry together in one batched
	// write set.
	ExpiredBoostProperties(ctx context.Context, now time.Time) ([]string, error)
	ResetBoosts(ctx context.Context, propertyIDs []string) error

	// StaleChats returns unarchived chats with no message since cutoff;
	// ArchiveChats marks them archived in one batched write set.
	StaleChats(ctx context.Context, cutoff time.Time) ([]string, error)
	ArchiveChats(ctx context.Context, chatIDs []string) error

	UsersWithTokens(ctx context.Context) ([]realestate.User, error)
	VerifiedUsers(ctx context.Context) ([]realestate.User, error)
	UnreadChatCount(ctx context.Context, buyerID string) (int64, error)
	ApprovedProperties(ctx context.Context) ([]realestate.Property, error)
}
