// Package storetest provides an in-memory Store for tests.
package storetest

import (
	"context"
	"sync"
	"time"

	realestate "io.realgram.engine/internal/models/realestate"
	"io.realgram.engine/internal/store"
)

// BoostActivation records one ActivateBoost call.
type BoostActivation struct {
	PropertyID string
	Level      int64
	Expiry     time.Time
}

// SubscriptionActivation records one ActivateSubscription call.
type SubscriptionActivation struct {
	UserID string
	Plan   string
	Expiry time.Time
}

// Fake is a mutex-guarded in-memory store.Store. Setting Err makes every
// call fail with it, simulating an unreachable store.
type Fake struct {
	mu sync.Mutex

	Err error

	Users      map[string]*realestate.User
	Chats      map[string]*realestate.Chat
	Properties map[string]*realestate.Property

	LeadTotals    map[string]int64
	ClearedTokens []string
	ApprovedIDs   []string
	Subscriptions []SubscriptionActivation
	Boosts        []BoostActivation
	ArchivedIDs   []string
	ResetIDs      []string
}

var _ store.Store = (*Fake)(nil)

func NewFake() *Fake {
	return &Fake{
		Users:      make(map[string]*realestate.User),
		Chats:      make(map[string]*realestate.Chat),
		Properties: make(map[string]*realestate.Property),
		LeadTotals: make(map[string]int64),
	}
}

func (f *Fake) GetUser(ctx context.Context, userID string) (*realestate.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	user, ok := f.Users[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (f *Fake) GetChat(ctx context.Context, chatID string) (*realestate.Chat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	chat, ok := f.Chats[chatID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *chat
	return &copied, nil
}

func (f *Fake) GetProperty(ctx context.Context, propertyID string) (*realestate.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	property, ok := f.Properties[propertyID]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *property
	return &copied, nil
}

func (f *Fake) ClearDeviceToken(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if user, ok := f.Users[userID]; ok {
		user.FCMToken = ""
	}
	f.ClearedTokens = append(f.ClearedTokens, userID)
	return nil
}

func (f *Fake) AdjustLeadTotal(ctx context.Context, agentID string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	f.LeadTotals[agentID] += delta
	if user, ok := f.Users[agentID]; ok {
		user.TotalLeads += delta
	}
	return nil
}

func (f *Fake) IncrementPropertyViews(ctx context.Context, propertyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	property, ok := f.Properties[propertyID]
	if !ok {
		return store.ErrNotFound
	}
	property.Views++
	return nil
}

func (f *Fake) ApproveProperty(ctx context.Context, propertyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	property, ok := f.Properties[propertyID]
	if !ok {
		return store.ErrNotFound
	}
	property.Status = realestate.PropertyStatusApproved
	f.ApprovedIDs = append(f.ApprovedIDs, propertyID)
	return nil
}

func (f *Fake) ActivateSubscription(ctx context.Context, userID, plan string, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if user, ok := f.Users[userID]; ok {
		user.SubscriptionType = plan
		user.SubscriptionExpiry = &expiry
	}
	f.Subscriptions = append(f.Subscriptions, SubscriptionActivation{UserID: userID, Plan: plan, Expiry: expiry})
	return nil
}

func (f *Fake) ActivateBoost(ctx context.Context, propertyID string, level int64, expiry time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	if property, ok := f.Properties[propertyID]; ok {
		property.BoostLevel = level
		property.BoostExpiry = &expiry
	}
	f.Boosts = append(f.Boosts, BoostActivation{PropertyID: propertyID, Level: level, Expiry: expiry})
	return nil
}

func (f *Fake) ExpiredBoostProperties(ctx context.Context, now time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var ids []string
	for id, property := range f.Properties {
		if property.BoostLevel > 0 && property.BoostExpiry != nil && property.BoostExpiry.Before(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fake) ResetBoosts(ctx context.Context, propertyIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, id := range propertyIDs {
		if property, ok := f.Properties[id]; ok {
			property.BoostLevel = 0
			property.BoostExpiry = nil
		}
		f.ResetIDs = append(f.ResetIDs, id)
	}
	return nil
}

func (f *Fake) StaleChats(ctx context.Context, cutoff time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var ids []string
	for id, chat := range f.Chats {
		if !chat.IsArchived && chat.LastMessageTime.Before(cutoff) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *Fake) ArchiveChats(ctx context.Context, chatIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return f.Err
	}
	for _, id := range chatIDs {
		if chat, ok := f.Chats[id]; ok {
			chat.IsArchived = true
		}
		f.ArchivedIDs = append(f.ArchivedIDs, id)
	}
	return nil
}

func (f *Fake) UsersWithTokens(ctx context.Context) ([]realestate.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var users []realestate.User
	for id, user := range f.Users {
		if user.FCMToken != "" {
			copied := *user
			copied.ID = id
			users = append(users, copied)
		}
	}
	return users, nil
}

func (f *Fake) VerifiedUsers(ctx context.Context) ([]realestate.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var users []realestate.User
	for id, user := range f.Users {
		if user.Verified {
			copied := *user
			copied.ID = id
			users = append(users, copied)
		}
	}
	return users, nil
}

func (f *Fake) UnreadChatCount(ctx context.Context, buyerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return 0, f.Err
	}
	var count int64
	for _, chat := range f.Chats {
		if chat.BuyerID == buyerID && chat.UnreadCount > 0 {
			count++
		}
	}
	return count, nil
}

func (f *Fake) ApprovedProperties(ctx context.Context) ([]realestate.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return nil, f.Err
	}
	var properties []realestate.Property
	for id, property := range f.Properties {
		if property.Status == realestate.PropertyStatusApproved {
			copied := *property
			copied.ID = id
			properties = append(properties, copied)
		}
	}
	return properties, nil
}
