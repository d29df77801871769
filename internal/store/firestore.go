package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	realestate "io.realgram.engine/internal/models/realestate"
)

const (
	usersCollection      = "users"
	leadsCollection      = "leads"
	chatsCollection      = "chats"
	propertiesCollection = "properties"
)

// FirestoreStore implements Store against Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) GetUser(ctx context.Context, userID string) (*realestate.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", userID, err)
	}
	var user realestate.User
	if err := snap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("decode user %s: %w", userID, err)
	}
	user.ID = snap.Ref.ID
	return &user, nil
}

func (s *FirestoreStore) GetChat(ctx context.Context, chatID string) (*realestate.Chat, error) {
	snap, err := s.client.Collection(chatsCollection).Doc(chatID).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", chatID, err)
	}
	var chat realestate.Chat
	if err := snap.DataTo(&chat); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", chatID, err)
	}
	chat.ID = snap.Ref.ID
	return &chat, nil
}

func (s *FirestoreStore) GetProperty(ctx context.Context, propertyID string) (*realestate.Property, error) {
	snap, err := s.client.Collection(propertiesCollection).Doc(propertyID).Get(ctx)
	if snap != nil && !snap.Exists() {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get property %s: %w", propertyID, err)
	}
	var property realestate.Property
	if err := snap.DataTo(&property); err != nil {
		return nil, fmt.Errorf("decode property %s: %w", propertyID, err)
	}
	property.ID = snap.Ref.ID
	return &property, nil
}

func (s *FirestoreStore) ClearDeviceToken(ctx context.Context, userID string) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "fcmToken", Value: nil},
	})
	if err != nil {
		return fmt.Errorf("clear device token for user %s: %w", userID, err)
	}
	return nil
}

func (s *FirestoreStore) AdjustLeadTotal(ctx context.Context, agentID string, delta int64) error {
	_, err := s.client.Collection(usersCollection).Doc(agentID).Update(ctx, []firestore.Update{
		{Path: "totalLeads", Value: firestore.Increment(delta)},
	})
	if err != nil {
		return fmt.Errorf("adjust lead total for agent %s: %w", agentID, err)
	}
	return nil
}

func (s *FirestoreStore) IncrementPropertyViews(ctx context.Context, propertyID string) error {
	_, err := s.client.Collection(propertiesCollection).Doc(propertyID).Update(ctx, []firestore.Update{
		{Path: "views", Value: firestore.Increment(1)},
	})
	if err != nil {
		return fmt.Errorf("increment views for property %s: %w", propertyID, err)
	}
	return nil
}

func (s *FirestoreStore) ApproveProperty(ctx context.Context, propertyID string) error {
	_, err := s.client.Collection(propertiesCollection).Doc(propertyID).Update(ctx, []firestore.Update{
		{Path: "status", Value: realestate.PropertyStatusApproved},
		{Path: "approvedAt", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return fmt.Errorf("approve property %s: %w", propertyID, err)
	}
	return nil
}

func (s *FirestoreStore) ActivateSubscription(ctx context.Context, userID, plan string, expiry time.Time) error {
	_, err := s.client.Collection(usersCollection).Doc(userID).Update(ctx, []firestore.Update{
		{Path: "subscriptionType", Value: plan},
		{Path: "subscriptionExpiry", Value: expiry},
	})
	if err != nil {
		return fmt.Errorf("activate subscription for user %s: %w", userID, err)
	}
	return nil
}

func (s *FirestoreStore) ActivateBoost(ctx context.Context, propertyID string, level int64, expiry time.Time) error {
	_, err := s.client.Collection(propertiesCollection).Doc(propertyID).Update(ctx, []firestore.Update{
		{Path: "boostLevel", Value: level},
		{Path: "boostExpiry", Value: expiry},
	})
	if err != nil {
		return fmt.Errorf("activate boost for property %s: %w", propertyID, err)
	}
	return nil
}

func (s *FirestoreStore) ExpiredBoostProperties(ctx context.Context, now time.Time) ([]string, error) {
	iter := s.client.Collection(propertiesCollection).
		Where("boostExpiry", "<", now).
		Where("boostLevel", ">", 0).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query expired boosts: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (s *FirestoreStore) ResetBoosts(ctx context.Context, propertyIDs []string) error {
	bw := s.client.BulkWriter(ctx)
	for _, id := range propertyIDs {
		_, err := bw.Update(s.client.Collection(propertiesCollection).Doc(id), []firestore.Update{
			{Path: "boostLevel", Value: 0},
			{Path: "boostExpiry", Value: nil},
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("queue boost reset for property %s: %w", id, err)
		}
	}
	bw.End()
	return nil
}

func (s *FirestoreStore) StaleChats(ctx context.Context, cutoff time.Time) ([]string, error) {
	iter := s.client.Collection(chatsCollection).
		Where("lastMessageTime", "<", cutoff).
		Where("isArchived", "==", false).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query stale chats: %w", err)
		}
		ids = append(ids, snap.Ref.ID)
	}
	return ids, nil
}

func (s *FirestoreStore) ArchiveChats(ctx context.Context, chatIDs []string) error {
	bw := s.client.BulkWriter(ctx)
	for _, id := range chatIDs {
		_, err := bw.Update(s.client.Collection(chatsCollection).Doc(id), []firestore.Update{
			{Path: "isArchived", Value: true},
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("queue archive for chat %s: %w", id, err)
		}
	}
	bw.End()
	return nil
}

func (s *FirestoreStore) UsersWithTokens(ctx context.Context) ([]realestate.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("fcmToken", "!=", "").
		Documents(ctx)
	return collectUsers(iter)
}

func (s *FirestoreStore) VerifiedUsers(ctx context.Context) ([]realestate.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("verified", "==", true).
		Documents(ctx)
	return collectUsers(iter)
}

func (s *FirestoreStore) UnreadChatCount(ctx context.Context, buyerID string) (int64, error) {
	iter := s.client.Collection(chatsCollection).
		Where("buyerId", "==", buyerID).
		Where("unreadCount", ">", 0).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var count int64
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("count unread chats for %s: %w", buyerID, err)
		}
		count++
	}
	return count, nil
}

func (s *FirestoreStore) ApprovedProperties(ctx context.Context) ([]realestate.Property, error) {
	iter := s.client.Collection(propertiesCollection).
		Where("status", "==", realestate.PropertyStatusApproved).
		Documents(ctx)
	defer iter.Stop()

	var properties []realestate.Property
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query approved properties: %w", err)
		}
		var property realestate.Property
		if err := snap.DataTo(&property); err != nil {
			return nil, fmt.Errorf("decode property %s: %w", snap.Ref.ID, err)
		}
		property.ID = snap.Ref.ID
		properties = append(properties, property)
	}
	return properties, nil
}

func collectUsers(iter *firestore.DocumentIterator) ([]realestate.User, error) {
	defer iter.Stop()

	var users []realestate.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query users: %w", err)
		}
		var user realestate.User
		if err := snap.DataTo(&user); err != nil {
			return nil, fmt.Errorf("decode user %s: %w", snap.Ref.ID, err)
		}
		user.ID = snap.Ref.ID
		users = append(users, user)
	}
	return users, nil
}
