package models

import "time"

// User is the users/{userId} document. Only the fields this engine reads or
// writes are mapped; the app owns the rest of the document.
type User struct {
	ID                 string     `json:"id" firestore:"-" mapstructure:"-"`
	Name               string     `json:"name" firestore:"name" mapstructure:"name"`
	FCMToken           string     `json:"fcmToken,omitempty" firestore:"fcmToken" mapstructure:"fcmToken"`
	Verified           bool       `json:"verified" firestore:"verified" mapstructure:"verified"`
	ApprovedListings   int64      `json:"approvedListings" firestore:"approvedListings" mapstructure:"approvedListings"`
	TotalLeads         int64      `json:"totalLeads" firestore:"totalLeads" mapstructure:"totalLeads"`
	SubscriptionType   string     `json:"subscriptionType,omitempty" firestore:"subscriptionType" mapstructure:"subscriptionType"`
	SubscriptionExpiry *time.Time `json:"subscriptionExpiry,omitempty" firestore:"subscriptionExpiry" mapstructure:"subscriptionExpiry"`
}
