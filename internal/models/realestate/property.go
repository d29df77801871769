package models

import "time"

// Property listing status values.
const (
	PropertyStatusPending  = "pending"
	PropertyStatusApproved = "approved"
	PropertyStatusRejected = "rejected"
)

// Property is the properties/{propertyId} document.
//
// BoostLevel and BoostExpiry move together: a positive level always has a
// future expiry at the time it is set, and the expiry sweep resets both in
// the same write.
type Property struct {
	ID          string     `json:"id" firestore:"-" mapstructure:"-"`
	Title       string     `json:"title" firestore:"title" mapstructure:"title"`
	OwnerID     string     `json:"ownerId" firestore:"ownerId" mapstructure:"ownerId"`
	Status      string     `json:"status" firestore:"status" mapstructure:"status"`
	BoostLevel  int64      `json:"boostLevel" firestore:"boostLevel" mapstructure:"boostLevel"`
	BoostExpiry *time.Time `json:"boostExpiry,omitempty" firestore:"boostExpiry" mapstructure:"boostExpiry"`
	Views       int64      `json:"views" firestore:"views" mapstructure:"views"`
	Latitude    float64    `json:"latitude" firestore:"latitude" mapstructure:"latitude"`
	Longitude   float64    `json:"longitude" firestore:"longitude" mapstructure:"longitude"`
}
