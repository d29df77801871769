package models

import "time"

// Lead is the leads/{leadId} document, immutable after creation.
type Lead struct {
	ID         string    `json:"id" firestore:"-" mapstructure:"-"`
	AgentID    string    `json:"agentId" firestore:"agentId" mapstructure:"agentId"`
	BuyerID    string    `json:"buyerId" firestore:"buyerId" mapstructure:"buyerId"`
	PropertyID string    `json:"propertyId" firestore:"propertyId" mapstructure:"propertyId"`
	CreatedAt  time.Time `json:"createdAt" firestore:"createdAt" mapstructure:"createdAt"`
}
