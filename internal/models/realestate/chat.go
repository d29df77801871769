package models

import "time"

// Chat is the chats/{chatId} document. Participants are always exactly one
// buyer and one agent.
type Chat struct {
	ID              string    `json:"id" firestore:"-" mapstructure:"-"`
	BuyerID         string    `json:"buyerId" firestore:"buyerId" mapstructure:"buyerId"`
	AgentID         string    `json:"agentId" firestore:"agentId" mapstructure:"agentId"`
	LastMessageTime time.Time `json:"lastMessageTime" firestore:"lastMessageTime" mapstructure:"lastMessageTime"`
	IsArchived      bool      `json:"isArchived" firestore:"isArchived" mapstructure:"isArchived"`
	UnreadCount     int64     `json:"unreadCount" firestore:"unreadCount" mapstructure:"unreadCount"`
}

// ChatMessage is a chats/{chatId}/messages/{messageId} document.
type ChatMessage struct {
	ID       string    `json:"id" firestore:"-" mapstructure:"-"`
	SenderID string    `json:"senderId" firestore:"senderId" mapstructure:"senderId"`
	Text     string    `json:"text" firestore:"text" mapstructure:"text"`
	SentAt   time.Time `json:"sentAt" firestore:"sentAt" mapstructure:"sentAt"`
}

// OtherParticipant returns the chat member that is not senderID.
func (c *Chat) OtherParticipant(senderID string) string {
	if senderID == c.BuyerID {
		return c.AgentID
	}
	return c.BuyerID
}
