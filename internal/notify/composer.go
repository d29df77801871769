package notify

import (
	"fmt"
	"strconv"
	"strings"
)

// Chat previews are capped so the payload stays inside the transport's
// metadata size limit.
const previewLimit = 100

// NewLead composes the push sent to an agent when a buyer opens a lead.
func NewLead(leadID, propertyID, buyerID, buyerName string) Payload {
	return Payload{
		Title: "🔥 New Lead!",
		Body:  fmt.Sprintf("%s is interested in your property", buyerName),
		Data: map[string]string{
			"type":       "new_lead",
			"leadId":     leadID,
			"propertyId": propertyID,
			"buyerId":    buyerID,
		},
	}
}

// NewMessage composes the push sent to the other chat participant.
func NewMessage(chatID, senderID, senderName, text string) Payload {
	body := Truncate(text, previewLimit)
	if body == "" {
		body = "📎 Shared an attachment"
	}
	return Payload{
		Title: fmt.Sprintf("💬 %s", senderName),
		Body:  body,
		Data: map[string]string{
			"type":        "new_message",
			"chatId":      chatID,
			"senderId":    senderID,
			"messageText": Truncate(text, previewLimit),
		},
	}
}

// PropertyApproved composes the push sent to an owner when a listing goes
// live.
func PropertyApproved(propertyID, title string) Payload {
	return Payload{
		Title: "✅ Property Approved!",
		Body:  fmt.Sprintf("Your property %q is now live", title),
		Data: map[string]string{
			"type":       "property_approved",
			"propertyId": propertyID,
		},
	}
}

// NearbyProperties composes the push for the proximity endpoint. The id list
// is joined because data values must be flat strings.
func NearbyProperties(propertyIDs []string) Payload {
	return Payload{
		Title: "📍 Properties Near You!",
		Body:  fmt.Sprintf("Found %d properties nearby", len(propertyIDs)),
		Data: map[string]string{
			"type":        "nearby_properties",
			"propertyIds": strings.Join(propertyIDs, ","),
		},
	}
}

// DailyDigest composes the unread-messages digest push.
func DailyDigest(unreadChats int64) Payload {
	return Payload{
		Title: "📧 RealGram Daily Update",
		Body:  fmt.Sprintf("You have %d unread messages", unreadChats),
		Data: map[string]string{
			"type":   "daily_digest",
			"unread": strconv.FormatInt(unreadChats, 10),
		},
	}
}

// Truncate caps s at limit characters, not bytes, so multibyte previews
// never split a rune.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
