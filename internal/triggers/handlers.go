package triggers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	realestate "io.realgram.engine/internal/models/realestate"
	"io.realgram.engine/internal/notify"
	"io.realgram.engine/internal/store"
)

// Owners with more than this many approved listings skip manual review.
const autoApproveThreshold = 5

// TriggerHandlers are the event-driven reactions to document mutations. Each
// method is registered independently on the router, so a failure in one
// never blocks another reacting to the same event.
type TriggerHandlers struct {
	store      store.Store
	resolver   *notify.Resolver
	dispatcher *notify.Dispatcher
	logger     *zap.SugaredLogger
}

func NewTriggerHandlers(s store.Store, resolver *notify.Resolver, dispatcher *notify.Dispatcher, logger *zap.SugaredLogger) *TriggerHandlers {
	return &TriggerHandlers{store: s, resolver: resolver, dispatcher: dispatcher, logger: logger}
}

// RegisterAll wires the full handler table.
func (h *TriggerHandlers) RegisterAll(r *Router) {
	r.Register("leads/{leadId}", Create, "lead-notification", h.LeadCreated)
	r.Register("leads/{leadId}", Create, "lead-stats", h.LeadCountChanged(+1))
	r.Register("leads/{leadId}", Delete, "lead-stats", h.LeadCountChanged(-1))
	r.Register("chats/{chatId}/messages/{messageId}", Create, "message-notification", h.MessageCreated)
	r.Register("properties/{propertyId}", Update, "approval-notification", h.PropertyUpdated)
	r.Register("properties/{propertyId}", Create, "auto-approval", h.PropertyCreated)
	r.Register("users/{userId}", Update, "token-change", h.UserUpdated)
}

// LeadCreated notifies the agent about a new lead.
func (h *TriggerHandlers) LeadCreated(ctx context.Context, ev ChangeEvent, params map[string]string) error {
	var lead realestate.Lead
	if err := DecodeSnapshot(ev.Snapshot(), &lead); err != nil {
		return err
	}
	lead.ID = params["leadId"]

	agent, err := h.resolver.Resolve(ctx, lead.AgentID, "Agent")
	if err != nil {
		return err
	}
	if agent.Token == "" {
		h.logger.Debugw("agent has no device token", "agent_id", lead.AgentID, "lead_id", lead.ID)
		return nil
	}

	buyerName := h.resolver.DisplayName(ctx, lead.BuyerID, "New buyer")
	payload := notify.NewLead(lead.ID, lead.PropertyID, lead.BuyerID, buyerName)

	outcome := h.dispatcher.Dispatch(ctx, ev.EventID, lead.AgentID, agent.Token, payload)
	return h.reapInvalidToken(ctx, outcome, lead.AgentID)
}

// LeadCountChanged returns a handler applying an atomic delta to the agent's
// lead total. Read-count-then-write would lose updates under concurrent lead
// creation; the store's increment primitive is the whole point here.
func (h *TriggerHandlers) LeadCountChanged(delta int64) Handler {
	return func(ctx context.Context, ev ChangeEvent, params map[string]string) error {
		var lead realestate.Lead
		if err := DecodeSnapshot(ev.Snapshot(), &lead); err != nil {
			return err
		}
		if lead.AgentID == "" {
			h.logger.Warnw("lead without agent", "lead_id", params["leadId"])
			return nil
		}
		if err := h.store.AdjustLeadTotal(ctx, lead.AgentID, delta); err != nil {
			return fmt.Errorf("lead total for agent %s: %w", lead.AgentID, err)
		}
		return nil
	}
}

// MessageCreated notifies the chat participant who did not send the message.
func (h *TriggerHandlers) MessageCreated(ctx context.Context, ev ChangeEvent, params map[string]string) error {
	var message realestate.ChatMessage
	if err := DecodeSnapshot(ev.Snapshot(), &message); err != nil {
		return err
	}
	chatID := params["chatId"]

	chat, err := h.store.GetChat(ctx, chatID)
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Warnw("message in unknown chat", "chat_id", chatID)
		return nil
	}
	if err != nil {
		return err
	}

	recipientID := chat.OtherParticipant(message.SenderID)
	recipient, err := h.resolver.Resolve(ctx, recipientID, "Someone")
	if err != nil {
		return err
	}
	if recipient.Token == "" {
		h.logger.Debugw("recipient has no device token", "recipient_id", recipientID, "chat_id", chatID)
		return nil
	}

	senderName := h.resolver.DisplayName(ctx, message.SenderID, "Someone")
	payload := notify.NewMessage(chatID, message.SenderID, senderName, message.Text)

	outcome := h.dispatcher.Dispatch(ctx, ev.EventID, recipientID, recipient.Token, payload)
	return h.reapInvalidToken(ctx, outcome, recipientID)
}

// PropertyUpdated notifies the owner when status transitions into approved.
// Any other field change on the property is a no-op for this handler.
func (h *TriggerHandlers) PropertyUpdated(ctx context.Context, ev ChangeEvent, params map[string]string) error {
	beforeStatus := stringField(ev.Before, "status")
	afterStatus := stringField(ev.After, "status")
	if beforeStatus == realestate.PropertyStatusApproved || afterStatus != realestate.PropertyStatusApproved {
		return nil
	}

	var property realestate.Property
	if err := DecodeSnapshot(ev.After, &property); err != nil {
		return err
	}
	property.ID = params["propertyId"]

	owner, err := h.resolver.Resolve(ctx, property.OwnerID, "Agent")
	if err != nil {
		return err
	}
	if owner.Token == "" {
		h.logger.Debugw("owner has no device token", "owner_id", property.OwnerID, "property_id", property.ID)
		return nil
	}

	payload := notify.PropertyApproved(property.ID, property.Title)
	outcome := h.dispatcher.Dispatch(ctx, ev.EventID, property.OwnerID, owner.Token, payload)
	return h.reapInvalidToken(ctx, outcome, property.OwnerID)
}

// PropertyCreated auto-approves listings from verified owners with a proven
// track record. The approval write produces its own update event, and the
// approval notification rides on that, so it is not sent twice from here.
func (h *TriggerHandlers) PropertyCreated(ctx context.Context, ev ChangeEvent, params map[string]string) error {
	var property realestate.Property
	if err := DecodeSnapshot(ev.Snapshot(), &property); err != nil {
		return err
	}
	property.ID = params["propertyId"]

	owner, err := h.store.GetUser(ctx, property.OwnerID)
	if errors.Is(err, store.ErrNotFound) {
		h.logger.Warnw("property with unknown owner", "property_id", property.ID, "owner_id", property.OwnerID)
		return nil
	}
	if err != nil {
		return err
	}

	if !owner.Verified || owner.ApprovedListings <= autoApproveThreshold {
		h.logger.Infow("property pending manual review", "property_id", property.ID)
		return nil
	}

	if err := h.store.ApproveProperty(ctx, property.ID); err != nil {
		return fmt.Errorf("auto-approve property %s: %w", property.ID, err)
	}
	h.logger.Infow("property auto-approved", "property_id", property.ID, "owner_id", property.OwnerID)
	return nil
}

// UserUpdated invalidates the recipient cache when the device token changes.
func (h *TriggerHandlers) UserUpdated(ctx context.Context, ev ChangeEvent, params map[string]string) error {
	before := stringField(ev.Before, "fcmToken")
	after := stringField(ev.After, "fcmToken")
	if before == after {
		return nil
	}
	userID := params["userId"]
	h.resolver.Invalidate(ctx, userID)
	h.logger.Infow("device token changed", "user_id", userID, "cleared", after == "")
	return nil
}

// reapInvalidToken clears the stored token after a permanent delivery
// failure. The dispatcher only classifies; the mutation belongs here.
func (h *TriggerHandlers) reapInvalidToken(ctx context.Context, outcome notify.Outcome, userID string) error {
	if outcome != notify.InvalidToken {
		return nil
	}
	if err := h.store.ClearDeviceToken(ctx, userID); err != nil {
		return fmt.Errorf("clear invalid token for user %s: %w", userID, err)
	}
	h.logger.Infow("cleared invalid device token", "user_id", userID)
	return nil
}
