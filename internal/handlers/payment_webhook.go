package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	payments "io.realgram.engine/internal/models/payments"
	"io.realgram.engine/internal/store"
)

const (
	signatureHeader = "X-Razorpay-Signature"

	subscriptionPlan     = "agent_pro"
	subscriptionDuration = 30 * 24 * time.Hour
	boostDuration        = 7 * 24 * time.Hour
)

// PaymentWebhookHandler verifies payment processor callbacks and applies
// monetization transitions exactly once per (payment id, event type).
type PaymentWebhookHandler struct {
	store  store.Store
	ledger ProcessedLedger
	secret []byte
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewPaymentWebhookHandler(s store.Store, ledger ProcessedLedger, secret string, logger *zap.SugaredLogger) *PaymentWebhookHandler {
	return &PaymentWebhookHandler{
		store:  s,
		ledger: ledger,
		secret: []byte(secret),
		logger: logger,
		now:    time.Now,
	}
}

// Handle processes one webhook delivery. The sender retries anything that is
// not a 2xx, so permanently-unprocessable events are acknowledged with 200
// and only signature failures and internal errors say otherwise.
func (h *PaymentWebhookHandler) Handle(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read request body"})
		return
	}

	if !VerifySignature(body, c.GetHeader(signatureHeader), h.secret) {
		h.logger.Warnw("webhook signature mismatch", "client_ip", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid signature"})
		return
	}

	var event payments.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.logger.Warnw("webhook body undecodable", "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	if event.EventType != payments.EventPaymentAuthorized && event.EventType != payments.EventPaymentCaptured {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	applied, err := h.apply(c.Request.Context(), event)
	if err != nil {
		h.logger.Errorw("webhook apply failed", "event_type", event.EventType, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !applied {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// apply runs the verified event through the state machine. It returns false
// for events that are acknowledged but produce no transition: unknown notes
// type, missing keys, or a replay of an already-applied payment.
//
// The marker commits before the transition and is rolled back on a
// transition error. A crash between the two strands the marker and the
// retry is then treated as a replay; the marker and the transition live in
// different stores, so no single transaction can cover both.
func (h *PaymentWebhookHandler) apply(ctx context.Context, event payments.WebhookEvent) (bool, error) {
	entity := event.Payload.Payment.Entity
	notes := entity.Notes

	if entity.ID == "" {
		h.logger.Warnw("payment event without payment id", "event_type", event.EventType)
		return false, nil
	}

	switch notes.Type {
	case payments.NotesTypeSubscription:
		if notes.UserID == "" {
			h.logger.Warnw("subscription event without userId", "payment_id", entity.ID)
			return false, nil
		}
	case payments.NotesTypeBoost:
		if notes.PropertyID == "" {
			h.logger.Warnw("boost event without propertyId", "payment_id", entity.ID)
			return false, nil
		}
	default:
		h.logger.Infow("unrecognized payment notes type", "payment_id", entity.ID, "notes_type", notes.Type)
		return false, nil
	}

	first, err := h.ledger.MarkApplied(ctx, entity.ID, event.EventType)
	if err != nil {
		return false, err
	}
	if !first {
		h.logger.Infow("payment event replay skipped", "payment_id", entity.ID, "event_type", event.EventType)
		return false, nil
	}

	if err := h.transition(ctx, notes); err != nil {
		// Roll the marker back so the sender's retry can re-apply.
		h.ledger.Unmark(ctx, entity.ID, event.EventType)
		return false, err
	}
	return true, nil
}

func (h *PaymentWebhookHandler) transition(ctx context.Context, notes payments.Notes) error {
	switch notes.Type {
	case payments.NotesTypeSubscription:
		expiry := h.now().Add(subscriptionDuration)
		if err := h.store.ActivateSubscription(ctx, notes.UserID, subscriptionPlan, expiry); err != nil {
			return err
		}
		h.logger.Infow("subscription activated", "user_id", notes.UserID, "expiry", expiry)
	case payments.NotesTypeBoost:
		level := notes.BoostLevel
		if level <= 0 {
			level = 1
		}
		expiry := h.now().Add(boostDuration)
		if err := h.store.ActivateBoost(ctx, notes.PropertyID, level, expiry); err != nil {
			return err
		}
		h.logger.Infow("boost activated", "property_id", notes.PropertyID, "level", level, "expiry", expiry)
	}
	return nil
}

// VerifySignature checks the hex HMAC-SHA256 of body against the supplied
// signature in constant time.
func VerifySignature(body []byte, signature string, secret []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
