package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"io.realgram.engine/internal/store/storetest"
)

const testSecret = "whsec_test"

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// memLedger is an in-memory ProcessedLedger.
type memLedger struct {
	mu      sync.Mutex
	applied map[string]bool
	err     error
}

func (l *memLedger) MarkApplied(ctx context.Context, paymentID, eventType string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return false, l.err
	}
	if l.applied == nil {
		l.applied = make(map[string]bool)
	}
	key := paymentID + "|" + eventType
	if l.applied[key] {
		return false, nil
	}
	l.applied[key] = true
	return true, nil
}

func (l *memLedger) Unmark(ctx context.Context, paymentID, eventType string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.applied, paymentID+"|"+eventType)
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type webhookFixture struct {
	store   *storetest.Fake
	ledger  *memLedger
	handler *PaymentWebhookHandler
	engine  *gin.Engine
}

func newWebhookFixture(t *testing.T) *webhookFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fake := storetest.NewFake()
	ledger := &memLedger{}
	handler := NewPaymentWebhookHandler(fake, ledger, testSecret, testLogger())
	handler.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	engine := gin.New()
	engine.Any("/webhooks/payments", handler.Handle)
	return &webhookFixture{store: fake, ledger: ledger, handler: handler, engine: engine}
}

func (f *webhookFixture) post(body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Razorpay-Signature", signature)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func boostBody(paymentID, propertyID string, level int64) []byte {
	return []byte(`{
		"eventType": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "` + paymentID + `",
			"notes": {"type": "boost", "propertyId": "` + propertyID + `", "boostLevel": ` + strconv.FormatInt(level, 10) + `}
		}}}
	}`)
}

func subscriptionBody(paymentID, userID string) []byte {
	return []byte(`{
		"eventType": "payment.authorized",
		"payload": {"payment": {"entity": {
			"id": "` + paymentID + `",
			"notes": {"type": "subscription", "userId": "` + userID + `"}
		}}}
	}`)
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	f := newWebhookFixture(t)
	body := subscriptionBody("pay_1", "user_1")
	signature := sign(body)

	tampered := bytes.Replace(body, []byte("user_1"), []byte("user_2"), 1)
	rec := f.post(tampered, signature)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("tampered body must be rejected, got %d", rec.Code)
	}
	if len(f.store.Subscriptions) != 0 {
		t.Fatalf("no transition expected on bad signature")
	}
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	f := newWebhookFixture(t)
	body := subscriptionBody("pay_1", "user_1")
	signature := []byte(sign(body))
	signature[0] ^= 0x01

	rec := f.post(body, string(signature))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("flipped signature must be rejected, got %d", rec.Code)
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	f := newWebhookFixture(t)
	rec := f.post(subscriptionBody("pay_1", "user_1"), "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing signature must be rejected, got %d", rec.Code)
	}
}

func TestWebhookActivatesSubscription(t *testing.T) {
	f := newWebhookFixture(t)
	body := subscriptionBody("pay_1", "user_1")

	rec := f.post(body, sign(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.store.Subscriptions) != 1 {
		t.Fatalf("expected one subscription activation, got %d", len(f.store.Subscriptions))
	}
	got := f.store.Subscriptions[0]
	if got.UserID != "user_1" || got.Plan != "agent_pro" {
		t.Fatalf("unexpected activation: %+v", got)
	}
	wantExpiry := time.Date(2026, 4, 9, 12, 0, 0, 0, time.UTC)
	if !got.Expiry.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, got.Expiry)
	}
}

func TestWebhookActivatesBoostWithLevel(t *testing.T) {
	f := newWebhookFixture(t)
	body := boostBody("pay_2", "prop_1", 3)

	rec := f.post(body, sign(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(f.store.Boosts) != 1 {
		t.Fatalf("expected one boost activation, got %d", len(f.store.Boosts))
	}
	got := f.store.Boosts[0]
	if got.PropertyID != "prop_1" || got.Level != 3 {
		t.Fatalf("unexpected boost: %+v", got)
	}
	wantExpiry := time.Date(2026, 3, 17, 12, 0, 0, 0, time.UTC)
	if !got.Expiry.Equal(wantExpiry) {
		t.Fatalf("expected expiry %v, got %v", wantExpiry, got.Expiry)
	}
}

func TestWebhookBoostLevelDefaultsToOne(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{
		"eventType": "payment.captured",
		"payload": {"payment": {"entity": {
			"id": "pay_3",
			"notes": {"type": "boost", "propertyId": "prop_1"}
		}}}
	}`)

	f.post(body, sign(body))

	if len(f.store.Boosts) != 1 || f.store.Boosts[0].Level != 1 {
		t.Fatalf("missing boostLevel must default to 1, got %+v", f.store.Boosts)
	}
}

func TestWebhookReplayAppliesOnce(t *testing.T) {
	f := newWebhookFixture(t)
	body := subscriptionBody("pay_1", "user_1")
	signature := sign(body)

	first := f.post(body, signature)
	second := f.post(body, signature)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("both deliveries must be acknowledged, got %d then %d", first.Code, second.Code)
	}
	if len(f.store.Subscriptions) != 1 {
		t.Fatalf("replay must not re-apply, got %d activations", len(f.store.Subscriptions))
	}
}

func TestWebhookCapturedAfterAuthorizedIsDistinct(t *testing.T) {
	f := newWebhookFixture(t)
	authorized := subscriptionBody("pay_1", "user_1")
	captured := bytes.Replace(authorized, []byte("payment.authorized"), []byte("payment.captured"), 1)

	f.post(authorized, sign(authorized))
	f.post(captured, sign(captured))

	if len(f.store.Subscriptions) != 2 {
		t.Fatalf("authorized and captured are distinct events, got %d activations", len(f.store.Subscriptions))
	}
}

func TestWebhookIgnoresUnknownNotesType(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{
		"eventType": "payment.captured",
		"payload": {"payment": {"entity": {"id": "pay_9", "notes": {"type": "donation"}}}}
	}`)

	rec := f.post(body, sign(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("unknown notes type must be acknowledged, got %d", rec.Code)
	}
	if len(f.store.Subscriptions) != 0 || len(f.store.Boosts) != 0 {
		t.Fatalf("unknown notes type must not mutate")
	}
}

func TestWebhookIgnoresIrrelevantEventType(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{"eventType": "refund.created", "payload": {"payment": {"entity": {"id": "pay_9"}}}}`)

	rec := f.post(body, sign(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("irrelevant event type must be acknowledged, got %d", rec.Code)
	}
}

func TestWebhookIgnoresMissingPaymentID(t *testing.T) {
	f := newWebhookFixture(t)
	body := []byte(`{
		"eventType": "payment.captured",
		"payload": {"payment": {"entity": {"notes": {"type": "subscription", "userId": "user_1"}}}}
	}`)

	rec := f.post(body, sign(body))

	if rec.Code != http.StatusOK {
		t.Fatalf("missing payment id must be acknowledged, got %d", rec.Code)
	}
	if len(f.store.Subscriptions) != 0 {
		t.Fatalf("missing payment id must not mutate")
	}
}

func TestWebhookMethodNotAllowed(t *testing.T) {
	f := newWebhookFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/webhooks/payments", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rec.Code)
	}
}

func TestWebhookRollsBackMarkerOnFailedTransition(t *testing.T) {
	f := newWebhookFixture(t)
	f.store.Err = context.DeadlineExceeded
	body := subscriptionBody("pay_1", "user_1")
	signature := sign(body)

	rec := f.post(body, signature)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("failed transition must return 500, got %d", rec.Code)
	}

	// The retry after the store recovers must go through.
	f.store.Err = nil
	rec = f.post(body, signature)
	if rec.Code != http.StatusOK {
		t.Fatalf("retry after rollback must succeed, got %d", rec.Code)
	}
	if len(f.store.Subscriptions) != 1 {
		t.Fatalf("expected one activation after retry, got %d", len(f.store.Subscriptions))
	}
}
