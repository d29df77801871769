package sweeps

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	realestate "io.realgram.engine/internal/models/realestate"
	"io.realgram.engine/internal/notify"
	"io.realgram.engine/internal/store/storetest"
)

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

// fakeTransport classifies per token so a sweep can meet a mix of live,
// invalid, and flaky tokens in one run.
type fakeTransport struct {
	mu       sync.Mutex
	outcomes map[string]notify.Outcome
	sent     []string
	probed   []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{outcomes: make(map[string]notify.Outcome)}
}

func (t *fakeTransport) classify(token string) (notify.Outcome, error) {
	outcome, ok := t.outcomes[token]
	if !ok {
		return notify.Delivered, nil
	}
	if outcome == notify.TransientFailure {
		return outcome, errors.New("service unavailable")
	}
	return outcome, nil
}

func (t *fakeTransport) Send(ctx context.Context, token string, payload notify.Payload) (notify.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, token)
	return t.classify(token)
}

func (t *fakeTransport) Probe(ctx context.Context, token string) (notify.Outcome, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.probed = append(t.probed, token)
	return t.classify(token)
}

type memMarker struct {
	mu   sync.Mutex
	keys map[string]bool
}

func (m *memMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = make(map[string]bool)
	}
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

var fixedNow = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func newSweeper(fake *storetest.Fake, transport *fakeTransport) *Sweeper {
	logger := testLogger()
	dispatcher := notify.NewDispatcher(transport, &memMarker{}, nil, logger)
	s := NewSweeper(fake, transport, dispatcher, logger)
	s.now = func() time.Time { return fixedNow }
	return s
}

func timePtr(t time.Time) *time.Time { return &t }

func TestExpireBoostsResetsOnlyLapsed(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Properties["prop_lapsed"] = &realestate.Property{
		BoostLevel: 2, BoostExpiry: timePtr(fixedNow.Add(-time.Hour)),
	}
	fake.Properties["prop_active"] = &realestate.Property{
		BoostLevel: 1, BoostExpiry: timePtr(fixedNow.Add(time.Hour)),
	}
	fake.Properties["prop_plain"] = &realestate.Property{}

	summary, err := newSweeper(fake, transport).ExpireBoosts(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if summary.Scanned != 1 || summary.Mutated != 1 {
		t.Fatalf("expected 1 scanned 1 mutated, got %+v", summary)
	}
	if got := fake.Properties["prop_lapsed"]; got.BoostLevel != 0 || got.BoostExpiry != nil {
		t.Fatalf("lapsed boost not reset: %+v", got)
	}
	if got := fake.Properties["prop_active"]; got.BoostLevel != 1 {
		t.Fatalf("active boost must be untouched: %+v", got)
	}
}

func TestExpireBoostsRerunIsIdempotent(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Properties["prop_lapsed"] = &realestate.Property{
		BoostLevel: 2, BoostExpiry: timePtr(fixedNow.Add(-time.Hour)),
	}
	sweeper := newSweeper(fake, transport)

	if _, err := sweeper.ExpireBoosts(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	summary, err := sweeper.ExpireBoosts(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if summary.Scanned != 0 || summary.Mutated != 0 {
		t.Fatalf("rerun must find nothing, got %+v", summary)
	}
}

func TestExpireBoostsStoreDown(t *testing.T) {
	fake := storetest.NewFake()
	fake.Err = errors.New("firestore unavailable")
	if _, err := newSweeper(fake, newFakeTransport()).ExpireBoosts(context.Background()); err == nil {
		t.Fatalf("unreachable store must fail the job")
	}
}

func TestArchiveStaleChatsCutoff(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Chats["chat_stale"] = &realestate.Chat{LastMessageTime: fixedNow.Add(-31 * 24 * time.Hour)}
	fake.Chats["chat_fresh"] = &realestate.Chat{LastMessageTime: fixedNow.Add(-29 * 24 * time.Hour)}
	fake.Chats["chat_done"] = &realestate.Chat{
		LastMessageTime: fixedNow.Add(-60 * 24 * time.Hour), IsArchived: true,
	}

	summary, err := newSweeper(fake, transport).ArchiveStaleChats(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if summary.Mutated != 1 {
		t.Fatalf("expected exactly the stale chat archived, got %+v", summary)
	}
	if !fake.Chats["chat_stale"].IsArchived {
		t.Fatalf("stale chat not archived")
	}
	if fake.Chats["chat_fresh"].IsArchived {
		t.Fatalf("fresh chat must not be archived")
	}
}

func TestTokenSweepClearsOnlyInvalid(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Users["user_ok"] = &realestate.User{FCMToken: "tok_ok"}
	fake.Users["user_gone"] = &realestate.User{FCMToken: "tok_gone"}
	fake.Users["user_flaky"] = &realestate.User{FCMToken: "tok_flaky"}
	fake.Users["user_none"] = &realestate.User{}
	transport.outcomes["tok_gone"] = notify.InvalidToken
	transport.outcomes["tok_flaky"] = notify.TransientFailure

	summary, err := newSweeper(fake, transport).SweepInvalidTokens(context.Background())
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if summary.Scanned != 3 || summary.Mutated != 1 {
		t.Fatalf("expected 3 scanned 1 cleared, got %+v", summary)
	}
	if len(fake.ClearedTokens) != 1 || fake.ClearedTokens[0] != "user_gone" {
		t.Fatalf("expected only user_gone cleared, got %v", fake.ClearedTokens)
	}
	if fake.Users["user_flaky"].FCMToken != "tok_flaky" {
		t.Fatalf("transient failure must not clear the token")
	}
}

func TestDailyDigestSendsToVerifiedWithUnread(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Users["user_unread"] = &realestate.User{Verified: true, FCMToken: "tok_1"}
	fake.Users["user_read"] = &realestate.User{Verified: true, FCMToken: "tok_2"}
	fake.Users["user_unverified"] = &realestate.User{FCMToken: "tok_3"}
	fake.Users["user_tokenless"] = &realestate.User{Verified: true}
	fake.Chats["chat_1"] = &realestate.Chat{BuyerID: "user_unread", UnreadCount: 4}

	summary, err := newSweeper(fake, transport).SendDailyDigest(context.Background())
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if summary.Mutated != 1 {
		t.Fatalf("expected one digest delivered, got %+v", summary)
	}
	if len(transport.sent) != 1 || transport.sent[0] != "tok_1" {
		t.Fatalf("digest went to wrong tokens: %v", transport.sent)
	}
}

func TestDailyDigestSameDayRerunDoesNotResend(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Users["user_unread"] = &realestate.User{Verified: true, FCMToken: "tok_1"}
	fake.Chats["chat_1"] = &realestate.Chat{BuyerID: "user_unread", UnreadCount: 4}
	sweeper := newSweeper(fake, transport)

	if _, err := sweeper.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if _, err := sweeper.SendDailyDigest(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(transport.sent) != 1 {
		t.Fatalf("same-day rerun must not resend, got %d sends", len(transport.sent))
	}
}

func TestDailyDigestClearsInvalidToken(t *testing.T) {
	fake := storetest.NewFake()
	transport := newFakeTransport()
	fake.Users["user_gone"] = &realestate.User{Verified: true, FCMToken: "tok_gone"}
	fake.Chats["chat_1"] = &realestate.Chat{BuyerID: "user_gone", UnreadCount: 1}
	transport.outcomes["tok_gone"] = notify.InvalidToken

	summary, err := newSweeper(fake, transport).SendDailyDigest(context.Background())
	if err != nil {
		t.Fatalf("digest failed: %v", err)
	}
	if summary.Mutated != 0 {
		t.Fatalf("rejected digest must not count as delivered, got %+v", summary)
	}
	if len(fake.ClearedTokens) != 1 || fake.ClearedTokens[0] != "user_gone" {
		t.Fatalf("expected invalid token cleared, got %v", fake.ClearedTokens)
	}
}

func TestDailyDigestStoreDown(t *testing.T) {
	fake := storetest.NewFake()
	fake.Err = errors.New("firestore unavailable")
	if _, err := newSweeper(fake, newFakeTransport()).SendDailyDigest(context.Background()); err == nil {
		t.Fatalf("unreachable store must fail the job")
	}
}
