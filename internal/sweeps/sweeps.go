package sweeps

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"io.realgram.engine/internal/notify"
	"io.realgram.engine/internal/store"
)

// Chats with no message for this long get archived.
const chatArchiveAge = 30 * 24 * time.Hour

// Summary reports what a sweep saw and changed.
type Summary struct {
	Scanned int
	Mutated int
}

// Sweeper holds the periodic reconciliation jobs. Each job is idempotent and
// selects only currently-qualifying records, so an overlapping rerun is
// harmless. Per-item failures are logged and skipped; only a store or
// transport that is entirely unreachable fails the job.
type Sweeper struct {
	store      store.Store
	transport  notify.Transport
	dispatcher *notify.Dispatcher
	logger     *zap.SugaredLogger
	now        func() time.Time
}

func NewSweeper(s store.Store, transport notify.Transport, dispatcher *notify.Dispatcher, logger *zap.SugaredLogger) *Sweeper {
	return &Sweeper{
		store:      s,
		transport:  transport,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// ExpireBoosts resets boostLevel and boostExpiry together on every property
// whose boost has lapsed. The two fields only ever move as a pair.
func (s *Sweeper) ExpireBoosts(ctx context.Context) (Summary, error) {
	ids, err := s.store.ExpiredBoostProperties(ctx, s.now())
	if err != nil {
		return Summary{}, fmt.Errorf("expire boosts: %w", err)
	}
	summary := Summary{Scanned: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}
	if err := s.store.ResetBoosts(ctx, ids); err != nil {
		return summary, fmt.Errorf("expire boosts: %w", err)
	}
	summary.Mutated = len(ids)
	return summary, nil
}

// ArchiveStaleChats marks chats idle past the archive age.
func (s *Sweeper) ArchiveStaleChats(ctx context.Context) (Summary, error) {
	ids, err := s.store.StaleChats(ctx, s.now().Add(-chatArchiveAge))
	if err != nil {
		return Summary{}, fmt.Errorf("archive chats: %w", err)
	}
	summary := Summary{Scanned: len(ids)}
	if len(ids) == 0 {
		return summary, nil
	}
	if err := s.store.ArchiveChats(ctx, ids); err != nil {
		return summary, fmt.Errorf("archive chats: %w", err)
	}
	summary.Mutated = len(ids)
	return summary, nil
}

// SweepInvalidTokens probes every stored token with a dry delivery and
// clears the ones the transport reports as no longer registered. Probe
// failures for one user never abort the rest of the sweep.
func (s *Sweeper) SweepInvalidTokens(ctx context.Context) (Summary, error) {
	users, err := s.store.UsersWithTokens(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("token sweep: %w", err)
	}

	summary := Summary{}
	for _, user := range users {
		if user.FCMToken == "" {
			continue
		}
		summary.Scanned++

		outcome, probeErr := s.transport.Probe(ctx, user.FCMToken)
		switch outcome {
		case notify.InvalidToken:
			if err := s.store.ClearDeviceToken(ctx, user.ID); err != nil {
				s.logger.Warnw("token clear failed", "user_id", user.ID, "error", err)
				continue
			}
			summary.Mutated++
		case notify.TransientFailure:
			s.logger.Debugw("token probe inconclusive", "user_id", user.ID, "error", probeErr)
		}
	}
	return summary, nil
}

// SendDailyDigest pushes an unread-message summary to each verified user who
// has any. The event id is derived from the day, so a rerun within the same
// day cannot double-send.
func (s *Sweeper) SendDailyDigest(ctx context.Context) (Summary, error) {
	users, err := s.store.VerifiedUsers(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("daily digest: %w", err)
	}

	eventID := fmt.Sprintf("daily_digest:%s", s.now().UTC().Format("2006-01-02"))
	summary := Summary{}
	for _, user := range users {
		if user.FCMToken == "" {
			continue
		}
		summary.Scanned++

		unread, err := s.store.UnreadChatCount(ctx, user.ID)
		if err != nil {
			s.logger.Warnw("unread count failed", "user_id", user.ID, "error", err)
			continue
		}
		if unread == 0 {
			continue
		}

		outcome := s.dispatcher.Dispatch(ctx, eventID, user.ID, user.FCMToken, notify.DailyDigest(unread))
		if outcome == notify.Delivered {
			summary.Mutated++
		}
		if outcome == notify.InvalidToken {
			if err := s.store.ClearDeviceToken(ctx, user.ID); err != nil {
				s.logger.Warnw("token clear failed", "user_id", user.ID, "error", err)
			}
		}
	}
	return summary, nil
}
