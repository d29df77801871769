package sweeps

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the sweeps on fixed UTC cadences: boost expiry hourly, chat
// archival and digest daily, the token sweep weekly.
type Scheduler struct {
	cronManager *cron.Cron
	sweeper     *Sweeper
	logger      *zap.SugaredLogger
}

func NewScheduler(sweeper *Sweeper, logger *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		cronManager: cron.New(cron.WithLocation(time.UTC)),
		sweeper:     sweeper,
		logger:      logger,
	}
}

func (s *Scheduler) Start() error {
	jobs := []struct {
		spec string
		name string
		run  func(context.Context) (Summary, error)
	}{
		{"0 * * * *", "boost_expiry", s.sweeper.ExpireBoosts},
		{"30 2 * * *", "chat_archival", s.sweeper.ArchiveStaleChats},
		{"0 8 * * *", "daily_digest", s.sweeper.SendDailyDigest},
		{"0 2 * * 1", "token_sweep", s.sweeper.SweepInvalidTokens},
	}

	for _, job := range jobs {
		job := job
		if _, err := s.cronManager.AddFunc(job.spec, func() {
			s.runJob(job.name, job.run)
		}); err != nil {
			return err
		}
	}

	s.cronManager.Start()
	s.logger.Infow("sweep scheduler started", "jobs", len(jobs))
	return nil
}

// Stop halts scheduling and waits for any running job to finish.
func (s *Scheduler) Stop() {
	<-s.cronManager.Stop().Done()
}

func (s *Scheduler) runJob(name string, run func(context.Context) (Summary, error)) {
	ctx := context.Background()
	start := time.Now()
	summary, err := run(ctx)
	if err != nil {
		s.logger.Errorw("sweep failed", "job", name, "error", err, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	s.logger.Infow("sweep completed",
		"job", name,
		"scanned", summary.Scanned,
		"mutated", summary.Mutated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
