// Package scheduler runs the ledger batch sweeps on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/segyhp/loan-ledger/internal/config"
	"github.com/segyhp/loan-ledger/internal/logger"
)

// Sweeper is the subset of the ledger the scheduler drives.
type Sweeper interface {
	CheckForDefault(ctx context.Context) ([]string, error)
	AccumulateInterest(ctx context.Context) ([]string, error)
	AutomateLoanRepayment(ctx context.Context) ([]string, error)
}

type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) ([]string, error)
}

// Jobs lists the sweeps enabled by cfg. Interest runs before the default
// check so a loan is defaulted against its latest accrued balance.
func Jobs(cfg config.SchedulerConfig, sweeper Sweeper) []Job {
	jobs := []Job{
		{Name: "accumulate_interest", Spec: cfg.InterestSpec, Run: sweeper.AccumulateInterest},
		{Name: "check_for_default", Spec: cfg.DefaultCheckSpec, Run: sweeper.CheckForDefault},
	}
	if cfg.AutoRepaymentEnable {
		jobs = append(jobs, Job{Name: "automate_repayment", Spec: cfg.AutoRepaymentSpec, Run: sweeper.AutomateLoanRepayment})
	}
	return jobs
}

// New returns a seconds-resolution cron that never overlaps a job with itself.
func New(loc *time.Location) *cron.Cron {
	l := cronLogger{}
	return cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(l),
		cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
	)
}

// Register schedules every job on c.
func Register(c *cron.Cron, jobs []Job, timeout time.Duration) error {
	for _, job := range jobs {
		if _, err := c.AddFunc(job.Spec, func() { Run(job, timeout) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.Name, job.Spec, err)
		}
		logger.Info().Str("job", job.Name).Str("spec", job.Spec).Msg("sweep scheduled")
	}
	return nil
}

// Run executes one sweep and logs its outcome.
func Run(job Job, timeout time.Duration) []string {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	ids, err := job.Run(ctx)
	event := logger.Info()
	if err != nil {
		event = logger.Error().Err(err)
	}
	event.Str("job", job.Name).
		Int("loans", len(ids)).
		Strs("loan_ids", ids).
		Dur("duration", time.Since(start)).
		Msg("sweep finished")
	return ids
}

// cronLogger routes cron's own logging to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	withFields(logger.Debug(), keysAndValues).Msg(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	withFields(logger.Error().Err(err), keysAndValues).Msg(msg)
}

func withFields(e *zerolog.Event, keysAndValues []interface{}) *zerolog.Event {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		e = e.Interface(fmt.Sprint(keysAndValues[i]), keysAndValues[i+1])
	}
	return e
}
