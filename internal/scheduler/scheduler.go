// Package scheduler runs named background jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// jobTimeout bounds a single run. A refresh over several subreddits at
// request spacing plus model generations can legitimately take minutes.
const jobTimeout = 30 * time.Minute

// Job is one scheduled task. The context carries the per-run timeout.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner with named jobs. Jobs are registered
// during setup, before Start; the scheduler does not synchronize
// registration against a running cron.
type Scheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID
	log  *zap.Logger
}

// New creates a scheduler in the given timezone ("Local", "UTC", or an
// IANA name like "Asia/Seoul").
func New(timezone string, logger *zap.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		jobs: make(map[string]cron.EntryID),
		log:  logger,
	}, nil
}

// AddJob schedules a job under a name using five-field cron syntax,
// e.g. "*/30 * * * *".
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	entryID, err := s.cron.AddFunc(schedule, func() {
		s.run(name, job)
	})
	if err != nil {
		return fmt.Errorf("schedule job %s: %w", name, err)
	}
	s.jobs[name] = entryID
	s.log.Info("scheduled job", zap.String("job", name), zap.String("schedule", schedule))
	return nil
}

func (s *Scheduler) run(name string, job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	s.log.Info("job starting", zap.String("job", name))
	if err := job(ctx); err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.log.Info("job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
}

// RunNow executes a job immediately, outside any schedule, with the
// same per-run timeout scheduled runs get.
func (s *Scheduler) RunNow(name string, job Job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.log.Info("job running now", zap.String("job", name))
	return job(ctx)
}

// RemoveJob drops a job from the schedule.
func (s *Scheduler) RemoveJob(name string) {
	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.log.Info("removed job", zap.String("job", name))
	}
}

// Start begins running scheduled jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling. The returned context ends once in-flight jobs
// have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// JobInfo describes one scheduled job. NextRun stays zero until the
// scheduler has started.
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// Jobs reports the scheduled jobs with their next and previous runs.
func (s *Scheduler) Jobs() []JobInfo {
	entries := s.cron.Entries()
	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		for _, entry := range entries {
			if entry.ID == entryID {
				infos = append(infos, JobInfo{Name: name, NextRun: entry.Next, LastRun: entry.Prev})
				break
			}
		}
	}
	return infos
}
