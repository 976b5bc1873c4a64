// Package scheduler runs the day-boundary jobs: resetting daily missions and crediting
// interest.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Jobs is the work the scheduler triggers for every family
type Jobs interface {
	ResetAllDailyMissions(ctx context.Context) (int, error)
	ApplyInterestAll(ctx context.Context) (int, error)
}

// Scheduler manages all cron tasks
type Scheduler struct {
	Cron *cron.Cron
	Jobs Jobs
	Ctx  context.Context
}

// NewScheduler creates a scheduler whose expressions have a seconds field and are read in loc
func NewScheduler(ctx context.Context, jobs Jobs, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Jobs: jobs,
		Ctx:  ctx,
	}
}

// RegisterAll registers the daily mission reset and, when interestCron is set, the
// interest job
func (s *Scheduler) RegisterAll(dailyResetCron, interestCron string) error {
	if _, err := s.Cron.AddFunc(dailyResetCron, s.dailyReset); err != nil {
		return fmt.Errorf("register daily reset: %w", err)
	}
	if interestCron == "" {
		log.Println("Interest job disabled: INTEREST_CRON not configured")
		return nil
	}
	if _, err := s.Cron.AddFunc(interestCron, s.interest); err != nil {
		return fmt.Errorf("register interest job: %w", err)
	}
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("Scheduler stopped")
}

func (s *Scheduler) dailyReset() {
	n, err := s.Jobs.ResetAllDailyMissions(s.Ctx)
	if err != nil {
		log.Printf("Daily mission reset finished with errors (%d families reset): %v", n, err)
		return
	}
	log.Printf("Daily missions reset for %d families", n)
}

func (s *Scheduler) interest() {
	n, err := s.Jobs.ApplyInterestAll(s.Ctx)
	if err != nil {
		log.Printf("Interest job finished with errors (%d families credited): %v", n, err)
		return
	}
	log.Printf("Interest applied for %d families", n)
}
