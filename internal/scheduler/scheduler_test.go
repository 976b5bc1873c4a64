package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type countingJobs struct {
	mu       sync.Mutex
	resets   int
	interest int
	err      error
}

func (c *countingJobs) ResetAllDailyMissions(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	return 2, c.err
}

func (c *countingJobs) ApplyInterestAll(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interest++
	return 2, c.err
}

func TestRegisterAll(t *testing.T) {
	tests := []struct {
		name        string
		daily       string
		interest    string
		wantErr     bool
		wantEntries int
	}{
		{name: "daily only", daily: "0 0 0 * * *", wantEntries: 1},
		{name: "daily and interest", daily: "0 0 0 * * *", interest: "0 0 9 * * 1", wantEntries: 2},
		{name: "five field expression", daily: "0 0 * * *", wantErr: true},
		{name: "bad interest", daily: "0 0 0 * * *", interest: "every monday", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(context.Background(), &countingJobs{}, time.UTC)
			err := s.RegisterAll(tt.daily, tt.interest)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RegisterAll() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(s.Cron.Entries()) != tt.wantEntries {
				t.Errorf("entries = %d, want %d", len(s.Cron.Entries()), tt.wantEntries)
			}
		})
	}
}

func TestJobsRunOnSchedule(t *testing.T) {
	jobs := &countingJobs{}
	s := NewScheduler(context.Background(), jobs, time.UTC)
	if err := s.RegisterAll("* * * * * *", "* * * * * *"); err != nil {
		t.Fatalf("RegisterAll error = %v", err)
	}
	s.Start()
	time.Sleep(1500 * time.Millisecond)
	s.Stop()

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if jobs.resets == 0 || jobs.interest == 0 {
		t.Errorf("jobs did not run: resets=%d interest=%d", jobs.resets, jobs.interest)
	}
}

func TestJobErrorsAreLogged(t *testing.T) {
	jobs := &countingJobs{err: errors.New("db down")}
	s := NewScheduler(context.Background(), jobs, nil)
	s.dailyReset()
	s.interest()
	if jobs.resets != 1 || jobs.interest != 1 {
		t.Errorf("resets=%d interest=%d", jobs.resets, jobs.interest)
	}
}
