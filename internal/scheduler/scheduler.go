// Package scheduler runs the background maintenance jobs: sweeping
// expired authorization states and keeping the weather cache warm.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/morning-briefing/internal/auth"
	"github.com/i474232898/morning-briefing/internal/weather"
)

// Scheduler owns the periodic jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
	flows     *auth.FlowRegistry
	weather   *weather.Source
	warmEvery time.Duration
}

// New creates a Scheduler. weatherSource may be nil to disable the
// warm-up job.
func New(flows *auth.FlowRegistry, weatherSource *weather.Source, warmEvery time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		flows:     flows,
		weather:   weatherSource,
		warmEvery: warmEvery,
	}
}

// Start schedules the jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Minute().Do(func() {
		if removed := s.flows.Sweep(); removed > 0 {
			log.Printf("scheduler: removed %d expired authorization states", removed)
		}
	})
	if err != nil {
		return err
	}

	if s.weather != nil {
		minutes := int(s.warmEvery.Minutes())
		if minutes <= 0 {
			minutes = 60
		}
		// Keep a last-good snapshot available so a rate-limited
		// upstream can still be served from cache.
		_, err = s.scheduler.Every(minutes).Minutes().Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if _, err := s.weather.Fetch(ctx); err != nil {
				log.Printf("scheduler: weather warm-up fetch failed: %v", err)
			}
		})
		if err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
