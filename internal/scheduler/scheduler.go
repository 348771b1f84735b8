// Package scheduler runs periodic jobs for open screens on one shared gocron scheduler.
package scheduler

import (
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/app/pkg/logger"
	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

type Scheduler struct {
	s   gocron.Scheduler
	log logger.Logger
}

func New(clock clockwork.Clock, log logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	opts := []gocron.SchedulerOption{gocron.WithLocation(time.UTC)}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{s: s, log: log.WithComponent("scheduler")}, nil
}

// Every runs fn each interval until the returned cancel func is called.
// A run that is still going when the next one is due is skipped.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) (func(), error) {
	job, err := s.s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	id := job.ID()
	s.log.Debug("Job scheduled", "job", name, "interval", interval.String())
	return func() {
		if err := s.s.RemoveJob(id); err != nil {
			s.log.Debug("Job already removed", "job", name, "error", err)
		}
	}, nil
}

// Jobs is the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return len(s.s.Jobs())
}

func (s *Scheduler) Start() {
	s.s.Start()
	s.log.Info("Scheduler started")
}

func (s *Scheduler) Shutdown() error {
	if err := s.s.Shutdown(); err != nil {
		s.log.Error("Failed to shut down scheduler", "error", err)
		return err
	}
	return nil
}
