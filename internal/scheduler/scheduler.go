package scheduler

import (
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work. Errors are logged, never fatal: a
// failing job waits for its next tick.
type Job struct {
	Name string
	Spec string
	Run  func() error
}

// runner serializes one job. A tick arriving while the previous run is
// still going is skipped, so two cycles of the same job never overlap,
// whether the trigger is cron or the startup kick.
type runner struct {
	job Job
	mu  sync.Mutex
}

func (r *runner) run() {
	if !r.mu.TryLock() {
		log.Printf("scheduler: %s still running, skipping tick", r.job.Name)
		return
	}
	defer r.mu.Unlock()

	log.Printf("scheduler: run %s...", r.job.Name)
	start := time.Now()
	if err := r.job.Run(); err != nil {
		log.Printf("scheduler: %s error: %v", r.job.Name, err)
		return
	}
	log.Printf("scheduler: %s done in %s", r.job.Name, time.Since(start).Round(time.Millisecond))
}

type Scheduler struct {
	cron    *cron.Cron
	runners []*runner
}

func New(jobs []Job) (*Scheduler, error) {
	c := cron.New()
	s := &Scheduler{cron: c}

	for _, job := range jobs {
		r := &runner{job: job}
		if _, err := c.AddFunc(job.Spec, r.run); err != nil {
			return nil, err
		}
		s.runners = append(s.runners, r)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	// First run shortly after startup instead of waiting a full interval.
	const startupDelay = 15 * time.Second
	time.AfterFunc(startupDelay, func() {
		for _, r := range s.runners {
			go r.run()
		}
	})
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
