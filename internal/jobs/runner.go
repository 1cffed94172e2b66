package jobs

import (
	"fmt"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	cron "github.com/robfig/cron"
	"github.com/sirupsen/logrus"
)

type Job interface {
	Name() string
	Run()
}

type CronJob interface {
	Schedule() string
	Job
}

// TaskExecutor runs cron jobs on their schedules. A job whose previous run is still in
// progress is skipped for that tick.
type TaskExecutor struct {
	cron    *cron.Cron
	jobs    []CronJob
	running mapset.Set[string]
	mu      sync.Mutex
	log     logrus.FieldLogger
}

func NewTaskExecutor(log logrus.FieldLogger, jobs ...CronJob) *TaskExecutor {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &TaskExecutor{
		cron:    cron.New(),
		jobs:    jobs,
		running: mapset.NewThreadUnsafeSet[string](),
		log:     log.WithField("component", "jobs"),
	}
}

// Start registers every job with a non-empty schedule and starts the cron loop.
// It returns how many jobs were scheduled.
func (t *TaskExecutor) Start() (int, error) {
	scheduled := 0
	for _, job := range t.jobs {
		if job.Schedule() == "" {
			t.log.WithField("job", job.Name()).Info("job disabled")
			continue
		}
		if err := t.cron.AddFunc(job.Schedule(), t.wrap(job)); err != nil {
			return scheduled, fmt.Errorf("schedule job %s: %w", job.Name(), err)
		}
		scheduled++
	}
	if scheduled > 0 {
		t.cron.Start()
	}
	return scheduled, nil
}

func (t *TaskExecutor) wrap(job CronJob) func() {
	return func() {
		if !t.acquire(job.Name()) {
			t.log.WithField("job", job.Name()).Warn("job is still running, skipping tick")
			return
		}
		defer t.release(job.Name())
		job.Run()
	}
}

func (t *TaskExecutor) acquire(name string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.running.Contains(name) {
		return false
	}
	t.running.Add(name)
	return true
}

func (t *TaskExecutor) release(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running.Remove(name)
}

func (t *TaskExecutor) Stop() {
	t.log.Info("stopping all tasks")
	t.cron.Stop()
}
