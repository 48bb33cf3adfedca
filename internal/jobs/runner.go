// Package jobs runs periodic maintenance of the resource store.
package jobs

import (
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

// TaskExecutor runs cron jobs. A job whose previous run has not finished is
// skipped for that tick.
type TaskExecutor struct {
	cron     *cron.Cron
	cronJobs []CronJob
	running  mapset.Set[string]
	mu       sync.Mutex
}

func NewTaskExecutor(cronJobs ...CronJob) *TaskExecutor {
	return &TaskExecutor{
		cron:     cron.New(),
		cronJobs: cronJobs,
		running:  mapset.NewThreadUnsafeSet[string](),
	}
}

// Run schedules every job and starts the cron in its own goroutine.
func (t *TaskExecutor) Run() error {
	for _, job := range t.cronJobs {
		if err := t.cron.AddFunc(job.Schedule(), t.guard(job)); err != nil {
			logrus.Errorf("failed to add task %s to cron: %v", job.Name(), err)
			return err
		}
		logrus.Infof("scheduled task %s at %q", job.Name(), job.Schedule())
	}

	t.cron.Start()
	return nil
}

func (t *TaskExecutor) guard(job Job) func() {
	return func() {
		if !t.acquire(job.Name()) {
			logrus.Warnf("task %s is still running, skipping", job.Name())
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
	logrus.Infof("stopping all tasks")
	t.cron.Stop()
}
