package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type JobFunc func(ctx context.Context) error

type job struct {
	name     string
	interval time.Duration
	next     time.Time
	fn       JobFunc
}

// Scheduler опрашивает список задач с фиксированным шагом и запускает
// наступившие последовательно в своей горутине.
type Scheduler struct {
	mu   sync.Mutex
	tick time.Duration
	now  func() time.Time
	jobs map[string]*job
	// Порядок регистрации, чтобы запуск был детерминированным
	order []string
}

func New(tick time.Duration) *Scheduler {
	if tick <= 0 {
		tick = time.Second
	}
	return &Scheduler{
		tick: tick,
		now:  time.Now,
		jobs: make(map[string]*job),
	}
}

// Every регистрирует задачу; interval 0 = задача выключена
func (s *Scheduler) Every(name string, interval time.Duration, fn JobFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; !ok {
		s.order = append(s.order, name)
	}
	j := &job{name: name, interval: interval, fn: fn}
	if interval > 0 {
		j.next = s.now().Add(interval)
	}
	s.jobs[name] = j
}

// Reschedule меняет интервал; следующий запуск отсчитывается от текущего момента
func (s *Scheduler) Reschedule(name string, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("scheduler: unknown job %q", name)
	}
	j.interval = interval
	j.next = time.Time{}
	if interval > 0 {
		j.next = s.now().Add(interval)
	}
	log.WithFields(log.Fields{"job": name, "interval": interval}).Info("job rescheduled")
	return nil
}

func (s *Scheduler) Interval(name string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[name]
	if !ok {
		return 0, false
	}
	return j.interval, true
}

// Run блокируется до отмены ctx
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue запускает все наступившие задачи и возвращает их имена
func (s *Scheduler) RunDue(ctx context.Context) []string {
	due := s.collectDue()
	for _, j := range due {
		s.runJob(ctx, j)
	}
	names := make([]string, len(due))
	for i, j := range due {
		names[i] = j.name
	}
	return names
}

func (s *Scheduler) collectDue() []job {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var due []job
	for _, name := range s.order {
		j := s.jobs[name]
		if j.interval <= 0 || now.Before(j.next) {
			continue
		}
		due = append(due, *j)
		j.next = now.Add(j.interval)
	}
	return due
}

func (s *Scheduler) runJob(ctx context.Context, j job) {
	entry := log.WithField("job", j.name)
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("job panicked: %v", r)
		}
	}()

	start := time.Now()
	if err := j.fn(ctx); err != nil {
		entry.WithError(err).Error("job failed")
		return
	}
	entry.WithField("took", time.Since(start)).Debug("job done")
}
