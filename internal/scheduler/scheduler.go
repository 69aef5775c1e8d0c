package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/djonanko/payin-service/internal/logger"
)

// Task is a billing run triggered once per month.
type Task func(ctx context.Context) error

// Scheduler fires each registered task at midnight local time on its
// configured day of the month. Months without that day (a 29 on February)
// simply skip to the next month that has it.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{ctx: ctx, cancel: cancel}
}

// Monthly registers a task to run on the given day of every month.
func (s *Scheduler) Monthly(name string, day int, task Task) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			next := nextRun(time.Now(), day)
			logger.Info("scheduler task armed", logger.Fields{
				"task": name,
				"at":   next.Format(time.RFC3339),
			})

			timer := time.NewTimer(time.Until(next))
			select {
			case <-s.ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			if err := task(s.ctx); err != nil {
				logger.Error("scheduler task failed", err, logger.Fields{
					"task": name,
				})
			} else {
				logger.Info("scheduler task finished", logger.Fields{
					"task": name,
				})
			}
		}
	}()
}

// Stop cancels the timers and waits for a running task to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// nextRun returns the next midnight falling on the given day of the month,
// strictly after now. Months lacking that day are skipped.
func nextRun(now time.Time, day int) time.Time {
	year, month := now.Year(), now.Month()
	for {
		candidate := time.Date(year, month, day, 0, 0, 0, 0, now.Location())
		if candidate.Day() == day && candidate.After(now) {
			return candidate
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
}
