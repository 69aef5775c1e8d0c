package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/logger"
	"github.com/djonanko/payin-service/internal/metrics"
)

type JobStatus string

const (
	JobStatusWaiting   JobStatus = "waiting"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// PaymentJob is one queued payin. Attempts counts deliveries that ended in
// a handler error or panic; a job whose handler returns nil is completed
// regardless of the business outcome it logged.
type PaymentJob struct {
	ID        string                    `json:"id"`
	Payload   models.MakePaymentRequest `json:"data"`
	Status    JobStatus                 `json:"status"`
	Attempts  int                       `json:"attemptsMade"`
	LastError string                    `json:"failedReason,omitempty"`
	CreatedAt time.Time                 `json:"createdAt"`
	UpdatedAt time.Time                 `json:"updatedAt"`
}

type Handler func(ctx context.Context, req models.MakePaymentRequest) error

// PaymentQueue is the in-process job queue feeding the payin processor.
// Jobs are retained in memory after completion so the inspection endpoints
// can report on them.
type PaymentQueue struct {
	handler     Handler
	maxAttempts int
	backoff     time.Duration

	jobs chan string

	mu      sync.Mutex
	records map[string]*PaymentJob

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPaymentQueue(handler Handler, workers, maxAttempts int, backoff time.Duration) *PaymentQueue {
	if workers <= 0 {
		workers = 1
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	q := &PaymentQueue{
		handler:     handler,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		jobs:        make(chan string, 1024),
		records:     make(map[string]*PaymentJob),
		ctx:         ctx,
		cancel:      cancel,
	}

	for i := 0; i < workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	return q
}

// Enqueue registers a new waiting job and hands it to the workers.
func (q *PaymentQueue) Enqueue(req models.MakePaymentRequest) (PaymentJob, error) {
	job := &PaymentJob{
		ID:        uuid.NewString(),
		Payload:   req,
		Status:    JobStatusWaiting,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	q.mu.Lock()
	q.records[job.ID] = job
	q.mu.Unlock()

	select {
	case q.jobs <- job.ID:
		metrics.QueueDepth.Inc()
		return *job, nil
	case <-q.ctx.Done():
		return PaymentJob{}, fmt.Errorf("queue stopped")
	default:
		q.mu.Lock()
		delete(q.records, job.ID)
		q.mu.Unlock()
		return PaymentJob{}, fmt.Errorf("queue full")
	}
}

// Job returns a snapshot of one job by id.
func (q *PaymentQueue) Job(id string) (PaymentJob, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.records[id]
	if !ok {
		return PaymentJob{}, false
	}
	return *job, true
}

// Jobs returns snapshots of every job in the given status.
func (q *PaymentQueue) Jobs(status JobStatus) []PaymentJob {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]PaymentJob, 0)
	for _, job := range q.records {
		if job.Status == status {
			out = append(out, *job)
		}
	}
	return out
}

// Stop cancels the workers and waits for in-flight jobs to finish.
func (q *PaymentQueue) Stop() {
	q.cancel()
	q.wg.Wait()
}

func (q *PaymentQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case <-q.ctx.Done():
			return
		case id := <-q.jobs:
			metrics.QueueDepth.Dec()
			q.process(id)
		}
	}
}

func (q *PaymentQueue) process(id string) {
	q.mu.Lock()
	job, ok := q.records[id]
	if !ok {
		q.mu.Unlock()
		return
	}
	job.Status = JobStatusActive
	job.Attempts++
	job.UpdatedAt = time.Now().UTC()
	payload := job.Payload
	attempt := job.Attempts
	q.mu.Unlock()

	err := q.run(payload)
	if err == nil {
		q.setStatus(id, JobStatusCompleted, "")
		return
	}

	logger.Error("payment queue job attempt failed", err, logger.Fields{
		"jobId":   id,
		"attempt": attempt,
	})

	if attempt >= q.maxAttempts {
		q.setStatus(id, JobStatusFailed, err.Error())
		return
	}

	q.setStatus(id, JobStatusWaiting, err.Error())
	metrics.QueueRetriesTotal.Inc()
	time.AfterFunc(q.backoff, func() {
		select {
		case q.jobs <- id:
			metrics.QueueDepth.Inc()
		case <-q.ctx.Done():
		}
	})
}

func (q *PaymentQueue) run(payload models.MakePaymentRequest) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return q.handler(q.ctx, payload)
}

func (q *PaymentQueue) setStatus(id string, status JobStatus, lastError string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	job, ok := q.records[id]
	if !ok {
		return
	}
	job.Status = status
	job.LastError = lastError
	job.UpdatedAt = time.Now().UTC()
}
