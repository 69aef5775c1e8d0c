package controller

import (
	"net/http"
	"time"

	"github.com/djonanko/payin-service/internal/commons"
	"github.com/djonanko/payin-service/internal/queue"
)

type QueueInspector interface {
	Job(id string) (queue.PaymentJob, bool)
	Jobs(status queue.JobStatus) []queue.PaymentJob
}

// QueueController exposes the payin queue for operational inspection.
type QueueController struct {
	queue QueueInspector
}

func NewQueueController(queue QueueInspector) *QueueController {
	return &QueueController{queue: queue}
}

func (c *QueueController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	guard := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/paiement/queue/waiting", guard(c.jobsByStatus(queue.JobStatusWaiting)))
	mux.Handle("/paiement/queue/active", guard(c.jobsByStatus(queue.JobStatusActive)))
	mux.Handle("/paiement/queue/completed", guard(c.jobsByStatus(queue.JobStatusCompleted)))
	mux.Handle("/paiement/queue/failed", guard(c.jobsByStatus(queue.JobStatusFailed)))
	mux.Handle("/paiement/queue/job", guard(c.jobByID))
}

func (c *QueueController) jobsByStatus(status queue.JobStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logRequest(r, nil)

		if r.Method != http.MethodGet {
			response := commons.ErrorResponse[[]queue.PaymentJob]("method not allowed")
			writeJSON(w, http.StatusMethodNotAllowed, response)
			logResponse(r, http.StatusMethodNotAllowed, response, start)
			return
		}

		jobs := c.queue.Jobs(status)
		response := commons.SuccessResponse(string(status)+" jobs", jobs)
		writeJSON(w, http.StatusOK, response)
		logResponse(r, http.StatusOK, response, start)
	}
}

func (c *QueueController) jobByID(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[queue.PaymentJob]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		response := commons.ErrorResponse[queue.PaymentJob]("id is required")
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	job, ok := c.queue.Job(id)
	if !ok {
		response := commons.ErrorResponse[queue.PaymentJob]("job not found")
		writeJSON(w, http.StatusNotFound, response)
		logResponse(r, http.StatusNotFound, response, start)
		return
	}

	response := commons.SuccessResponse("job found", job)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}
