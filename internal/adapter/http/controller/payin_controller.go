package controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/djonanko/payin-service/internal/adapter/http/middleware"
	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/commons"
	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/queue"
	"github.com/djonanko/payin-service/internal/usecase/service_interfaces"
)

type PaymentEnqueuer interface {
	Enqueue(req models.MakePaymentRequest) (queue.PaymentJob, error)
}

type PayinController struct {
	service service_interfaces.PayinService
	queue   PaymentEnqueuer
}

func NewPayinController(service service_interfaces.PayinService, queue PaymentEnqueuer) *PayinController {
	return &PayinController{service: service, queue: queue}
}

func (c *PayinController) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	guard := func(h http.HandlerFunc) http.Handler {
		if authMiddleware != nil {
			return authMiddleware(h)
		}
		return h
	}

	mux.Handle("/paiement/payin", guard(c.enqueuePayment))
	mux.Handle("/paiement/initPayment", guard(c.initPayment))
	mux.Handle("/paiement/debitPayment", guard(c.debitPayment))
	mux.Handle("/paiement/execPayment", guard(c.execPayment))
	mux.Handle("/paiement/make-subscription", guard(c.makeSubscription))
	mux.Handle("/paiement/create_payment_request", guard(c.createPaymentRequest))
	mux.Handle("/paiement/validate-payment-request", guard(c.validatePaymentRequest))
	mux.Handle("/paiement/paiementByReference", guard(c.paymentByReference))
	mux.Handle("/paiement/all-pending-payment-for-a-merchant", guard(c.pendingPaymentsForMerchant))
	mux.Handle("/paiement/all-paiements", guard(c.allPayments))
}

func (c *PayinController) enqueuePayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.EnqueueResponse]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.EnqueueResponse]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.EnqueueResponse]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	job, err := c.queue.Enqueue(req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.EnqueueResponse]("failed to enqueue payment", err.Error())
		writeJSON(w, http.StatusServiceUnavailable, response)
		logResponse(r, http.StatusServiceUnavailable, response, start)
		return
	}

	response := commons.SuccessResponse("Paiement en cours de traitement", models.EnqueueResponse{
		Message: "Paiement en cours de traitement",
		JobID:   job.ID,
	})
	writeJSON(w, http.StatusAccepted, response)
	logResponse(r, http.StatusAccepted, response, start)
}

func (c *PayinController) initPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.PaymentInitResult]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.MakePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentInitResult]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	result, err := c.service.InitializePayment(r.Context(), req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentInitResult]("failed to initialize payment", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse(string(result.Status), result)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) debitPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.PaymentDebitResult]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.PaymentDebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentDebitResult]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	result, err := c.service.DebitPayment(r.Context(), req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentDebitResult]("failed to debit payment", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	status := http.StatusOK
	if result.Status == models.QueryStatusInsufficientFunds {
		status = http.StatusUnprocessableEntity
	}
	response := commons.SuccessResponse(string(result.Status), result)
	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func (c *PayinController) execPayment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.PaymentExecResult]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.PaymentExecRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	result, err := c.service.SendPayment(r.Context(), req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("failed to send payment", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse(string(result.Status), result)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) makeSubscription(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.PaymentExecResult]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.MakeSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	result, err := c.service.MakeSubscription(r.Context(), req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("failed to make subscription", err.Error())
		if result.Message != "" {
			response = commons.ErrorResponse[models.PaymentExecResult](result.Message, err.Error())
		}
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse(string(result.Status), result)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) createPaymentRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[domain.PaymentRecord]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	var req models.PaymentRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[domain.PaymentRecord]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	record, err := c.service.CreatePaymentRequest(r.Context(), req)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[domain.PaymentRecord]("failed to create payment request", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse("payment request created", record)
	writeJSON(w, http.StatusCreated, response)
	logResponse(r, http.StatusCreated, response, start)
}

func (c *PayinController) validatePaymentRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodPost {
		response := commons.ErrorResponse[models.PaymentExecResult]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	account, ok := middleware.AccountFromContext(r.Context())
	if !ok {
		response := commons.ErrorResponse[models.PaymentExecResult]("unauthorized")
		writeJSON(w, http.StatusUnauthorized, response)
		logResponse(r, http.StatusUnauthorized, response, start)
		return
	}

	var req models.ValidatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("invalid request body", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}
	logRequest(r, req)

	if err := req.Validate(); err != nil {
		response := commons.ErrorResponse[models.PaymentExecResult]("validation failed", err.Error())
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	result, err := c.service.ValidatePaymentRequest(r.Context(), req.Reference, account)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[models.PaymentExecResult]("failed to validate payment request", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse(string(result.Status), result)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) paymentByReference(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[domain.PaymentRecord]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	reference := r.URL.Query().Get("reference")
	if reference == "" {
		response := commons.ErrorResponse[domain.PaymentRecord]("reference is required")
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	record, err := c.service.GetPaymentByReference(r.Context(), reference)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[domain.PaymentRecord]("failed to fetch payment", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse("payment found", record)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) pendingPaymentsForMerchant(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]domain.PaymentRecord]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	receiver := r.URL.Query().Get("receiverPhoneNumber")
	if receiver == "" {
		response := commons.ErrorResponse[[]domain.PaymentRecord]("receiverPhoneNumber is required")
		writeJSON(w, http.StatusBadRequest, response)
		logResponse(r, http.StatusBadRequest, response, start)
		return
	}

	records, err := c.service.ListPendingRequestsForMerchant(r.Context(), receiver)
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[[]domain.PaymentRecord]("failed to list pending payments", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse("pending payments", records)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func (c *PayinController) allPayments(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logRequest(r, nil)

	if r.Method != http.MethodGet {
		response := commons.ErrorResponse[[]domain.PaymentRecord]("method not allowed")
		writeJSON(w, http.StatusMethodNotAllowed, response)
		logResponse(r, http.StatusMethodNotAllowed, response, start)
		return
	}

	records, err := c.service.ListPayments(r.Context())
	if err != nil {
		logError(r, err, nil)
		response := commons.ErrorResponse[[]domain.PaymentRecord]("failed to list payments", err.Error())
		writeJSON(w, statusForError(err), response)
		logResponse(r, statusForError(err), response, start)
		return
	}

	response := commons.SuccessResponse("payments", records)
	writeJSON(w, http.StatusOK, response)
	logResponse(r, http.StatusOK, response, start)
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrDuplicateReference):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
