package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/adapter/repository/repo_interfaces"
	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/logger"
	"github.com/djonanko/payin-service/internal/metrics"
)

const createReferenceAttempts = 5
const referralBonusPoints = 500
const notificationTitle = "Paiement Djonanko"

// PayinService orchestrates the payment sagas: the three-step standard
// payin (initialize, debit, send), the single-call subscription purchase,
// and the payment-request/validate pair. Every ledger call is an
// independent remote operation; on partial failure the service marks the
// local record and the audit rows FAILED but never reverses a balance
// write that already landed.
type PayinService struct {
	payments                 repo_interfaces.PaymentRepository
	ledger                   repo_interfaces.LedgerClient
	fees                     *FeesService
	reservationAccountNumber string
	collectionAccountNumber  string
}

func NewPayinService(
	payments repo_interfaces.PaymentRepository,
	ledger repo_interfaces.LedgerClient,
	fees *FeesService,
	reservationAccountNumber string,
	collectionAccountNumber string,
) *PayinService {
	return &PayinService{
		payments:                 payments,
		ledger:                   ledger,
		fees:                     fees,
		reservationAccountNumber: strings.TrimSpace(reservationAccountNumber),
		collectionAccountNumber:  strings.TrimSpace(collectionAccountNumber),
	}
}

// InitializePayment creates the payment record and its companion
// transaction and history rows, all PENDING. A missing receiver aborts
// with NOT_FOUND before anything is written.
func (s *PayinService) InitializePayment(ctx context.Context, req models.MakePaymentRequest) (models.PaymentInitResult, error) {
	logger.Info("payin service initialize payment", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return models.PaymentInitResult{Status: models.QueryStatusError, ReceiverNumber: req.ReceiverPhoneNumber}, err
	}

	sender, err := s.ledger.GetUser(ctx, req.SenderPhoneNumber)
	if err != nil {
		logger.Error("payin service sender lookup failed", err, logger.Fields{
			"senderPhoneNumber": req.SenderPhoneNumber,
		})
		return models.PaymentInitResult{Status: models.QueryStatusError, ReceiverNumber: req.ReceiverPhoneNumber}, err
	}

	receiver, err := s.ledger.GetUser(ctx, req.ReceiverPhoneNumber)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			metrics.PaymentsTotal.WithLabelValues("initialize", string(models.QueryStatusNotFound)).Inc()
			return models.PaymentInitResult{
				Amount:         req.Amount,
				Status:         models.QueryStatusNotFound,
				ReceiverNumber: req.ReceiverPhoneNumber,
			}, nil
		}
		return models.PaymentInitResult{Status: models.QueryStatusError, ReceiverNumber: req.ReceiverPhoneNumber}, err
	}

	amount := parseAmount(req.Amount)
	balanceAfterSending := parseAmount(sender.Balance).Sub(s.fees.TotalWithFees(amount, sender.Premium))

	record := domain.PaymentRecord{
		Amount:              req.Amount,
		Fees:                s.fees.FeeForTier(amount, sender.Premium).String(),
		AmountBeforeSending: sender.Balance,
		AmountAfterSending:  balanceAfterSending.String(),
		SenderPhoneNumber:   req.SenderPhoneNumber,
		ReceiverPhoneNumber: req.ReceiverPhoneNumber,
		Reference:           GenerateReference(),
		Status:              domain.PaymentStatusPending,
	}

	created, err := s.createWithFreshReference(ctx, record)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues("initialize", string(models.QueryStatusError)).Inc()
		return models.PaymentInitResult{
			Payment:        &record,
			Amount:         req.Amount,
			Fees:           record.Fees,
			SenderInfos:    &sender,
			Status:         models.QueryStatusError,
			ReceiverNumber: req.ReceiverPhoneNumber,
		}, err
	}

	transaction, err := s.ledger.CreateTransaction(ctx, domain.NewTransaction{
		Amount:              req.Amount,
		AmountBeforeSending: created.AmountBeforeSending,
		AmountAfterSending:  created.AmountAfterSending,
		SenderPhoneNumber:   created.SenderPhoneNumber,
		Reference:           created.Reference,
		ReceiverPhoneNumber: created.ReceiverPhoneNumber,
		Fees:                created.Fees,
		Status:              "PENDING",
		Type:                string(domain.TransactionTypePayment),
	})
	if err != nil {
		s.markPaymentFailed(ctx, created.ID)
		metrics.PaymentsTotal.WithLabelValues("initialize", string(models.QueryStatusError)).Inc()
		return models.PaymentInitResult{
			Payment:        &created,
			Amount:         req.Amount,
			Fees:           created.Fees,
			SenderInfos:    &sender,
			Status:         models.QueryStatusError,
			ReceiverNumber: req.ReceiverPhoneNumber,
		}, err
	}

	history, err := s.ledger.CreateHistory(ctx, domain.NewHistoryEntry{
		Sender:               &sender,
		Receiver:             &receiver,
		SenderIdentifier:     sender.ID,
		ReceiverIdentifier:   receiver.ID,
		ReferenceTransaction: created.Reference,
		TransactionType:      string(domain.TransactionTypePayment),
		Amount:               req.Amount,
		Fees:                 created.Fees,
		Status:               "PENDING",
		Icon:                 "send",
	})
	if err != nil {
		s.markPaymentFailed(ctx, created.ID)
		s.markTransaction(ctx, transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("initialize", string(models.QueryStatusError)).Inc()
		return models.PaymentInitResult{
			Payment:        &created,
			Amount:         req.Amount,
			Fees:           created.Fees,
			Transaction:    &transaction,
			SenderInfos:    &sender,
			Status:         models.QueryStatusError,
			ReceiverNumber: req.ReceiverPhoneNumber,
		}, err
	}

	// The embedded account snapshots are only needed by the remote
	// history service; they never leave this step.
	history.Sender = nil
	history.Receiver = nil

	metrics.PaymentsTotal.WithLabelValues("initialize", string(models.QueryStatusSuccess)).Inc()
	return models.PaymentInitResult{
		Payment:        &created,
		Amount:         req.Amount,
		Fees:           created.Fees,
		History:        &history,
		Transaction:    &transaction,
		SenderInfos:    &sender,
		Status:         models.QueryStatusSuccess,
		ReceiverNumber: req.ReceiverPhoneNumber,
	}, nil
}

// DebitPayment checks the sender's balance, debits the full cost and parks
// it on a fresh reservation backed by the shared reservation pool account.
func (s *PayinService) DebitPayment(ctx context.Context, req models.PaymentDebitRequest) (models.PaymentDebitResult, error) {
	logger.Info("payin service debit payment", logger.Fields{
		"paymentId": req.Payment.ID,
		"reference": req.Payment.Reference,
		"amount":    req.Amount,
		"fees":      req.Fees,
	})

	result := models.PaymentDebitResult{
		Payment:        &req.Payment,
		Transaction:    &req.Transaction,
		Amount:         req.Amount,
		ReceiverNumber: req.ReceiverNumber,
		SenderInfos:    &req.SenderInfos,
		Fees:           req.Fees,
	}

	cost := parseAmount(req.Amount).Add(parseAmount(req.Fees))
	balanceAfterSending := parseAmount(req.SenderInfos.Balance).Sub(cost)
	if balanceAfterSending.IsNegative() {
		s.markPaymentFailed(ctx, req.Payment.ID)
		s.markTransaction(ctx, req.Transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusInsufficientFunds)).Inc()
		result.Status = models.QueryStatusInsufficientFunds
		return result, nil
	}

	if _, err := s.ledger.UpdateUser(ctx, req.SenderInfos.ID, domain.AccountPatch{
		Balance: stringPtr(balanceAfterSending.String()),
	}); err != nil {
		s.markPaymentFailed(ctx, req.Payment.ID)
		s.markTransaction(ctx, req.Transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusError)).Inc()
		result.Status = models.QueryStatusError
		return result, err
	}

	reservation, err := s.ledger.CreateReservation(ctx, domain.NewReservation{
		Amount:            req.Amount,
		Fees:              req.Fees,
		FundsToSend:       cost.String(),
		TransactionStatus: domain.ReservationStatusInProgress,
		TransactionType:   string(domain.TransactionTypePayment),
	})
	if err != nil {
		s.markPaymentFailed(ctx, req.Payment.ID)
		s.markHistory(ctx, req.History.ID, "FAILED")
		s.markTransaction(ctx, req.Transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusError)).Inc()
		result.Status = models.QueryStatusError
		return result, err
	}
	result.Reservation = &reservation

	pool, err := s.ledger.GetUser(ctx, s.reservationAccountNumber)
	if err != nil {
		s.markPaymentFailed(ctx, req.Payment.ID)
		s.markHistory(ctx, req.History.ID, "FAILED")
		s.markTransaction(ctx, req.Transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusError)).Inc()
		result.Status = models.QueryStatusError
		return result, err
	}

	credit, err := s.ledger.UpdateUser(ctx, pool.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(pool.Balance).Add(cost).String()),
	})
	if err != nil || credit.Affected != 1 {
		// The sender debit above is not reversed here; the record and
		// audit rows are marked FAILED instead.
		s.markPaymentFailed(ctx, req.Payment.ID)
		s.markHistory(ctx, req.History.ID, "FAILED")
		s.markTransaction(ctx, req.Transaction.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusError)).Inc()
		result.Status = models.QueryStatusError
		if err == nil {
			err = fmt.Errorf("%w: reservation pool credit not applied", domain.ErrLedgerOperation)
		}
		return result, err
	}

	metrics.PaymentsTotal.WithLabelValues("debit", string(models.QueryStatusSuccess)).Inc()
	result.Status = models.QueryStatusSuccess
	return result, nil
}

// SendPayment settles the reserved funds: credit the receiver, release the
// reservation pool, book the fee on the collection pool and flip every row
// to its terminal status. Receiver credit and reservation state are not
// unwound when a later leg fails.
func (s *PayinService) SendPayment(ctx context.Context, req models.PaymentExecRequest) (models.PaymentExecResult, error) {
	logger.Info("payin service send payment", logger.Fields{
		"paymentId":      req.Payment.ID,
		"reference":      req.Payment.Reference,
		"receiverNumber": req.ReceiverNumber,
		"abonnement":     req.Subscription,
	})

	receiver, err := s.ledger.GetUser(ctx, req.ReceiverNumber)
	if err != nil {
		s.failSettlement(ctx, req, true)
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	creditReceiver, err := s.ledger.UpdateUser(ctx, receiver.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(receiver.Balance).Add(parseAmount(req.Amount)).String()),
	})
	if err != nil || creditReceiver.Affected != 1 {
		s.failSettlement(ctx, req, true)
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		if err == nil {
			err = fmt.Errorf("%w: receiver credit not applied", domain.ErrLedgerOperation)
		}
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	pool, err := s.ledger.GetUser(ctx, s.reservationAccountNumber)
	if err != nil {
		s.failSettlement(ctx, req, false)
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	released := parseAmount(pool.Balance).Sub(parseAmount(req.Amount).Add(parseAmount(req.Fees)))
	debitPool, err := s.ledger.UpdateUser(ctx, pool.ID, domain.AccountPatch{
		Balance: stringPtr(released.String()),
	})
	if err != nil || debitPool.Affected != 1 {
		s.failSettlement(ctx, req, false)
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		if err == nil {
			err = fmt.Errorf("%w: reservation pool debit not applied", domain.ErrLedgerOperation)
		}
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	collect, err := s.ledger.GetUser(ctx, s.collectionAccountNumber)
	if err != nil {
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	if _, err := s.ledger.UpdateUser(ctx, collect.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(collect.Balance).Add(parseAmount(req.Fees)).String()),
	}); err != nil {
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	if err := s.ledger.CreateCollectEntry(ctx, domain.CollectEntry{
		Amount:      req.Fees,
		CollectType: domain.CollectTypeFees,
	}); err != nil {
		metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	s.markReservation(ctx, req.Reservation.ID, domain.ReservationStatusCompleted)
	if err := s.payments.UpdateStatus(ctx, req.Payment.ID, domain.PaymentStatusSuccess); err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	s.markTransaction(ctx, req.Transaction.ID, "SUCCESS")
	s.markHistory(ctx, req.History.ID, "SUCCESS")

	if req.Subscription {
		if _, err := s.ledger.UpdateUser(ctx, req.SenderInfos.ID, domain.AccountPatch{
			Premium:          boolPtr(true),
			PremiumActivated: boolPtr(true),
		}); err != nil {
			logger.Error("payin service premium activation failed", err, logger.Fields{
				"senderId": req.SenderInfos.ID,
			})
		}
	}

	s.awardReferralBonus(ctx, &req.SenderInfos)
	s.notify(ctx, req.SenderInfos.ExpoPushToken,
		fmt.Sprintf("Votre paiement de %s FCFA a été effectué avec succès.", req.Amount))
	s.notify(ctx, receiver.ExpoPushToken,
		fmt.Sprintf("%s a effectué un paiement de %s FCFA", receiver.FullName, req.Amount))

	metrics.PaymentsTotal.WithLabelValues("send", string(models.QueryStatusSuccess)).Inc()
	return models.PaymentExecResult{Status: models.QueryStatusSuccess}, nil
}

// MakeSubscription runs the premium purchase as one synchronous saga:
// debit the sender, escrow through the reservation pool, book the revenue
// on the collection pool, then activate the premium flags.
func (s *PayinService) MakeSubscription(ctx context.Context, req models.MakeSubscriptionRequest) (models.PaymentExecResult, error) {
	logger.Info("payin service make subscription", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	collectPool, err := s.ledger.GetUser(ctx, s.collectionAccountNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	sender, err := s.ledger.GetUser(ctx, req.SenderPhoneNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	receiver, err := s.ledger.GetUser(ctx, req.ReceiverPhoneNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	amount := parseAmount(req.Amount)
	if amount.GreaterThan(parseAmount(sender.Balance)) {
		metrics.PaymentsTotal.WithLabelValues("subscription", string(models.QueryStatusInsufficientFunds)).Inc()
		return models.PaymentExecResult{
			Status:  models.QueryStatusInsufficientFunds,
			Message: "Solde insuffisant",
		}, domain.ErrInsufficientBalance
	}

	quotedFees := s.fees.TotalWithFees(amount, sender.Premium).String()
	balanceAfterSending := parseAmount(sender.Balance).Sub(amount).String()

	record := domain.PaymentRecord{
		Amount:              req.Amount,
		Fees:                quotedFees,
		AmountBeforeSending: sender.Balance,
		AmountAfterSending:  balanceAfterSending,
		SenderPhoneNumber:   req.SenderPhoneNumber,
		ReceiverPhoneNumber: req.ReceiverPhoneNumber,
		Reference:           GenerateReference(),
		Status:              domain.PaymentStatusPending,
	}
	created, err := s.createWithFreshReference(ctx, record)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	history, err := s.ledger.CreateHistory(ctx, domain.NewHistoryEntry{
		Sender:               &sender,
		Receiver:             &receiver,
		SenderIdentifier:     sender.ID,
		ReceiverIdentifier:   receiver.ID,
		ReferenceTransaction: created.Reference,
		TransactionType:      string(domain.TransactionTypeSubscription),
		Amount:               req.Amount,
		Fees:                 quotedFees,
		Status:               "PENDING",
		Icon:                 "sync",
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	transaction, err := s.ledger.CreateTransaction(ctx, domain.NewTransaction{
		Amount:              req.Amount,
		AmountBeforeSending: sender.Balance,
		AmountAfterSending:  balanceAfterSending,
		SenderPhoneNumber:   req.SenderPhoneNumber,
		Reference:           created.Reference,
		ReceiverPhoneNumber: req.ReceiverPhoneNumber,
		Fees:                quotedFees,
		Status:              "PENDING",
		Type:                string(domain.TransactionTypeSubscription),
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	debitSender, err := s.ledger.UpdateUser(ctx, sender.ID, domain.AccountPatch{
		Balance: stringPtr(balanceAfterSending),
	})
	if err != nil || debitSender.Affected != 1 {
		metrics.PaymentsTotal.WithLabelValues("subscription", string(models.QueryStatusError)).Inc()
		if err == nil {
			err = fmt.Errorf("%w: sender debit not applied", domain.ErrLedgerOperation)
		}
		return models.PaymentExecResult{
			Status:  models.QueryStatusError,
			Message: "Failed to debit sender account",
		}, err
	}

	reservation, err := s.ledger.CreateReservation(ctx, domain.NewReservation{
		Amount:            req.Amount,
		Fees:              quotedFees,
		FundsToSend:       req.Amount,
		TransactionStatus: domain.ReservationStatusInProgress,
		TransactionType:   string(domain.TransactionTypeSubscription),
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	reservationPool, err := s.ledger.GetUser(ctx, s.reservationAccountNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	poolAfterCredit := parseAmount(reservationPool.Balance).Add(amount)
	creditPool, err := s.ledger.UpdateUser(ctx, reservationPool.ID, domain.AccountPatch{
		Balance: stringPtr(poolAfterCredit.String()),
	})
	if err != nil || creditPool.Affected != 1 {
		if err == nil {
			err = fmt.Errorf("%w: reservation pool credit not applied", domain.ErrLedgerOperation)
		}
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	if err := s.ledger.CreateCollectEntry(ctx, domain.CollectEntry{
		Amount:      req.Amount,
		CollectType: domain.CollectTypeSubscription,
	}); err != nil {
		s.markReservation(ctx, reservation.ID, domain.ReservationStatusFailed)
		s.markHistory(ctx, history.ID, "FAILED")
		metrics.PaymentsTotal.WithLabelValues("subscription", string(models.QueryStatusError)).Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	if _, err := s.ledger.UpdateUser(ctx, collectPool.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(collectPool.Balance).Add(amount).String()),
	}); err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	debitPool, err := s.ledger.UpdateUser(ctx, reservationPool.ID, domain.AccountPatch{
		Balance: stringPtr(poolAfterCredit.Sub(amount).String()),
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	if debitPool.Affected == 1 {
		s.markReservation(ctx, reservation.ID, domain.ReservationStatusCompleted)
		if _, err := s.ledger.UpdateUser(ctx, sender.ID, domain.AccountPatch{
			Premium:          boolPtr(true),
			PremiumActivated: boolPtr(true),
		}); err != nil {
			logger.Error("payin service premium activation failed", err, logger.Fields{
				"senderId": sender.ID,
			})
		}
		s.markHistory(ctx, history.ID, "SUCCESS")
		if err := s.payments.UpdateStatus(ctx, created.ID, domain.PaymentStatusSuccess); err != nil {
			logger.Error("payin service subscription record update failed", err, logger.Fields{
				"paymentId": created.ID,
			})
		}
		s.markTransaction(ctx, transaction.ID, "SUCCESS")
	}

	metrics.PaymentsTotal.WithLabelValues("subscription", string(models.QueryStatusSuccess)).Inc()
	return models.PaymentExecResult{Status: models.QueryStatusSuccess}, nil
}

// CreatePaymentRequest records a promise to pay: a PAYMENT_REQUEST_PENDING
// record with companion transaction and history rows, no balance touched.
func (s *PayinService) CreatePaymentRequest(ctx context.Context, req models.PaymentRequestRequest) (domain.PaymentRecord, error) {
	logger.Info("payin service create payment request", logger.Fields{
		"payload": logger.SanitizePayload(req),
	})

	if err := req.Validate(); err != nil {
		return domain.PaymentRecord{}, err
	}

	debited, err := s.ledger.GetUser(ctx, req.SenderPhoneNumber)
	if err != nil {
		return domain.PaymentRecord{}, err
	}
	credited, err := s.ledger.GetUser(ctx, req.ReceiverPhoneNumber)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	amount := parseAmount(req.Amount)
	record := domain.PaymentRecord{
		Amount:              req.Amount,
		Fees:                "0",
		AmountBeforeSending: debited.Balance,
		AmountAfterSending:  parseAmount(debited.Balance).Sub(amount).String(),
		SenderPhoneNumber:   req.SenderPhoneNumber,
		ReceiverPhoneNumber: req.ReceiverPhoneNumber,
		Reference:           GenerateReference(),
		Status:              domain.PaymentStatusRequestPending,
	}

	created, err := s.createWithFreshReference(ctx, record)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	if _, err := s.ledger.CreateTransaction(ctx, domain.NewTransaction{
		Amount:              req.Amount,
		AmountBeforeSending: credited.Balance,
		AmountAfterSending:  parseAmount(credited.Balance).Add(amount).String(),
		SenderPhoneNumber:   req.SenderPhoneNumber,
		Reference:           created.Reference,
		ReceiverPhoneNumber: req.ReceiverPhoneNumber,
		Fees:                "0",
		Type:                string(domain.TransactionTypePaymentRequest),
	}); err != nil {
		return domain.PaymentRecord{}, err
	}

	if _, err := s.ledger.CreateHistory(ctx, domain.NewHistoryEntry{
		Sender:               &debited,
		Receiver:             &credited,
		SenderIdentifier:     debited.ID,
		ReceiverIdentifier:   credited.ID,
		ReferenceTransaction: created.Reference,
		TransactionType:      string(domain.TransactionTypePaymentRequest),
		Amount:               req.Amount,
		Fees:                 "0",
		Status:               "PENDING",
		Icon:                 "send",
	}); err != nil {
		return domain.PaymentRecord{}, err
	}

	return created, nil
}

// ValidatePaymentRequest executes a stored payment request. Only the user
// the request was addressed to may validate it; the check happens before
// any balance is touched.
func (s *PayinService) ValidatePaymentRequest(ctx context.Context, reference string, authUser domain.Account) (models.PaymentExecResult, error) {
	logger.Info("payin service validate payment request", logger.Fields{
		"reference": reference,
		"user":      authUser.PhoneNumber,
	})

	transaction, err := s.ledger.GetTransactionByReference(ctx, reference)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	if authUser.PhoneNumber != transaction.SenderPhoneNumber {
		metrics.PaymentsTotal.WithLabelValues("validate", "UNAUTHORIZED").Inc()
		return models.PaymentExecResult{Status: models.QueryStatusError}, domain.ErrUnauthorized
	}

	paymentRequest, err := s.payments.GetByReference(ctx, reference)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	history, err := s.ledger.GetHistoryByReference(ctx, reference)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	debited, err := s.ledger.GetUser(ctx, paymentRequest.SenderPhoneNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	credited, err := s.ledger.GetUser(ctx, paymentRequest.ReceiverPhoneNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	cost := parseAmount(paymentRequest.Amount).Add(parseAmount(paymentRequest.Fees))
	if _, err := s.ledger.UpdateUser(ctx, debited.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(debited.Balance).Sub(cost).String()),
	}); err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	reservation, err := s.ledger.CreateReservation(ctx, domain.NewReservation{
		Amount:            paymentRequest.Amount,
		Fees:              "0",
		FundsToSend:       cost.String(),
		TransactionStatus: domain.ReservationStatusInProgress,
		TransactionType:   string(domain.TransactionTypePaymentRequest),
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	reservationPool, err := s.ledger.GetUser(ctx, s.reservationAccountNumber)
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}
	if _, err := s.ledger.UpdateUser(ctx, reservationPool.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(reservationPool.Balance).Add(cost).String()),
	}); err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	creditReceiver, err := s.ledger.UpdateUser(ctx, credited.ID, domain.AccountPatch{
		Balance: stringPtr(parseAmount(credited.Balance).Add(parseAmount(paymentRequest.Amount)).String()),
	})
	if err != nil {
		return models.PaymentExecResult{Status: models.QueryStatusError}, err
	}

	if creditReceiver.Affected == 1 {
		drained, err := s.ledger.UpdateReservation(ctx, reservation.ID, domain.ReservationPatch{
			Amount: stringPtr(parseAmount(reservation.Amount).Sub(cost).String()),
		})
		if err != nil {
			return models.PaymentExecResult{Status: models.QueryStatusError}, err
		}
		if drained.Affected == 1 {
			completed, err := s.ledger.UpdateReservation(ctx, reservation.ID, domain.ReservationPatch{
				TransactionStatus: reservationStatusPtr(domain.ReservationStatusCompleted),
			})
			if err != nil {
				return models.PaymentExecResult{Status: models.QueryStatusError}, err
			}
			if completed.Affected == 1 {
				if err := s.payments.UpdateStatus(ctx, paymentRequest.ID, domain.PaymentStatusRequestSuccess); err != nil {
					return models.PaymentExecResult{Status: models.QueryStatusError}, err
				}
				s.markTransaction(ctx, transaction.ID, "SUCCESS")
				s.markHistory(ctx, history.ID, "SUCCESS")

				collectPool, err := s.ledger.GetUser(ctx, s.collectionAccountNumber)
				if err == nil {
					if _, err := s.ledger.UpdateUser(ctx, collectPool.ID, domain.AccountPatch{
						Balance: stringPtr(parseAmount(collectPool.Balance).Add(parseAmount(paymentRequest.Fees)).String()),
					}); err != nil {
						logger.Error("payin service collection pool credit failed", err, logger.Fields{
							"reference": reference,
						})
					}
				}
			}
		}
	}

	metrics.PaymentsTotal.WithLabelValues("validate", string(models.QueryStatusSuccess)).Inc()
	return models.PaymentExecResult{Status: models.QueryStatusSuccess}, nil
}

func (s *PayinService) GetPaymentByReference(ctx context.Context, reference string) (domain.PaymentRecord, error) {
	return s.payments.GetByReference(ctx, reference)
}

func (s *PayinService) ListPendingRequestsForMerchant(ctx context.Context, receiverPhoneNumber string) ([]domain.PaymentRecord, error) {
	return s.payments.ListByStatusAndReceiver(ctx, domain.PaymentStatusRequestPending, receiverPhoneNumber)
}

func (s *PayinService) ListPayments(ctx context.Context) ([]domain.PaymentRecord, error) {
	return s.payments.List(ctx)
}

func (s *PayinService) createWithFreshReference(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	var err error
	for attempt := 0; attempt < createReferenceAttempts; attempt++ {
		var created domain.PaymentRecord
		created, err = s.payments.Create(ctx, record)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, domain.ErrDuplicateReference) {
			return domain.PaymentRecord{}, err
		}
		record.Reference = GenerateReference()
	}
	return domain.PaymentRecord{}, err
}

// failSettlement applies the compensation marks used when the settle step
// fails before the reservation pool has been released.
func (s *PayinService) failSettlement(ctx context.Context, req models.PaymentExecRequest, includeReservation bool) {
	s.markPaymentFailed(ctx, req.Payment.ID)
	s.markTransaction(ctx, req.Transaction.ID, "FAILED")
	if includeReservation {
		s.markReservation(ctx, req.Reservation.ID, domain.ReservationStatusFailed)
		s.markHistory(ctx, req.History.ID, "FAILED")
	}
}

func (s *PayinService) awardReferralBonus(ctx context.Context, sender *domain.Account) {
	referral, err := s.ledger.GetReferralByUserID(ctx, sender.ID)
	if err != nil {
		if !errors.Is(err, domain.ErrRecordNotFound) {
			logger.Error("payin service referral lookup failed", err, logger.Fields{
				"senderId": sender.ID,
			})
		}
		return
	}
	if !referral.IsNew {
		return
	}

	host, err := s.ledger.GetUserByID(ctx, referral.HostID)
	if err != nil {
		logger.Error("payin service referral host lookup failed", err, logger.Fields{
			"hostId": referral.HostID,
		})
		return
	}

	if _, err := s.ledger.UpdateUser(ctx, host.ID, domain.AccountPatch{
		ReferralPoints: int64Ptr(host.ReferralPoints + referralBonusPoints),
	}); err != nil {
		logger.Error("payin service referral bonus failed", err, logger.Fields{
			"hostId": host.ID,
		})
		return
	}
	if _, err := s.ledger.UpdateReferral(ctx, referral.ID, domain.ReferralPatch{
		IsNew: boolPtr(false),
	}); err != nil {
		logger.Error("payin service referral flag clear failed", err, logger.Fields{
			"referralId": referral.ID,
		})
	}
}

func (s *PayinService) notify(ctx context.Context, token, body string) {
	if token == "" {
		return
	}
	if err := s.ledger.SendNotification(ctx, domain.Notification{
		Token: token,
		Title: notificationTitle,
		Body:  body,
	}); err != nil {
		logger.Error("payin service notification failed", err, nil)
	}
}

func (s *PayinService) markPaymentFailed(ctx context.Context, id string) {
	if id == "" {
		return
	}
	if err := s.payments.UpdateStatus(ctx, id, domain.PaymentStatusFailed); err != nil {
		logger.Error("payin service payment failure mark failed", err, logger.Fields{
			"paymentId": id,
		})
	}
}

func (s *PayinService) markTransaction(ctx context.Context, id, status string) {
	if id == "" {
		return
	}
	if _, err := s.ledger.UpdateTransaction(ctx, id, domain.TransactionPatch{Status: stringPtr(status)}); err != nil {
		logger.Error("payin service transaction mark failed", err, logger.Fields{
			"transactionId": id,
			"status":        status,
		})
	}
}

func (s *PayinService) markHistory(ctx context.Context, id, status string) {
	if id == "" {
		return
	}
	if _, err := s.ledger.UpdateHistory(ctx, id, domain.HistoryPatch{Status: stringPtr(status)}); err != nil {
		logger.Error("payin service history mark failed", err, logger.Fields{
			"historyId": id,
			"status":    status,
		})
	}
}

func (s *PayinService) markReservation(ctx context.Context, id string, status domain.ReservationStatus) {
	if id == "" {
		return
	}
	if _, err := s.ledger.UpdateReservation(ctx, id, domain.ReservationPatch{TransactionStatus: reservationStatusPtr(status)}); err != nil {
		logger.Error("payin service reservation mark failed", err, logger.Fields{
			"reservationId": id,
			"status":        status,
		})
	}
}

func parseAmount(value string) decimal.Decimal {
	parsed, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero
	}
	return parsed
}

func stringPtr(value string) *string {
	return &value
}

func boolPtr(value bool) *bool {
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func reservationStatusPtr(value domain.ReservationStatus) *domain.ReservationStatus {
	return &value
}
