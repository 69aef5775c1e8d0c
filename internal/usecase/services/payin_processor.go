package services

import (
	"context"
	"fmt"

	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/logger"
)

// ProcessPayment chains the three saga steps for a queued payin job.
// A business outcome such as NOT_FOUND or INSUFFICIENT_FUNDS ends the job
// quietly; only transport or store errors are returned so the queue can
// retry the delivery.
func (s *PayinService) ProcessPayment(ctx context.Context, req models.MakePaymentRequest) error {
	initResult, err := s.InitializePayment(ctx, req)
	if err != nil {
		return fmt.Errorf("initialize payment: %w", err)
	}
	if initResult.Status != models.QueryStatusSuccess {
		logger.Info("payin processor stopped at initialize", logger.Fields{
			"status":         initResult.Status,
			"receiverNumber": initResult.ReceiverNumber,
		})
		return nil
	}

	debitResult, err := s.DebitPayment(ctx, models.PaymentDebitRequest{
		Payment:        *initResult.Payment,
		Transaction:    *initResult.Transaction,
		History:        *initResult.History,
		Amount:         initResult.Amount,
		SenderInfos:    *initResult.SenderInfos,
		Fees:           initResult.Fees,
		ReceiverNumber: initResult.ReceiverNumber,
	})
	if err != nil {
		return fmt.Errorf("debit payment: %w", err)
	}
	if debitResult.Status != models.QueryStatusSuccess {
		logger.Info("payin processor stopped at debit", logger.Fields{
			"status":    debitResult.Status,
			"reference": initResult.Payment.Reference,
		})
		return nil
	}

	execResult, err := s.SendPayment(ctx, models.PaymentExecRequest{
		SenderInfos:    *debitResult.SenderInfos,
		Reservation:    *debitResult.Reservation,
		ReceiverNumber: debitResult.ReceiverNumber,
		Amount:         debitResult.Amount,
		Payment:        *debitResult.Payment,
		Transaction:    *debitResult.Transaction,
		Fees:           debitResult.Fees,
		History:        *initResult.History,
	})
	if err != nil {
		return fmt.Errorf("send payment: %w", err)
	}

	logger.Info("payin processor finished", logger.Fields{
		"reference": initResult.Payment.Reference,
		"status":    execResult.Status,
	})
	return nil
}
