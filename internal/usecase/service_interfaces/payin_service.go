package service_interfaces

import (
	"context"

	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/domain"
)

type PayinService interface {
	InitializePayment(ctx context.Context, req models.MakePaymentRequest) (models.PaymentInitResult, error)
	DebitPayment(ctx context.Context, req models.PaymentDebitRequest) (models.PaymentDebitResult, error)
	SendPayment(ctx context.Context, req models.PaymentExecRequest) (models.PaymentExecResult, error)
	ProcessPayment(ctx context.Context, req models.MakePaymentRequest) error
	MakeSubscription(ctx context.Context, req models.MakeSubscriptionRequest) (models.PaymentExecResult, error)
	CreatePaymentRequest(ctx context.Context, req models.PaymentRequestRequest) (domain.PaymentRecord, error)
	ValidatePaymentRequest(ctx context.Context, reference string, authUser domain.Account) (models.PaymentExecResult, error)
	GetPaymentByReference(ctx context.Context, reference string) (domain.PaymentRecord, error)
	ListPendingRequestsForMerchant(ctx context.Context, receiverPhoneNumber string) ([]domain.PaymentRecord, error)
	ListPayments(ctx context.Context) ([]domain.PaymentRecord, error)
}

type BillingService interface {
	DebitSubscriptions(ctx context.Context) error
	ResetPremiumStatus(ctx context.Context) error
}
