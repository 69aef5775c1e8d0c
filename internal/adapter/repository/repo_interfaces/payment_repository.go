package repo_interfaces

import (
	"context"

	"github.com/djonanko/payin-service/internal/domain"
)

type PaymentRepository interface {
	Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error)
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error
	GetByReference(ctx context.Context, reference string) (domain.PaymentRecord, error)
	ListByStatusAndReceiver(ctx context.Context, status domain.PaymentStatus, receiverPhoneNumber string) ([]domain.PaymentRecord, error)
	List(ctx context.Context) ([]domain.PaymentRecord, error)
}
