package repo_interfaces

import (
	"context"

	"github.com/djonanko/payin-service/internal/domain"
)

// LedgerClient is the typed surface of the remote administration service
// that owns users, balances, transactions, histories, reservation and
// collection ledgers. Every call is an independent network operation; the
// caller's sequencing is the only consistency mechanism.
type LedgerClient interface {
	GetUser(ctx context.Context, phoneNumber string) (domain.Account, error)
	GetUserByID(ctx context.Context, id string) (domain.Account, error)
	UpdateUser(ctx context.Context, id string, patch domain.AccountPatch) (domain.UpdateResult, error)

	CreateTransaction(ctx context.Context, transaction domain.NewTransaction) (domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.UpdateResult, error)
	GetTransactionByReference(ctx context.Context, reference string) (domain.Transaction, error)

	CreateHistory(ctx context.Context, entry domain.NewHistoryEntry) (domain.HistoryEntry, error)
	UpdateHistory(ctx context.Context, id string, patch domain.HistoryPatch) (domain.UpdateResult, error)
	GetHistoryByReference(ctx context.Context, reference string) (domain.HistoryEntry, error)

	CreateReservation(ctx context.Context, reservation domain.NewReservation) (domain.Reservation, error)
	UpdateReservation(ctx context.Context, id string, patch domain.ReservationPatch) (domain.UpdateResult, error)

	CreateCollectEntry(ctx context.Context, entry domain.CollectEntry) error

	GetPremiumUsers(ctx context.Context) ([]domain.Account, error)
	ResetPremiumStatus(ctx context.Context) ([]domain.Account, error)

	GetReferralByUserID(ctx context.Context, userID string) (domain.Referral, error)
	UpdateReferral(ctx context.Context, id string, patch domain.ReferralPatch) (domain.UpdateResult, error)

	SendNotification(ctx context.Context, notification domain.Notification) error
}
