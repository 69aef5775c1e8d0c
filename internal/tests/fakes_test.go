package services_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/djonanko/payin-service/internal/domain"
)

// fakeLedger is an in-memory stand-in for the administration service. It
// applies patches the same way the remote does and records every collect
// entry and notification for assertions.
type fakeLedger struct {
	mu            sync.Mutex
	accounts      map[string]*domain.Account
	transactions  map[string]*domain.Transaction
	histories     map[string]*domain.HistoryEntry
	reservations  map[string]*domain.Reservation
	collects      []domain.CollectEntry
	referrals     map[string]*domain.Referral
	notifications []domain.Notification
	seq           int

	failUpdateUserID string
}

func newFakeLedger(accounts ...domain.Account) *fakeLedger {
	l := &fakeLedger{
		accounts:     make(map[string]*domain.Account),
		transactions: make(map[string]*domain.Transaction),
		histories:    make(map[string]*domain.HistoryEntry),
		reservations: make(map[string]*domain.Reservation),
		referrals:    make(map[string]*domain.Referral),
	}
	for _, account := range accounts {
		a := account
		l.accounts[a.PhoneNumber] = &a
	}
	return l
}

func (l *fakeLedger) nextID(prefix string) string {
	l.seq++
	return fmt.Sprintf("%s-%d", prefix, l.seq)
}

func (l *fakeLedger) balance(phoneNumber string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if account, ok := l.accounts[phoneNumber]; ok {
		return account.Balance
	}
	return ""
}

func (l *fakeLedger) GetUser(ctx context.Context, phoneNumber string) (domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	account, ok := l.accounts[phoneNumber]
	if !ok {
		return domain.Account{}, domain.ErrRecordNotFound
	}
	return *account, nil
}

func (l *fakeLedger) GetUserByID(ctx context.Context, id string) (domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, account := range l.accounts {
		if account.ID == id {
			return *account, nil
		}
	}
	return domain.Account{}, domain.ErrRecordNotFound
}

func (l *fakeLedger) UpdateUser(ctx context.Context, id string, patch domain.AccountPatch) (domain.UpdateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failUpdateUserID == id {
		return domain.UpdateResult{}, domain.ErrLedgerOperation
	}
	for _, account := range l.accounts {
		if account.ID != id {
			continue
		}
		if patch.Balance != nil {
			account.Balance = *patch.Balance
		}
		if patch.Premium != nil {
			account.Premium = *patch.Premium
		}
		if patch.PremiumActivated != nil {
			account.PremiumActivated = *patch.PremiumActivated
		}
		if patch.ReferralPoints != nil {
			account.ReferralPoints = *patch.ReferralPoints
		}
		return domain.UpdateResult{Affected: 1}, nil
	}
	return domain.UpdateResult{Affected: 0}, nil
}

func (l *fakeLedger) CreateTransaction(ctx context.Context, transaction domain.NewTransaction) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	created := domain.Transaction{
		ID:                  l.nextID("tx"),
		Amount:              transaction.Amount,
		AmountBeforeSending: transaction.AmountBeforeSending,
		AmountAfterSending:  transaction.AmountAfterSending,
		SenderPhoneNumber:   transaction.SenderPhoneNumber,
		ReceiverPhoneNumber: transaction.ReceiverPhoneNumber,
		Reference:           transaction.Reference,
		Fees:                transaction.Fees,
		Status:              transaction.Status,
		Type:                transaction.Type,
	}
	l.transactions[created.ID] = &created
	return created, nil
}

func (l *fakeLedger) UpdateTransaction(ctx context.Context, id string, patch domain.TransactionPatch) (domain.UpdateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	transaction, ok := l.transactions[id]
	if !ok {
		return domain.UpdateResult{Affected: 0}, nil
	}
	if patch.Status != nil {
		transaction.Status = *patch.Status
	}
	return domain.UpdateResult{Affected: 1}, nil
}

func (l *fakeLedger) GetTransactionByReference(ctx context.Context, reference string) (domain.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, transaction := range l.transactions {
		if transaction.Reference == reference {
			return *transaction, nil
		}
	}
	return domain.Transaction{}, domain.ErrRecordNotFound
}

func (l *fakeLedger) CreateHistory(ctx context.Context, entry domain.NewHistoryEntry) (domain.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	created := domain.HistoryEntry{
		ID:                   l.nextID("hist"),
		Sender:               entry.Sender,
		Receiver:             entry.Receiver,
		SenderIdentifier:     entry.SenderIdentifier,
		ReceiverIdentifier:   entry.ReceiverIdentifier,
		ReferenceTransaction: entry.ReferenceTransaction,
		TransactionType:      entry.TransactionType,
		Amount:               entry.Amount,
		Fees:                 entry.Fees,
		Status:               entry.Status,
		Icon:                 entry.Icon,
	}
	l.histories[created.ID] = &created
	return created, nil
}

func (l *fakeLedger) UpdateHistory(ctx context.Context, id string, patch domain.HistoryPatch) (domain.UpdateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.histories[id]
	if !ok {
		return domain.UpdateResult{Affected: 0}, nil
	}
	if patch.Status != nil {
		entry.Status = *patch.Status
	}
	return domain.UpdateResult{Affected: 1}, nil
}

func (l *fakeLedger) GetHistoryByReference(ctx context.Context, reference string) (domain.HistoryEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.histories {
		if entry.ReferenceTransaction == reference {
			return *entry, nil
		}
	}
	return domain.HistoryEntry{}, domain.ErrRecordNotFound
}

func (l *fakeLedger) CreateReservation(ctx context.Context, reservation domain.NewReservation) (domain.Reservation, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	created := domain.Reservation{
		ID:                l.nextID("resv"),
		Amount:            reservation.Amount,
		Fees:              reservation.Fees,
		FundsToSend:       reservation.FundsToSend,
		TransactionStatus: reservation.TransactionStatus,
		TransactionType:   reservation.TransactionType,
	}
	l.reservations[created.ID] = &created
	return created, nil
}

func (l *fakeLedger) UpdateReservation(ctx context.Context, id string, patch domain.ReservationPatch) (domain.UpdateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	reservation, ok := l.reservations[id]
	if !ok {
		return domain.UpdateResult{Affected: 0}, nil
	}
	if patch.Amount != nil {
		reservation.Amount = *patch.Amount
	}
	if patch.TransactionStatus != nil {
		reservation.TransactionStatus = *patch.TransactionStatus
	}
	return domain.UpdateResult{Affected: 1}, nil
}

func (l *fakeLedger) CreateCollectEntry(ctx context.Context, entry domain.CollectEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.collects = append(l.collects, entry)
	return nil
}

func (l *fakeLedger) GetPremiumUsers(ctx context.Context) ([]domain.Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Account, 0)
	for _, account := range l.accounts {
		if account.Premium {
			out = append(out, *account)
		}
	}
	return out, nil
}

func (l *fakeLedger) ResetPremiumStatus(ctx context.Context) ([]domain.Account, error) {
	return l.GetPremiumUsers(ctx)
}

func (l *fakeLedger) GetReferralByUserID(ctx context.Context, userID string) (domain.Referral, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	referral, ok := l.referrals[userID]
	if !ok {
		return domain.Referral{}, domain.ErrRecordNotFound
	}
	return *referral, nil
}

func (l *fakeLedger) UpdateReferral(ctx context.Context, id string, patch domain.ReferralPatch) (domain.UpdateResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, referral := range l.referrals {
		if referral.ID != id {
			continue
		}
		if patch.IsNew != nil {
			referral.IsNew = *patch.IsNew
		}
		return domain.UpdateResult{Affected: 1}, nil
	}
	return domain.UpdateResult{Affected: 0}, nil
}

func (l *fakeLedger) SendNotification(ctx context.Context, notification domain.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notifications = append(l.notifications, notification)
	return nil
}

// fakePaymentRepo mirrors the postgres store, including the unique
// constraint on the reference column.
type fakePaymentRepo struct {
	mu   sync.Mutex
	byID map[string]*domain.PaymentRecord
	refs map[string]string
	seq  int
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{
		byID: make(map[string]*domain.PaymentRecord),
		refs: make(map[string]string),
	}
}

func (r *fakePaymentRepo) Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.refs[record.Reference]; exists {
		return domain.PaymentRecord{}, domain.ErrDuplicateReference
	}
	r.seq++
	record.ID = fmt.Sprintf("pay-%d", r.seq)
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	stored := record
	r.byID[record.ID] = &stored
	r.refs[record.Reference] = record.ID
	return record, nil
}

func (r *fakePaymentRepo) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.byID[id]
	if !ok {
		return domain.ErrRecordNotFound
	}
	record.Status = status
	record.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *fakePaymentRepo) GetByReference(ctx context.Context, reference string) (domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[reference]
	if !ok {
		return domain.PaymentRecord{}, domain.ErrRecordNotFound
	}
	return *r.byID[id], nil
}

func (r *fakePaymentRepo) ListByStatusAndReceiver(ctx context.Context, status domain.PaymentStatus, receiverPhoneNumber string) ([]domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PaymentRecord, 0)
	for _, record := range r.byID {
		if record.Status == status && record.ReceiverPhoneNumber == receiverPhoneNumber {
			out = append(out, *record)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) List(ctx context.Context) ([]domain.PaymentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.PaymentRecord, 0, len(r.byID))
	for _, record := range r.byID {
		out = append(out, *record)
	}
	return out, nil
}

func (r *fakePaymentRepo) status(reference string) domain.PaymentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[reference]
	if !ok {
		return ""
	}
	return r.byID[id].Status
}
