package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/logger"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, record domain.PaymentRecord) (domain.PaymentRecord, error) {
	logger.Info("payment repository create", logger.Fields{
		"reference":           record.Reference,
		"senderPhoneNumber":   record.SenderPhoneNumber,
		"receiverPhoneNumber": record.ReceiverPhoneNumber,
		"status":              record.Status,
	})

	const query = `
INSERT INTO paiement (
	id,
	amount,
	fees,
	amount_before_sending,
	amount_after_sending,
	sender_phone_number,
	receiver_phone_number,
	reference,
	status
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9
)
RETURNING created_at, updated_at`

	record.ID = uuid.NewString()
	if record.Status == "" {
		record.Status = domain.PaymentStatusPending
	}

	var (
		createdAt time.Time
		updatedAt time.Time
	)

	if err := r.db.QueryRowContext(
		ctx,
		query,
		record.ID,
		record.Amount,
		record.Fees,
		record.AmountBeforeSending,
		record.AmountAfterSending,
		record.SenderPhoneNumber,
		record.ReceiverPhoneNumber,
		record.Reference,
		record.Status,
	).Scan(&createdAt, &updatedAt); err != nil {
		if isUniqueViolation(err) {
			logger.Info("payment repository duplicate reference", logger.Fields{
				"reference": record.Reference,
			})
			return domain.PaymentRecord{}, domain.ErrDuplicateReference
		}
		logger.Error("payment repository create failed", err, logger.Fields{
			"reference": record.Reference,
		})
		return domain.PaymentRecord{}, fmt.Errorf("create payment: %w", err)
	}

	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt

	logger.Info("payment repository create success", logger.Fields{
		"paymentId": record.ID,
		"reference": record.Reference,
	})

	return record, nil
}

func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	logger.Info("payment repository update status", logger.Fields{
		"paymentId": id,
		"status":    status,
	})

	const query = `
UPDATE paiement
SET status = $2,
    updated_at = NOW()
WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		logger.Error("payment repository update status failed", err, logger.Fields{
			"paymentId": id,
		})
		return fmt.Errorf("update payment status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if affected == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (domain.PaymentRecord, error) {
	const query = `
SELECT id, amount, fees, amount_before_sending, amount_after_sending,
       sender_phone_number, receiver_phone_number, reference, status,
       created_at, updated_at
FROM paiement
WHERE reference = $1`

	record, err := scanPayment(r.db.QueryRowContext(ctx, query, reference))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.PaymentRecord{}, domain.ErrRecordNotFound
		}
		logger.Error("payment repository get by reference failed", err, logger.Fields{
			"reference": reference,
		})
		return domain.PaymentRecord{}, fmt.Errorf("get payment by reference: %w", err)
	}
	return record, nil
}

func (r *PaymentRepository) ListByStatusAndReceiver(ctx context.Context, status domain.PaymentStatus, receiverPhoneNumber string) ([]domain.PaymentRecord, error) {
	const query = `
SELECT id, amount, fees, amount_before_sending, amount_after_sending,
       sender_phone_number, receiver_phone_number, reference, status,
       created_at, updated_at
FROM paiement
WHERE status = $1 AND receiver_phone_number = $2
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, status, receiverPhoneNumber)
	if err != nil {
		logger.Error("payment repository list by status and receiver failed", err, logger.Fields{
			"status":              status,
			"receiverPhoneNumber": receiverPhoneNumber,
		})
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

func (r *PaymentRepository) List(ctx context.Context) ([]domain.PaymentRecord, error) {
	const query = `
SELECT id, amount, fees, amount_before_sending, amount_after_sending,
       sender_phone_number, receiver_phone_number, reference, status,
       created_at, updated_at
FROM paiement
ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		logger.Error("payment repository list failed", err, nil)
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	return collectPayments(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (domain.PaymentRecord, error) {
	var record domain.PaymentRecord
	err := row.Scan(
		&record.ID,
		&record.Amount,
		&record.Fees,
		&record.AmountBeforeSending,
		&record.AmountAfterSending,
		&record.SenderPhoneNumber,
		&record.ReceiverPhoneNumber,
		&record.Reference,
		&record.Status,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	return record, err
}

func collectPayments(rows *sql.Rows) ([]domain.PaymentRecord, error) {
	records := make([]domain.PaymentRecord, 0)
	for rows.Next() {
		record, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return records, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == "23505"
	}
	return false
}
