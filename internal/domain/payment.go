package domain

import "time"

type PaymentStatus string

const (
	PaymentStatusPending        PaymentStatus = "PENDING"
	PaymentStatusSuccess        PaymentStatus = "SUCCESS"
	PaymentStatusFailed         PaymentStatus = "FAILED"
	PaymentStatusRequestPending PaymentStatus = "PAYMENT_REQUEST_PENDING"
	PaymentStatusRequestSuccess PaymentStatus = "PAYMENT_REQUEST_SUCCESS"
)

// PaymentRecord is the locally owned row tracking a single payin. The
// reference is assigned once at creation and never rewritten; status moves
// from PENDING to exactly one terminal state.
type PaymentRecord struct {
	ID                  string        `json:"id"`
	Amount              string        `json:"amount"`
	Fees                string        `json:"fees"`
	AmountBeforeSending string        `json:"amountBeforeSending"`
	AmountAfterSending  string        `json:"amountAfterSending"`
	SenderPhoneNumber   string        `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string        `json:"receiverPhoneNumber"`
	Reference           string        `json:"reference"`
	Status              PaymentStatus `json:"status"`
	CreatedAt           time.Time     `json:"createdAt"`
	UpdatedAt           time.Time     `json:"updatedAt"`
}
