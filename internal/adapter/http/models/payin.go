package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/djonanko/payin-service/internal/domain"
)

type QueryStatus string

const (
	QueryStatusSuccess           QueryStatus = "SUCCESS"
	QueryStatusError             QueryStatus = "ERROR"
	QueryStatusNotFound          QueryStatus = "NOT_FOUND"
	QueryStatusInsufficientFunds QueryStatus = "INSUFFICIENT_FUNDS"
)

type MakePaymentRequest struct {
	Amount              string `json:"amount"`
	SenderPhoneNumber   string `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string `json:"receiverPhoneNumber"`
	Fees                string `json:"fees,omitempty"`
}

func (r MakePaymentRequest) Validate() error {
	return validateTransferFields(r.Amount, r.SenderPhoneNumber, r.ReceiverPhoneNumber)
}

type MakeSubscriptionRequest struct {
	Amount              string `json:"amount"`
	SenderPhoneNumber   string `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string `json:"receiverPhoneNumber"`
}

func (r MakeSubscriptionRequest) Validate() error {
	return validateTransferFields(r.Amount, r.SenderPhoneNumber, r.ReceiverPhoneNumber)
}

type PaymentRequestRequest struct {
	Amount              string `json:"amount"`
	SenderPhoneNumber   string `json:"senderPhoneNumber"`
	ReceiverPhoneNumber string `json:"receiverPhoneNumber"`
}

func (r PaymentRequestRequest) Validate() error {
	return validateTransferFields(r.Amount, r.SenderPhoneNumber, r.ReceiverPhoneNumber)
}

type ValidatePaymentRequest struct {
	Reference string `json:"reference"`
}

func (r ValidatePaymentRequest) Validate() error {
	if strings.TrimSpace(r.Reference) == "" {
		return errors.New("reference is required")
	}
	return nil
}

// PaymentInitResult carries everything the debit step needs. A NOT_FOUND
// status means no record was created and no side effect happened.
type PaymentInitResult struct {
	Payment        *domain.PaymentRecord `json:"payment"`
	Amount         string                `json:"amount"`
	Fees           string                `json:"fees"`
	History        *domain.HistoryEntry  `json:"historique"`
	Transaction    *domain.Transaction   `json:"transaction"`
	SenderInfos    *domain.Account       `json:"senderInfos"`
	Status         QueryStatus           `json:"status"`
	ReceiverNumber string                `json:"receiverNumber"`
}

type PaymentDebitResult struct {
	Payment        *domain.PaymentRecord `json:"paiement"`
	Transaction    *domain.Transaction   `json:"transaction"`
	Reservation    *domain.Reservation   `json:"reservation"`
	Amount         string                `json:"amount"`
	ReceiverNumber string                `json:"receiverNumber"`
	SenderInfos    *domain.Account       `json:"senderInfos"`
	Fees           string                `json:"fees"`
	Status         QueryStatus           `json:"status"`
}

type PaymentExecResult struct {
	Status  QueryStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

type PaymentDebitRequest struct {
	Payment        domain.PaymentRecord `json:"paiement"`
	Transaction    domain.Transaction   `json:"transaction"`
	History        domain.HistoryEntry  `json:"historique"`
	Amount         string               `json:"amount"`
	SenderInfos    domain.Account       `json:"senderInfos"`
	Fees           string               `json:"fees"`
	ReceiverNumber string               `json:"receiverNumber"`
}

type PaymentExecRequest struct {
	SenderInfos    domain.Account       `json:"senderInfos"`
	Reservation    domain.Reservation   `json:"reservation"`
	ReceiverNumber string               `json:"receiverNumber"`
	Amount         string               `json:"amount"`
	Payment        domain.PaymentRecord `json:"paiement"`
	Transaction    domain.Transaction   `json:"transaction"`
	Fees           string               `json:"fees"`
	History        domain.HistoryEntry  `json:"historique"`
	Subscription   bool                 `json:"abonnement,omitempty"`
}

type EnqueueResponse struct {
	Message string `json:"message"`
	JobID   string `json:"jobId"`
}

func validateTransferFields(amount, senderPhoneNumber, receiverPhoneNumber string) error {
	var errs []string

	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		errs = append(errs, "amount must be numeric")
	} else if value.LessThanOrEqual(decimal.Zero) {
		errs = append(errs, "amount must be greater than zero")
	}

	if strings.TrimSpace(senderPhoneNumber) == "" {
		errs = append(errs, "senderPhoneNumber is required")
	}
	if strings.TrimSpace(receiverPhoneNumber) == "" {
		errs = append(errs, "receiverPhoneNumber is required")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}
