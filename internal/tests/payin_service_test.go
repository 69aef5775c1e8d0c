package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/djonanko/payin-service/internal/adapter/http/models"
	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/usecase/services"
)

const (
	senderNumber      = "0707000001"
	receiverNumber    = "0707000002"
	reservationNumber = "0700000001"
	collectionNumber  = "0700000002"
)

func newPayinFixture(senderBalance string) (*services.PayinService, *fakeLedger, *fakePaymentRepo) {
	ledger := newFakeLedger(
		domain.Account{ID: "u-sender", PhoneNumber: senderNumber, FullName: "Awa Kone", Balance: senderBalance, ExpoPushToken: "tok-sender"},
		domain.Account{ID: "u-receiver", PhoneNumber: receiverNumber, FullName: "Moussa Diarra", Balance: "200", ExpoPushToken: "tok-receiver"},
		domain.Account{ID: "u-resv", PhoneNumber: reservationNumber, Balance: "0"},
		domain.Account{ID: "u-coll", PhoneNumber: collectionNumber, Balance: "0"},
	)
	repo := newFakePaymentRepo()
	svc := services.NewPayinService(repo, ledger, services.NewFeesService(), reservationNumber, collectionNumber)
	return svc, ledger, repo
}

func TestPayinServiceProcessPaymentSuccess(t *testing.T) {
	svc, ledger, repo := newPayinFixture("1000")

	err := svc.ProcessPayment(context.Background(), models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if got := ledger.balance(senderNumber); got != "899" {
		t.Fatalf("expected sender balance 899, got %s", got)
	}
	if got := ledger.balance(receiverNumber); got != "300" {
		t.Fatalf("expected receiver balance 300, got %s", got)
	}
	if got := ledger.balance(reservationNumber); got != "0" {
		t.Fatalf("expected reservation pool back to 0, got %s", got)
	}
	if got := ledger.balance(collectionNumber); got != "1" {
		t.Fatalf("expected collection pool 1, got %s", got)
	}

	records, err := repo.List(context.Background())
	if err != nil || len(records) != 1 {
		t.Fatalf("expected one payment record, got %d (%v)", len(records), err)
	}
	if records[0].Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected record status SUCCESS, got %s", records[0].Status)
	}
	if records[0].Fees != "1" {
		t.Fatalf("expected booked fee 1, got %s", records[0].Fees)
	}

	if len(ledger.collects) != 1 || ledger.collects[0].CollectType != domain.CollectTypeFees {
		t.Fatalf("expected one FRAIS collect entry, got %+v", ledger.collects)
	}
	if len(ledger.notifications) != 2 {
		t.Fatalf("expected both parties notified, got %d", len(ledger.notifications))
	}
}

func TestPayinServiceInitializePaymentReceiverNotFound(t *testing.T) {
	svc, _, repo := newPayinFixture("1000")

	result, err := svc.InitializePayment(context.Background(), models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: "0000000000",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Status != models.QueryStatusNotFound {
		t.Fatalf("expected NOT_FOUND, got %s", result.Status)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected no record for unknown receiver, got %d", len(records))
	}
}

func TestPayinServiceDebitPaymentInsufficientFunds(t *testing.T) {
	svc, ledger, repo := newPayinFixture("50")
	ctx := context.Background()

	initResult, err := svc.InitializePayment(ctx, models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	debitResult, err := svc.DebitPayment(ctx, models.PaymentDebitRequest{
		Payment:        *initResult.Payment,
		Transaction:    *initResult.Transaction,
		History:        *initResult.History,
		Amount:         initResult.Amount,
		SenderInfos:    *initResult.SenderInfos,
		Fees:           initResult.Fees,
		ReceiverNumber: initResult.ReceiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if debitResult.Status != models.QueryStatusInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %s", debitResult.Status)
	}

	if got := ledger.balance(senderNumber); got != "50" {
		t.Fatalf("expected sender balance untouched at 50, got %s", got)
	}
	if got := repo.status(initResult.Payment.Reference); got != domain.PaymentStatusFailed {
		t.Fatalf("expected record FAILED, got %s", got)
	}
}

func TestPayinServiceProcessPaymentStopsQuietlyOnBusinessFailure(t *testing.T) {
	svc, ledger, _ := newPayinFixture("50")

	// A business outcome is not a delivery failure; the queue must not see
	// an error it would retry.
	err := svc.ProcessPayment(context.Background(), models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error for insufficient funds, got %v", err)
	}
	if got := ledger.balance(receiverNumber); got != "200" {
		t.Fatalf("expected receiver untouched at 200, got %s", got)
	}
}

func TestPayinServiceMakeSubscriptionInsufficientBalance(t *testing.T) {
	svc, ledger, repo := newPayinFixture("1500")

	result, err := svc.MakeSubscription(context.Background(), models.MakeSubscriptionRequest{
		Amount:              "2000",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if result.Status != models.QueryStatusInsufficientFunds {
		t.Fatalf("expected INSUFFICIENT_FUNDS, got %s", result.Status)
	}

	if got := ledger.balance(senderNumber); got != "1500" {
		t.Fatalf("expected sender balance untouched at 1500, got %s", got)
	}
	records, _ := repo.List(context.Background())
	if len(records) != 0 {
		t.Fatalf("expected no record before the balance check passes, got %d", len(records))
	}
}

func TestPayinServiceMakeSubscriptionActivatesPremium(t *testing.T) {
	svc, ledger, repo := newPayinFixture("5000")

	result, err := svc.MakeSubscription(context.Background(), models.MakeSubscriptionRequest{
		Amount:              "2000",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Status != models.QueryStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}

	if got := ledger.balance(senderNumber); got != "3000" {
		t.Fatalf("expected sender balance 3000, got %s", got)
	}
	if got := ledger.balance(collectionNumber); got != "2000" {
		t.Fatalf("expected collection pool 2000, got %s", got)
	}

	sender, err := ledger.GetUser(context.Background(), senderNumber)
	if err != nil {
		t.Fatalf("expected sender to exist, got %v", err)
	}
	if !sender.Premium || !sender.PremiumActivated {
		t.Fatalf("expected premium flags set, got %+v", sender)
	}

	records, _ := repo.List(context.Background())
	if len(records) != 1 || records[0].Status != domain.PaymentStatusSuccess {
		t.Fatalf("expected one SUCCESS record, got %+v", records)
	}
	if len(ledger.collects) != 1 || ledger.collects[0].CollectType != domain.CollectTypeSubscription {
		t.Fatalf("expected one ABONNEMENT collect entry, got %+v", ledger.collects)
	}
}

func TestPayinServiceValidatePaymentRequestUnauthorized(t *testing.T) {
	svc, ledger, repo := newPayinFixture("1000")
	ctx := context.Background()

	record, err := svc.CreatePaymentRequest(ctx, models.PaymentRequestRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	intruder := domain.Account{ID: "u-receiver", PhoneNumber: receiverNumber}
	_, err = svc.ValidatePaymentRequest(ctx, record.Reference, intruder)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	if got := ledger.balance(senderNumber); got != "1000" {
		t.Fatalf("expected sender balance untouched at 1000, got %s", got)
	}
	if got := repo.status(record.Reference); got != domain.PaymentStatusRequestPending {
		t.Fatalf("expected record still PAYMENT_REQUEST_PENDING, got %s", got)
	}
}

func TestPayinServiceValidatePaymentRequestSuccess(t *testing.T) {
	svc, ledger, repo := newPayinFixture("1000")
	ctx := context.Background()

	record, err := svc.CreatePaymentRequest(ctx, models.PaymentRequestRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if record.Fees != "0" {
		t.Fatalf("expected payment request fees 0, got %s", record.Fees)
	}

	payer := domain.Account{ID: "u-sender", PhoneNumber: senderNumber}
	result, err := svc.ValidatePaymentRequest(ctx, record.Reference, payer)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if result.Status != models.QueryStatusSuccess {
		t.Fatalf("expected SUCCESS, got %s", result.Status)
	}

	if got := ledger.balance(senderNumber); got != "900" {
		t.Fatalf("expected sender balance 900, got %s", got)
	}
	if got := ledger.balance(receiverNumber); got != "300" {
		t.Fatalf("expected receiver balance 300, got %s", got)
	}
	if got := repo.status(record.Reference); got != domain.PaymentStatusRequestSuccess {
		t.Fatalf("expected PAYMENT_REQUEST_SUCCESS, got %s", got)
	}
}

func TestPayinServiceListPendingRequestsForMerchant(t *testing.T) {
	svc, _, _ := newPayinFixture("1000")
	ctx := context.Background()

	if _, err := svc.CreatePaymentRequest(ctx, models.PaymentRequestRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	pending, err := svc.ListPendingRequestsForMerchant(ctx, receiverNumber)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected one pending request, got %d", len(pending))
	}

	none, err := svc.ListPendingRequestsForMerchant(ctx, "0799999999")
	if err != nil || len(none) != 0 {
		t.Fatalf("expected no pending requests for other merchant, got %d (%v)", len(none), err)
	}
}

func TestPayinServiceReferralBonusAwardedOnce(t *testing.T) {
	svc, ledger, _ := newPayinFixture("1000")
	ledger.accounts["0707000099"] = &domain.Account{ID: "u-host", PhoneNumber: "0707000099", Balance: "0", ReferralPoints: 100}
	ledger.referrals["u-sender"] = &domain.Referral{ID: "ref-1", UserID: "u-sender", HostID: "u-host", IsNew: true}
	ctx := context.Background()

	if err := svc.ProcessPayment(ctx, models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	host, err := ledger.GetUserByID(ctx, "u-host")
	if err != nil {
		t.Fatalf("expected host to exist, got %v", err)
	}
	if host.ReferralPoints != 600 {
		t.Fatalf("expected host points 600 after bonus, got %d", host.ReferralPoints)
	}

	if err := svc.ProcessPayment(ctx, models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	host, _ = ledger.GetUserByID(ctx, "u-host")
	if host.ReferralPoints != 600 {
		t.Fatalf("expected no second bonus, got %d", host.ReferralPoints)
	}
}

func TestPayinServiceRedeliveryCreatesSecondRecord(t *testing.T) {
	svc, _, repo := newPayinFixture("1000")
	ctx := context.Background()
	req := models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	}

	// A redelivered job replays the whole chain; there is no idempotency
	// key, so the second run books a fresh record under a new reference.
	if err := svc.ProcessPayment(ctx, req); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if err := svc.ProcessPayment(ctx, req); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	records, _ := repo.List(ctx)
	if len(records) != 2 {
		t.Fatalf("expected two records after redelivery, got %d", len(records))
	}
	if records[0].Reference == records[1].Reference {
		t.Fatalf("expected distinct references, both %s", records[0].Reference)
	}
}

func TestPayinServiceSendPaymentFailureMarksWithoutReversal(t *testing.T) {
	svc, ledger, repo := newPayinFixture("1000")
	ctx := context.Background()

	initResult, err := svc.InitializePayment(ctx, models.MakePaymentRequest{
		Amount:              "100",
		SenderPhoneNumber:   senderNumber,
		ReceiverPhoneNumber: receiverNumber,
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	debitResult, err := svc.DebitPayment(ctx, models.PaymentDebitRequest{
		Payment:        *initResult.Payment,
		Transaction:    *initResult.Transaction,
		History:        *initResult.History,
		Amount:         initResult.Amount,
		SenderInfos:    *initResult.SenderInfos,
		Fees:           initResult.Fees,
		ReceiverNumber: initResult.ReceiverNumber,
	})
	if err != nil || debitResult.Status != models.QueryStatusSuccess {
		t.Fatalf("expected successful debit, got %s (%v)", debitResult.Status, err)
	}

	ledger.failUpdateUserID = "u-receiver"
	result, err := svc.SendPayment(ctx, models.PaymentExecRequest{
		SenderInfos:    *debitResult.SenderInfos,
		Reservation:    *debitResult.Reservation,
		ReceiverNumber: debitResult.ReceiverNumber,
		Amount:         debitResult.Amount,
		Payment:        *debitResult.Payment,
		Transaction:    *debitResult.Transaction,
		Fees:           debitResult.Fees,
		History:        *initResult.History,
	})
	if err == nil {
		t.Fatal("expected error when receiver credit fails")
	}
	if result.Status != models.QueryStatusError {
		t.Fatalf("expected ERROR, got %s", result.Status)
	}

	// The sender debit stays applied; only the record and audit rows are
	// flipped FAILED.
	if got := ledger.balance(senderNumber); got != "899" {
		t.Fatalf("expected sender debit kept at 899, got %s", got)
	}
	if got := ledger.balance(receiverNumber); got != "200" {
		t.Fatalf("expected receiver untouched at 200, got %s", got)
	}
	if got := repo.status(initResult.Payment.Reference); got != domain.PaymentStatusFailed {
		t.Fatalf("expected record FAILED, got %s", got)
	}
	if got := ledger.transactions[initResult.Transaction.ID].Status; got != "FAILED" {
		t.Fatalf("expected transaction FAILED, got %s", got)
	}
	if got := ledger.histories[initResult.History.ID].Status; got != "FAILED" {
		t.Fatalf("expected history FAILED, got %s", got)
	}
	if got := ledger.reservations[debitResult.Reservation.ID].TransactionStatus; got != domain.ReservationStatusFailed {
		t.Fatalf("expected reservation FAILED, got %s", got)
	}
}
