package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/djonanko/payin-service/internal/adapter/repository/repo_interfaces"
	"github.com/djonanko/payin-service/internal/domain"
	"github.com/djonanko/payin-service/internal/logger"
	"github.com/djonanko/payin-service/internal/metrics"
)

// BillingService runs the recurring premium cycle. DebitSubscriptions bills
// every activated premium account on the monthly debit day and
// ResetPremiumStatus reopens the cohort the day before. A failure on one
// account never stops the rest of the cohort.
type BillingService struct {
	ledger            repo_interfaces.LedgerClient
	subscriptionPrice decimal.Decimal
	workers           int
}

func NewBillingService(ledger repo_interfaces.LedgerClient, subscriptionPrice string, workers int) *BillingService {
	price, err := decimal.NewFromString(subscriptionPrice)
	if err != nil {
		price = decimal.RequireFromString("2000")
	}
	if workers <= 0 {
		workers = 1
	}
	return &BillingService{ledger: ledger, subscriptionPrice: price, workers: workers}
}

// DebitSubscriptions charges the monthly price to every premium account
// whose premiumActivated flag is set and books the revenue on the
// collection ledger. Per-account errors are logged and counted only.
func (b *BillingService) DebitSubscriptions(ctx context.Context) error {
	accounts, err := b.ledger.GetPremiumUsers(ctx)
	if err != nil {
		logger.Error("billing service premium cohort fetch failed", err, nil)
		return err
	}

	logger.Info("billing service debit subscriptions", logger.Fields{
		"accounts": len(accounts),
	})

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.workers)

	for _, account := range accounts {
		if !account.PremiumActivated {
			continue
		}
		account := account
		group.Go(func() error {
			if err := b.debitAccount(ctx, account); err != nil {
				logger.Error("billing service account debit failed", err, logger.Fields{
					"numero": account.PhoneNumber,
				})
				metrics.BillingAccountsTotal.WithLabelValues("debit", "FAILED").Inc()
				return nil
			}
			metrics.BillingAccountsTotal.WithLabelValues("debit", "SUCCESS").Inc()
			return nil
		})
	}

	return group.Wait()
}

func (b *BillingService) debitAccount(ctx context.Context, account domain.Account) error {
	balance, err := decimal.NewFromString(account.Balance)
	if err != nil {
		return fmt.Errorf("parse balance for %s: %w", account.PhoneNumber, err)
	}
	if balance.LessThan(b.subscriptionPrice) {
		return domain.ErrInsufficientBalance
	}

	debit, err := b.ledger.UpdateUser(ctx, account.ID, domain.AccountPatch{
		Balance:          stringPtr(balance.Sub(b.subscriptionPrice).String()),
		PremiumActivated: boolPtr(true),
	})
	if err != nil {
		return err
	}
	if debit.Affected != 1 {
		return fmt.Errorf("%w: subscription debit not applied", domain.ErrLedgerOperation)
	}

	if _, err := b.ledger.CreateHistory(ctx, domain.NewHistoryEntry{
		Sender:               &account,
		Receiver:             &account,
		SenderIdentifier:     account.ID,
		ReceiverIdentifier:   account.ID,
		ReferenceTransaction: string(domain.TransactionTypeSubscription),
		TransactionType:      string(domain.TransactionTypeSubscription),
		Amount:               b.subscriptionPrice.String(),
		Fees:                 "0",
		Status:               "SUCCESS",
		Icon:                 "sync",
	}); err != nil {
		return err
	}

	return b.ledger.CreateCollectEntry(ctx, domain.CollectEntry{
		Amount:      b.subscriptionPrice.String(),
		CollectType: domain.CollectTypeSubscription,
	})
}

// ResetPremiumStatus clears premiumActivated across the premium cohort so
// the next debit day sees a fresh slate.
func (b *BillingService) ResetPremiumStatus(ctx context.Context) error {
	accounts, err := b.ledger.ResetPremiumStatus(ctx)
	if err != nil {
		logger.Error("billing service premium reset fetch failed", err, nil)
		return err
	}

	logger.Info("billing service reset premium status", logger.Fields{
		"accounts": len(accounts),
	})

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(b.workers)

	for _, account := range accounts {
		account := account
		group.Go(func() error {
			if _, err := b.ledger.UpdateUser(ctx, account.ID, domain.AccountPatch{
				PremiumActivated: boolPtr(false),
			}); err != nil {
				logger.Error("billing service premium reset failed", err, logger.Fields{
					"numero": account.PhoneNumber,
				})
				metrics.BillingAccountsTotal.WithLabelValues("reset", "FAILED").Inc()
				return nil
			}
			metrics.BillingAccountsTotal.WithLabelValues("reset", "SUCCESS").Inc()
			return nil
		})
	}

	return group.Wait()
}
