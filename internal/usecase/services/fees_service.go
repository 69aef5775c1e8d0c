package services

import "github.com/shopspring/decimal"

// Fee rates are fixed product values: 1% on standard transfers, 0.5% for
// premium senders. TotalWithFees keeps the historical waiver behavior where
// a premium sender pays no markup on the quoted total.
var (
	standardFeeRate = decimal.RequireFromString("0.01")
	premiumFeeRate  = decimal.RequireFromString("0.005")
)

type FeesService struct{}

func NewFeesService() *FeesService {
	return &FeesService{}
}

// TotalWithFees returns the amount a sender is quoted for a transfer. When
// waive is set the amount passes through unchanged; otherwise the standard
// 1% fee is added on top.
func (s *FeesService) TotalWithFees(amount decimal.Decimal, waive bool) decimal.Decimal {
	if waive {
		return amount
	}
	return amount.Add(amount.Mul(standardFeeRate))
}

// FeeForTier returns the fee booked on the payment record: 0.5% for premium
// senders, 1% otherwise.
func (s *FeesService) FeeForTier(amount decimal.Decimal, premium bool) decimal.Decimal {
	if premium {
		return amount.Mul(premiumFeeRate)
	}
	return amount.Mul(standardFeeRate)
}
