package services

import (
	"cashora/internal/models"
	"cashora/internal/money"
)

// ComputeFee returns the fee in minor units for amount under rule. Percentage
// fees are rounded half-to-even to whole cents; a missing rule charges nothing.
func ComputeFee(amount int64, rule *models.FeeRule) int64 {
	if rule == nil || amount <= 0 {
		return 0
	}
	var fee int64
	switch rule.FeeType {
	case models.FeePercentage:
		fee = money.PercentOf(amount, rule.FeeValue)
	case models.FeeFixed:
		fee = money.FromMajor(rule.FeeValue)
	}
	if fee < 0 {
		return 0
	}
	return fee
}

// TotalCharge is amount plus fee. A sum outside int64 is an invalid amount.
func TotalCharge(amount, fee int64) (int64, error) {
	total, err := money.Add(amount, fee)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	return total, nil
}
