package handlers

import (
	"errors"
	"strings"
	"time"

	"cashora/internal/models"
	"cashora/internal/money"
	"cashora/internal/store"

	"github.com/shopspring/decimal"
)

var errInvalidAmount = errors.New("invalid amount")
var errInvalidFee = errors.New("invalid fee")

func parseAmountMinor(raw string) (int64, error) {
	amount, err := money.ParseMinor(strings.TrimSpace(raw))
	if err != nil || amount <= 0 {
		return 0, errInvalidAmount
	}
	return amount, nil
}

// parseOptionalLimit treats null and "" as no cap.
func parseOptionalLimit(raw *string) (*int64, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	value, err := money.ParseMinor(strings.TrimSpace(*raw))
	if err != nil || value < 0 {
		return nil, errInvalidAmount
	}
	return &value, nil
}

func parseFeeValue(feeType models.FeeType, raw string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil || value.IsNegative() {
		return decimal.Zero, errInvalidFee
	}
	switch feeType {
	case models.FeePercentage:
		if value.GreaterThan(decimal.NewFromInt(100)) || value.Exponent() < -4 {
			return decimal.Zero, errInvalidFee
		}
	case models.FeeFixed:
		if value.Exponent() < -2 {
			return decimal.Zero, errInvalidFee
		}
	default:
		return decimal.Zero, errInvalidFee
	}
	return value, nil
}

const dateLayout = "2006-01-02"

// kycFields are the optional identity details captured with a profile.
type kycFields struct {
	DateOfBirth  string `json:"date_of_birth"`
	PlaceOfBirth string `json:"place_of_birth"`
	Residence    string `json:"residence"`
	Nationality  string `json:"nationality"`
}

func (k kycFields) apply(input *store.ProfileInput, now time.Time) error {
	if raw := strings.TrimSpace(k.DateOfBirth); raw != "" {
		dob, err := time.Parse(dateLayout, raw)
		if err != nil {
			return errors.New("date_of_birth must be YYYY-MM-DD")
		}
		if dob.After(now) {
			return errors.New("date_of_birth cannot be in the future")
		}
		input.DateOfBirth = &dob
	}
	input.PlaceOfBirth = optionalText(k.PlaceOfBirth)
	input.Residence = optionalText(k.Residence)
	input.Nationality = optionalText(k.Nationality)
	return nil
}

func optionalText(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
