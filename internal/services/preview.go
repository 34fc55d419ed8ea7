package services

import (
	"context"
	"database/sql"
	"errors"

	"cashora/internal/models"

	"golang.org/x/sync/errgroup"
)

// Allowance is what remains of one capped window.
type Allowance struct {
	Period    Period `json:"period"`
	Limit     int64  `json:"limit"`
	Used      int64  `json:"used"`
	Remaining int64  `json:"remaining"`
}

type Quote struct {
	Kind       models.Kind `json:"type"`
	Amount     int64       `json:"amount"`
	Fee        int64       `json:"fee"`
	Total      int64       `json:"total_amount"`
	Balance    int64       `json:"balance"`
	Allowances []Allowance `json:"allowances"`
	// Violation names the first window the amount would exceed.
	Violation *Period `json:"violation,omitempty"`
	// Sufficient is false when the balance cannot cover the escrow.
	Sufficient bool `json:"sufficient"`
}

// Preview prices a submission without recording anything. The result is
// advisory; Submit re-checks everything under lock.
func (s *TransactionService) Preview(ctx context.Context, userID string, kind models.Kind, amount int64) (Quote, error) {
	if userID == "" {
		return Quote{}, ErrNotAuthenticated
	}
	if amount <= 0 {
		return Quote{}, ErrInvalidAmount
	}
	if amount > MaxAmount {
		return Quote{}, ErrAmountTooLarge
	}
	if _, ok := models.ParseKind(string(kind)); !ok {
		return Quote{}, invalid("type", "unknown transaction type")
	}

	var (
		profile   models.Profile
		feeRule   *models.FeeRule
		limitRule *models.LimitRule
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.profiles.GetByID(gctx, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotAuthenticated
		}
		return err
	})
	g.Go(func() error {
		var err error
		feeRule, err = s.fees.Get(gctx, nil, userID, kind)
		return err
	})
	g.Go(func() error {
		var err error
		limitRule, err = s.limits.Get(gctx, nil, userID, kind)
		return err
	})
	if err := g.Wait(); err != nil {
		return Quote{}, err
	}
	if profile.Status != models.StatusApproved {
		return Quote{}, ErrAccountNotApproved
	}

	now := s.now().UTC()
	windows := limitWindows(limitRule)
	used := make([]int64, len(windows))
	g, gctx = errgroup.WithContext(ctx)
	for i, w := range windows {
		if w.cap == nil {
			continue
		}
		i, w := i, w
		g.Go(func() error {
			sum, err := s.transactions.SumApprovedSince(gctx, nil, userID, kind, now.Add(-w.span))
			if err != nil {
				return err
			}
			used[i] = sum
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Quote{}, err
	}

	fee := ComputeFee(amount, feeRule)
	total, err := TotalCharge(amount, fee)
	if err != nil {
		return Quote{}, err
	}
	quote := Quote{
		Kind:       kind,
		Amount:     amount,
		Fee:        fee,
		Total:      total,
		Balance:    profile.Balance,
		Allowances: []Allowance{},
		Sufficient: true,
	}
	if kind.Debits() && profile.Balance < quote.Total {
		quote.Sufficient = false
	}
	for i, w := range windows {
		if w.cap == nil {
			continue
		}
		remaining := *w.cap - used[i]
		if remaining < 0 {
			remaining = 0
		}
		quote.Allowances = append(quote.Allowances, Allowance{Period: w.period, Limit: *w.cap, Used: used[i], Remaining: remaining})
		if quote.Violation == nil && used[i]+amount > *w.cap {
			period := w.period
			quote.Violation = &period
		}
	}
	return quote, nil
}
