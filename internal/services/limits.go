package services

import (
	"errors"
	"fmt"
	"time"

	"cashora/internal/models"
)

type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

var ErrLimitExceeded = errors.New("limit exceeded")

type LimitExceededError struct {
	Period    Period
	Limit     int64
	Used      int64
	Requested int64
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s limit exceeded", e.Period)
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// HistoryEntry is a prior transaction of the same user and kind.
type HistoryEntry struct {
	Amount    int64
	Status    models.Status
	CreatedAt time.Time
}

type limitWindow struct {
	period Period
	span   time.Duration
	cap    *int64
}

// Windows roll back from now; limit_created_at does not anchor them.
func limitWindows(rule *models.LimitRule) []limitWindow {
	if rule == nil {
		return nil
	}
	return []limitWindow{
		{period: PeriodDaily, span: 24 * time.Hour, cap: rule.DailyLimit},
		{period: PeriodWeekly, span: 7 * 24 * time.Hour, cap: rule.WeeklyLimit},
		{period: PeriodMonthly, span: 30 * 24 * time.Hour, cap: rule.MonthlyLimit},
	}
}

func evaluateLimits(rule *models.LimitRule, proposed int64, used func(w limitWindow) (int64, error)) error {
	for _, w := range limitWindows(rule) {
		if w.cap == nil {
			continue
		}
		sum, err := used(w)
		if err != nil {
			return err
		}
		if sum+proposed > *w.cap {
			return &LimitExceededError{Period: w.period, Limit: *w.cap, Used: sum, Requested: proposed}
		}
	}
	return nil
}

// CheckLimits sums the approved entries of history inside each capped window
// ending at now and rejects proposed if any cap would be exceeded.
func CheckLimits(now time.Time, proposed int64, history []HistoryEntry, rule *models.LimitRule) error {
	return evaluateLimits(rule, proposed, func(w limitWindow) (int64, error) {
		since := now.Add(-w.span)
		var sum int64
		for _, entry := range history {
			if entry.Status != models.StatusApproved {
				continue
			}
			if entry.CreatedAt.After(since) && !entry.CreatedAt.After(now) {
				sum += entry.Amount
			}
		}
		return sum, nil
	})
}
