package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Kind string

const (
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindSend       Kind = "send"
)

// ParseKind accepts the stored kind names plus "sending", which older limit
// rows used for the send flow.
func ParseKind(raw string) (Kind, bool) {
	switch raw {
	case "deposit":
		return KindDeposit, true
	case "withdrawal":
		return KindWithdrawal, true
	case "send", "sending":
		return KindSend, true
	default:
		return "", false
	}
}

// Debits reports whether the kind escrows funds at submission.
func (k Kind) Debits() bool {
	return k == KindWithdrawal || k == KindSend
}

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Profile struct {
	ID           string     `db:"id" json:"id"`
	Username     string     `db:"username" json:"username"`
	Email        string     `db:"email" json:"email"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	PasswordHash string     `db:"password_hash" json:"-"`
	IDCardPath   *string    `db:"id_card_path" json:"id_card_path,omitempty"`
	Balance      int64      `db:"balance" json:"balance"`
	Status       Status     `db:"status" json:"status"`
	Role         string     `db:"role" json:"role"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	PlaceOfBirth *string    `db:"place_of_birth" json:"place_of_birth,omitempty"`
	Residence    *string    `db:"residence" json:"residence,omitempty"`
	Nationality  *string    `db:"nationality" json:"nationality,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

func (p Profile) DisplayName() string {
	name := p.FirstName
	if p.LastName != "" {
		if name != "" {
			name += " "
		}
		name += p.LastName
	}
	if name == "" {
		return p.Username
	}
	return name
}

type FeeType string

const (
	FeePercentage FeeType = "percentage"
	FeeFixed      FeeType = "fixed"
)

type FeeRule struct {
	ID              string          `db:"id" json:"id"`
	UserID          string          `db:"user_id" json:"user_id"`
	TransactionType Kind            `db:"transaction_type" json:"transaction_type"`
	FeeType         FeeType         `db:"fee_type" json:"fee_type"`
	FeeValue        decimal.Decimal `db:"fee_value" json:"fee_value"`
	UpdatedAt       time.Time       `db:"updated_at" json:"updated_at"`
}

// LimitRule caps are in minor units; nil means unlimited.
type LimitRule struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	TransactionType Kind      `db:"transaction_type" json:"transaction_type"`
	DailyLimit      *int64    `db:"daily_limit" json:"daily_limit"`
	WeeklyLimit     *int64    `db:"weekly_limit" json:"weekly_limit"`
	MonthlyLimit    *int64    `db:"monthly_limit" json:"monthly_limit"`
	LimitCreatedAt  time.Time `db:"limit_created_at" json:"limit_created_at"`
}

type Transaction struct {
	ID              string     `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"user_id"`
	Kind            Kind       `db:"type" json:"type"`
	Amount          int64      `db:"amount" json:"amount"`
	Fee             int64      `db:"fee" json:"fee"`
	TotalAmount     int64      `db:"total_amount" json:"total_amount"`
	Status          Status     `db:"status" json:"status"`
	BankID          *string    `db:"bank_id" json:"bank_id,omitempty"`
	AccountHolder   *string    `db:"account_holder" json:"account_holder,omitempty"`
	AccountNumber   *string    `db:"account_number" json:"account_number,omitempty"`
	RecipientEmail  *string    `db:"recipient_email" json:"recipient_email,omitempty"`
	ReceiptPath     *string    `db:"receipt_path" json:"receipt_path,omitempty"`
	DepositorName   *string    `db:"full_name" json:"full_name,omitempty"`
	ClientRequestID *string    `db:"client_request_id" json:"client_request_id,omitempty"`
	RejectReason    *string    `db:"reject_reason" json:"reject_reason,omitempty"`
	DecidedBy       *string    `db:"decided_by" json:"decided_by,omitempty"`
	DecidedAt       *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

type Bank struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type LedgerEntry struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	TransactionID *string   `db:"transaction_id" json:"transaction_id,omitempty"`
	Amount        int64     `db:"amount" json:"amount"`
	Description   string    `db:"description" json:"description"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
