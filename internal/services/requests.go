package services

import (
	"strings"

	"cashora/internal/models"
	"cashora/internal/validator"
)

// SubmitRequest is one of DepositRequest, WithdrawalRequest or SendRequest.
type SubmitRequest interface {
	Kind() models.Kind
	common() RequestBase
	validate() error
	apply(txn *models.Transaction)
}

// MaxAmount caps a single request at one billion in major units.
const MaxAmount int64 = 100_000_000_000

type RequestBase struct {
	UserID          string
	Amount          int64
	ClientRequestID *string
}

func (b RequestBase) common() RequestBase { return b }

func (b RequestBase) validateBase() error {
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if b.Amount > MaxAmount {
		return ErrAmountTooLarge
	}
	if b.ClientRequestID != nil && strings.TrimSpace(*b.ClientRequestID) == "" {
		return invalid("client_request_id", "must not be blank")
	}
	return nil
}

type DepositRequest struct {
	RequestBase
	DepositorName string
	// ReceiptPath references the uploaded receipt in blob storage.
	ReceiptPath string
}

func (DepositRequest) Kind() models.Kind { return models.KindDeposit }

func (r DepositRequest) validate() error {
	if err := r.validateBase(); err != nil {
		return err
	}
	if validator.ValidateName(r.DepositorName) != nil {
		return invalid("full_name", "depositor name is required")
	}
	if strings.TrimSpace(r.ReceiptPath) == "" {
		return invalid("receipt_path", "receipt is required")
	}
	return nil
}

func (r DepositRequest) apply(txn *models.Transaction) {
	name := strings.TrimSpace(r.DepositorName)
	receipt := strings.TrimSpace(r.ReceiptPath)
	txn.DepositorName = &name
	txn.ReceiptPath = &receipt
}

type WithdrawalRequest struct {
	RequestBase
	BankID        string
	AccountHolder string
	AccountNumber string
}

func (WithdrawalRequest) Kind() models.Kind { return models.KindWithdrawal }

func (r WithdrawalRequest) validate() error {
	if err := r.validateBase(); err != nil {
		return err
	}
	if strings.TrimSpace(r.BankID) == "" {
		return invalid("bank_id", "bank is required")
	}
	if validator.ValidateName(r.AccountHolder) != nil {
		return invalid("account_holder", "account holder is required")
	}
	if validator.ValidateAccountNumber(r.AccountNumber) != nil {
		return invalid("account_number", "account number must be 6 to 34 digits")
	}
	return nil
}

func (r WithdrawalRequest) apply(txn *models.Transaction) {
	bankID := strings.TrimSpace(r.BankID)
	holder := strings.TrimSpace(r.AccountHolder)
	number := validator.NormalizeAccountNumber(r.AccountNumber)
	txn.BankID = &bankID
	txn.AccountHolder = &holder
	txn.AccountNumber = &number
}

type SendRequest struct {
	RequestBase
	RecipientEmail string
}

func (SendRequest) Kind() models.Kind { return models.KindSend }

func (r SendRequest) validate() error {
	if err := r.validateBase(); err != nil {
		return err
	}
	if validator.ValidateEmail(strings.TrimSpace(r.RecipientEmail)) != nil {
		return invalid("recipient_email", "a valid recipient email is required")
	}
	return nil
}

func (r SendRequest) apply(txn *models.Transaction) {
	email := strings.ToLower(strings.TrimSpace(r.RecipientEmail))
	txn.RecipientEmail = &email
}
