package services

import (
	"context"

	"cashora/internal/models"
	"cashora/internal/notify"
)

func (s *TransactionService) dispatch(msg notify.Message) {
	if s.notifier == nil {
		return
	}
	s.notifier.Dispatch(msg)
}

func (s *TransactionService) bankName(ctx context.Context, bankID *string) string {
	if bankID == nil || s.banks == nil {
		return ""
	}
	bank, err := s.banks.GetByID(ctx, *bankID)
	if err != nil {
		s.log.Warn().Err(err).Str("bank_id", *bankID).Msg("bank lookup for notification failed")
		return ""
	}
	return bank.Name
}

func (s *TransactionService) notifySubmitted(ctx context.Context, profile models.Profile, txn models.Transaction) {
	name := profile.DisplayName()
	switch txn.Kind {
	case models.KindDeposit:
		receipt := ""
		if txn.ReceiptPath != nil {
			receipt = *txn.ReceiptPath
		}
		s.dispatch(notify.AdminDeposit(s.adminEmail, name, txn.Amount, receipt))
	case models.KindWithdrawal:
		bank := s.bankName(ctx, txn.BankID)
		s.dispatch(notify.WithdrawalRequested(profile.Email, name, txn.Amount, bank))
		s.dispatch(notify.AdminWithdrawal(s.adminEmail, name, txn.Amount, bank))
	case models.KindSend:
		s.dispatch(notify.SendConfirmation(profile.Email, name, txn.Amount, deref(txn.RecipientEmail)))
	}
}

func (s *TransactionService) notifyFinalized(ctx context.Context, txn models.Transaction) {
	profile, err := s.profiles.GetByID(ctx, txn.UserID)
	if err != nil {
		s.log.Warn().Err(err).Str("transaction_id", txn.ID).Msg("profile lookup for notification failed")
		return
	}
	name := profile.DisplayName()
	if txn.Status == models.StatusRejected {
		s.dispatch(notify.TransactionRejected(profile.Email, name, string(txn.Kind), txn.TotalAmount, deref(txn.RejectReason)))
		return
	}
	switch txn.Kind {
	case models.KindDeposit:
		s.dispatch(notify.DepositApproved(profile.Email, name, txn.Amount))
	case models.KindWithdrawal:
		s.dispatch(notify.WithdrawalApproved(profile.Email, name, txn.Amount, s.bankName(ctx, txn.BankID)))
	case models.KindSend:
		recipient := deref(txn.RecipientEmail)
		recipientName := recipient
		if other, err := s.profiles.GetByEmail(ctx, recipient); err == nil {
			recipientName = other.DisplayName()
		}
		s.dispatch(notify.MoneyReceived(recipient, recipientName, txn.Amount, profile.Email))
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
