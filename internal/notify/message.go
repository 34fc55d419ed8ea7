// Package notify delivers best-effort user and operator notifications.
// Delivery failures are logged and never reach the caller.
package notify

import "context"

type Event string

const (
	EventWelcome             Event = "welcome"
	EventSendConfirmation    Event = "send.confirmation"
	EventMoneyReceived       Event = "send.received"
	EventWithdrawalRequested Event = "withdrawal.requested"
	EventAdminWithdrawal     Event = "admin.withdrawal"
	EventAdminDeposit        Event = "admin.deposit"
	EventDepositApproved     Event = "deposit.approved"
	EventWithdrawalApproved  Event = "withdrawal.approved"
	EventTransactionRejected Event = "transaction.rejected"
)

type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
	Event   Event  `json:"event,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
