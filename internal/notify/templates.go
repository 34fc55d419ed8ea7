package notify

import (
	"fmt"
	"html"

	"cashora/internal/money"
)

func dollars(minor int64) string {
	return "$" + money.FormatMinor(minor)
}

func Welcome(to, firstName string) Message {
	return Message{
		To:      to,
		Event:   EventWelcome,
		Subject: "Welcome to Cashora!",
		HTML: fmt.Sprintf(`<h1>Welcome %s!</h1>
<p>Thank you for joining Cashora. We're excited to have you on board.</p>`, html.EscapeString(firstName)),
	}
}

func SendConfirmation(to, senderName string, amount int64, recipientEmail string) Message {
	return Message{
		To:      to,
		Event:   EventSendConfirmation,
		Subject: "Transaction Confirmation",
		HTML: fmt.Sprintf(`<h1>Transaction Submitted</h1>
<p>Dear %s,</p>
<p>Your transfer of %s to %s has been submitted for review.</p>`,
			html.EscapeString(senderName), dollars(amount), html.EscapeString(recipientEmail)),
	}
}

func MoneyReceived(to, recipientName string, amount int64, senderEmail string) Message {
	return Message{
		To:      to,
		Event:   EventMoneyReceived,
		Subject: "You have Received Money!",
		HTML: fmt.Sprintf(`<h1>Money Received</h1>
<p>Dear %s,</p>
<p>You have received %s from %s.</p>`,
			html.EscapeString(recipientName), dollars(amount), html.EscapeString(senderEmail)),
	}
}

func WithdrawalRequested(to, userName string, amount int64, bankName string) Message {
	return Message{
		To:      to,
		Event:   EventWithdrawalRequested,
		Subject: "Withdrawal Request Submitted",
		HTML: fmt.Sprintf(`<h1>Withdrawal Request Received</h1>
<p>Dear %s,</p>
<p>Your withdrawal request for %s to %s has been submitted.</p>
<p>We will process your request shortly.</p>`,
			html.EscapeString(userName), dollars(amount), html.EscapeString(bankName)),
	}
}

func AdminWithdrawal(to, userName string, amount int64, bankName string) Message {
	return Message{
		To:      to,
		Event:   EventAdminWithdrawal,
		Subject: "New Withdrawal Request",
		HTML: fmt.Sprintf(`<h1>New Withdrawal Request</h1>
<p>User %s has requested a withdrawal of %s to %s.</p>
<p>Please review and process this request.</p>`,
			html.EscapeString(userName), dollars(amount), html.EscapeString(bankName)),
	}
}

// AdminDeposit links the receipt when one was uploaded.
func AdminDeposit(to, userName string, amount int64, receiptURL string) Message {
	receipt := ""
	if receiptURL != "" {
		receipt = fmt.Sprintf("\n<p>Receipt: <a href=\"%s\">View Receipt</a></p>", html.EscapeString(receiptURL))
	}
	return Message{
		To:      to,
		Event:   EventAdminDeposit,
		Subject: "New Deposit Request",
		HTML: fmt.Sprintf(`<h1>New Deposit Request</h1>
<p>User %s has submitted a deposit of %s.</p>%s
<p>Please review and process this request.</p>`,
			html.EscapeString(userName), dollars(amount), receipt),
	}
}

func DepositApproved(to, userName string, amount int64) Message {
	return Message{
		To:      to,
		Event:   EventDepositApproved,
		Subject: "Deposit Approved",
		HTML: fmt.Sprintf(`<h1>Deposit Approved</h1>
<p>Dear %s,</p>
<p>Your deposit of %s has been approved and added to your account.</p>`,
			html.EscapeString(userName), dollars(amount)),
	}
}

func WithdrawalApproved(to, userName string, amount int64, bankName string) Message {
	return Message{
		To:      to,
		Event:   EventWithdrawalApproved,
		Subject: "Withdrawal Approved",
		HTML: fmt.Sprintf(`<h1>Withdrawal Approved</h1>
<p>Dear %s,</p>
<p>Your withdrawal request for %s to %s has been approved.</p>
<p>The funds will be transferred to your account shortly.</p>`,
			html.EscapeString(userName), dollars(amount), html.EscapeString(bankName)),
	}
}

func TransactionRejected(to, userName, kind string, amount int64, reason string) Message {
	body := fmt.Sprintf(`<h1>Request Rejected</h1>
<p>Dear %s,</p>
<p>Your %s request for %s was rejected.</p>`,
		html.EscapeString(userName), html.EscapeString(kind), dollars(amount))
	if reason != "" {
		body += fmt.Sprintf("\n<p>Reason: %s</p>", html.EscapeString(reason))
	}
	return Message{
		To:      to,
		Event:   EventTransactionRejected,
		Subject: "Request Rejected",
		HTML:    body,
	}
}
