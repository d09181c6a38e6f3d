// Package mailer renders and delivers payment reminder emails. Borrowers and
// lenders receive different copy; the variant is keyed by the recipient's
// payor role so callers never branch on it.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/loanserve/backend/internal/model"
	"github.com/loanserve/backend/pkg/datetime"
)

// Sender delivers one rendered email. Implementations must honor ctx
// cancellation so a hung transport cannot stall a whole batch run.
type Sender interface {
	Send(ctx context.Context, to, subject, html string) error
}

// Notifier is the delivery capability the batch dispatcher depends on.
type Notifier interface {
	Notify(ctx context.Context, reminder model.DueReminder) error
}

const borrowerBody = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
	<p>Hello {{.RecipientName}},<br>
	This is your friendly reminder &ndash; your payment for <b>{{.LoanNickname}}</b> is coming up.</p>
	<div style="background-color: #007F86; color: white; border-radius: 10px; padding: 15px 20px; text-align: center;">
		<span>SP#{{.SPNo}} Amount:</span> ${{.DueAmount}}<br>
		<span>Date Due:</span> {{.DueDate}}
	</div>
	<p>Once your payment is confirmed you&rsquo;ll see it on your dashboard. If you have any questions, just reply to this email.</p>
	<p>Thank you!</p>
</body>
</html>`

const lenderBody = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
	<p>Hello {{.RecipientName}},<br>
	This is your friendly reminder &ndash; you&rsquo;re scheduled to receive a payment for your <b>Loan to {{.LoanNickname}}</b>.</p>
	<div style="background-color: #007F86; color: white; border-radius: 10px; padding: 15px 20px; text-align: center;">
		<span>SP#{{.SPNo}} Amount:</span> ${{.DueAmount}}<br>
		<span>Date Due:</span> {{.DueDate}}
	</div>
	<p>You&rsquo;ll receive another email once confirmation is uploaded to your dashboard. If we don&rsquo;t receive confirmation on time, we&rsquo;ll let you know the following day.</p>
	<p>Thank you!</p>
</body>
</html>`

type reminderTemplate struct {
	subject string
	body    *template.Template
}

type templateData struct {
	RecipientName string
	LoanNickname  string
	SPNo          int
	DueAmount     string
	DueDate       string
}

// ReminderMailer selects a role-keyed template, renders it, and hands the
// result to the Sender.
type ReminderMailer struct {
	sender    Sender
	templates map[model.PayorRole]reminderTemplate
}

func NewReminderMailer(sender Sender) *ReminderMailer {
	return &ReminderMailer{
		sender: sender,
		templates: map[model.PayorRole]reminderTemplate{
			model.RoleBorrower: {
				subject: "Payment Reminder",
				body:    template.Must(template.New("borrower").Parse(borrowerBody)),
			},
			model.RoleLender: {
				subject: "Upcoming Payment Information",
				body:    template.Must(template.New("lender").Parse(lenderBody)),
			},
		},
	}
}

// Notify renders the reminder for its recipient role and sends it. An
// unrecognized role is an error for that reminder only; the dispatcher
// records it as a failed send.
func (m *ReminderMailer) Notify(ctx context.Context, reminder model.DueReminder) error {
	tmpl, ok := m.templates[reminder.Role]
	if !ok {
		return fmt.Errorf("no reminder template for role %d", reminder.Role)
	}

	data := templateData{
		RecipientName: reminder.RecipientName,
		LoanNickname:  reminder.LoanNickname,
		SPNo:          reminder.SPNo,
		DueAmount:     reminder.DueAmount.StringFixed(2),
		DueDate:       datetime.FormatDisplay(reminder.DueDate),
	}

	var buf bytes.Buffer
	if err := tmpl.body.Execute(&buf, data); err != nil {
		return fmt.Errorf("rendering %s reminder: %w", reminder.Role, err)
	}

	if err := m.sender.Send(ctx, reminder.Email, tmpl.subject, buf.String()); err != nil {
		return fmt.Errorf("sending %s reminder to %s: %w", reminder.Role, reminder.Email, err)
	}
	return nil
}
