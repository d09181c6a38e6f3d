package mailer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/loanserve/backend/internal/model"
)

type capturedSend struct {
	to, subject, html string
}

type fakeSender struct {
	sends []capturedSend
	err   error
}

func (f *fakeSender) Send(_ context.Context, to, subject, html string) error {
	if f.err != nil {
		return f.err
	}
	f.sends = append(f.sends, capturedSend{to, subject, html})
	return nil
}

func testReminder(role model.PayorRole) model.DueReminder {
	return model.DueReminder{
		NotificationID: 21,
		RuleID:         11,
		Email:          "a@x.com",
		RecipientName:  "Ada",
		LoanNo:         "L100",
		LoanNickname:   "Sheri",
		SPNo:           4,
		DueDate:        time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC),
		DueAmount:      decimal.NewFromInt(500),
		Role:           role,
	}
}

func TestReminderMailer_Notify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		role        model.PayorRole
		wantSubject string
		wantInBody  []string
	}{
		{
			name:        "borrower template",
			role:        model.RoleBorrower,
			wantSubject: "Payment Reminder",
			wantInBody:  []string{"Hello Ada", "SP#4", "$500.00", "June 15, 2024", "Sheri"},
		},
		{
			name:        "lender template",
			role:        model.RoleLender,
			wantSubject: "Upcoming Payment Information",
			wantInBody:  []string{"Hello Ada", "Loan to Sheri", "$500.00", "June 15, 2024"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sender := &fakeSender{}
			m := NewReminderMailer(sender)

			err := m.Notify(context.Background(), testReminder(tt.role))

			require.NoError(t, err)
			require.Len(t, sender.sends, 1)
			sent := sender.sends[0]
			assert.Equal(t, "a@x.com", sent.to)
			assert.Equal(t, tt.wantSubject, sent.subject)
			for _, want := range tt.wantInBody {
				assert.Contains(t, sent.html, want)
			}
		})
	}
}

func TestReminderMailer_Notify_UnknownRole(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	m := NewReminderMailer(sender)

	err := m.Notify(context.Background(), testReminder(model.PayorRole(9)))

	assert.Error(t, err)
	assert.Empty(t, sender.sends)
}

func TestReminderMailer_Notify_SenderFailure(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{err: errors.New("smtp down")}
	m := NewReminderMailer(sender)

	err := m.Notify(context.Background(), testReminder(model.RoleBorrower))

	assert.Error(t, err)
}
