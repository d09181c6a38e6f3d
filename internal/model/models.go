package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PayorRole identifies which side of a loan a party is on.
type PayorRole int

const (
	RoleBorrower PayorRole = 1
	RoleLender   PayorRole = 2
)

func (r PayorRole) String() string {
	switch r {
	case RoleBorrower:
		return "borrower"
	case RoleLender:
		return "lender"
	default:
		return "unknown"
	}
}

// NotificationStatus is the lifecycle state of a scheduled reminder.
// Transitions are PENDING -> SENT or PENDING -> FAILED, never back.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusFailed  NotificationStatus = "FAILED"
)

// Defaults applied when a rule omits them.
const (
	DefaultNotificationType = "payment_reminder"
	DefaultDeliveryMethod   = "email"
	DefaultIntervalDays     = 7
)

// ScheduleEntry is one expected payment instance on a loan's amortization
// schedule. Owned by the loan-servicing domain; this service only reads it.
type ScheduleEntry struct {
	ID        int64           `db:"id" json:"id"`
	LoanNo    string          `db:"loan_no" json:"loanNo"`
	SPNo      int             `db:"sp_no" json:"spNo"`
	DueDate   time.Time       `db:"due_date" json:"dueDate"`
	DueAmount decimal.Decimal `db:"due_amount" json:"dueAmount"`
	PayorRole PayorRole       `db:"payor_role" json:"payorRole"`
	IsActive  bool            `db:"is_active" json:"isActive"`
}

// Payment links to a ScheduleEntry once it has been paid. A matching payment
// row marks the entry satisfied; no payment row means the entry is still due.
type Payment struct {
	ID         int64           `db:"id" json:"id"`
	ScheduleID int64           `db:"schedule_id" json:"scheduleId"`
	Amount     decimal.Decimal `db:"amount" json:"amount"`
	PaidAt     time.Time       `db:"paid_at" json:"paidAt"`
}

// NotificationRule configures who gets reminded about which loan, how, and
// how far ahead of the due date. At most one rule may exist per
// (user, loan, notification type) tuple.
type NotificationRule struct {
	ID               int64     `db:"id" json:"id"`
	UserID           int64     `db:"user_id" json:"userId"`
	LoanNo           string    `db:"loan_no" json:"loanNo"`
	Email            string    `db:"email" json:"email"`
	NotificationType string    `db:"notification_type" json:"notificationType"`
	DeliveryMethod   string    `db:"delivery_method" json:"deliveryMethod"`
	IsEnabled        bool      `db:"is_enabled" json:"isEnabled"`
	IntervalDays     int       `db:"interval_days" json:"intervalDays"`
	CreatedBy        int64     `db:"created_by" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}

// Notification is one concrete reminder instance, linked to both the rule
// that requested it and the schedule entry it reminds about.
type Notification struct {
	ID                int64              `db:"id" json:"id"`
	RuleID            int64              `db:"rule_id" json:"ruleId"`
	ScheduleID        int64              `db:"schedule_id" json:"scheduleId"`
	Status            NotificationStatus `db:"status" json:"status"`
	ScheduledSendTime time.Time          `db:"scheduled_send_time" json:"scheduledSendTime"`
	ActualSendTime    *time.Time         `db:"actual_send_time" json:"actualSendTime,omitempty"`
	CreatedAt         time.Time          `db:"created_at" json:"createdAt"`
}

// DueReminder is the dispatch view of a due notification: the notification
// row joined to its rule, schedule entry, and recipient context.
type DueReminder struct {
	NotificationID   int64           `db:"notification_id" json:"notificationId"`
	RuleID           int64           `db:"rule_id" json:"ruleId"`
	Email            string          `db:"email" json:"email"`
	RecipientName    string          `db:"recipient_name" json:"recipientName"`
	LoanNo           string          `db:"loan_no" json:"loanNo"`
	LoanNickname     string          `db:"loan_nickname" json:"loanNickname"`
	SPNo             int             `db:"sp_no" json:"spNo"`
	DueDate          time.Time       `db:"due_date" json:"dueDate"`
	DueAmount        decimal.Decimal `db:"due_amount" json:"dueAmount"`
	Role             PayorRole       `db:"role" json:"role"`
	NotificationType string          `db:"notification_type" json:"notificationType"`
}

// RunSummary reports the outcome of one dispatcher run.
type RunSummary struct {
	RunID     uuid.UUID `json:"runId"`
	Processed int       `json:"processedCount"`
	Sent      int       `json:"sentCount"`
	Failed    int       `json:"failedCount"`
	Scheduled int       `json:"scheduledCount"`
}
