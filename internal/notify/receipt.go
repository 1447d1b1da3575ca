package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/ashworth-collective/backend-club/internal/common"
	"github.com/ashworth-collective/backend-club/internal/lock"
	"github.com/ashworth-collective/backend-club/internal/member"
	"github.com/ashworth-collective/backend-club/internal/obs"
	"github.com/ashworth-collective/backend-club/internal/registration"
)

// TaskTypeReceiptEmail is the asynq task type for receipt delivery.
const TaskTypeReceiptEmail = "email:receipt"

type receiptPayload struct {
	RegistrationID string `json:"registration_id"`
}

// NewReceiptTask builds the asynq task carrying one registration id.
func NewReceiptTask(registrationID string) (*asynq.Task, error) {
	data, err := json.Marshal(receiptPayload{RegistrationID: registrationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptEmail, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// ReceiptEnqueuer publishes receipt tasks through asynq. It satisfies the
// registration service's enqueuer interface.
type ReceiptEnqueuer struct {
	Client *asynq.Client
}

// EnqueueReceipt schedules receipt delivery for the registration.
func (e ReceiptEnqueuer) EnqueueReceipt(ctx context.Context, registrationID string) error {
	if e.Client == nil || strings.TrimSpace(registrationID) == "" {
		return nil
	}
	task, err := NewReceiptTask(registrationID)
	if err != nil {
		return err
	}
	_, err = e.Client.EnqueueContext(ctx, task)
	return err
}

// ReceiptSource loads registrations for rendering.
type ReceiptSource interface {
	Get(ctx context.Context, registrationID string) (registration.Registration, error)
}

// MemberSource resolves recipient addresses.
type MemberSource interface {
	Get(ctx context.Context, id string) (member.Member, error)
}

// ReceiptWorker renders and delivers receipt emails from asynq tasks. A
// Redis lock keyed by registration guards against duplicate sends when a
// task is retried concurrently.
type ReceiptWorker struct {
	Registrations ReceiptSource
	Members       MemberSource
	Mail          common.EmailSender
	Locker        lock.Locker
	LockTTL       time.Duration
	Logger        zerolog.Logger
}

// HandleReceiptTask processes one email:receipt task.
func (w ReceiptWorker) HandleReceiptTask(ctx context.Context, task *asynq.Task) error {
	var payload receiptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("receipt task: decode payload: %w", err)
	}
	if payload.RegistrationID == "" {
		return nil
	}
	ttl := w.LockTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return w.Locker.WithLock(ctx, "receipt:"+payload.RegistrationID, ttl, func(ctx context.Context) error {
		if err := w.deliver(ctx, payload.RegistrationID); err != nil {
			if counter := obs.ReceiptEmailsTotal; counter != nil {
				counter.WithLabelValues("error").Inc()
			}
			return err
		}
		if counter := obs.ReceiptEmailsTotal; counter != nil {
			counter.WithLabelValues("sent").Inc()
		}
		return nil
	})
}

func (w ReceiptWorker) deliver(ctx context.Context, registrationID string) error {
	reg, err := w.Registrations.Get(ctx, registrationID)
	if err != nil {
		return fmt.Errorf("receipt task: load registration: %w", err)
	}
	m, err := w.Members.Get(ctx, reg.MemberID)
	if err != nil {
		return fmt.Errorf("receipt task: load member: %w", err)
	}
	if m.Email == "" {
		w.Logger.Warn().Str("registration_id", registrationID).Msg("receipt skipped, member has no email")
		return nil
	}
	receipt := registration.RenderReceipt(reg)
	return w.Mail.Send(m.Email, "Your registration receipt", renderReceiptBody(receipt))
}

func renderReceiptBody(r registration.Receipt) string {
	var b strings.Builder
	b.WriteString("Thank you for registering.\n\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "%s: %s\n", line.Name, line.Amount)
	}
	fmt.Fprintf(&b, "\nSubtotal: %s\n", r.Subtotal)
	if r.DiscountTotal != "" {
		fmt.Fprintf(&b, "Discounts: %s\n", r.DiscountTotal)
	}
	fmt.Fprintf(&b, "Total: %s\n", r.Total)
	fmt.Fprintf(&b, "Paid so far: %s\n", r.AmountPaid)
	fmt.Fprintf(&b, "Deposit due: %s\n", r.DepositDue)
	fmt.Fprintf(&b, "Balance due: %s\n", r.BalanceDue)
	fmt.Fprintf(&b, "Status: %s\n", r.Status)
	return b.String()
}
