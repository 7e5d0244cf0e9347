// Package jobs holds the asynq task definitions and the background worker
// that processes them: transactional mail, the offer expiry sweep, and audit
// log pruning.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldlink/veldlink/internal/offer"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeOfferExpire is the cron task flagging stale pending offers.
	TaskTypeOfferExpire = "offer:expire"
	// TaskTypeAuditPrune is the cron task trimming old audit log rows.
	TaskTypeAuditPrune = "audit:prune"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an asynq task for one outbound email.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewOfferExpireTask constructs the parameterless expiry sweep task.
func NewOfferExpireTask() *asynq.Task {
	return asynq.NewTask(TaskTypeOfferExpire, nil)
}

// NewAuditPruneTask constructs the parameterless audit prune task.
func NewAuditPruneTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAuditPrune, nil)
}

// Mailer is the delivery dependency of the send-email handler.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// NewSendEmailHandler returns the handler processing TaskTypeSendEmail.
func NewSendEmailHandler(mailer Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
			logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		return nil
	}
}

// NewOfferExpireHandler returns the handler sweeping pending offers past
// their validity window.
func NewOfferExpireHandler(service *offer.Service, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		n, err := service.ExpirePending(ctx)
		if err != nil {
			return fmt.Errorf("jobs: offer expire sweep: %w", err)
		}
		if n > 0 {
			logger.Info("expired stale offers", slog.Int64("count", n))
		}
		return nil
	}
}

// NewAuditPruneHandler returns the handler deleting audit rows older than
// the retention window.
func NewAuditPruneHandler(pool *pgxpool.Pool, retentionDays int, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tag, err := pool.Exec(ctx,
			`DELETE FROM audit_logs WHERE occurred_at < NOW() - make_interval(days => $1)`, retentionDays)
		if err != nil {
			return fmt.Errorf("jobs: audit prune: %w", err)
		}
		if tag.RowsAffected() > 0 {
			logger.Info("pruned audit rows", slog.Int64("count", tag.RowsAffected()))
		}
		return nil
	}
}
