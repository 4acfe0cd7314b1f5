package mail

import (
	"context"

	"go.uber.org/zap"

	"github.com/brainlife/auth-sub000/internal/core/port"
	"github.com/brainlife/auth-sub000/internal/infra/config"
	"github.com/brainlife/auth-sub000/internal/infra/logger"
)

// LogMailer writes outbound messages to the log instead of an SMTP relay.
// Deployments front this service with a notification pipeline, so the local
// delivery surface stays minimal.
type LogMailer struct {
	from   string
	logger *zap.Logger
}

// NewLogMailer constructs a log-backed mailer.
func NewLogMailer(cfg config.MailSettings, log *zap.Logger) *LogMailer {
	return &LogMailer{from: cfg.From, logger: log}
}

// Send records the message. It never fails; delivery errors belong to the
// downstream pipeline.
func (m *LogMailer) Send(_ context.Context, msg port.Message) error {
	m.logger.Info("outbound mail",
		zap.String("from", m.from),
		zap.String("to", logger.MaskEmail(msg.To)),
		zap.String("subject", msg.Subject),
		zap.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

var _ port.Mailer = (*LogMailer)(nil)
