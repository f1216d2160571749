package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"

	"tidyup/internal/config"
	"tidyup/internal/logging"
	"tidyup/internal/ops"
)

// ErrNotConfigured reports missing SMTP settings.
var ErrNotConfigured = fmt.Errorf("%w: smtp host, from_addr and to_addr are required", ops.ErrConfiguration)

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPSender delivers mail through an SMTP server. STARTTLS is used when the
// server offers it and is mandatory once credentials are configured.
type SMTPSender struct {
	cfg     config.SMTP
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewSender builds an SMTP sender from cfg.
func NewSender(cfg config.SMTP, logger *slog.Logger) (*SMTPSender, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SMTPSender{
		cfg:     cfg,
		timeout: timeout,
		logger:  logging.NewComponentLogger(logger, "mailer"),
		now:     time.Now,
	}, nil
}

// Send submits msg to the configured recipient.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m, err := msg.build(s.cfg.FromAddr, s.cfg.ToAddr, s.now())
	if err != nil {
		return ops.Wrap(ops.ErrValidation, "mail", "build message", "", err)
	}
	client, err := s.client()
	if err != nil {
		return ops.Wrap(ops.ErrConfiguration, "mail", "configure client", "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return ops.Wrap(ops.ErrValidation, "mail", "send", addr, err)
	}

	s.logger.Info("mail sent",
		logging.String("to", s.cfg.ToAddr),
		logging.String("subject", msg.Subject),
		logging.Bool("attachment", strings.TrimSpace(msg.Attachment) != ""),
	)
	return nil
}

func (s *SMTPSender) client() (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(s.timeout),
		mail.WithTLSConfig(&tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if s.cfg.Username != "" {
		// Credentials never cross an unencrypted connection.
		opts = append(opts,
			mail.WithTLSPolicy(mail.TLSMandatory),
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}
	return mail.NewClient(s.cfg.Host, opts...)
}
