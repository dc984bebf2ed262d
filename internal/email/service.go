package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/clinicware/clinic-api/config"
)

// Service sends account lifecycle mail. All sends are best effort; a mail
// failure never fails the request that triggered it.
type Service interface {
	SendWelcome(ctx context.Context, to, name string) error
	SendAccountVerified(ctx context.Context, to, name string) error
}

// NewService returns the gomail-backed sender, or a no-op sender when SMTP
// is not configured.
func NewService(cfg config.SMTPConfig, logger zerolog.Logger) Service {
	if cfg.Host == "" {
		return &noopService{logger: logger}
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger zerolog.Logger
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	return nil
}

func (s *smtpService) SendWelcome(_ context.Context, to, name string) error {
	body := fmt.Sprintf(
		"Hello %s,\n\nYour clinic staff account has been created. "+
			"An administrator needs to verify it before you can log in.\n", name)
	return s.send(to, "Account created", body)
}

func (s *smtpService) SendAccountVerified(_ context.Context, to, name string) error {
	body := fmt.Sprintf("Hello %s,\n\nYour account has been verified. You can now log in.\n", name)
	return s.send(to, "Account verified", body)
}

type noopService struct {
	logger zerolog.Logger
}

func (s *noopService) SendWelcome(_ context.Context, to, _ string) error {
	s.logger.Debug().Str("to", to).Msg("smtp not configured, skipping welcome mail")
	return nil
}

func (s *noopService) SendAccountVerified(_ context.Context, to, _ string) error {
	s.logger.Debug().Str("to", to).Msg("smtp not configured, skipping verification mail")
	return nil
}
