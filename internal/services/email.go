package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"natours/internal/config"
	"natours/internal/logger"
	"natours/internal/models"
	helpers "natours/internal/utils/helpers"
	"net/mail"
	"net/url"

	"github.com/dajohi/goemail"
	"go.uber.org/zap"
)

// ErrMailDisabled — SMTP не настроен, письмо не ушло.
var ErrMailDisabled = errors.New("smtp is not configured")

// EmailService — SMTP-клиент. Без SMTP Send возвращает ErrMailDisabled.
type EmailService struct {
	client      *goemail.SMTP
	mailName    string
	mailAddress string
	disabled    bool
}

func NewEmailService(cfg *config.Config) (*EmailService, error) {
	if cfg.SMTPHost == "" || cfg.SMTPUser == "" || cfg.SMTPPassword == "" {
		return &EmailService{disabled: true}, nil
	}

	u, err := url.Parse(fmt.Sprintf("smtps://%s@%s", url.UserPassword(cfg.SMTPUser, cfg.SMTPPassword).String(), cfg.SMTPHost))
	if err != nil {
		return nil, err
	}

	from, err := mail.ParseAddress(cfg.EmailFrom)
	if err != nil {
		return nil, err
	}

	client, err := goemail.NewSMTP(u.String(), &tls.Config{ServerName: u.Hostname()})
	if err != nil {
		return nil, err
	}

	return &EmailService{
		client:      client,
		mailName:    from.Name,
		mailAddress: from.Address,
	}, nil
}

func (s *EmailService) Send(to []string, subject, body string) error {
	if s.disabled {
		return ErrMailDisabled
	}

	msg := goemail.NewMessage(s.mailAddress, subject, body)
	msg.SetName(s.mailName)
	for _, addr := range to {
		msg.AddTo(addr)
	}
	return s.client.Send(msg)
}

// SendWelcome — через очередь, ошибка только логируется воркером.
func (s *EmailService) SendWelcome(ctx context.Context, u *models.User, url string) error {
	if s.disabled {
		logger.WithCtx(ctx).Info("SMTP не настроен, приветственное письмо пропущено", zap.String("user_id", u.ID))
		return nil
	}
	EmailQueue <- EmailJob{
		To:      []string{u.Email},
		Subject: "Добро пожаловать в Natours!",
		Body:    helpers.BuildWelcomeText(u.Name, url),
	}
	return nil
}

// SendPasswordReset — синхронно: вызывающему нужно знать, дошло ли письмо.
func (s *EmailService) SendPasswordReset(_ context.Context, u *models.User, resetURL string, validFor string) error {
	return s.Send(
		[]string{u.Email},
		fmt.Sprintf("Ссылка для сброса пароля (действует %s)", validFor),
		helpers.BuildPasswordResetText(u.Name, resetURL, validFor),
	)
}
