package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string

	// CodeTTL is only used to tell the user how long the code lasts.
	CodeTTL time.Duration
}

// Mailer emails reset codes over SMTP.
type Mailer struct {
	sender  string
	minutes int
	dialer  *gomail.Dialer
}

func NewMailer(cfg MailConfig) *Mailer {
	username := cfg.Username
	if username == "" {
		username = cfg.Sender
	}

	return &Mailer{
		sender:  cfg.Sender,
		minutes: max(int(cfg.CodeTTL.Minutes()), 1),
		dialer:  gomail.NewDialer(cfg.Host, cfg.Port, username, cfg.Password),
	}
}

func (m *Mailer) message(to, code string) *gomail.Message {
	msg := gomail.NewMessage()

	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Your password reset code")
	msg.SetBody("text/plain", fmt.Sprintf("Your password reset code is %s\n\nIt expires in %d minutes. If you didn't ask for it you can ignore this email.", code, m.minutes))
	msg.AddAlternative("text/html", fmt.Sprintf("Your password reset code is <b>%s</b>.<br><br>It expires in %d minutes. If you didn't ask for it you can ignore this email.", code, m.minutes))

	return msg
}

// Send delivers code to email. Failures are logged and reported as false.
func (m *Mailer) Send(_ context.Context, email, code string) bool {
	if email == m.sender {
		zap.L().Warn("Refusing to send reset code to the sender address", zap.String("email", email))
		return false
	}

	if err := m.dialer.DialAndSend(m.message(email, code)); err != nil {
		zap.L().Error("Failed to send reset code email", zap.Error(err), zap.String("email", email))
		return false
	}

	return true
}
