package notification

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
)

// EmailConfig holds SMTP settings
type EmailConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	From              string
	DefaultRecipients []string
}

// EmailSender delivers notifications as plain-text mail
type EmailSender struct {
	cfg      EmailConfig
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	return &EmailSender{cfg: cfg, sendMail: smtp.SendMail}
}

func (e *EmailSender) Channel() Channel { return ChannelEmail }

func (e *EmailSender) Send(ctx context.Context, n Notification) error {
	recipients := n.Recipients
	if len(recipients) == 0 {
		recipients = e.cfg.DefaultRecipients
	}
	if len(recipients) == 0 {
		return errors.New("no email recipients")
	}

	var auth smtp.Auth
	if e.cfg.Username != "" {
		auth = smtp.PlainAuth("", e.cfg.Username, e.cfg.Password, e.cfg.Host)
	}
	addr := net.JoinHostPort(e.cfg.Host, strconv.Itoa(e.cfg.Port))
	msg := buildMessage(e.cfg.From, recipients, n)

	// smtp.SendMail has no context; the goroutine is abandoned on timeout
	done := make(chan error, 1)
	go func() {
		done <- e.sendMail(addr, auth, e.cfg.From, recipients, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail via %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send mail via %s: %w", addr, ctx.Err())
	}
}

func buildMessage(from string, to []string, n Notification) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerValue(from) + "\r\n")
	b.WriteString("To: " + headerValue(strings.Join(to, ", ")) + "\r\n")
	b.WriteString("Subject: " + headerValue(n.Subject) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	if n.Location != "" {
		b.WriteString("📍 Location: " + n.Location + "\r\n\r\n")
	}
	b.WriteString(n.Body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// headerValue folds line breaks so a value cannot start a new header
func headerValue(v string) string {
	return headerBreaks.Replace(v)
}
