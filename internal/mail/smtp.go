// Package mail sends transactional email over SMTP.
package mail

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	gomail "github.com/go-mail/mail"
)

// Message is a rendered email.
type Message struct {
	To       string
	Subject  string
	TextBody string
	HTMLBody string
}

// SMTPSender delivers messages through one SMTP relay.
type SMTPSender struct {
	Host string
	Port int
	From string
	User string
	Pass string
	// TLSMode is "auto", "starttls", "ssl" or "none".
	TLSMode string
	Logger  *slog.Logger
}

// NewSMTPSender builds an SMTPSender negotiating TLS automatically.
func NewSMTPSender(host string, port int, from, user, pass string, logger *slog.Logger) *SMTPSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMTPSender{Host: host, Port: port, From: from, User: user, Pass: pass, TLSMode: "auto", Logger: logger}
}

// Send delivers msg as multipart/alternative when both bodies are present.
func (s *SMTPSender) Send(msg Message) error {
	log := s.Logger.With(slog.String("host", s.Host), slog.Int("port", s.Port), slog.String("to", msg.To))

	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	switch {
	case msg.TextBody != "" && msg.HTMLBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}

	d := gomail.NewDialer(s.Host, s.Port, s.User, s.Pass)
	d.TLSConfig = &tls.Config{ServerName: s.Host, MinVersion: tls.VersionTLS12}
	switch s.TLSMode {
	case "ssl":
		d.SSL = true
	case "none":
		d.StartTLSPolicy = gomail.NoStartTLS
	case "starttls":
		d.StartTLSPolicy = gomail.MandatoryStartTLS
	}

	if err := d.DialAndSend(m); err != nil {
		log.Error("smtp send failed", slog.Any("error", err))
		return fmt.Errorf("smtp send: %w", err)
	}
	log.Info("email sent", slog.String("subject", msg.Subject))
	return nil
}
