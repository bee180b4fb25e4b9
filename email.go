package medley

import (
	"fmt"
	"log"

	mail "github.com/go-mail/mail"
)

// EmailSender delivers verification mail. Stores call it from
// SendVerifyEmail; applications can plug in their own transport.
type EmailSender interface {
	SendVerificationEmail(to string, verificationLink string) error
}

// ConsoleEmailSender is a development implementation that logs emails to console
type ConsoleEmailSender struct{}

func (c *ConsoleEmailSender) SendVerificationEmail(to string, verificationLink string) error {
	log.Printf("\n=== EMAIL: Verification ===")
	log.Printf("To: %s", to)
	log.Printf("Subject: Verify your email address")
	log.Printf("Body: Please verify your email by clicking: %s", verificationLink)
	log.Printf("===========================\n")
	return nil
}

// SMTPEmailSender sends verification mail over SMTP.
type SMTPEmailSender struct {
	Host     string
	Port     int
	From     string
	Username string
	Password string

	// Subject defaults to "Verify your email address"
	Subject string
}

func NewSMTPEmailSender(host string, port int, from, username, password string) *SMTPEmailSender {
	return &SMTPEmailSender{
		Host:     host,
		Port:     port,
		From:     from,
		Username: username,
		Password: password,
	}
}

func (s *SMTPEmailSender) SendVerificationEmail(to string, verificationLink string) error {
	subject := s.Subject
	if subject == "" {
		subject = "Verify your email address"
	}

	m := mail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf("Please verify your email by visiting: %s", verificationLink))
	m.AddAlternative("text/html", fmt.Sprintf(
		`<p>Please verify your email by clicking <a href="%s">this link</a>.</p>`, verificationLink))

	d := mail.NewDialer(s.Host, s.Port, s.Username, s.Password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send verification email: %w", err)
	}
	return nil
}
