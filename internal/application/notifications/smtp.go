package notifications

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"
)

// SMTPMailer delivers through a plain SMTP relay (MailHog in development).
type SMTPMailer struct {
	Host     string
	Port     int
	User     string
	Password string
	MailFrom string

	dial func(m ...*gomail.Message) error
}

func (s *SMTPMailer) from() string {
	if s.MailFrom != "" {
		return s.MailFrom
	}
	return "noreply@somosrentable.com"
}

func (s *SMTPMailer) Send(ctx context.Context, toEmail, toName, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.from(), "SomosRentable")
	m.SetAddressHeader("To", toEmail, toName)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	send := s.dial
	if send == nil {
		send = gomail.NewDialer(s.Host, s.Port, s.User, s.Password).DialAndSend
	}
	if err := send(m); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
