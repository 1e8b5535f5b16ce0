// Package notify sends appointment alerts to the applicant.
package notify

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/example/dps-agent/internal/domain/booking"
)

// Mailer sends a booking update by email. Implementations must be safe for
// concurrent use; the scheduler notifies from several goroutines.
type Mailer interface {
	AppointmentFound(to string, res *booking.RunResult) error
	BookingConfirmed(to string, res *booking.RunResult) error
}

// SMTPMailer delivers notifications over authenticated SMTP.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	log *zap.Logger
}

func NewSMTPMailer(host string, port int, username, password, from string, log *zap.Logger) *SMTPMailer {
	if log == nil {
		log = zap.NewNop()
	}
	if from == "" {
		from = username
	}
	return &SMTPMailer{Host: host, Port: port, Username: username, Password: password, From: from, log: log}
}

func (m *SMTPMailer) AppointmentFound(to string, res *booking.RunResult) error {
	subject := fmt.Sprintf("DPS appointment available: %s on %s", res.Location, res.NextAvailable)
	body := appointmentBody(res, false)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) BookingConfirmed(to string, res *booking.RunResult) error {
	subject := fmt.Sprintf("DPS appointment BOOKED: %s on %s", res.Location, res.TargetDate)
	body := appointmentBody(res, true)
	return m.send(to, subject, body)
}

func (m *SMTPMailer) send(to, subject, body string) error {
	if to == "" {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	d := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	if err := d.DialAndSend(msg); err != nil {
		m.log.Error("sending notification failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("sending notification: %w", err)
	}
	m.log.Info("notification sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

func appointmentBody(res *booking.RunResult, booked bool) string {
	var b strings.Builder
	if booked {
		fmt.Fprintf(&b, "Your appointment has been booked automatically.\n\n")
		fmt.Fprintf(&b, "Date: %s\n", res.TargetDate)
	} else {
		fmt.Fprintf(&b, "An appointment slot is available. Book it before someone else does.\n\n")
		fmt.Fprintf(&b, "Next available: %s\n", res.NextAvailable)
	}
	fmt.Fprintf(&b, "Location: %s (near %s)\n", res.Location, res.ZIPCode)
	if len(res.AvailableDates) > 0 {
		fmt.Fprintf(&b, "All open dates: %s\n", strings.Join(res.AvailableDates, ", "))
	}
	fmt.Fprintf(&b, "\nChecked at %s\n", res.CheckedAt.Format(time.RFC1123))
	return b.String()
}
