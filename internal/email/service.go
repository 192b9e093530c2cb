package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log"
	"net"
	"net/smtp"
	"time"

	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/domain/user"
)

// DefaultSendTimeout bounds one SMTP conversation, dial included.
const DefaultSendTimeout = 10 * time.Second

// Service handles email sending via SMTP. It implements order.Notifier and
// user.ResetMailer.
type Service struct {
	host     string
	port     string
	from     string
	timeout  time.Duration
	sendMail func(ctx context.Context, addr, from string, to []string, msg []byte) error
}

// NewService creates a new email service
func NewService(host, port, from string, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	s := &Service{
		host:    host,
		port:    port,
		from:    from,
		timeout: timeout,
	}
	s.sendMail = s.deliver
	return s
}

// OrderPlaced sends an order confirmation email
func (s *Service) OrderPlaced(ctx context.Context, o *order.Order) error {
	subject := fmt.Sprintf("Order confirmation (order %s)", shortID(o.ID))
	return s.send(ctx, o.CustomerEmail, subject, BuildOrderConfirmationBody(o))
}

// PaymentProcessed sends a payment receipt
func (s *Service) PaymentProcessed(ctx context.Context, o *order.Order) error {
	subject := fmt.Sprintf("Payment received (order %s)", shortID(o.ID))
	return s.send(ctx, o.CustomerEmail, subject, BuildPaymentReceiptBody(o))
}

// PasswordReset mails a reset link to the account owner
func (s *Service) PasswordReset(ctx context.Context, u *user.User, resetURL string) error {
	return s.send(ctx, u.Email, "Password reset request", BuildPasswordResetBody(u.FirstName, resetURL))
}

func (s *Service) send(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("no recipient for %q", subject)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := net.JoinHostPort(s.host, s.port)
	if err := s.sendMail(ctx, addr, s.from, []string{to}, []byte(msg)); err != nil {
		return err
	}
	log.Printf("[Email] Sent %q to %s", subject, to)
	return nil
}

// deliver runs one SMTP conversation. The connection carries a deadline and
// is closed early when ctx ends, so a stalled server cannot hold the caller.
func (s *Service) deliver(ctx context.Context, addr, from string, to []string, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to reach SMTP server %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return fmt.Errorf("smtp greeting from %s: %w", addr, err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		if err := c.StartTLS(&tls.Config{ServerName: host}); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if err := c.Mail(from); err != nil {
		return err
	}
	for _, rcpt := range to {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
