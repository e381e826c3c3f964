package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"sync"

	"github.com/goitProjects/SBC-backend/internal/config"
	"github.com/goitProjects/SBC-backend/pkg/logger"
	"github.com/goitProjects/SBC-backend/pkg/metrics"
	"github.com/jordan-wright/email"
)

// Message is a rendered plain-text mail.
type Message struct {
	To      string
	From    string
	Subject string
	Text    string
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, m Message) error
}

// SMTPSender relays mail through an authenticated SMTP server.
type SMTPSender struct {
	cfg config.MailConfig
}

func NewSMTPSender(cfg config.MailConfig) *SMTPSender {
	return &SMTPSender{cfg: cfg}
}

func (s *SMTPSender) Send(_ context.Context, m Message) error {
	e := email.NewEmail()
	e.From = m.From
	if e.From == "" {
		e.From = s.cfg.Sender
	}
	e.To = []string{m.To}
	e.Subject = m.Subject
	e.Text = []byte(m.Text)

	addr := s.cfg.SMTPHost + ":" + strconv.Itoa(s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.APIKey, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		return fmt.Errorf("smtp send to %s: %w", addr, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. Used when
// no mail credentials are configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, m Message) error {
	logger.Infof("mail delivery disabled: dropping %q to %s", m.Subject, m.To)
	return nil
}

// Dispatcher sends messages in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	sender Sender
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

func NewDispatcher(s Sender) *Dispatcher {
	return &Dispatcher{sender: s}
}

// Dispatch queues m for delivery and returns immediately.
func (d *Dispatcher) Dispatch(m Message) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		logger.Warnf("mail dispatcher closed: dropping %q to %s", m.Subject, m.To)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		if err := d.sender.Send(context.Background(), m); err != nil {
			metrics.MailFailures.Inc()
			logger.Errorf("mail %q to %s failed: %v", m.Subject, m.To, err)
		}
	}()
}

// Close stops accepting messages and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetMessage renders the password-reset mail.
func ResetMessage(to, from, link string) Message {
	return Message{
		To:      to,
		From:    from,
		Subject: "Password reset",
		Text: "Password reset has been requested\n" +
			"If you haven't requested password reset, simply ignore this mail.\n\n" +
			"To reset your password, click the following link: " + link,
	}
}
