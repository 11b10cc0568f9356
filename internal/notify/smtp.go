package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/wneessen/go-mail"
)

// implicitTLSPort is the submission port that expects TLS from the first
// byte. Every other port negotiates STARTTLS when the server offers it.
const implicitTLSPort = 465

// SMTPNotifier sends notices through an SMTP server.
type SMTPNotifier struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string

	// TLSConfig overrides the TLS settings. Nil verifies Host.
	TLSConfig *tls.Config

	// Clock stamps the Date header. Defaults to the wall clock.
	Clock clock.Clock
}

func (n SMTPNotifier) Notify(ctx context.Context, notice Notice) error {
	if notice.Recipient == "" {
		return fmt.Errorf("no nominee address configured")
	}
	msg, err := n.message(notice)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(n.Host, n.options(ctx)...)
	if err != nil {
		return fmt.Errorf("configuring SMTP client for %s: %w", n.Host, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending to %s via %s:%d: %w", notice.Recipient, n.Host, n.Port, err)
	}
	return nil
}

func (n SMTPNotifier) options(ctx context.Context) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(n.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if n.Port == implicitTLSPort {
		opts = append(opts, mail.WithSSL())
	}
	if n.TLSConfig != nil {
		opts = append(opts, mail.WithTLSConfig(n.TLSConfig))
	}
	if n.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.Username),
			mail.WithPassword(n.Password),
		)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining > 0 {
			opts = append(opts, mail.WithTimeout(remaining))
		}
	}
	return opts
}

func (n SMTPNotifier) message(notice Notice) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.From); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", n.From, err)
	}
	if err := msg.To(notice.Recipient); err != nil {
		return nil, fmt.Errorf("invalid nominee address %q: %w", notice.Recipient, err)
	}
	clk := n.Clock
	if clk == nil {
		clk = clock.Real()
	}
	msg.Subject(Subject)
	msg.SetDateWithValue(clk.Now())
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextPlain, Body(notice))
	return msg, nil
}
