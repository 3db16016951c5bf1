// Package mailer sends order confirmations over SMTP.
package mailer

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/xenking/spice-storefront/internal/domain/order"
)

var _ order.Notifier = (*Mailer)(nil)

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// TLS is one of "mandatory", "opportunistic" or "none".
	TLS string
}

type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer sends the HTML confirmation block with a plain-text alternative.
type Mailer struct {
	client   sender
	from     string
	renderer *order.Renderer
}

// New creates a Mailer from cfg.
func New(cfg Config, renderer *order.Renderer) (*Mailer, error) {
	policy, err := tlsPolicy(cfg.TLS)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(policy),
	}
	if cfg.Port != 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}
	return newMailer(client, cfg.From, renderer), nil
}

func newMailer(client sender, from string, renderer *order.Renderer) *Mailer {
	return &Mailer{client: client, from: from, renderer: renderer}
}

func tlsPolicy(s string) (mail.TLSPolicy, error) {
	switch strings.ToLower(s) {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.TLSMandatory, errors.Errorf("unknown tls policy %q", s)
	}
}

// Message builds the confirmation mail for o.
func (m *Mailer) Message(o *order.Order) (*mail.Msg, error) {
	markup, err := m.renderer.Markup(o)
	if err != nil {
		return nil, err
	}
	plain, err := m.renderer.PlainText(o)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, errors.Wrap(err, "from")
	}
	if err := msg.To(o.Customer.Email); err != nil {
		return nil, errors.Wrap(err, "to")
	}
	msg.Subject(order.Subject(o))
	msg.SetDateWithValue(o.Timestamp)
	msg.SetBodyString(mail.TypeTextPlain, plain)
	msg.AddAlternativeString(mail.TypeTextHTML, markup)
	return msg, nil
}

// SendConfirmation mails the order confirmation to the customer.
func (m *Mailer) SendConfirmation(ctx context.Context, o *order.Order) error {
	msg, err := m.Message(o)
	if err != nil {
		return errors.Wrapf(err, "build confirmation for %q", o.ID)
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrapf(err, "send confirmation for %q", o.ID)
	}
	zctx.From(ctx).Info("Confirmation sent",
		zap.String("order_id", o.ID),
		zap.String("to", o.Customer.Email),
	)
	return nil
}
