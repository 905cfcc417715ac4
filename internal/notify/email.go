package notify

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"time"

	"github.com/go-faster/errors"
	"github.com/wneessen/go-mail"

	"github.com/muratkomurcu/october4mama/internal/domain/notify"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// SSL selects implicit TLS; otherwise STARTTLS is used when offered.
	SSL     bool
	Timeout time.Duration
	// Support is the contact line printed in the footer.
	Support string
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Email mails the customer when their order is paid or moves.
type Email struct {
	client  mailSender
	from    string
	support string
}

// NewEmail dials nothing until the first message.
func NewEmail(cfg EmailConfig) (*Email, error) {
	if cfg.Port == 0 {
		cfg.Port = 465
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.From == "" {
		cfg.From = `"October 4 Pet Food" <info@october4mama.tr>`
	}
	if cfg.Support == "" {
		cfg.Support = "info@october4mama.tr"
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(cfg.Timeout),
	}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}
	return &Email{client: client, from: cfg.From, support: cfg.Support}, nil
}

func (*Email) Name() string { return "email" }

// Send implements Channel. Events without a customer address are skipped.
func (m *Email) Send(ctx context.Context, e notify.Event) error {
	if e.Recipient.Email == "" {
		return nil
	}
	msg, err := m.message(e)
	if err != nil {
		return err
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return errors.Wrap(err, "send mail")
	}
	return nil
}

type emailView struct {
	Event   notify.Event
	Name    string
	Status  string
	Date    string
	Support string
}

func (m *Email) message(e notify.Event) (*mail.Msg, error) {
	var (
		subject string
		page    string
	)
	switch e.Kind {
	case notify.KindOrderPaid:
		subject = "Siparişinizi Aldık! #" + e.OrderNumber
		page = "order_paid.html"
	case notify.KindStatusChanged:
		subject = statusLabel(e.OrderStatus) + " #" + e.OrderNumber
		page = "status_changed.html"
	default:
		return nil, errors.Errorf("unsupported event %q", e.Kind)
	}

	body, err := renderEmail(page, emailView{
		Event:   e,
		Name:    customerName(e.Recipient),
		Status:  statusLabel(e.OrderStatus),
		Date:    formatTime(e.OccurredAt),
		Support: m.support,
	})
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return nil, errors.Wrap(err, "from")
	}
	if err := msg.To(e.Recipient.Email); err != nil {
		return nil, errors.Wrap(err, "to")
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func renderEmail(page string, v emailView) (string, error) {
	var buf bytes.Buffer
	if err := emailTemplates.ExecuteTemplate(&buf, page, v); err != nil {
		return "", errors.Wrapf(err, "render %s", page)
	}
	return buf.String(), nil
}
