// Package notify delivers a finished report by SMTP.
package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"ccreport/internal/config"
)

// ErrDisabled is returned by Send and Check when email delivery is turned off.
var ErrDisabled = errors.New("email delivery is disabled")

// Report describes one finished workbook.
type Report struct {
	Path         string
	Objects      int
	Violations   int
	GeneratedAt  time.Time
	LookbackDays int
	Fraction     float64
}

// bodyData is what the body template sees.
type bodyData struct {
	DateTime         string
	TotalObjects     int
	Violations       int
	LookbackDays     int
	ThresholdPercent int
}

// Mailer sends reports using one SMTP configuration.
type Mailer struct {
	cfg config.Email
	log *zap.Logger
}

// Option configures a Mailer.
type Option func(*Mailer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Mailer) { m.log = l }
}

// New returns a mailer for cfg.
func New(cfg config.Email, opts ...Option) *Mailer {
	m := &Mailer{cfg: cfg, log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Send mails r as an attachment to every recipient. The attachment is never
// modified or removed, whatever the outcome.
func (m *Mailer) Send(ctx context.Context, r Report) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	if _, err := os.Stat(r.Path); err != nil {
		return fmt.Errorf("attachment: %w", err)
	}

	msg, err := m.Message(r)
	if err != nil {
		return err
	}
	client, err := m.client()
	if err != nil {
		return err
	}

	m.log.Info("sending report",
		zap.String("smtp", m.cfg.SMTPHost), zap.Int("port", m.cfg.SMTPPort),
		zap.Strings("recipients", m.cfg.Recipients()), zap.String("file", filepath.Base(r.Path)))
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	m.log.Info("report sent", zap.Int("recipients", len(m.cfg.Recipients())))
	return nil
}

// Check connects and authenticates to the SMTP server without sending.
func (m *Mailer) Check(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}
	client, err := m.client()
	if err != nil {
		return err
	}
	if err := client.DialWithContext(ctx); err != nil {
		return fmt.Errorf("smtp connect %s:%d: %w", m.cfg.SMTPHost, m.cfg.SMTPPort, err)
	}
	if err := client.Close(); err != nil {
		return fmt.Errorf("smtp close: %w", err)
	}
	return nil
}

// Message builds the mail for r without sending it.
func (m *Mailer) Message(r Report) (*mail.Msg, error) {
	body, err := RenderBody(m.cfg.BodyTemplate, r)
	if err != nil {
		return nil, err
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(m.cfg.To...); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	if len(m.cfg.Cc) > 0 {
		if err := msg.Cc(m.cfg.Cc...); err != nil {
			return nil, fmt.Errorf("cc address: %w", err)
		}
	}
	msg.Subject(m.cfg.Subject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body)
	msg.AttachFile(r.Path)
	return msg, nil
}

func (m *Mailer) client() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(m.cfg.SMTPPort)}
	switch m.cfg.TLSMode {
	case config.TLSImplicit:
		opts = append(opts, mail.WithSSL())
	case config.TLSStartTLS:
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	default:
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}
	if m.cfg.Username != "" && m.cfg.Password != "" {
		auth := mail.SMTPAuthPlain
		if m.cfg.TLSMode == config.TLSNone || m.cfg.TLSMode == "" {
			// Credentials are sent in the clear, as configured.
			auth = mail.SMTPAuthPlainNoEnc
		}
		opts = append(opts,
			mail.WithSMTPAuth(auth),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	c, err := mail.NewClient(m.cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return c, nil
}

// RenderBody executes tmpl (or the default body when empty) for r.
func RenderBody(tmpl string, r Report) (string, error) {
	if tmpl == "" {
		tmpl = config.DefaultBodyTemplate
	}
	t, err := template.New("body").Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse body template: %w", err)
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, bodyData{
		DateTime:         r.GeneratedAt.Format("2006-01-02 15:04:05"),
		TotalObjects:     r.Objects,
		Violations:       r.Violations,
		LookbackDays:     r.LookbackDays,
		ThresholdPercent: int(r.Fraction*100 + 0.5),
	})
	if err != nil {
		return "", fmt.Errorf("render body: %w", err)
	}
	return buf.String(), nil
}
