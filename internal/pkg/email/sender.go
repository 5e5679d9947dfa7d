package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/placeintern/backend/internal/pkg/logger"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Sender delivers rendered messages
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// Config selects and configures the mail provider
type Config struct {
	Provider    string
	Host        string
	Port        int
	Username    string
	Password    string
	UseTLS      bool
	SendgridKey string
	FromName    string
	FromAddress string
}

// NewSender returns the sender for cfg.Provider
func NewSender(cfg Config) (Sender, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "log":
		return LogSender{}, nil
	case "smtp":
		return &SMTPSender{config: cfg}, nil
	case "sendgrid":
		return NewSendgridSender(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider %q", cfg.Provider)
	}
}

// LogSender logs messages instead of sending them
type LogSender struct{}

// Send implements Sender
func (LogSender) Send(_ context.Context, msg *Message) error {
	logger.Info().
		Str("to", msg.To.Address).
		Str("subject", msg.Subject).
		Str("body", msg.TextContent).
		Msg("Mail provider is log - email not sent")
	return nil
}

// SMTPSender sends through an SMTP server, optionally over implicit TLS
type SMTPSender struct {
	config Config
}

// Send implements Sender
func (s *SMTPSender) Send(_ context.Context, msg *Message) error {
	body, contentType, err := buildMIMEBody(msg)
	if err != nil {
		return err
	}

	headers := []string{
		fmt.Sprintf("From: %s <%s>", s.config.FromName, s.config.FromAddress),
		"To: " + msg.To.String(),
		"Subject: " + msg.Subject,
		"MIME-Version: 1.0",
		"Content-Type: " + contentType,
	}
	message := []byte(strings.Join(headers, "\r\n") + "\r\n\r\n" + body)

	var auth smtp.Auth
	if s.config.Username != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}
	serverAddress := s.config.Host + ":" + strconv.Itoa(s.config.Port)

	if !s.config.UseTLS {
		if err := smtp.SendMail(serverAddress, auth, s.config.FromAddress, []string{msg.To.Address}, message); err != nil {
			return fmt.Errorf("failed to send email: %w", err)
		}
		return nil
	}

	conn, err := tls.Dial("tcp", serverAddress, &tls.Config{ServerName: s.config.Host})
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer client.Quit()

	if auth != nil {
		if err = client.Auth(auth); err != nil {
			return fmt.Errorf("SMTP authentication failed: %w", err)
		}
	}
	if err = client.Mail(s.config.FromAddress); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(msg.To.Address); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to get data writer: %w", err)
	}
	if _, err = w.Write(message); err != nil {
		return fmt.Errorf("failed to write email message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return nil
}

// buildMIMEBody writes a multipart/alternative body with text and html parts
func buildMIMEBody(msg *Message) (string, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	parts := []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", msg.TextContent},
		{"text/html; charset=UTF-8", msg.HTMLContent},
	}
	for _, p := range parts {
		if p.content == "" {
			continue
		}
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return "", "", fmt.Errorf("failed to create mime part: %w", err)
		}
		if _, err := w.Write([]byte(p.content)); err != nil {
			return "", "", fmt.Errorf("failed to write mime part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", "", fmt.Errorf("failed to close mime writer: %w", err)
	}
	return buf.String(), "multipart/alternative; boundary=" + mw.Boundary(), nil
}

var (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendgridSender sends through the SendGrid v3 API
type SendgridSender struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

// NewSendgridSender creates a SendgridSender
func NewSendgridSender(cfg Config) *SendgridSender {
	return &SendgridSender{
		key:        cfg.SendgridKey,
		from:       sgmail.NewEmail(cfg.FromName, cfg.FromAddress),
		subjPrefix: "[" + cfg.FromName + "] ",
	}
}

func (s *SendgridSender) prepare(msg *Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.To.Name, msg.To.Address))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(
		sgmail.NewContent("text/plain", msg.TextContent),
		sgmail.NewContent("text/html", msg.HTMLContent),
	)
	return m
}

// Send implements Sender
func (s *SendgridSender) Send(ctx context.Context, msg *Message) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid request failed: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid rejected email: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
