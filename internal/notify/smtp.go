package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"cybernews/internal/config"
	"cybernews/internal/models"
	"cybernews/pkg/utils"
)

// defaultSMTPTimeout bounds dialing and each SMTP command when the config
// leaves it unset.
const defaultSMTPTimeout = 30 * time.Second

// SMTPSink mails each record to a fixed recipient list.
type SMTPSink struct {
	now  func() time.Time
	send func(ctx context.Context, a sasl.Client, msg []byte) error
	cfg  config.SMTPConfig
}

// NewSMTPSink creates an e-mail sink.
func NewSMTPSink(cfg config.SMTPConfig) *SMTPSink {
	s := &SMTPSink{cfg: cfg, now: time.Now}
	s.send = s.deliver

	return s
}

// Name implements Sink.
func (s *SMTPSink) Name() string { return "smtp" }

// Send implements Sink. Cancelling ctx aborts the SMTP conversation.
func (s *SMTPSink) Send(ctx context.Context, rec models.AlertRecord) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: smtp: %w", ErrDelivery, err)
	}

	var auth sasl.Client
	if s.cfg.Username != "" {
		auth = sasl.NewPlainClient("", s.cfg.Username, s.cfg.Password)
	}

	if err := s.send(ctx, auth, s.message(rec)); err != nil {
		return fmt.Errorf("%w: smtp: %w", ErrDelivery, err)
	}

	return nil
}

func (s *SMTPSink) timeout() time.Duration {
	if t := s.cfg.Timeout(); t > 0 {
		return t
	}

	return defaultSMTPTimeout
}

// deliver runs one SMTP transaction over a connection secured per cfg.TLS.
func (s *SMTPSink) deliver(ctx context.Context, auth sasl.Client, msg []byte) error {
	dialer := &net.Dialer{Timeout: s.timeout()}

	conn, err := dialer.DialContext(ctx, "tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.cfg.Addr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := s.client(conn)
	if err != nil {
		_ = conn.Close()

		return err
	}
	defer c.Close()

	c.CommandTimeout = s.timeout()
	c.SubmissionTimeout = s.timeout()

	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}

	if err := c.SendMail(s.cfg.From, s.cfg.To, bytes.NewReader(msg)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ctxErr, err)
		}

		return err
	}

	return c.Quit()
}

func (s *SMTPSink) client(conn net.Conn) (*smtp.Client, error) {
	host, _, err := net.SplitHostPort(s.cfg.Addr)
	if err != nil {
		host = s.cfg.Addr
	}

	tlsConfig := &tls.Config{ServerName: host, MinVersion: tls.VersionTLS12}

	switch s.cfg.TLS {
	case config.SMTPNone:
		return smtp.NewClient(conn), nil
	case config.SMTPTLS:
		return smtp.NewClient(tls.Client(conn, tlsConfig)), nil
	default:
		c, err := smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			return nil, fmt.Errorf("starttls: %w", err)
		}

		return c, nil
	}
}

// maxSubjectRunes keeps subjects within common client display limits.
const maxSubjectRunes = 120

func (s *SMTPSink) message(rec models.AlertRecord) []byte {
	subject := fmt.Sprintf("[%s] %s", strings.ToUpper(string(rec.Severity)), rec.Title)
	if rec.Channel == "digest" || rec.Severity == "" {
		subject = rec.Title
	}

	subject = utils.TruncateString(subject, maxSubjectRunes)

	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", s.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(s.cfg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(&b, "Date: %s\r\n", s.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@cybernews>\r\n", rec.ID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(rec.Message, "\n", "\r\n"))
	b.WriteString("\r\n")

	return b.Bytes()
}
