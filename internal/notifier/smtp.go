package notifier

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

const (
	// DefaultSMTPHost is the Gmail submission host
	DefaultSMTPHost = "smtp.gmail.com"
	// DefaultSMTPPort is implicit-TLS submission
	DefaultSMTPPort = 465
	// DefaultDialTimeout bounds connecting to the SMTP server
	DefaultDialTimeout = 30 * time.Second
	// DefaultSendTimeout bounds the whole SMTP conversation
	DefaultSendTimeout = 60 * time.Second
)

// SMTPConfig represents SMTP server settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

// SMTPTransport sends mail with PLAIN auth. Port 465 uses implicit TLS;
// any other port uses STARTTLS when the server offers it.
type SMTPTransport struct {
	config      SMTPConfig
	dialTimeout time.Duration
	sendTimeout time.Duration
}

// NewSMTPTransport creates an SMTP transport, filling in defaults
func NewSMTPTransport(cfg SMTPConfig) *SMTPTransport {
	if cfg.Host == "" {
		cfg.Host = DefaultSMTPHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultSMTPPort
	}
	return &SMTPTransport{config: cfg, dialTimeout: DefaultDialTimeout, sendTimeout: DefaultSendTimeout}
}

func (t *SMTPTransport) addr() string {
	return net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
}

func (t *SMTPTransport) auth() smtp.Auth {
	if t.config.Username == "" {
		return nil
	}
	return smtp.PlainAuth("", t.config.Username, t.config.Password, t.config.Host)
}

func (t *SMTPTransport) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: t.config.Host, MinVersion: tls.VersionTLS12}
}

// dial connects with implicit TLS on port 465 and in plaintext otherwise
func (t *SMTPTransport) dial(ctx context.Context) (net.Conn, error) {
	nd := &net.Dialer{Timeout: t.dialTimeout}
	if t.config.Port == DefaultSMTPPort {
		d := &tls.Dialer{NetDialer: nd, Config: t.tlsConfig()}
		return d.DialContext(ctx, "tcp", t.addr())
	}
	return nd.DialContext(ctx, "tcp", t.addr())
}

// Send delivers msg in a single attempt. The whole exchange, greeting
// included, must finish within the send timeout.
func (t *SMTPTransport) Send(ctx context.Context, msg Message) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return fmt.Errorf("dial %s: %w", t.addr(), err)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(t.sendTimeout)); err != nil {
		return fmt.Errorf("set deadline: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, t.config.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if err := c.Hello("localhost"); err != nil {
		return fmt.Errorf("smtp hello: %w", err)
	}
	if t.config.Port != DefaultSMTPPort {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(t.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if auth := t.auth(); auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := c.Mail(msg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := c.Rcpt(msg.To); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}

	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg.Bytes()); err != nil {
		w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return c.Quit()
}
