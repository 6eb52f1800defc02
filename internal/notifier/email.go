package notifier

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gurisko/campwatch/internal/campground"
	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when a message has nowhere to go
var ErrNoRecipient = errors.New("no notification recipient configured")

// Config holds everything the notifier needs to address and send mail. It
// is passed in explicitly; nothing is read from the environment here.
type Config struct {
	SMTP SMTPConfig
	From string
	To   string
}

// Message is a single outbound email
type Message struct {
	From      string
	To        string
	Subject   string
	Body      string
	MessageID string
	Date      time.Time
}

// Bytes renders the message with RFC 5322 headers
func (m Message) Bytes() []byte {
	headers := [][2]string{
		{"From", m.From},
		{"To", m.To},
		{"Subject", m.Subject},
		{"Date", m.Date.Format(time.RFC1123Z)},
		{"Message-ID", m.MessageID},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/plain; charset=UTF-8"},
	}

	var sb strings.Builder
	for _, h := range headers {
		if h[1] == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\r\n", h[0], h[1])
	}
	sb.WriteString("\r\n")
	sb.WriteString(strings.ReplaceAll(m.Body, "\n", "\r\n"))
	return []byte(sb.String())
}

// Transport delivers a message. One attempt per call; no retries.
type Transport interface {
	Send(ctx context.Context, msg Message) error
}

// EmailNotifier sends one alert per batch of newly available campgrounds
type EmailNotifier struct {
	config    Config
	transport Transport
	log       zerolog.Logger
	now       func() time.Time
}

// NewEmailNotifier creates a new email notifier
func NewEmailNotifier(cfg Config, transport Transport, log zerolog.Logger) *EmailNotifier {
	if cfg.From == "" {
		cfg.From = cfg.SMTP.Username
	}
	return &EmailNotifier{
		config:    cfg,
		transport: transport,
		log:       log,
		now:       time.Now,
	}
}

// Subject returns the alert subject for a batch of n campgrounds
func Subject(n int) string {
	return fmt.Sprintf("Alert for %d Available Campground on Recreation.gov", n)
}

// BuildMessage formats the alert for batch
func (e *EmailNotifier) BuildMessage(batch *campground.List) (Message, error) {
	if e.config.To == "" {
		return Message{}, ErrNoRecipient
	}

	payload, err := batch.IndentedJSON("    ")
	if err != nil {
		return Message{}, err
	}

	var body strings.Builder
	body.WriteString("The following campgrounds are now available!\n")
	body.WriteString(payload)
	body.WriteString("\n\nBook at:\n")
	for _, c := range batch.Items() {
		fmt.Fprintf(&body, "  %s: %s\n", c.Name, c.URL())
	}

	return Message{
		From:      e.config.From,
		To:        e.config.To,
		Subject:   Subject(batch.Len()),
		Body:      body.String(),
		MessageID: fmt.Sprintf("<%s@campwatch>", uuid.NewString()),
		Date:      e.now(),
	}, nil
}

// Send builds and delivers the alert for batch, returning any failure
func (e *EmailNotifier) Send(ctx context.Context, batch *campground.List) error {
	msg, err := e.BuildMessage(batch)
	if err != nil {
		return err
	}
	if err := e.transport.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

// Notify sends the alert for batch. Delivery failures are logged and
// dropped: the campgrounds stay marked available and the alert is not
// re-queued.
func (e *EmailNotifier) Notify(ctx context.Context, batch *campground.List) {
	if batch.Len() == 0 {
		return
	}

	e.log.Info().Int("count", batch.Len()).Str("to", e.config.To).Msg("Sending email alert for available campgrounds")
	if err := e.Send(ctx, batch); err != nil {
		e.log.Error().Err(err).Int("count", batch.Len()).Msg("Could not send email alert")
		return
	}
	e.log.Info().Msg("Email sent")
}
