// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"crypto/tls"
	"html"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"gopkg.in/gomail.v2"

	"github.com/danielhkuo/mlm-members/cliparse"
)

// Message is one outgoing HTML e-mail
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New returns an SMTP sender when a relay is configured, otherwise a sender
// that only logs
func New(cfg cliparse.Config) Sender {
	if !cfg.MailEnabled() {
		return LogSender{}
	}
	return &SMTPSender{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		UserName: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	}
}

// SMTPSender sends through an SMTP relay
type SMTPSender struct {
	Host     string
	Port     int
	UserName string
	Password string
	From     string
	FromName string
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetHeader("From", m.FormatAddress(s.From, s.FromName))
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/html", msg.Body)

	dialer := gomail.NewDialer(s.Host, s.Port, s.UserName, s.Password)
	dialer.TLSConfig = &tls.Config{ServerName: s.Host}

	return dialer.DialAndSend(m)
}

// LogSender writes messages to the log instead of sending them
type LogSender struct{}

func (LogSender) Send(_ context.Context, msg Message) error {
	slog.Info("mail not sent (no SMTP relay)", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Recorder keeps every message in memory
type Recorder struct {
	mu       sync.Mutex
	Messages []Message
}

func (r *Recorder) Send(_ context.Context, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, msg)
	return nil
}

// Sent returns a copy of the recorded messages
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.Messages))
	copy(out, r.Messages)
	return out
}

// Render substitutes {{name}} placeholders. Values are HTML-escaped in the
// body but not in the subject. Unknown placeholders are left as they are.
func Render(subject, content string, vars map[string]string) (string, string) {
	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	subjectPairs := make([]string, 0, len(keys)*2)
	bodyPairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		placeholder := "{{" + k + "}}"
		subjectPairs = append(subjectPairs, placeholder, vars[k])
		bodyPairs = append(bodyPairs, placeholder, html.EscapeString(vars[k]))
	}

	return strings.NewReplacer(subjectPairs...).Replace(subject),
		strings.NewReplacer(bodyPairs...).Replace(content)
}
