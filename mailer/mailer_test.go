// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package mailer

import (
	"context"
	"testing"

	"github.com/danielhkuo/mlm-members/cliparse"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name        string
		subject     string
		content     string
		vars        map[string]string
		wantSubject string
		wantBody    string
	}{
		{
			name:        "substitutes all occurrences",
			subject:     "Hi {{member_name}}",
			content:     "<p>{{member_name}} / {{member_code}} / {{member_name}}</p>",
			vars:        map[string]string{"member_name": "Ana", "member_code": "MEMAAAA1111"},
			wantSubject: "Hi Ana",
			wantBody:    "<p>Ana / MEMAAAA1111 / Ana</p>",
		},
		{
			name:        "escapes body values only",
			subject:     "{{name}}",
			content:     "<b>{{name}}</b>",
			vars:        map[string]string{"name": "<Tom & Jerry>"},
			wantSubject: "<Tom & Jerry>",
			wantBody:    "<b>&lt;Tom &amp; Jerry&gt;</b>",
		},
		{
			name:        "unknown placeholders stay",
			subject:     "{{missing}}",
			content:     "{{missing}}",
			vars:        map[string]string{},
			wantSubject: "{{missing}}",
			wantBody:    "{{missing}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subject, body := Render(tt.subject, tt.content, tt.vars)
			if subject != tt.wantSubject {
				t.Errorf("subject = %q, want %q", subject, tt.wantSubject)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
		})
	}
}

func TestNewSelectsSender(t *testing.T) {
	if _, ok := New(cliparse.Config{}).(LogSender); !ok {
		t.Error("expected LogSender without SMTP host")
	}

	s, ok := New(cliparse.Config{SMTPHost: "smtp.example.com", SMTPPort: 2525, MailFrom: "a@example.com"}).(*SMTPSender)
	if !ok {
		t.Fatal("expected SMTPSender with SMTP host")
	}
	if s.Port != 2525 || s.From != "a@example.com" {
		t.Errorf("unexpected sender config: %+v", s)
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	if err := r.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s"}); err != nil {
		t.Fatal(err)
	}
	sent := r.Sent()
	if len(sent) != 1 || sent[0].Subject != "s" {
		t.Errorf("unexpected recorded messages: %+v", sent)
	}
}
