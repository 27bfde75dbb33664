package smtpmail

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gomail "github.com/emersion/go-message/mail"

	"github.com/mhoang/mailflow/internal/mail"
)

// parseBuilt re-reads a built message so tests assert on what a
// receiving client would see.
func parseBuilt(t *testing.T, raw []byte) (
	header gomail.Header, text, html string, attachments map[string][]byte,
) {
	t.Helper()

	mr, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("reading built message: %v", err)
	}
	defer mr.Close()

	header = mr.Header
	attachments = map[string][]byte{}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("reading part: %v", err)
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			ctype, _, _ := h.ContentType()
			body, _ := io.ReadAll(part.Body)
			switch {
			case strings.HasPrefix(ctype, "text/plain"):
				text = string(body)
			case strings.HasPrefix(ctype, "text/html"):
				html = string(body)
			}
		case *gomail.AttachmentHeader:
			name, _ := h.Filename()
			body, _ := io.ReadAll(part.Body)
			attachments[name] = body
		}
	}
	return header, text, html, attachments
}

func TestBuildTextAndHTML(t *testing.T) {
	msg := &mail.Outgoing{
		From:     mail.Address{Name: "Sender", Addr: "sender@example.com"},
		To:       []string{"a@example.com", "b@example.com"},
		Cc:       []string{"c@example.com"},
		Subject:  "Quarterly report",
		TextBody: "plain body",
		HTMLBody: "<p>html body</p>",
	}

	raw, err := Build(msg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	header, text, html, attachments := parseBuilt(t, raw)

	subject, err := header.Subject()
	if err != nil || subject != "Quarterly report" {
		t.Fatalf("unexpected subject %q (%v)", subject, err)
	}

	from, err := header.AddressList("From")
	if err != nil || len(from) != 1 || from[0].Address != "sender@example.com" {
		t.Fatalf("unexpected From: %v (%v)", from, err)
	}
	to, err := header.AddressList("To")
	if err != nil || len(to) != 2 {
		t.Fatalf("unexpected To: %v (%v)", to, err)
	}

	if text != "plain body" {
		t.Fatalf("unexpected text body %q", text)
	}
	if html != "<p>html body</p>" {
		t.Fatalf("unexpected html body %q", html)
	}
	if len(attachments) != 0 {
		t.Fatalf("expected no attachments, got %v", attachments)
	}
}

func TestBuildBccNotInHeaders(t *testing.T) {
	msg := &mail.Outgoing{
		From:     mail.Address{Addr: "sender@example.com"},
		To:       []string{"a@example.com"},
		Bcc:      []string{"hidden@example.com"},
		Subject:  "Hello",
		TextBody: "hi",
	}

	raw, err := Build(msg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if bytes.Contains(raw, []byte("hidden@example.com")) {
		t.Fatal("Bcc recipient must not appear in the built message")
	}

	// But the SMTP envelope must include it.
	rcpts := msg.Recipients()
	if len(rcpts) != 2 || rcpts[1] != "hidden@example.com" {
		t.Fatalf("expected Bcc in envelope recipients, got %v", rcpts)
	}
}

func TestBuildWithAttachment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.csv")
	content := []byte("name,amount\nAna,120\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	msg := &mail.Outgoing{
		From:            mail.Address{Addr: "sender@example.com"},
		To:              []string{"a@example.com"},
		Subject:         "With attachment",
		TextBody:        "see attached",
		AttachmentPaths: []string{path},
	}

	raw, err := Build(msg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	_, text, _, attachments := parseBuilt(t, raw)
	if text != "see attached" {
		t.Fatalf("unexpected text body %q", text)
	}
	got, ok := attachments["report.csv"]
	if !ok {
		t.Fatalf("expected attachment report.csv, got %v", attachments)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("attachment content mismatch: %q", got)
	}
}

func TestBuildMissingAttachment(t *testing.T) {
	msg := &mail.Outgoing{
		From:            mail.Address{Addr: "sender@example.com"},
		To:              []string{"a@example.com"},
		Subject:         "Broken",
		TextBody:        "hi",
		AttachmentPaths: []string{filepath.Join(t.TempDir(), "missing.pdf")},
	}

	if _, err := Build(msg); err == nil {
		t.Fatal("expected error for missing attachment file")
	}
}
