package memmail

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mhoang/mailflow/internal/mail"
)

func seeded() *Store {
	s := New()
	s.AddFolder("INBOX")
	s.AddFolder("Receipts")
	s.AddMessage("INBOX", mail.Message{
		Envelope: mail.Envelope{
			Subject: "first",
			From:    mail.Address{Addr: "ana@example.com"},
			Date:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		},
		TextBody: "hello",
	})
	s.AddMessage("INBOX", mail.Message{
		Envelope: mail.Envelope{
			Subject: "second",
			From:    mail.Address{Addr: "bob@example.com"},
			Date:    time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		},
		Attachments: []mail.Attachment{
			{Filename: "data.csv", MIMEType: "text/csv", Data: []byte("a,b\n1,2\n")},
		},
	})
	return s
}

func TestEnvelopesSinceAndLimit(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	all, err := s.Envelopes(ctx, "INBOX", mail.FetchOptions{})
	if err != nil {
		t.Fatalf("Envelopes: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 envelopes, got %d", len(all))
	}

	since, err := s.Envelopes(ctx, "INBOX", mail.FetchOptions{
		Since: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Envelopes: %v", err)
	}
	if len(since) != 1 || since[0].Subject != "second" {
		t.Fatalf("unexpected since filter result: %v", since)
	}

	limited, err := s.Envelopes(ctx, "INBOX", mail.FetchOptions{Limit: 1})
	if err != nil {
		t.Fatalf("Envelopes: %v", err)
	}
	if len(limited) != 1 || limited[0].Subject != "second" {
		t.Fatalf("limit must keep the newest, got %v", limited)
	}
}

func TestSetFlags(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	if err := s.SetFlags(ctx, "INBOX", 1, []string{`\Seen`}, true); err != nil {
		t.Fatalf("SetFlags(add): %v", err)
	}
	msg, err := s.Message(ctx, "INBOX", 1)
	if err != nil {
		t.Fatalf("Message: %v", err)
	}
	if len(msg.Envelope.Flags) != 1 || msg.Envelope.Flags[0] != `\Seen` {
		t.Fatalf("expected \\Seen flag, got %v", msg.Envelope.Flags)
	}

	if err := s.SetFlags(ctx, "INBOX", 1, []string{`\Seen`}, false); err != nil {
		t.Fatalf("SetFlags(del): %v", err)
	}
	msg, _ = s.Message(ctx, "INBOX", 1)
	if len(msg.Envelope.Flags) != 0 {
		t.Fatalf("expected no flags, got %v", msg.Envelope.Flags)
	}
}

func TestMoveAndArchive(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	if err := s.Move(ctx, "INBOX", 1, "Receipts"); err != nil {
		t.Fatalf("Move: %v", err)
	}
	envs, _ := s.Envelopes(ctx, "Receipts", mail.FetchOptions{})
	if len(envs) != 1 || envs[0].Subject != "first" {
		t.Fatalf("expected moved message in Receipts, got %v", envs)
	}

	// Remaining INBOX message keeps its UID.
	if err := s.Archive(ctx, "INBOX", 2); err != nil {
		t.Fatalf("Archive: %v", err)
	}
	envs, _ = s.Envelopes(ctx, "Archive", mail.FetchOptions{})
	if len(envs) != 1 || envs[0].Subject != "second" {
		t.Fatalf("expected archived message, got %v", envs)
	}
}

func TestMoveMissingFolder(t *testing.T) {
	s := seeded()
	if err := s.Move(context.Background(), "INBOX", 1, "Nope"); err == nil {
		t.Fatal("expected error for missing destination")
	}
}

func TestSaveAttachments(t *testing.T) {
	s := seeded()
	dir := t.TempDir()

	paths, err := s.SaveAttachments(context.Background(), "INBOX", 2, dir)
	if err != nil {
		t.Fatalf("SaveAttachments: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "data.csv" {
		t.Fatalf("unexpected paths %v", paths)
	}

	content, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("reading saved attachment: %v", err)
	}
	if string(content) != "a,b\n1,2\n" {
		t.Fatalf("unexpected content %q", content)
	}
}

func TestSendRecords(t *testing.T) {
	s := New()
	msg := &mail.Outgoing{
		From:    mail.Address{Addr: "me@example.com"},
		To:      []string{"a@example.com"},
		Subject: "hi",
	}
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}
	sent := s.Sent()
	if len(sent) != 1 || sent[0].Subject != "hi" {
		t.Fatalf("unexpected sent log %v", sent)
	}
}
