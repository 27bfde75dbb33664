package bulk_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mhoang/mailflow/internal/bulk"
	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/mail/memmail"
	"github.com/mhoang/mailflow/internal/model"
	"github.com/mhoang/mailflow/tests/testutil"
)

func recipients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("r%d@example.com", i+1)
	}
	return out
}

func baseOptions(mode string, rcpts []string) bulk.Options {
	return bulk.Options{
		Name:            "newsletter",
		Account:         "work",
		From:            mail.Address{Name: "Sender", Addr: "sender@example.com"},
		Subject:         "Hello",
		TextBody:        "body",
		Recipients:      rcpts,
		Mode:            mode,
		PerMessageLimit: 500,
		PerWindowLimit:  30,
		Window:          time.Millisecond,
	}
}

func TestRunJoinModeSingleMessage(t *testing.T) {
	st := testutil.NewTestStore(t)
	sender := memmail.New()
	r := bulk.NewRunner(st, sender, zerolog.Nop())

	job, err := r.Run(context.Background(), baseOptions(model.ModeJoin, recipients(450)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := sender.Sent()
	if len(msgs) != 1 {
		t.Fatalf("expected a single joined message, got %d", len(msgs))
	}
	if len(msgs[0].To) != 450 {
		t.Fatalf("expected 450 recipients on the message, got %d", len(msgs[0].To))
	}

	if job.Sent != 1 || job.Failed != 0 {
		t.Fatalf("unexpected job counters: sent=%d failed=%d", job.Sent, job.Failed)
	}

	stored, err := st.GetSendJob(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetSendJob: %v", err)
	}
	if stored.Sent != 1 || stored.Total != 450 {
		t.Fatalf("unexpected stored job: %+v", stored)
	}
	if stored.FinishedAt.IsZero() {
		t.Fatal("expected job to be finalized")
	}

	sends, err := st.GetSends(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetSends: %v", err)
	}
	if len(sends) != 1 {
		t.Fatalf("expected one send record for the joined chunk, got %d", len(sends))
	}
	if !strings.Contains(sends[0].Recipient, "r450@example.com") {
		t.Fatalf("expected joined recipient list, got %q", sends[0].Recipient)
	}
}

func TestRunJoinModeChunksLargeList(t *testing.T) {
	st := testutil.NewTestStore(t)
	sender := memmail.New()
	r := bulk.NewRunner(st, sender, zerolog.Nop())

	job, err := r.Run(context.Background(), baseOptions(model.ModeJoin, recipients(650)))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := sender.Sent()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages for 650 recipients at cap 500, got %d", len(msgs))
	}
	if len(msgs[0].To) != 500 || len(msgs[1].To) != 150 {
		t.Fatalf("expected recipient splits [500 150], got [%d %d]",
			len(msgs[0].To), len(msgs[1].To))
	}
	if job.Sent != 2 {
		t.Fatalf("expected 2 sent chunks, got %d", job.Sent)
	}
}

func TestRunEachModeOneMessagePerRecipient(t *testing.T) {
	st := testutil.NewTestStore(t)
	sender := memmail.New()
	r := bulk.NewRunner(st, sender, zerolog.Nop())

	rcpts := recipients(65)
	job, err := r.Run(context.Background(), baseOptions(model.ModeEach, rcpts))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	msgs := sender.Sent()
	if len(msgs) != 65 {
		t.Fatalf("expected 65 messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if len(m.To) != 1 || m.To[0] != rcpts[i] {
			t.Fatalf("message %d: expected single recipient %q, got %v", i, rcpts[i], m.To)
		}
	}
	if job.Sent != 65 || job.Failed != 0 {
		t.Fatalf("unexpected counters: sent=%d failed=%d", job.Sent, job.Failed)
	}
}

func TestRunEachModeFailStop(t *testing.T) {
	st := testutil.NewTestStore(t)
	sender := memmail.New()
	sendErr := errors.New("rejected")
	sender.SendErr = func(msg *mail.Outgoing) error {
		if msg.To[0] == "r5@example.com" {
			return sendErr
		}
		return nil
	}
	r := bulk.NewRunner(st, sender, zerolog.Nop())

	job, err := r.Run(context.Background(), baseOptions(model.ModeEach, recipients(10)))
	if !errors.Is(err, sendErr) {
		t.Fatalf("expected send error to propagate, got %v", err)
	}

	if len(sender.Sent()) != 4 {
		t.Fatalf("expected the 4 sends before the failure, got %d", len(sender.Sent()))
	}
	if job.Sent != 4 || job.Failed != 1 {
		t.Fatalf("unexpected counters: sent=%d failed=%d", job.Sent, job.Failed)
	}

	sends, err := st.GetSends(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("GetSends: %v", err)
	}
	if len(sends) != 5 {
		t.Fatalf("expected 5 send records including the failure, got %d", len(sends))
	}

	var failures int
	for _, s := range sends {
		if s.Status == model.SendStatusFailed {
			failures++
			if s.Error == "" {
				t.Fatal("failed send record must carry the error text")
			}
		}
	}
	if failures != 1 {
		t.Fatalf("expected exactly 1 failed record, got %d", failures)
	}
}

func TestRunSmoothModeSendsAll(t *testing.T) {
	st := testutil.NewTestStore(t)
	sender := memmail.New()
	r := bulk.NewRunner(st, sender, zerolog.Nop())

	opts := baseOptions(model.ModeSmooth, recipients(20))
	opts.PerWindowLimit = 0 // unlimited bucket

	job, err := r.Run(context.Background(), opts)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sender.Sent()) != 20 {
		t.Fatalf("expected 20 messages, got %d", len(sender.Sent()))
	}
	if job.Sent != 20 {
		t.Fatalf("expected 20 sent, got %d", job.Sent)
	}
}

func TestRunUnknownMode(t *testing.T) {
	st := testutil.NewTestStore(t)
	r := bulk.NewRunner(st, memmail.New(), zerolog.Nop())

	if _, err := r.Run(context.Background(), baseOptions("carrier-pigeon", recipients(3))); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestRunNoRecipients(t *testing.T) {
	st := testutil.NewTestStore(t)
	r := bulk.NewRunner(st, memmail.New(), zerolog.Nop())

	if _, err := r.Run(context.Background(), baseOptions(model.ModeEach, nil)); err == nil {
		t.Fatal("expected error for empty recipient list")
	}
}
