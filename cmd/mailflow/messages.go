package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/model"
)

// runMessages lists message metadata for a folder and optionally
// syncs it into the local database.
func (a *app) runMessages(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("messages", flag.ExitOnError)
	folder := fs.String("folder", "INBOX", "folder to list")
	limit := fs.Int("limit", 50, "maximum number of messages")
	since := fs.String("since", "", "only messages on or after this date (YYYY-MM-DD)")
	sync := fs.Bool("sync", false, "store the listed metadata in the local database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts := mail.FetchOptions{Limit: *limit}
	if *since != "" {
		t, err := time.Parse("2006-01-02", *since)
		if err != nil {
			return fmt.Errorf("parsing -since: %w", err)
		}
		opts.Since = t
	}

	mbox, acct, err := a.mailbox()
	if err != nil {
		return err
	}

	envs, err := mbox.Envelopes(ctx, *folder, opts)
	if err != nil {
		return err
	}

	for _, e := range envs {
		fmt.Printf("%8d  %s  %-30s  %s\n",
			e.UID,
			e.Date.Format("2006-01-02 15:04"),
			truncate(e.From.String(), 30),
			e.Subject,
		)
	}

	if !*sync {
		return nil
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	records := make([]model.MessageRecord, 0, len(envs))
	now := time.Now()
	for _, e := range envs {
		records = append(records, model.MessageRecord{
			Account:         acct.Name,
			Folder:          *folder,
			UID:             e.UID,
			MessageID:       e.MessageID,
			Subject:         e.Subject,
			FromName:        e.From.Name,
			FromAddr:        e.From.Addr,
			ToAddrs:         e.To,
			Date:            e.Date,
			Flags:           e.Flags,
			AttachmentCount: e.AttachmentCount,
			FetchedAt:       now,
		})
	}
	if err := st.UpsertMessages(ctx, records); err != nil {
		return err
	}
	a.log.Info().
		Str("folder", *folder).
		Int("count", len(records)).
		Msg("metadata synced")
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
