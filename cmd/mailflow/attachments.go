package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"

	"github.com/mhoang/mailflow/internal/mail"
)

// runAttachments saves message attachments to a local directory.
// With a UID argument it targets one message; without, it sweeps the
// newest -limit messages of the folder.
func (a *app) runAttachments(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("attachments", flag.ExitOnError)
	folder := fs.String("folder", "INBOX", "folder holding the message(s)")
	dir := fs.String("dir", ".", "destination directory")
	limit := fs.Int("limit", 10, "messages to sweep when no UID is given")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("attachments: expected at most one message UID argument")
	}

	mbox, _, err := a.mailbox()
	if err != nil {
		return err
	}

	var paths []string
	if fs.NArg() == 1 {
		uid, err := strconv.ParseUint(fs.Arg(0), 10, 32)
		if err != nil {
			return fmt.Errorf("parsing UID %q: %w", fs.Arg(0), err)
		}
		paths, err = mbox.SaveAttachments(ctx, *folder, uint32(uid), *dir)
		if err != nil {
			return err
		}
	} else {
		envs, err := mbox.Envelopes(ctx, *folder, mail.FetchOptions{Limit: *limit})
		if err != nil {
			return err
		}
		for _, e := range envs {
			p, err := mbox.SaveAttachments(ctx, *folder, e.UID, *dir)
			if err != nil {
				return err
			}
			paths = append(paths, p...)
		}
	}

	if len(paths) == 0 {
		a.log.Info().Msg("no attachments found")
		return nil
	}
	for _, p := range paths {
		fmt.Println(p)
	}
	return nil
}
