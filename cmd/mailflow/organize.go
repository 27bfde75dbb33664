package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
)

// runOrganize flags, moves, or archives a single message.
func (a *app) runOrganize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	folder := fs.String("folder", "INBOX", "folder holding the message")
	seen := fs.Bool("seen", false, "mark the message as read")
	unseen := fs.Bool("unseen", false, "mark the message as unread")
	flagged := fs.Bool("flag", false, "flag the message")
	unflagged := fs.Bool("unflag", false, "remove the flag")
	move := fs.String("move", "", "move the message to this folder")
	archive := fs.Bool("archive", false, "move the message to the archive folder")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("organize: expected exactly one message UID argument")
	}
	uid64, err := strconv.ParseUint(fs.Arg(0), 10, 32)
	if err != nil {
		return fmt.Errorf("parsing UID %q: %w", fs.Arg(0), err)
	}
	uid := uint32(uid64)

	mbox, _, err := a.mailbox()
	if err != nil {
		return err
	}

	if *seen {
		if err := mbox.SetFlags(ctx, *folder, uid, []string{`\Seen`}, true); err != nil {
			return err
		}
	}
	if *unseen {
		if err := mbox.SetFlags(ctx, *folder, uid, []string{`\Seen`}, false); err != nil {
			return err
		}
	}
	if *flagged {
		if err := mbox.SetFlags(ctx, *folder, uid, []string{`\Flagged`}, true); err != nil {
			return err
		}
	}
	if *unflagged {
		if err := mbox.SetFlags(ctx, *folder, uid, []string{`\Flagged`}, false); err != nil {
			return err
		}
	}
	if *move != "" {
		if err := mbox.Move(ctx, *folder, uid, *move); err != nil {
			return err
		}
	}
	if *archive {
		if err := mbox.Archive(ctx, *folder, uid); err != nil {
			return err
		}
	}

	a.log.Info().Uint32("uid", uid).Str("folder", *folder).Msg("message updated")
	return nil
}
