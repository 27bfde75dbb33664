package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/mhoang/mailflow/internal/bulk"
	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/mail/memmail"
	"github.com/mhoang/mailflow/internal/model"
	"github.com/mhoang/mailflow/internal/tabular"
)

// runBulk mass-sends a message to every address in a recipient file,
// batched or throttled according to -mode, and records the run in the
// send log.
func (a *app) runBulk(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("bulk", flag.ExitOnError)
	var attach stringList
	fs.Var(&attach, "attach", "attachment file path (repeatable)")
	file := fs.String("file", "", "CSV or XLSX file holding the recipient list")
	column := fs.String("column", "email", "recipient address column name")
	mode := fs.String("mode", model.ModeJoin, "dispatch mode: join, each, or smooth")
	name := fs.String("name", "", "job name recorded in the send log")
	subject := fs.String("subject", "", "message subject")
	body := fs.String("body", "", "message body text")
	bodyFile := fs.String("body-file", "", "read the body from this file")
	html := fs.Bool("html", false, "treat the body as HTML")
	perMessage := fs.Int("per-message", 0, "recipients per message in join mode (0 = config default)")
	perWindow := fs.Int("per-window", 0, "messages per window in each/smooth mode (0 = config default)")
	windowSec := fs.Int("window", 0, "pacing window in seconds (0 = config default)")
	dryRun := fs.Bool("dry-run", false, "record the job without sending anything")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *file == "" {
		return fmt.Errorf("bulk: -file is required")
	}

	table, err := tabular.ReadFile(*file)
	if err != nil {
		return err
	}
	recipients, err := table.Column(*column)
	if err != nil {
		return err
	}

	text, htmlBody, err := resolveBody(*body, *bodyFile, *html)
	if err != nil {
		return err
	}

	acct, err := a.selectedAccount()
	if err != nil {
		return err
	}

	var sender mail.Sender
	if *dryRun {
		// Dry runs exercise the full pipeline against an in-memory
		// sender, so chunking and the send log behave exactly as a
		// real run would.
		sender = memmail.New()
	} else {
		sender, _, err = a.sender()
		if err != nil {
			return err
		}
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	d := a.cfg.Dispatch
	opts := bulk.Options{
		Name:            *name,
		Account:         acct.Name,
		From:            a.from(acct),
		Subject:         *subject,
		TextBody:        text,
		HTMLBody:        htmlBody,
		AttachmentPaths: attach,
		Recipients:      recipients,
		Mode:            *mode,
		PerMessageLimit: orDefault(*perMessage, d.PerMessageLimit),
		PerWindowLimit:  orDefault(*perWindow, d.PerWindowLimit),
		Window:          time.Duration(orDefault(*windowSec, d.WindowSec)) * time.Second,
		DryRun:          *dryRun,
	}

	runner := bulk.NewRunner(st, sender, a.log)
	job, runErr := runner.Run(ctx, opts)
	if job != nil {
		a.log.Info().
			Str("job", job.ID).
			Str("mode", job.Mode).
			Int("total", job.Total).
			Int("sent", job.Sent).
			Int("failed", job.Failed).
			Bool("dry_run", job.DryRun).
			Msg("bulk send finished")
	}
	return runErr
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
