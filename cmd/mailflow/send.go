package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mhoang/mailflow/internal/mail"
	"github.com/mhoang/mailflow/internal/tabular"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// runSend composes and sends a single message.
func (a *app) runSend(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("send", flag.ExitOnError)
	var to, cc, bcc, attach stringList
	fs.Var(&to, "to", "recipient address (repeatable)")
	fs.Var(&cc, "cc", "cc address (repeatable)")
	fs.Var(&bcc, "bcc", "bcc address (repeatable)")
	fs.Var(&attach, "attach", "attachment file path (repeatable)")
	subject := fs.String("subject", "", "message subject")
	body := fs.String("body", "", "message body text")
	bodyFile := fs.String("body-file", "", "read the body from this file")
	html := fs.Bool("html", false, "treat the body as HTML")
	tablePath := fs.String("table", "", "CSV or XLSX file rendered as an HTML table in the body")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if len(to) == 0 {
		return fmt.Errorf("send: at least one -to address is required")
	}

	text, htmlBody, err := resolveBody(*body, *bodyFile, *html)
	if err != nil {
		return err
	}

	if *tablePath != "" {
		table, err := tabular.ReadFile(*tablePath)
		if err != nil {
			return err
		}
		rendered, err := table.HTML()
		if err != nil {
			return err
		}
		// A table forces an HTML body; the text body is kept as the
		// plain-text alternative.
		if htmlBody == "" && text != "" {
			htmlBody = "<p>" + strings.ReplaceAll(text, "\n", "<br>") + "</p>"
		}
		htmlBody += rendered
	}

	sender, acct, err := a.sender()
	if err != nil {
		return err
	}

	msg := &mail.Outgoing{
		From:            a.from(acct),
		To:              to,
		Cc:              cc,
		Bcc:             bcc,
		Subject:         *subject,
		TextBody:        text,
		HTMLBody:        htmlBody,
		AttachmentPaths: attach,
	}
	return sender.Send(ctx, msg)
}

// resolveBody picks the body text from -body or -body-file and routes
// it to the text or HTML slot.
func resolveBody(inline, path string, asHTML bool) (text, html string, err error) {
	body := inline
	if path != "" {
		if inline != "" {
			return "", "", fmt.Errorf("send: -body and -body-file are mutually exclusive")
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return "", "", fmt.Errorf("reading body file: %w", err)
		}
		body = string(raw)
	}
	if asHTML {
		return "", body, nil
	}
	return body, "", nil
}
