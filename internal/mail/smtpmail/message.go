package smtpmail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/mhoang/mailflow/internal/mail"
)

// Build renders an Outgoing into a complete RFC 2822 message. Text and
// HTML bodies become a multipart/alternative inline part; attachment
// paths are read from disk and appended as attachment parts. Bcc
// recipients are deliberately absent from the headers; they only
// appear in the SMTP envelope.
func Build(msg *mail.Outgoing) ([]byte, error) {
	var buf bytes.Buffer

	var h gomail.Header
	h.SetDate(time.Now())
	h.SetSubject(msg.Subject)
	h.SetAddressList("From", []*gomail.Address{
		{Name: msg.From.Name, Address: msg.From.Addr},
	})
	h.SetAddressList("To", toAddressList(msg.To))
	if len(msg.Cc) > 0 {
		h.SetAddressList("Cc", toAddressList(msg.Cc))
	}

	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("creating message writer: %w", err)
	}

	if err := writeBodies(mw, msg); err != nil {
		return nil, err
	}

	for _, path := range msg.AttachmentPaths {
		if err := writeAttachment(mw, path); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing message: %w", err)
	}

	return buf.Bytes(), nil
}

// writeBodies emits the inline text and HTML parts. A message with
// neither body still gets an empty text part so the result is a valid
// message.
func writeBodies(mw *gomail.Writer, msg *mail.Outgoing) error {
	iw, err := mw.CreateInline()
	if err != nil {
		return fmt.Errorf("creating inline part: %w", err)
	}

	text := msg.TextBody
	if text == "" && msg.HTMLBody == "" {
		text = "\r\n"
	}

	if text != "" {
		var th gomail.InlineHeader
		th.Set("Content-Type", "text/plain; charset=utf-8")
		pw, err := iw.CreatePart(th)
		if err != nil {
			return fmt.Errorf("creating text part: %w", err)
		}
		if _, err := io.WriteString(pw, text); err != nil {
			return fmt.Errorf("writing text body: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("closing text part: %w", err)
		}
	}

	if msg.HTMLBody != "" {
		var hh gomail.InlineHeader
		hh.Set("Content-Type", "text/html; charset=utf-8")
		pw, err := iw.CreatePart(hh)
		if err != nil {
			return fmt.Errorf("creating html part: %w", err)
		}
		if _, err := io.WriteString(pw, msg.HTMLBody); err != nil {
			return fmt.Errorf("writing html body: %w", err)
		}
		if err := pw.Close(); err != nil {
			return fmt.Errorf("closing html part: %w", err)
		}
	}

	if err := iw.Close(); err != nil {
		return fmt.Errorf("closing inline part: %w", err)
	}
	return nil
}

// writeAttachment streams one file from disk into an attachment part.
func writeAttachment(mw *gomail.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening attachment %s: %w", path, err)
	}
	defer f.Close()

	name := filepath.Base(path)

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}

	var ah gomail.AttachmentHeader
	ah.Set("Content-Type", ctype)
	ah.SetFilename(name)

	aw, err := mw.CreateAttachment(ah)
	if err != nil {
		return fmt.Errorf("creating attachment part %s: %w", name, err)
	}
	if _, err := io.Copy(aw, f); err != nil {
		return fmt.Errorf("writing attachment %s: %w", name, err)
	}
	if err := aw.Close(); err != nil {
		return fmt.Errorf("closing attachment part %s: %w", name, err)
	}
	return nil
}

func toAddressList(addrs []string) []*gomail.Address {
	out := make([]*gomail.Address, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, &gomail.Address{Address: a})
	}
	return out
}
