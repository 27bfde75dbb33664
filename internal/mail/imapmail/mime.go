package imapmail

import (
	"bytes"
	"io"
	"strings"

	gomail "github.com/emersion/go-message/mail"

	"github.com/mhoang/mailflow/internal/mail"
)

// parseMIMEBody parses a raw RFC 2822 message body using go-message
// and extracts the text/plain body, text/html body, and attachments
// with their content.
func parseMIMEBody(raw []byte) (
	textBody string, htmlBody string, attachments []mail.Attachment,
) {
	reader := bytes.NewReader(raw)

	mr, err := gomail.CreateReader(reader)
	if err != nil {
		// If parsing fails, try treating the whole thing as plain text
		return string(raw), "", nil
	}
	defer mr.Close()

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		switch h := part.Header.(type) {
		case *gomail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			switch {
			case strings.HasPrefix(contentType, "text/plain"):
				textBody = string(body)
			case strings.HasPrefix(contentType, "text/html"):
				htmlBody = string(body)
			}

		case *gomail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, _, _ := h.ContentType()

			body, readErr := io.ReadAll(part.Body)
			if readErr != nil {
				continue
			}

			attachments = append(attachments, mail.Attachment{
				Filename: filename,
				MIMEType: contentType,
				Size:     int64(len(body)),
				Data:     body,
			})
		}
	}

	return textBody, htmlBody, attachments
}
