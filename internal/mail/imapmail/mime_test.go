package imapmail

import (
	"strings"
	"testing"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(s, "\n", "\r\n"))
}

const multipartFixture = `From: Ana <ana@example.com>
To: me@example.com
Subject: invoice
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary="frontier"

--frontier
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=utf-8

plain version
--inner
Content-Type: text/html; charset=utf-8

<p>html version</p>
--inner--
--frontier
Content-Type: text/csv
Content-Disposition: attachment; filename="invoice.csv"

id,amount
1,120
--frontier--
`

func TestParseMIMEBodyMultipart(t *testing.T) {
	text, html, attachments := parseMIMEBody(crlf(multipartFixture))

	if !strings.Contains(text, "plain version") {
		t.Fatalf("unexpected text body %q", text)
	}
	if !strings.Contains(html, "<p>html version</p>") {
		t.Fatalf("unexpected html body %q", html)
	}
	if len(attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(attachments))
	}

	att := attachments[0]
	if att.Filename != "invoice.csv" {
		t.Fatalf("unexpected attachment filename %q", att.Filename)
	}
	if !strings.HasPrefix(att.MIMEType, "text/csv") {
		t.Fatalf("unexpected attachment type %q", att.MIMEType)
	}
	if !strings.Contains(string(att.Data), "1,120") {
		t.Fatalf("attachment content missing, got %q", att.Data)
	}
	if att.Size != int64(len(att.Data)) {
		t.Fatalf("size %d does not match content length %d", att.Size, len(att.Data))
	}
}

const plainFixture = `From: Ana <ana@example.com>
To: me@example.com
Subject: note
Content-Type: text/plain; charset=utf-8

just text
`

func TestParseMIMEBodyPlain(t *testing.T) {
	text, html, attachments := parseMIMEBody(crlf(plainFixture))

	if !strings.Contains(text, "just text") {
		t.Fatalf("unexpected text body %q", text)
	}
	if html != "" {
		t.Fatalf("expected no html body, got %q", html)
	}
	if len(attachments) != 0 {
		t.Fatalf("expected no attachments, got %d", len(attachments))
	}
}

func TestParseMIMEBodyGarbageFallsBackToText(t *testing.T) {
	raw := []byte("not a mime message at all")
	text, html, attachments := parseMIMEBody(raw)
	if text != string(raw) || html != "" || attachments != nil {
		t.Fatalf("expected raw fallback, got %q / %q / %v", text, html, attachments)
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := map[string]string{
		"report.pdf":           "report.pdf",
		"../../etc/passwd":     "passwd",
		"we.ird name (1).xlsx": "we.ird name _1_.xlsx",
		"":                     "",
	}
	for in, want := range cases {
		if got := SanitizeFilename(in); got != want {
			t.Errorf("SanitizeFilename(%q): expected %q, got %q", in, want, got)
		}
	}
}
