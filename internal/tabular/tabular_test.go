package tabular

import (
	"bytes"
	"strings"
	"testing"
)

const sampleCSV = `name,email,amount
Ana,ana@example.com,120
Bob,bob@example.com,95
Cara,cara@example.com,
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	if len(tbl.Header) != 3 || tbl.Header[1] != "email" {
		t.Fatalf("unexpected header: %v", tbl.Header)
	}
	if len(tbl.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][0] != "Ana" || tbl.Rows[2][1] != "cara@example.com" {
		t.Fatalf("unexpected rows: %v", tbl.Rows)
	}
}

func TestReadCSVEmpty(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(""))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(tbl.Header) != 0 || len(tbl.Rows) != 0 {
		t.Fatalf("expected empty table, got %+v", tbl)
	}
}

func TestColumn(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	emails, err := tbl.Column("Email")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	want := []string{"ana@example.com", "bob@example.com", "cara@example.com"}
	if len(emails) != len(want) {
		t.Fatalf("expected %d emails, got %d", len(want), len(emails))
	}
	for i := range want {
		if emails[i] != want[i] {
			t.Fatalf("email %d: expected %q, got %q", i, want[i], emails[i])
		}
	}
}

func TestColumnSkipsEmptyCells(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	amounts, err := tbl.Column("amount")
	if err != nil {
		t.Fatalf("Column: %v", err)
	}
	if len(amounts) != 2 {
		t.Fatalf("expected empty amount cell to be skipped, got %v", amounts)
	}
}

func TestColumnMissing(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if _, err := tbl.Column("phone"); err == nil {
		t.Fatal("expected error for missing column")
	}
}

func TestHTMLEscapesCells(t *testing.T) {
	tbl := &Table{
		Header: []string{"name", "note"},
		Rows: [][]string{
			{"Ana", `<script>alert("x")</script>`},
			{"Bob"}, // ragged row gets padded
		},
	}

	html, err := tbl.HTML()
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}

	if !strings.Contains(html, "<th>name</th>") {
		t.Fatalf("expected header cell in output:\n%s", html)
	}
	if strings.Contains(html, "<script>") {
		t.Fatalf("cell content must be escaped:\n%s", html)
	}
	if !strings.Contains(html, "&lt;script&gt;") {
		t.Fatalf("expected escaped script tag:\n%s", html)
	}
	if !strings.Contains(html, "<tr><td>Bob</td><td></td></tr>") {
		t.Fatalf("expected padded ragged row:\n%s", html)
	}
}

func TestWriteCSVRoundTrip(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}

	var buf bytes.Buffer
	if err := tbl.WriteCSV(&buf); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	again, err := ReadCSV(&buf)
	if err != nil {
		t.Fatalf("ReadCSV(rewritten): %v", err)
	}
	if len(again.Rows) != len(tbl.Rows) {
		t.Fatalf("expected %d rows after round trip, got %d", len(tbl.Rows), len(again.Rows))
	}
}

func TestReadFileUnsupported(t *testing.T) {
	if _, err := ReadFile("recipients.ods"); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
}
