package tabular

import (
	"fmt"
	"html/template"
	"strings"
)

// tableTemplate renders a table as a self-contained HTML fragment.
// Cell values are escaped by html/template.
var tableTemplate = template.Must(template.New("table").Parse(strings.TrimSpace(`
<table border="1" cellpadding="4" cellspacing="0">
{{- if .Header}}
<thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead>
{{- end}}
<tbody>
{{- range .paddedRows}}
<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
`)))

// HTML renders the table as a <table> fragment suitable for embedding
// into an outgoing HTML body. Short rows are padded to the header
// width so columns stay aligned.
func (t *Table) HTML() (string, error) {
	width := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > width {
			width = len(row)
		}
	}

	padded := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if len(row) < width {
			p := make([]string, width)
			copy(p, row)
			row = p
		}
		padded = append(padded, row)
	}

	var sb strings.Builder
	err := tableTemplate.Execute(&sb, map[string]any{
		"Header":     t.Header,
		"paddedRows": padded,
	})
	if err != nil {
		return "", fmt.Errorf("rendering table: %w", err)
	}
	return sb.String(), nil
}
