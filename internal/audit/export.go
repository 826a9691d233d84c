package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"html/template"
	"time"
)

// ErrPDFUnavailable is returned when no PDF renderer is configured.
var ErrPDFUnavailable = errors.New("audit: pdf export unavailable")

// PDFRenderer converts an HTML document to PDF.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// Exporter writes audit trail exports.
type Exporter struct {
	pdf PDFRenderer
}

// NewExporter constructs an Exporter. pdf may be nil, which disables RenderPDF.
func NewExporter(pdf PDFRenderer) *Exporter {
	return &Exporter{pdf: pdf}
}

// WriteCSV renders rows as CSV with a header line. Meta is written as JSON.
func (e *Exporter) WriteCSV(rows []TimelineRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"at", "actor", "action", "entity", "entity_id", "meta"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			b, err := json.Marshal(row.Meta)
			if err != nil {
				return nil, err
			}
			meta = string(b)
		}
		at := ""
		if !row.At.IsZero() {
			at = row.At.UTC().Format(time.RFC3339)
		}
		if err := w.Write([]string{at, row.Actor, row.Action, row.Entity, row.EntityID, meta}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var pdfTemplate = template.Must(template.New("audit-pdf").Parse(`<!doctype html>
<html lang="pt-BR"><head><meta charset="utf-8"><title>Trilha de auditoria</title>
<style>body{font-family:sans-serif;font-size:11px}table{width:100%;border-collapse:collapse}td,th{border-bottom:1px solid #ccc;padding:4px;text-align:left}</style>
</head><body>
<h1>Trilha de auditoria</h1>
<p>{{.Filters.From.Format "02/01/2006"}} a {{.Filters.To.Format "02/01/2006"}}{{if .Filters.Actor}} · autor {{.Filters.Actor}}{{end}}{{if .Filters.Action}} · ação {{.Filters.Action}}{{end}}</p>
<table><thead><tr><th>Quando</th><th>Autor</th><th>Ação</th><th>Entidade</th><th>ID</th></tr></thead><tbody>
{{range .Rows}}<tr><td>{{.At.Format "02/01/2006 15:04"}}</td><td>{{.Actor}}</td><td>{{.Action}}</td><td>{{.Entity}}</td><td>{{.EntityID}}</td></tr>
{{end}}</tbody></table>
</body></html>`))

// RenderPDF renders vm as a printable document.
func (e *Exporter) RenderPDF(ctx context.Context, vm ViewModel) ([]byte, error) {
	if e == nil || e.pdf == nil {
		return nil, ErrPDFUnavailable
	}
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, vm); err != nil {
		return nil, err
	}
	return e.pdf.RenderHTML(ctx, buf.String())
}
