package reports

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
)

// PDFRenderer turns an HTML document into a PDF. report.Client satisfies it.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

var pdfTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}} {{.Period}}</title>
<style>
body { font-family: sans-serif; font-size: 11px; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #999; padding: 4px 6px; }
td.num { text-align: right; }
tr.total td { font-weight: bold; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<p>Period {{.Period}}, generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}</p>
<table>
<thead><tr><th>Unit</th><th>Records</th>{{range .Columns}}<th>{{.}}</th>{{end}}<th>Total</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Name}}</td><td class="num">{{.Records}}</td>{{range .Counts}}<td class="num">{{.}}</td>{{end}}<td class="num">{{.Total}}</td></tr>
{{end}}<tr class="total"><td>{{.GrandTotal.Name}}</td><td class="num">{{.GrandTotal.Records}}</td>{{range .GrandTotal.Counts}}<td class="num">{{.}}</td>{{end}}<td class="num">{{.GrandTotal.Total}}</td></tr>
</tbody>
</table>
</body>
</html>
`))

// RenderHTML produces the printable HTML for a report.
func RenderHTML(report Report) (string, error) {
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("render report html: %w", err)
	}
	return buf.String(), nil
}

// RenderPDF renders the report through the PDF renderer.
func RenderPDF(ctx context.Context, renderer PDFRenderer, report Report) ([]byte, error) {
	if renderer == nil {
		return nil, fmt.Errorf("pdf renderer not configured")
	}
	html, err := RenderHTML(report)
	if err != nil {
		return nil, err
	}
	return renderer.RenderHTML(ctx, html)
}
