package report

import (
	"bytes"
	"context"
	"html/template"

	"github.com/comanda-pos/comanda/internal/reports"
	"github.com/comanda-pos/comanda/internal/shared"
)

var dailyTemplate = template.Must(template.New("daily").Funcs(template.FuncMap{
	"money": shared.FormatMoney,
}).Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>Cierre {{.Date.Format "2006-01-02"}}</title>
<style>body{font-family:sans-serif;font-size:12px}td{padding:2px 8px}td.n{text-align:right}</style>
</head><body>
<h1>Resumen del día {{.Date.Format "02/01/2006"}}</h1>
<table>
<tr><td>Ventas</td><td class="n">{{.SalesCount}}</td></tr>
<tr><td>Total vendido</td><td class="n">{{money .SalesTotal}}</td></tr>
<tr><td>Gastos</td><td class="n">{{money .Expenses}}</td></tr>
{{with .Register}}
<tr><td>Caja abierta</td><td class="n">{{.OpenedAt.Format "15:04"}}</td></tr>
<tr><td>Saldo inicial</td><td class="n">{{money .OpeningBalance}}</td></tr>
<tr><td>Saldo esperado</td><td class="n">{{money .ExpectedBalance}}</td></tr>
{{end}}
</table>
</body></html>`))

// HTMLRenderer converts HTML into a PDF.
type HTMLRenderer interface {
	RenderHTML(ctx context.Context, html []byte) ([]byte, error)
}

// DailyRenderer prints the daily summary.
type DailyRenderer struct {
	pdf HTMLRenderer
}

// NewDailyRenderer builds a DailyRenderer.
func NewDailyRenderer(pdf HTMLRenderer) *DailyRenderer {
	return &DailyRenderer{pdf: pdf}
}

// DailyHTML renders the summary as HTML.
func DailyHTML(daily reports.Daily) ([]byte, error) {
	var buf bytes.Buffer
	if err := dailyTemplate.Execute(&buf, daily); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderDaily renders the summary as PDF.
func (r *DailyRenderer) RenderDaily(ctx context.Context, daily reports.Daily) ([]byte, error) {
	if r == nil || r.pdf == nil {
		return nil, ErrNotConfigured
	}
	html, err := DailyHTML(daily)
	if err != nil {
		return nil, err
	}
	return r.pdf.RenderHTML(ctx, html)
}
