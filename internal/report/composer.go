package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"o2d-dashboard/internal/dashboard"
	"o2d-dashboard/internal/models"
)

// rowCap 行清单最多嵌入 100 条，超出时追加总数说明
const rowCap = 100

// Document 可打印的静态报表文档
type Document struct {
	HTML        string    `json:"html"`
	GeneratedAt time.Time `json:"generatedAt"`
	RowTotal    int       `json:"rowTotal"`
}

// Input is everything the document embeds. All numbers arrive pre-derived;
// the composer is a pure projection and must not recompute anything.
type Input struct {
	Metrics     dashboard.MetricSet
	Selection   models.FilterSelection
	Ranking     []dashboard.RankedEntry
	Rows        []models.DispatchRow
	GeneratedAt time.Time
}

type filterItem struct {
	Label string
	Value string
}

type rankingRow struct {
	Rank       string
	Name       string
	Dispatches int
	Items      string
}

type listingRow struct {
	SrNo      int
	PartyName string
	ItemName  string
	InDate    string
	OutDate   string
	InvoiceNo string
}

type documentData struct {
	GeneratedAt string
	Metrics     dashboard.MetricSet
	Filters     []filterItem
	Ranking     []rankingRow
	Rows        []listingRow
	RowTotal    int
	Truncated   bool
}

// Compose serializes the current filtered view into a printable document:
// KPI grid, the non-default filters, the ranking table and a capped row
// listing.
func Compose(in Input) (*Document, error) {
	data := documentData{
		GeneratedAt: in.GeneratedAt.Format("02/01/2006 15:04:05"),
		Metrics:     in.Metrics,
		Filters:     activeFilters(in.Selection),
		RowTotal:    len(in.Rows),
		Truncated:   len(in.Rows) > rowCap,
	}

	for _, e := range in.Ranking {
		rank := "-"
		if !e.Others {
			rank = fmt.Sprintf("%d", e.Rank)
		}
		data.Ranking = append(data.Ranking, rankingRow{
			Rank:       rank,
			Name:       e.Name,
			Dispatches: e.Dispatches,
			Items:      joinItems(e.Items),
		})
	}

	rows := in.Rows
	if len(rows) > rowCap {
		rows = rows[:rowCap]
	}
	for i, r := range rows {
		data.Rows = append(data.Rows, listingRow{
			SrNo:      i + 1,
			PartyName: orDash(r.PartyName),
			ItemName:  orDash(r.ItemName),
			InDate:    orDash(formatDay(r.InDate)),
			OutDate:   orDash(formatDay(r.OutDate)),
			InvoiceNo: orDash(r.InvoiceNo),
		})
	}

	var buf bytes.Buffer
	if err := documentTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return &Document{
		HTML:        buf.String(),
		GeneratedAt: in.GeneratedAt,
		RowTotal:    len(in.Rows),
	}, nil
}

// activeFilters lists only the predicates that differ from their sentinel.
func activeFilters(sel models.FilterSelection) []filterItem {
	out := []filterItem{}
	if sel.Party != models.AllParties {
		out = append(out, filterItem{Label: "Party", Value: sel.Party})
	}
	if sel.Item != models.AllItems {
		out = append(out, filterItem{Label: "Item", Value: sel.Item})
	}
	if sel.State != models.AllStates {
		out = append(out, filterItem{Label: "State", Value: sel.State})
	}
	if sel.SalesPerson != models.AllSalesPersons {
		out = append(out, filterItem{Label: "Sales", Value: sel.SalesPerson})
	}
	if sel.FromDate != nil {
		out = append(out, filterItem{Label: "From", Value: sel.FromDate.Format("02/01/2006")})
	}
	if sel.ToDate != nil {
		out = append(out, filterItem{Label: "To", Value: sel.ToDate.Format("02/01/2006")})
	}
	return out
}

func joinItems(items []string) string {
	out := ""
	for i, it := range items {
		if i > 0 {
			out += ", "
		}
		out += it
	}
	return out
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatDay(value string) string {
	if t, ok := models.ParseRowTime(value); ok {
		return t.Format("02/01/2006")
	}
	return value
}

var documentTmpl = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>Dashboard Report</title>
<style>
@page { margin: 20mm; size: A4; }
body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; color: #333; line-height: 1.6; }
.header { text-align: center; margin-bottom: 30px; border-bottom: 2px solid #2563eb; padding-bottom: 20px; }
.header h1 { font-size: 28px; color: #1e40af; margin-bottom: 5px; }
.timestamp { font-size: 12px; color: #9ca3af; }
.section { margin-bottom: 30px; page-break-inside: avoid; }
.section-title { font-size: 18px; font-weight: 600; color: #1e40af; margin-bottom: 15px; border-bottom: 1px solid #e5e7eb; }
.kpi-grid { display: grid; grid-template-columns: repeat(4, 1fr); gap: 15px; }
.kpi-card { border: 1px solid #e5e7eb; border-radius: 8px; padding: 15px; background: #f9fafb; }
.kpi-label { font-size: 12px; color: #6b7280; text-transform: uppercase; }
.kpi-value { font-size: 20px; font-weight: 700; color: #1e40af; }
.kpi-value.alert { color: #dc2626; }
table { width: 100%; border-collapse: collapse; margin-top: 10px; font-size: 11px; }
th { background: #f3f4f6; color: #374151; font-weight: 600; padding: 12px 8px; text-align: left; border: 1px solid #d1d5db; }
td { padding: 10px 8px; border: 1px solid #e5e7eb; vertical-align: top; }
.filter-item { display: inline-block; background: white; padding: 5px 10px; margin: 5px; border-radius: 15px; border: 1px solid #d1d5db; font-size: 12px; }
.no-data { text-align: center; color: #6b7280; font-style: italic; padding: 20px; }
.truncation-note { margin-top: 15px; font-size: 12px; color: #6b7280; text-align: center; }
</style>
</head>
<body>
<div class="header">
  <h1>Dashboard Report</h1>
  <div class="subtitle">Filtered view of O2D operations</div>
  <div class="timestamp">Generated on: {{.GeneratedAt}}</div>
</div>

<div class="section">
  <div class="section-title">Key Performance Indicators</div>
  <div class="kpi-grid">
    <div class="kpi-card"><div class="kpi-label">Total Gate In</div><div class="kpi-value">{{.Metrics.TotalGateIn}}</div></div>
    <div class="kpi-card"><div class="kpi-label">Total Gate Out</div><div class="kpi-value">{{.Metrics.TotalGateOut}}</div></div>
    <div class="kpi-card"><div class="kpi-label">Total Dispatch</div><div class="kpi-value">{{.Metrics.TotalDispatch}}</div></div>
    <div class="kpi-card"><div class="kpi-label">Pending Gate Out</div><div class="kpi-value alert">{{.Metrics.PendingGateOut}}</div></div>
  </div>
</div>

{{if .Filters}}
<div class="section">
  <div class="section-title">Applied Filters</div>
  <div>{{range .Filters}}<span class="filter-item">{{.Label}}: {{.Value}}</span>{{end}}</div>
</div>
{{end}}

<div class="section">
  <div class="section-title">Top 10 Customers</div>
  {{if .Ranking}}
  <table>
    <thead><tr><th>Rank</th><th>Customer Name</th><th>Dispatches</th><th>Items</th></tr></thead>
    <tbody>
    {{range .Ranking}}<tr><td>{{.Rank}}</td><td>{{.Name}}</td><td>{{.Dispatches}}</td><td>{{.Items}}</td></tr>
    {{end}}</tbody>
  </table>
  {{else}}<div class="no-data">No customer data available</div>{{end}}
</div>

<div class="section">
  <div class="section-title">Filtered Results ({{.RowTotal}} total records)</div>
  {{if .Rows}}
  <table>
    <thead><tr><th>Sr.No.</th><th>Party Name</th><th>Item</th><th>In Date</th><th>Out Date</th><th>Invoice No.</th></tr></thead>
    <tbody>
    {{range .Rows}}<tr><td>{{.SrNo}}</td><td>{{.PartyName}}</td><td>{{.ItemName}}</td><td>{{.InDate}}</td><td>{{.OutDate}}</td><td>{{.InvoiceNo}}</td></tr>
    {{end}}</tbody>
  </table>
  {{if .Truncated}}<div class="truncation-note">Showing first 100 records of {{.RowTotal}} total results</div>{{end}}
  {{else}}<div class="no-data">No records found matching your filters</div>{{end}}
</div>
</body>
</html>
`))
