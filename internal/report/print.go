package report

import (
	"fmt"
	"html"
	"io"
	"strings"
)

const ContentTypeHTML = "text/html; charset=utf-8"

// PrintFilters echoes the query a printed report was built from.
type PrintFilters struct {
	Start  string
	End    string
	Status string
}

// WritePrintHTML renders a print-friendly page with the summary and the daily
// table of sales.
func WritePrintHTML(w io.Writer, f PrintFilters, sales *Sales) error {
	var rows strings.Builder
	for _, d := range sales.Daily {
		fmt.Fprintf(&rows, `<tr><td>%s</td><td class="num">%s</td><td class="num">%d</td></tr>`,
			html.EscapeString(d.Date), d.Total.StringFixed(2), d.Orders)
	}
	if len(sales.Daily) == 0 {
		rows.WriteString(`<tr><td colspan="3">No sales in this range.</td></tr>`)
	}

	_, err := fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Sales Report - Print</title>
<style>
body { font-family: Arial, sans-serif; margin: 24px; }
table { border-collapse: collapse; width: 100%%; }
th, td { border-bottom: 1px solid #ccc; padding: 6px 8px; text-align: left; }
.num { text-align: right; }
@media print { .no-print { display: none; } }
</style>
</head>
<body>
<h1>Sales Report</h1>
<p>From: %s &nbsp; To: %s &nbsp; Status: %s</p>
<p><strong>Total sales:</strong> $%s &nbsp; <strong>Orders:</strong> %d</p>
<table>
<thead><tr><th>Date</th><th class="num">Total</th><th class="num">Orders</th></tr></thead>
<tbody>%s</tbody>
</table>
<button class="no-print" onclick="window.print()">Print</button>
</body>
</html>
`,
		orAll(f.Start), orAll(f.End), orAll(f.Status),
		sales.Summary.TotalSales.StringFixed(2), sales.Summary.OrdersCount,
		rows.String())
	return err
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return html.EscapeString(v)
}
