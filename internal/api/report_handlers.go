package api

import (
	"bytes"
	"log"
	"net/http"
	"strconv"

	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/domain/order"
	"github.com/example/ec-storefront/internal/report"
)

// Report Handlers

func (h *Handlers) SalesReport(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}

	sales, err := h.reports.Sales(r.Context(), principal(r), f)
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"filters": map[string]string{
			"start":  r.URL.Query().Get("start"),
			"end":    r.URL.Query().Get("end"),
			"status": string(f.Status),
		},
		"summary": sales.Summary,
		"daily":   sales.Daily,
		"orders":  sales.Orders,
	})
}

// PrintSales serves the print-friendly HTML version of SalesReport.
func (h *Handlers) PrintSales(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}

	sales, err := h.reports.Sales(r.Context(), principal(r), f)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	q := r.URL.Query()
	var buf bytes.Buffer
	err = report.WritePrintHTML(&buf, report.PrintFilters{
		Start:  q.Get("start"),
		End:    q.Get("end"),
		Status: string(f.Status),
	}, sales)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	w.Header().Set("Content-Type", report.ContentTypeHTML)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("[API] Failed to write sales print view: %v", err)
	}
}

func (h *Handlers) ExportDailySales(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}

	rows, err := h.reports.Daily(r.Context(), principal(r), f)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteDailyXLSX(&buf, rows); err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	writeAttachment(w, report.DailyFilename, buf.Bytes())
}

func (h *Handlers) ExportDetailedSales(w http.ResponseWriter, r *http.Request) {
	f, err := reportFilter(r)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}

	orders, err := h.reports.Detailed(r.Context(), principal(r), f)
	if err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	var buf bytes.Buffer
	if err := report.WriteOrdersXLSX(&buf, orders); err != nil {
		respond.Error(w, r, err, "/admin/sales")
		return
	}
	writeAttachment(w, report.DetailedFilename, buf.Bytes())
}

func reportFilter(r *http.Request) (report.Filter, error) {
	q := r.URL.Query()
	from, to, err := order.ParseDateRange(q.Get("start"), q.Get("end"))
	if err != nil {
		return report.Filter{}, err
	}
	f := report.Filter{From: from, To: to}
	if raw := q.Get("status"); raw != "" && raw != "all" {
		if f.Status, err = order.ParseStatus(raw); err != nil {
			return report.Filter{}, err
		}
	}
	return f, nil
}

func writeAttachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", report.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Printf("[API] Failed to write %s: %v", filename, err)
	}
}
