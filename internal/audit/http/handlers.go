package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carreirahub/carreirahub/internal/audit"
	"github.com/carreirahub/carreirahub/internal/platform/httpx"
	"github.com/carreirahub/carreirahub/internal/rbac"
	"github.com/carreirahub/carreirahub/internal/session"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 50
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Exporter writes audit trail exports.
type Exporter interface {
	WriteCSV(rows []audit.TimelineRow) ([]byte, error)
	RenderPDF(ctx context.Context, vm audit.ViewModel) ([]byte, error)
}

// PageRenderer draws a page inside the portal layout.
type PageRenderer interface {
	Render(w http.ResponseWriter, r *http.Request, status int, name, title string, data any)
}

// HandlerConfig groups the dependencies of Handler.
type HandlerConfig struct {
	Logger   *slog.Logger
	Service  TimelineService
	Exporter Exporter
	Pages    PageRenderer
	// Protect guards page navigation; usually portal.Handler.Protect.
	Protect  func(http.Handler) http.Handler
	Resolver *rbac.Resolver
}

// Handler serves the admin audit trail.
type Handler struct {
	logger   *slog.Logger
	service  TimelineService
	exporter Exporter
	pages    PageRenderer
	protect  func(http.Handler) http.Handler
	rbac     rbac.Middleware
	now      func() time.Time
}

// NewHandler creates an audit trail handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  cfg.Service,
		exporter: cfg.Exporter,
		pages:    cfg.Pages,
		protect:  cfg.Protect,
		rbac:     rbac.Middleware{Resolver: cfg.Resolver, Role: session.RoleFromRequest, Logger: logger},
		now:      time.Now,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "load audit timeline", err)
		return
	}
	vm := buildViewModel(filters, result)
	if httpx.WantsJSON(r) || h.pages == nil {
		httpx.JSON(w, http.StatusOK, vm)
		return
	}
	h.pages.Render(w, r, http.StatusOK, "pages/audit.html", "Trilha de auditoria", vm)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, r, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export audit timeline", err)
		return
	}
	csvBytes, err := h.exporter.WriteCSV(rows)
	if err != nil {
		h.handleServerError(w, "encode csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-trail.csv\"")
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) handlePDF(w http.ResponseWriter, r *http.Request) {
	if h.exporter == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusNotImplemented), http.StatusNotImplemented)
		return
	}
	filters, err := h.parseFilters(r)
	if err != nil {
		h.handleFilterError(w, r, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServerError(w, "export pdf data", err)
		return
	}
	vm := buildViewModel(filters, audit.Result{Rows: rows, Paging: audit.PagingInfo{Page: 1, PageSize: len(rows)}})
	pdfBytes, err := h.exporter.RenderPDF(r.Context(), vm)
	if err != nil {
		if errors.Is(err, audit.ErrPDFUnavailable) {
			http.Error(w, "Exportação em PDF indisponível", http.StatusNotImplemented)
			return
		}
		h.handleServerError(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=\"audit-trail.pdf\"")
	if _, err := w.Write(pdfBytes); err != nil {
		h.logger.Warn("write pdf", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	now := h.now().UTC()
	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.TimelineFilters{}, validationError{field: "from"}
	}
	if fromTime.After(toTime) {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.TimelineFilters{}, validationError{field: "range"}
	}

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page"}
		}
		page = parsed
	}
	pageSize := defaultPageSize
	if v := strings.TrimSpace(q.Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, validationError{field: "page_size"}
		}
		if parsed > maxPageSize {
			parsed = maxPageSize
		}
		pageSize = parsed
	}

	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime,
		Actor:    strings.TrimSpace(q.Get("actor")),
		Entity:   strings.TrimSpace(q.Get("entity")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func buildViewModel(filters audit.TimelineFilters, result audit.Result) audit.ViewModel {
	rows := make([]audit.TimelineRow, len(result.Rows))
	copy(rows, result.Rows)
	return audit.ViewModel{
		Filters: audit.FiltersViewModel{
			From:   filters.From,
			To:     filters.To,
			Actor:  filters.Actor,
			Entity: filters.Entity,
			Action: filters.Action,
		},
		Rows:   rows,
		Paging: result.Paging,
	}
}

func (h *Handler) handleFilterError(w http.ResponseWriter, r *http.Request, err error) {
	var v validationError
	if errors.As(err, &v) {
		if httpx.WantsJSON(r) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid Filter", "invalid "+v.field)
			return
		}
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	h.handleServerError(w, "validate filters", err)
}

func (h *Handler) handleServerError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
