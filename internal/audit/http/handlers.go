package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/protrack-gov/protrack/internal/audit"
	"github.com/protrack-gov/protrack/internal/authz"
	"github.com/protrack-gov/protrack/internal/platform/httpx"
)

const (
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
)

// TimelineService defines the read contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Detail(ctx context.Context, id int64) (audit.Entry, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.Entry, error)
}

// Recorder captures audit entries for the export endpoint itself.
type Recorder interface {
	Record(ctx context.Context, entry audit.Entry)
}

// Handler serves the audit timeline endpoints.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	ledger  Recorder
	now     func() time.Time
}

// NewHandler constructs the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, ledger Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, ledger: ledger, now: time.Now}
}

type entryView struct {
	ID          int64          `json:"id"`
	At          time.Time      `json:"at"`
	Actor       string         `json:"actor"`
	ActorID     int64          `json:"actor_id"`
	ActorRole   string         `json:"actor_role"`
	Action      string         `json:"action"`
	Outcome     string         `json:"outcome"`
	Entity      string         `json:"entity"`
	EntityID    string         `json:"entity_id,omitempty"`
	Description string         `json:"description,omitempty"`
	IP          string         `json:"ip,omitempty"`
	UserAgent   string         `json:"user_agent,omitempty"`
	Before      map[string]any `json:"before,omitempty"`
	After       map[string]any `json:"after,omitempty"`
}

type timelineResponse struct {
	Rows   []entryView      `json:"rows"`
	Paging audit.PagingInfo `json:"paging"`
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.serverError(w, "load audit timeline", err)
		return
	}
	rows := make([]entryView, 0, len(result.Rows))
	for _, entry := range result.Rows {
		rows = append(rows, listView(entry))
	}
	httpx.JSON(w, http.StatusOK, timelineResponse{Rows: rows, Paging: result.Paging})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.Detail(r.Context(), id)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "audit entry not found")
			return
		}
		h.serverError(w, "load audit entry", err)
		return
	}
	view := listView(entry)
	// Snapshots are exposed only on the detail view.
	view.Before = entry.Before
	view.After = entry.After
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entries, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.serverError(w, "export audit timeline", err)
		return
	}
	csvBytes, err := audit.WriteCSV(entries)
	if err != nil {
		h.serverError(w, "encode csv", err)
		return
	}
	if identity, ok := authz.IdentityFromContext(r.Context()); ok && h.ledger != nil {
		ip, agent := audit.ClientMeta(r)
		h.ledger.Record(r.Context(), audit.Entry{
			ActorID:     identity.ID,
			ActorName:   identity.Name,
			ActorRole:   string(identity.Role),
			Entity:      "audit_log",
			Action:      audit.ActionExport,
			Outcome:     audit.OutcomeSuccess,
			Description: "exported audit timeline",
			IP:          ip,
			UserAgent:   agent,
		})
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if _, err := w.Write(csvBytes); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	now := h.now().UTC()
	toStr := strings.TrimSpace(r.URL.Query().Get("to"))
	if toStr == "" {
		toStr = now.Format("2006-01-02")
	}
	toTime, err := time.Parse("2006-01-02", toStr)
	if err != nil {
		return audit.TimelineFilters{}, errors.New("invalid to date")
	}
	fromStr := strings.TrimSpace(r.URL.Query().Get("from"))
	if fromStr == "" {
		fromStr = toTime.Add(-defaultDateRange).Format("2006-01-02")
	}
	fromTime, err := time.Parse("2006-01-02", fromStr)
	if err != nil {
		return audit.TimelineFilters{}, errors.New("invalid from date")
	}
	if fromTime.After(toTime) {
		return audit.TimelineFilters{}, errors.New("from must not be after to")
	}
	if toTime.Sub(fromTime) > maxDateRangeHours*time.Hour {
		return audit.TimelineFilters{}, errors.New("date range exceeds 90 days")
	}

	page := 0
	if v := strings.TrimSpace(r.URL.Query().Get("page")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, errors.New("invalid page")
		}
		page = parsed
	}
	pageSize := 0
	if v := strings.TrimSpace(r.URL.Query().Get("page_size")); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return audit.TimelineFilters{}, errors.New("invalid page_size")
		}
		pageSize = parsed
	}

	if action := strings.TrimSpace(r.URL.Query().Get("action")); action != "" {
		if !audit.ValidActionKind(audit.ActionKind(action)) {
			return audit.TimelineFilters{}, errors.New("unknown action kind")
		}
	}

	return audit.TimelineFilters{
		From:     fromTime,
		To:       toTime.Add(24 * time.Hour),
		Actor:    strings.TrimSpace(r.URL.Query().Get("actor")),
		Entity:   strings.TrimSpace(r.URL.Query().Get("entity")),
		Action:   strings.TrimSpace(r.URL.Query().Get("action")),
		Query:    strings.TrimSpace(r.URL.Query().Get("q")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func listView(entry audit.Entry) entryView {
	return entryView{
		ID:          entry.ID,
		At:          entry.At,
		Actor:       entry.ActorName,
		ActorID:     entry.ActorID,
		ActorRole:   entry.ActorRole,
		Action:      string(entry.Action),
		Outcome:     string(entry.Outcome),
		Entity:      entry.Entity,
		EntityID:    entry.EntityID,
		Description: entry.Description,
		IP:          entry.IP,
		UserAgent:   entry.UserAgent,
	}
}
