package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// DefaultHeartbeat is the interval between keep-alive comments on a live stream.
const DefaultHeartbeat = 15 * time.Second

// CalendarService defines the behavior needed by CalendarHandler.
type CalendarService interface {
	SetDay(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error)
	BulkSetDays(ctx context.Context, input usecase.BulkSetDaysInput) (*usecase.BulkResult, error)
	GetMonth(ctx context.Context, apartmentID string, year, month int) (*usecase.MonthOverview, error)
	ExportMonth(ctx context.Context, apartmentID string, year, month int, format domain.ExportFormat) ([]byte, error)
	Watch(ctx context.Context, apartmentID string) (usecase.DaySubscription, error)
}

// CalendarHandler handles occupancy calendar HTTP requests.
type CalendarHandler struct {
	calendarUC CalendarService
	access     Authorizer
	heartbeat  time.Duration
}

// NewCalendarHandler creates a new CalendarHandler.
func NewCalendarHandler(calendarUC CalendarService, access Authorizer) *CalendarHandler {
	return &CalendarHandler{calendarUC: calendarUC, access: access, heartbeat: DefaultHeartbeat}
}

// GetMonth returns the month's records, grid and statistics.
func (h *CalendarHandler) GetMonth(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	year, month, err := pathMonth(r)
	if err != nil {
		writeDomainError(w, err, "invalid month")
		return
	}

	overview, err := h.calendarUC.GetMonth(r.Context(), apartment.ID, year, month)
	if err != nil {
		writeDomainError(w, err, "failed to load month")
		return
	}

	writeJSON(w, http.StatusOK, dto.MonthFromOverview(overview))
}

// SetDay sets the status of one day. When storage fails the attempted record
// is returned alongside the error.
func (h *CalendarHandler) SetDay(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	year, month, err := pathMonth(r)
	if err != nil {
		writeDomainError(w, err, "invalid month")
		return
	}
	day, err := pathInt(r, "day")
	if err != nil {
		writeDomainError(w, err, "invalid day")
		return
	}

	var req dto.SetDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(apartment.ID, year, month, day)
	if err != nil {
		writeDomainError(w, err, "invalid day update")
		return
	}

	record, err := h.calendarUC.SetDay(r.Context(), input)
	if err != nil {
		resp := dto.DayWriteErrorResponse{
			ErrorResponse: dto.ErrorResponse{Error: "failed to set day", Message: err.Error()},
		}
		if record != nil {
			resp.Day = dto.DayFromDomain(record)
		}
		writeJSON(w, mapDomainError(err), resp)
		return
	}

	writeJSON(w, http.StatusOK, dto.DayFromDomain(record))
}

// BulkSetDays sets a range of days. A partially written range answers 207.
func (h *CalendarHandler) BulkSetDays(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	year, month, err := pathMonth(r)
	if err != nil {
		writeDomainError(w, err, "invalid month")
		return
	}

	var req dto.BulkSetDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(apartment.ID, year, month)
	if err != nil {
		writeDomainError(w, err, "invalid bulk update")
		return
	}

	result, err := h.calendarUC.BulkSetDays(r.Context(), input)
	switch {
	case err != nil && result == nil:
		writeDomainError(w, err, "failed to set days")
	case err != nil:
		writeJSON(w, mapDomainError(err), dto.BulkFromResult(result))
	case result.Partial():
		writeJSON(w, http.StatusMultiStatus, dto.BulkFromResult(result))
	default:
		writeJSON(w, http.StatusOK, dto.BulkFromResult(result))
	}
}

// Export renders the month as ?format=csv (default) or json.
func (h *CalendarHandler) Export(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	year, month, err := pathMonth(r)
	if err != nil {
		writeDomainError(w, err, "invalid month")
		return
	}

	format := domain.ExportCSV
	if v := r.URL.Query().Get("format"); v != "" {
		if format, err = domain.ParseExportFormat(v); err != nil {
			writeDomainError(w, err, "invalid export format")
			return
		}
	}

	body, err := h.calendarUC.ExportMonth(r.Context(), apartment.ID, year, month, format)
	if err != nil {
		writeDomainError(w, err, "failed to export month")
		return
	}

	filename := fmt.Sprintf("calendar-%s-%04d-%02d.%s", apartment.ID, year, month+1, format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// Stream sends day updates for the apartment as server-sent events until the
// client goes away.
func (h *CalendarHandler) Stream(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	rc := http.NewResponseController(w)

	sub, err := h.calendarUC.Watch(r.Context(), apartment.ID)
	if err != nil {
		writeDomainError(w, err, "failed to watch calendar")
		return
	}
	defer sub.Close()

	// Streams outlive the server write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case record, ok := <-sub.Updates():
			if !ok {
				return
			}
			data, err := json.Marshal(dto.DayFromDomain(record))
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: day\ndata: %s\n\n", data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

