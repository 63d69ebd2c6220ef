package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

func dayParams(day string) []string {
	return []string{"id", "apt-1", "year", "2025", "month", "5", "day", day}
}

func TestCalendarHandler_SetDay(t *testing.T) {
	var captured usecase.SetDayInput
	svc := &stubCalendarService{
		setDayFn: func(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error) {
			captured = input
			return &domain.DayRecord{ApartmentID: input.ApartmentID, Year: input.Year, Month: input.Month, Day: input.Day, Status: input.Status, Notes: input.Notes}, nil
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.SetDay(rr, newRequest(http.MethodPut, "/", `{"status":"cleaning","notes":"linen"}`, managerUser, dayParams("14")...))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.Year != 2025 || captured.Month != 5 || captured.Day != 14 || captured.Status != domain.DayCleaning {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.DayResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != domain.DayCleaning || resp.Notes != "linen" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCalendarHandler_SetDayValidation(t *testing.T) {
	svc := &stubCalendarService{
		setDayFn: func(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error) {
			return nil, domain.ErrInvalidDate
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	tests := []struct {
		name string
		body string
		day  string
		user *domain.User
		want int
	}{
		{"unknown status", `{"status":"booked"}`, "3", managerUser, http.StatusBadRequest},
		{"non numeric day", `{"status":"free"}`, "x", managerUser, http.StatusBadRequest},
		{"invalid date from service", `{"status":"free"}`, "31", managerUser, http.StatusBadRequest},
		{"viewer cannot write", `{"status":"free"}`, "3", viewerUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.SetDay(rr, newRequest(http.MethodPut, "/", tt.body, tt.user, dayParams(tt.day)...))
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rr.Code)
			}
		})
	}
}

func TestCalendarHandler_SetDayPersistenceFailureReturnsRecord(t *testing.T) {
	svc := &stubCalendarService{
		setDayFn: func(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error) {
			rec := &domain.DayRecord{ApartmentID: "apt-1", Year: 2025, Month: 5, Day: 3, Status: domain.DayOccupied}
			return rec, domain.ErrPersistenceFailed
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.SetDay(rr, newRequest(http.MethodPut, "/", `{"status":"occupied"}`, managerUser, dayParams("3")...))

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}

	var resp dto.DayWriteErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Day == nil || resp.Day.Day != 3 || resp.Day.Status != domain.DayOccupied {
		t.Fatalf("expected attempted record in body, got %+v", resp)
	}
}

func TestCalendarHandler_BulkSetDays(t *testing.T) {
	records := []*domain.DayRecord{{Day: 1, Status: domain.DayMaintenance}, {Day: 2, Status: domain.DayMaintenance}}

	tests := []struct {
		name   string
		result *usecase.BulkResult
		err    error
		want   int
	}{
		{"all written", &usecase.BulkResult{Records: records}, nil, http.StatusOK},
		{"partial", &usecase.BulkResult{Records: records[:1], Failures: []usecase.DayFailure{{Day: 2, Err: errors.New("timeout")}}}, nil, http.StatusMultiStatus},
		{"all failed", &usecase.BulkResult{Failures: []usecase.DayFailure{{Day: 1, Err: errors.New("x")}}}, domain.ErrPersistenceFailed, http.StatusServiceUnavailable},
		{"bad range", nil, domain.ErrInvalidRange, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubCalendarService{
				bulkFn: func(ctx context.Context, input usecase.BulkSetDaysInput) (*usecase.BulkResult, error) {
					if input.StartDay != 1 || input.EndDay != 2 || input.Status != domain.DayMaintenance {
						t.Fatalf("unexpected input %+v", input)
					}
					return tt.result, tt.err
				},
			}
			h := NewCalendarHandler(svc, newAccess())

			rr := httptest.NewRecorder()
			h.BulkSetDays(rr, newRequest(http.MethodPost, "/", `{"startDay":1,"endDay":2,"status":"maintenance"}`,
				managerUser, "id", "apt-1", "year", "2025", "month", "5"))

			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rr.Code, rr.Body.String())
			}
			if tt.result == nil {
				return
			}
			var resp dto.BulkResponse
			if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if len(resp.Days) != len(tt.result.Records) || len(resp.Failures) != len(tt.result.Failures) {
				t.Fatalf("unexpected body %+v", resp)
			}
		})
	}
}

func TestCalendarHandler_GetMonth(t *testing.T) {
	svc := &stubCalendarService{
		getMonthFn: func(ctx context.Context, apartmentID string, year, month int) (*usecase.MonthOverview, error) {
			records := []*domain.DayRecord{{ApartmentID: apartmentID, Year: year, Month: month, Day: 1, Status: domain.DayOccupied}}
			grid, err := domain.BuildMonthGrid(apartmentID, year, month, records)
			if err != nil {
				return nil, err
			}
			return &usecase.MonthOverview{
				ApartmentID: apartmentID,
				Year:        year,
				Month:       month,
				Label:       domain.MonthLabel(year, month),
				Records:     records,
				Grid:        grid,
				Stats:       domain.ComputeMonthStatistics(records, domain.DaysInMonth(year, month)),
			}, nil
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.GetMonth(rr, newRequest(http.MethodGet, "/", "", viewerUser, "id", "apt-1", "year", "2025", "month", "5"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	var resp dto.MonthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Stats.Occupied != 1 || resp.Stats.DaysInMonth != 30 || len(resp.Weeks) == 0 {
		t.Fatalf("unexpected month %+v", resp)
	}
	// June 2025 starts on Sunday.
	if resp.Weeks[0][0].Day != 1 || resp.Weeks[0][0].Status == nil || *resp.Weeks[0][0].Status != domain.DayOccupied {
		t.Fatalf("unexpected first cell %+v", resp.Weeks[0][0])
	}
}

func TestCalendarHandler_Export(t *testing.T) {
	var gotFormat domain.ExportFormat
	svc := &stubCalendarService{
		exportFn: func(ctx context.Context, apartmentID string, year, month int, format domain.ExportFormat) ([]byte, error) {
			gotFormat = format
			return []byte("day,status\n"), nil
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.Export(rr, newRequest(http.MethodGet, "/export", "", viewerUser, "id", "apt-1", "year", "2025", "month", "5"))

	if rr.Code != http.StatusOK || gotFormat != domain.ExportCSV {
		t.Fatalf("expected csv export, got %d %s", rr.Code, gotFormat)
	}
	if ct := rr.Header().Get("Content-Type"); ct != domain.ExportCSV.ContentType() {
		t.Fatalf("unexpected content type %s", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "calendar-apt-1-2025-06.csv") {
		t.Fatalf("unexpected content disposition %s", cd)
	}

	rr = httptest.NewRecorder()
	h.Export(rr, newRequest(http.MethodGet, "/export?format=xml", "", viewerUser, "id", "apt-1", "year", "2025", "month", "5"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown format, got %d", rr.Code)
	}
}

func TestCalendarHandler_StreamSendsDayEvents(t *testing.T) {
	sub := newStubSubscription()
	svc := &stubCalendarService{
		watchFn: func(ctx context.Context, apartmentID string) (usecase.DaySubscription, error) {
			return sub, nil
		},
	}
	h := NewCalendarHandler(svc, newAccess())
	h.heartbeat = time.Hour

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Stream(w, withRoute(r, viewerUser, "id", "apt-1"))
	}))
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %s", ct)
	}

	sub.updates <- &domain.DayRecord{ApartmentID: "apt-1", Year: 2025, Month: 5, Day: 9, Status: domain.DayOccupied}

	reader := bufio.NewReader(resp.Body)
	event, _ := reader.ReadString('\n')
	data, _ := reader.ReadString('\n')
	if strings.TrimSpace(event) != "event: day" {
		t.Fatalf("unexpected event line %q", event)
	}

	var day dto.DayResponse
	if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(data), "data: ")), &day); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if day.Day != 9 || day.Status != domain.DayOccupied {
		t.Fatalf("unexpected event %+v", day)
	}

	close(sub.updates)
	select {
	case <-sub.closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected subscription to be closed when the stream ends")
	}
}

func TestCalendarHandler_StreamWatchError(t *testing.T) {
	svc := &stubCalendarService{
		watchFn: func(ctx context.Context, apartmentID string) (usecase.DaySubscription, error) {
			return nil, errors.New("feed down")
		},
	}
	h := NewCalendarHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.Stream(rr, newRequest(http.MethodGet, "/", "", viewerUser, "id", "apt-1"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
