package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// CalendarUseCase handles the occupancy calendar.
type CalendarUseCase struct {
	storageTimeout
	emitter

	repo        CalendarRepository
	feed        DayFeed
	retrier     Retrier
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time
}

// NewCalendarUseCase creates a new CalendarUseCase. feed, publisher, retrier
// and m may be nil.
func NewCalendarUseCase(
	repo CalendarRepository,
	feed DayFeed,
	publisher EventPublisher,
	idGen IDGenerator,
	retrier Retrier,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *CalendarUseCase {
	return &CalendarUseCase{
		emitter:     emitter{publisher: publisher, idGen: idGen, logger: logger},
		repo:        repo,
		feed:        feed,
		retrier:     retrier,
		metrics:     m,
		logger:      logger,
		concurrency: DefaultBulkConcurrency,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// SetBulkConcurrency sets how many day upserts run in parallel.
func (uc *CalendarUseCase) SetBulkConcurrency(n int) {
	if n > 0 {
		uc.concurrency = n
	}
}

// SetDayInput represents input for setting the status of one day.
type SetDayInput struct {
	ApartmentID string
	Year        int
	Month       int
	Day         int
	Status      domain.DayStatus
	Notes       string
}

// SetDay overwrites the status of one day. When storage fails the record that
// was attempted is returned together with an error wrapping ErrPersistenceFailed.
func (uc *CalendarUseCase) SetDay(ctx context.Context, input SetDayInput) (*domain.DayRecord, error) {
	if err := validateDayWrite(input.ApartmentID, input.Status, input.Notes); err != nil {
		return nil, err
	}
	if err := domain.ValidateDay(input.Year, input.Month, input.Day); err != nil {
		return nil, err
	}

	rec := uc.newRecord(input.ApartmentID, input.Year, input.Month, input.Day, input.Status, input.Notes, uc.now())
	if err := uc.persist(ctx, rec); err != nil {
		return rec, err
	}

	uc.afterWrite(ctx, []*domain.DayRecord{rec})
	uc.emitDaysUpdated(ctx, input.ApartmentID, input.Year, input.Month, input.Status, []*domain.DayRecord{rec})

	return rec, nil
}

// BulkSetDaysInput represents input for setting a contiguous range of days.
type BulkSetDaysInput struct {
	ApartmentID string
	Year        int
	Month       int
	StartDay    int
	EndDay      int
	Status      domain.DayStatus
	Notes       string
}

// DayFailure is a day that could not be persisted.
type DayFailure struct {
	Day int
	Err error
}

// BulkResult reports the outcome of a multi-day write.
type BulkResult struct {
	Records  []*domain.DayRecord
	Failures []DayFailure
}

// Partial reports whether some but not all days were written.
func (r *BulkResult) Partial() bool {
	return len(r.Records) > 0 && len(r.Failures) > 0
}

// BulkSetDays writes every day in [StartDay, EndDay] as an independent upsert.
// Writes run concurrently and are awaited as a batch. Failed days are reported
// in the result; the call itself only fails on validation or when no day was written.
func (uc *CalendarUseCase) BulkSetDays(ctx context.Context, input BulkSetDaysInput) (*BulkResult, error) {
	if err := validateDayWrite(input.ApartmentID, input.Status, input.Notes); err != nil {
		return nil, err
	}
	if err := domain.ValidateDayRange(input.Year, input.Month, input.StartDay, input.EndDay); err != nil {
		return nil, err
	}

	start := time.Now()
	now := uc.now()

	records := make([]*domain.DayRecord, 0, input.EndDay-input.StartDay+1)
	for day := input.StartDay; day <= input.EndDay; day++ {
		records = append(records, uc.newRecord(input.ApartmentID, input.Year, input.Month, day, input.Status, input.Notes, now))
	}

	result := uc.writeAll(ctx, records)

	if uc.metrics != nil {
		uc.metrics.BulkWriteDuration.Observe(time.Since(start).Seconds())
	}

	if len(result.Records) == 0 {
		return result, fmt.Errorf("%w: all %d days failed: %w", domain.ErrPersistenceFailed, len(records), result.Failures[0].Err)
	}

	if len(result.Failures) > 0 {
		uc.logger.Warn().
			Str("apartment_id", input.ApartmentID).
			Int("written", len(result.Records)).
			Int("failed", len(result.Failures)).
			Msg("bulk calendar write partially failed")
	}

	uc.afterWrite(ctx, result.Records)
	uc.emitDaysUpdated(ctx, input.ApartmentID, input.Year, input.Month, input.Status, result.Records)

	return result, nil
}

// OccupyDates marks every date as occupied, across month boundaries if needed.
// Successfully written records are returned even when some dates failed.
func (uc *CalendarUseCase) OccupyDates(ctx context.Context, apartmentID string, dates []time.Time, notes string) ([]*domain.DayRecord, error) {
	if err := validateDayWrite(apartmentID, domain.DayOccupied, notes); err != nil {
		return nil, err
	}

	now := uc.now()
	records := make([]*domain.DayRecord, 0, len(dates))
	for _, d := range dates {
		key := domain.DayKeyFromDate(d)
		records = append(records, uc.newRecord(apartmentID, key.Year, key.Month, key.Day, domain.DayOccupied, notes, now))
	}

	result := uc.writeAll(ctx, records)
	uc.afterWrite(ctx, result.Records)

	if len(result.Failures) > 0 {
		return result.Records, fmt.Errorf("%w: %d of %d days failed: %w",
			domain.ErrPersistenceFailed, len(result.Failures), len(records), result.Failures[0].Err)
	}

	return result.Records, nil
}

// MonthOverview is a month's stored records with its grid and statistics.
type MonthOverview struct {
	ApartmentID string
	Year        int
	Month       int
	Label       string
	Records     []*domain.DayRecord
	Grid        *domain.MonthGrid
	Stats       domain.MonthStatistics
}

// GetMonth loads a month and derives its grid and statistics.
func (uc *CalendarUseCase) GetMonth(ctx context.Context, apartmentID string, year, month int) (*MonthOverview, error) {
	view, err := uc.loadMonth(ctx, apartmentID, year, month)
	if err != nil {
		return nil, err
	}

	records := view.Records()

	grid, err := domain.BuildMonthGrid(apartmentID, year, month, records)
	if err != nil {
		return nil, err
	}

	return &MonthOverview{
		ApartmentID: apartmentID,
		Year:        year,
		Month:       month,
		Label:       domain.MonthLabel(year, month),
		Records:     records,
		Grid:        grid,
		Stats:       domain.ComputeMonthStatistics(records, domain.DaysInMonth(year, month)),
	}, nil
}

// ExportMonth encodes a month as CSV or JSON.
func (uc *CalendarUseCase) ExportMonth(ctx context.Context, apartmentID string, year, month int, format domain.ExportFormat) ([]byte, error) {
	view, err := uc.loadMonth(ctx, apartmentID, year, month)
	if err != nil {
		return nil, err
	}

	return domain.ExportMonth(view.Records(), domain.DaysInMonth(year, month), format, domain.MonthLabel(year, month), uc.now())
}

// Watch subscribes to live updates for an apartment. The caller must Close the subscription.
func (uc *CalendarUseCase) Watch(ctx context.Context, apartmentID string) (DaySubscription, error) {
	if apartmentID == "" {
		return nil, fmt.Errorf("%w: apartment id is required", domain.ErrInvalidArgument)
	}
	if uc.feed == nil {
		return nil, fmt.Errorf("%w: live feed is not configured", domain.ErrInternal)
	}

	sub, err := uc.feed.Subscribe(ctx, apartmentID)
	if err != nil {
		return nil, err
	}

	if uc.metrics == nil {
		return sub, nil
	}

	uc.metrics.FeedSubscribers.Inc()
	return &countedSubscription{DaySubscription: sub, gauge: uc.metrics.FeedSubscribers}, nil
}

func (uc *CalendarUseCase) loadMonth(ctx context.Context, apartmentID string, year, month int) (*domain.MonthView, error) {
	if apartmentID == "" {
		return nil, fmt.Errorf("%w: apartment id is required", domain.ErrInvalidArgument)
	}
	if err := domain.ValidateMonth(month); err != nil {
		return nil, err
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	records, err := uc.repo.ListMonth(sctx, apartmentID, year, month)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.StorageErrors.WithLabelValues("calendar_list").Inc()
		}
		return nil, fmt.Errorf("list month %d-%d: %w", year, month, err)
	}

	view := domain.NewMonthView(apartmentID, year, month)
	view.Merge(records)
	return view, nil
}

func (uc *CalendarUseCase) newRecord(apartmentID string, year, month, day int, status domain.DayStatus, notes string, at time.Time) *domain.DayRecord {
	return &domain.DayRecord{
		ApartmentID: apartmentID,
		Year:        year,
		Month:       month,
		Day:         day,
		Status:      status,
		Notes:       notes,
		UpdatedAt:   at,
	}
}

// writeAll upserts records concurrently, each independently of the others.
func (uc *CalendarUseCase) writeAll(ctx context.Context, records []*domain.DayRecord) *BulkResult {
	errs := make([]error, len(records))

	var g errgroup.Group
	g.SetLimit(uc.concurrency)
	for i, rec := range records {
		g.Go(func() error {
			errs[i] = uc.persist(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()

	result := &BulkResult{Records: make([]*domain.DayRecord, 0, len(records))}
	for i, rec := range records {
		if errs[i] != nil {
			result.Failures = append(result.Failures, DayFailure{Day: rec.Day, Err: errs[i]})
			continue
		}
		result.Records = append(result.Records, rec)
	}
	return result
}

func (uc *CalendarUseCase) persist(ctx context.Context, rec *domain.DayRecord) error {
	op := func() error {
		sctx, cancel := uc.bound(ctx)
		defer cancel()
		return uc.repo.Upsert(sctx, rec)
	}

	var err error
	if uc.retrier != nil {
		err = uc.retrier.Retry(ctx, op)
	} else {
		err = op()
	}
	if err == nil {
		return nil
	}

	uc.logger.Error().
		Err(err).
		Str("apartment_id", rec.ApartmentID).
		Str("day", rec.Key().String()).
		Msg("failed to persist calendar day")

	if uc.metrics != nil {
		uc.metrics.DayWriteFailures.Inc()
		uc.metrics.StorageErrors.WithLabelValues("calendar_upsert").Inc()
	}

	return fmt.Errorf("%w: day %s: %w", domain.ErrPersistenceFailed, rec.Key(), err)
}

// afterWrite fans successful writes out to live subscribers.
func (uc *CalendarUseCase) afterWrite(ctx context.Context, records []*domain.DayRecord) {
	for _, rec := range records {
		if uc.metrics != nil {
			uc.metrics.DaysUpdated.WithLabelValues(rec.Status.String()).Inc()
		}
		if uc.feed == nil {
			continue
		}
		if err := uc.feed.Publish(ctx, rec); err != nil {
			uc.logger.Warn().
				Err(err).
				Str("apartment_id", rec.ApartmentID).
				Str("day", rec.Key().String()).
				Msg("failed to publish day update")
		}
	}
}

func (uc *CalendarUseCase) emitDaysUpdated(ctx context.Context, apartmentID string, year, month int, status domain.DayStatus, records []*domain.DayRecord) {
	days := make([]int, 0, len(records))
	for _, rec := range records {
		days = append(days, rec.Day)
	}

	uc.emit(ctx, domain.AggregateTypeApartment, apartmentID, domain.EventTypeDaysUpdated, domain.DaysUpdatedEvent{
		Year:   year,
		Month:  month,
		Days:   days,
		Status: status.String(),
	})
}

func validateDayWrite(apartmentID string, status domain.DayStatus, notes string) error {
	if apartmentID == "" {
		return fmt.Errorf("%w: apartment id is required", domain.ErrInvalidArgument)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %d", domain.ErrInvalidArgument, uint8(status))
	}
	return domain.ValidateNotes(notes)
}

// countedSubscription keeps the subscriber gauge in step with open subscriptions.
type countedSubscription struct {
	DaySubscription

	once  sync.Once
	gauge prometheus.Gauge
}

func (s *countedSubscription) Close() error {
	err := s.DaySubscription.Close()
	s.once.Do(s.gauge.Dec)
	return err
}
