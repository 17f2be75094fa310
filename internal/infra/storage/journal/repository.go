package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
	"github.com/m04kA/CDC-BookingBot/pkg/psqlbuilder"
)

// Repository репозиторий журнала циклов мониторинга.
// Журнал append-only: каждая запись фиксирует итог одного цикла,
// события по отдельным слотам пишутся в связанную таблицу.
type Repository struct {
	db DBExecutor
}

// NewRepository создает новый экземпляр репозитория журнала
func NewRepository(db DBExecutor) *Repository {
	return &Repository{db: db}
}

// RecordCycle сохраняет итог одного цикла вместе с событиями по слотам
func (r *Repository) RecordCycle(ctx context.Context, report *runCycle.CycleReport) error {
	available := 0
	for _, n := range report.AvailableByType {
		available += n
	}

	query, args, err := psqlbuilder.Insert("cycle_journal").
		Columns(
			"account_name",
			"started_at",
			"finished_at",
			"result",
			"failed_phase",
			"error",
			"available_count",
			"eligible_count",
			"planned_count",
			"reserved_count",
			"needs_confirmation_count",
			"failed_count",
			"skipped_count",
		).
		Values(
			report.AccountName,
			report.StartedAt,
			report.FinishedAt,
			report.Result(),
			string(report.FailedPhase),
			report.Error,
			available,
			report.EligibleCount,
			len(report.Planned),
			len(report.Reserved),
			len(report.NeedsConfirmation),
			len(report.FailedAttempts),
			len(report.Skipped),
		).
		Suffix("RETURNING id").
		ToSql()

	if err != nil {
		return fmt.Errorf("%w: RecordCycle - build insert query: %v", ErrBuildQuery, err)
	}

	var cycleID int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&cycleID); err != nil {
		return fmt.Errorf("%w: RecordCycle - execute insert: %v", ErrExecQuery, err)
	}

	return r.recordEvents(ctx, cycleID, report)
}

// recordEvents сохраняет события цикла по отдельным слотам
func (r *Repository) recordEvents(ctx context.Context, cycleID int64, report *runCycle.CycleReport) error {
	builder := psqlbuilder.Insert("cycle_events").
		Columns(
			"cycle_id",
			"kind",
			"session_type",
			"slot_date",
			"start_time",
			"end_time",
			"detail",
		)

	rows := 0
	appendEvent := func(kind EventKind, slot domain.SessionSlot, detail string) {
		builder = builder.Values(
			cycleID,
			string(kind),
			string(slot.Type),
			slot.Date,
			slot.StartTime.String(),
			slot.EndTime.String(),
			detail,
		)
		rows++
	}

	for _, slot := range report.Reserved {
		appendEvent(EventReserved, slot, "")
	}
	for _, slot := range report.NeedsConfirmation {
		appendEvent(EventNeedsConfirmation, slot, "")
	}
	for _, attempt := range report.FailedAttempts {
		appendEvent(EventFailed, attempt.Slot, attempt.Error)
	}
	for _, skipped := range report.Skipped {
		appendEvent(EventSkipped, skipped.Slot, string(skipped.Reason))
	}

	if rows == 0 {
		return nil
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("%w: recordEvents - build insert query: %v", ErrBuildQuery, err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%w: recordEvents - execute insert: %v", ErrExecQuery, err)
	}

	return nil
}

// ListRecent возвращает последние записи журнала.
// accountName пустой = по всем аккаунтам.
func (r *Repository) ListRecent(ctx context.Context, accountName string, limit uint64) ([]*CycleRecord, error) {
	builder := psqlbuilder.Select(
		"id",
		"account_name",
		"started_at",
		"finished_at",
		"result",
		"failed_phase",
		"error",
		"available_count",
		"eligible_count",
		"planned_count",
		"reserved_count",
		"needs_confirmation_count",
		"failed_count",
		"skipped_count",
		"created_at",
	).
		From("cycle_journal").
		OrderBy("finished_at DESC").
		Limit(limit)

	if accountName != "" {
		builder = builder.Where(squirrel.Eq{"account_name": accountName})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("%w: ListRecent - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListRecent - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListEvents возвращает события цикла по отдельным слотам в порядке записи
func (r *Repository) ListEvents(ctx context.Context, cycleID int64) ([]*CycleEvent, error) {
	query, args, err := psqlbuilder.Select(
		"id",
		"cycle_id",
		"kind",
		"session_type",
		"slot_date",
		"start_time",
		"end_time",
		"detail",
	).
		From("cycle_events").
		Where(squirrel.Eq{"cycle_id": cycleID}).
		OrderBy("id ASC").
		ToSql()

	if err != nil {
		return nil, fmt.Errorf("%w: ListEvents - build select query: %v", ErrBuildQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: ListEvents - execute query: %v", ErrExecQuery, err)
	}
	defer rows.Close()

	events := make([]*CycleEvent, 0)
	for rows.Next() {
		var event CycleEvent
		var kind string
		var detail sql.NullString

		err := rows.Scan(
			&event.ID,
			&event.CycleID,
			&kind,
			&event.SessionType,
			&event.SlotDate,
			&event.StartTime,
			&event.EndTime,
			&detail,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: ListEvents - scan row: %v", ErrScanRow, err)
		}

		event.Kind = EventKind(kind)
		event.Detail = detail.String
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: ListEvents - rows error: %v", ErrScanRow, err)
	}

	return events, nil
}

// PruneBefore удаляет записи журнала, завершившиеся раньше cutoff.
// События удаляются каскадно вместе с циклом. Возвращает число удаленных циклов.
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query, args, err := psqlbuilder.Delete("cycle_journal").
		Where(squirrel.Lt{"finished_at": cutoff}).
		ToSql()

	if err != nil {
		return 0, fmt.Errorf("%w: PruneBefore - build delete query: %v", ErrBuildQuery, err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%w: PruneBefore - execute delete: %v", ErrExecQuery, err)
	}

	pruned, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: PruneBefore - get rows affected: %v", ErrExecQuery, err)
	}

	return pruned, nil
}

// scanRecords сканирует результаты запроса в слайс записей журнала
func scanRecords(rows *sql.Rows) ([]*CycleRecord, error) {
	records := make([]*CycleRecord, 0)

	for rows.Next() {
		var record CycleRecord
		var failedPhase, errText sql.NullString
		var createdAt sql.NullTime

		err := rows.Scan(
			&record.ID,
			&record.AccountName,
			&record.StartedAt,
			&record.FinishedAt,
			&record.Result,
			&failedPhase,
			&errText,
			&record.AvailableCount,
			&record.EligibleCount,
			&record.PlannedCount,
			&record.ReservedCount,
			&record.NeedsConfirmationCount,
			&record.FailedCount,
			&record.SkippedCount,
			&createdAt,
		)

		if err != nil {
			return nil, fmt.Errorf("%w: scanRecords - scan row: %v", ErrScanRow, err)
		}

		record.FailedPhase = failedPhase.String
		record.Error = errText.String
		record.CreatedAt = createdAt.Time

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: scanRecords - rows error: %v", ErrScanRow, err)
	}

	return records, nil
}
