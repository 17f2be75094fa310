package journal

import "time"

// CycleRecord строка журнала циклов (таблица cycle_journal)
type CycleRecord struct {
	ID          int64     `json:"id"`
	AccountName string    `json:"account_name"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Result      string    `json:"result"`
	FailedPhase string    `json:"failed_phase,omitempty"`
	Error       string    `json:"error,omitempty"`

	AvailableCount         int `json:"available_count"`
	EligibleCount          int `json:"eligible_count"`
	PlannedCount           int `json:"planned_count"`
	ReservedCount          int `json:"reserved_count"`
	NeedsConfirmationCount int `json:"needs_confirmation_count"`
	FailedCount            int `json:"failed_count"`
	SkippedCount           int `json:"skipped_count"`

	CreatedAt time.Time `json:"created_at"`
}

// EventKind тип события внутри цикла
type EventKind string

const (
	EventReserved          EventKind = "reserved"
	EventNeedsConfirmation EventKind = "needs_confirmation"
	EventFailed            EventKind = "failed"
	EventSkipped           EventKind = "skipped"
)

// CycleEvent событие цикла по конкретному слоту (таблица cycle_events)
type CycleEvent struct {
	ID          int64     `json:"id"`
	CycleID     int64     `json:"cycle_id"`
	Kind        EventKind `json:"kind"`
	SessionType string    `json:"session_type"`
	SlotDate    time.Time `json:"slot_date"`
	StartTime   string    `json:"start_time"`
	EndTime     string    `json:"end_time"`

	// Detail причина пропуска или текст ошибки попытки
	Detail string `json:"detail,omitempty"`
}
