package get_history

import (
	"context"

	"github.com/m04kA/CDC-BookingBot/internal/infra/storage/journal"
)

// Journal интерфейс чтения журнала циклов
type Journal interface {
	ListRecent(ctx context.Context, accountName string, limit uint64) ([]*journal.CycleRecord, error)
	ListEvents(ctx context.Context, cycleID int64) ([]*journal.CycleEvent, error)
}

type Logger interface {
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
}
