package get_status

import (
	"time"

	"github.com/m04kA/CDC-BookingBot/internal/service/accounts"
	runCycle "github.com/m04kA/CDC-BookingBot/internal/usecase/run_cycle"
)

// StatusResponse ответ со статусами всех аккаунтов
type StatusResponse struct {
	Accounts []AccountStatusResponse `json:"accounts"`
}

// AccountStatusResponse статус одного аккаунта
type AccountStatusResponse struct {
	Name      string             `json:"name"`
	Enabled   bool               `json:"enabled"`
	NextRunAt *time.Time         `json:"next_run_at,omitempty"`
	LastCycle *LastCycleResponse `json:"last_cycle,omitempty"`
}

// LastCycleResponse итог последнего цикла аккаунта
type LastCycleResponse struct {
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
	Result            string    `json:"result"`
	FailedPhase       string    `json:"failed_phase,omitempty"`
	Error             string    `json:"error,omitempty"`
	EligibleCount     int       `json:"eligible_count"`
	ReservedCount     int       `json:"reserved_count"`
	NeedsConfirmation int       `json:"needs_confirmation_count"`
	FailedCount       int       `json:"failed_count"`
	SkippedCount      int       `json:"skipped_count"`
}

// toResponse преобразует доменные статусы в формат ответа
func toResponse(statuses []accounts.AccountStatus) StatusResponse {
	out := StatusResponse{
		Accounts: make([]AccountStatusResponse, 0, len(statuses)),
	}

	for _, status := range statuses {
		item := AccountStatusResponse{
			Name:    status.Name,
			Enabled: status.Enabled,
		}
		if !status.NextRunAt.IsZero() {
			at := status.NextRunAt
			item.NextRunAt = &at
		}
		if status.LastReport != nil {
			item.LastCycle = toLastCycle(status.LastReport)
		}
		out.Accounts = append(out.Accounts, item)
	}

	return out
}

func toLastCycle(report *runCycle.CycleReport) *LastCycleResponse {
	return &LastCycleResponse{
		StartedAt:         report.StartedAt,
		FinishedAt:        report.FinishedAt,
		Result:            report.Result(),
		FailedPhase:       string(report.FailedPhase),
		Error:             report.Error,
		EligibleCount:     report.EligibleCount,
		ReservedCount:     len(report.Reserved),
		NeedsConfirmation: len(report.NeedsConfirmation),
		FailedCount:       len(report.FailedAttempts),
		SkippedCount:      len(report.Skipped),
	}
}
