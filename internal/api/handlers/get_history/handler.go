package get_history

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/m04kA/CDC-BookingBot/internal/api/handlers"
	"github.com/m04kA/CDC-BookingBot/internal/infra/storage/journal"
)

const (
	msgInvalidLimit   = "некорректное значение limit"
	msgInvalidCycleID = "некорректный ID цикла"

	defaultLimit = 50
	maxLimit     = 500
)

type Handler struct {
	journal Journal
	logger  Logger
}

func NewHandler(j Journal, logger Logger) *Handler {
	return &Handler{
		journal: j,
		logger:  logger,
	}
}

// HistoryResponse ответ с записями журнала циклов
type HistoryResponse struct {
	Cycles []*journal.CycleRecord `json:"cycles"`
}

// Handle GET /api/v1/history?account=<name>&limit=<n>
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	accountName := r.URL.Query().Get("account")

	limit := uint64(defaultLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || parsed == 0 || parsed > maxLimit {
			h.logger.Warn("GET /history - Invalid limit: %q", raw)
			handlers.RespondBadRequest(w, msgInvalidLimit)
			return
		}
		limit = parsed
	}

	records, err := h.journal.ListRecent(r.Context(), accountName, limit)
	if err != nil {
		h.logger.Error("GET /history - Failed to list journal: account=%q, error=%v", accountName, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /history - %d record(s) returned (account=%q)", len(records), accountName)
	handlers.RespondJSON(w, http.StatusOK, HistoryResponse{Cycles: records})
}

// EventsResponse ответ с событиями одного цикла по отдельным слотам
type EventsResponse struct {
	Events []*journal.CycleEvent `json:"events"`
}

// HandleEvents GET /api/v1/history/{cycleId}/events
func (h *Handler) HandleEvents(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	cycleIDStr := vars["cycleId"]

	cycleID, err := strconv.ParseInt(cycleIDStr, 10, 64)
	if err != nil {
		h.logger.Warn("GET /history/{id}/events - Invalid cycle ID: %v", err)
		handlers.RespondBadRequest(w, msgInvalidCycleID)
		return
	}

	events, err := h.journal.ListEvents(r.Context(), cycleID)
	if err != nil {
		h.logger.Error("GET /history/{id}/events - Failed to list events: cycle_id=%d, error=%v", cycleID, err)
		handlers.RespondInternalError(w)
		return
	}

	h.logger.Info("GET /history/{id}/events - %d event(s) returned (cycle_id=%d)", len(events), cycleID)
	handlers.RespondJSON(w, http.StatusOK, EventsResponse{Events: events})
}
