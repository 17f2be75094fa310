package get_status

import (
	"net/http"

	"github.com/m04kA/CDC-BookingBot/internal/api/handlers"
)

type Handler struct {
	service AccountService
	logger  Logger
}

func NewHandler(service AccountService, logger Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Handle GET /api/v1/status
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	statuses := h.service.Statuses()

	h.logger.Info("GET /status - %d account(s)", len(statuses))
	handlers.RespondJSON(w, http.StatusOK, toResponse(statuses))
}
