package run_cycle

import (
	"fmt"

	"github.com/m04kA/CDC-BookingBot/internal/domain"
)

// validateRequest валидирует входные данные цикла
func validateRequest(req *Request) error {
	if req.Account.Name == "" {
		return fmt.Errorf("%w: account name is required", ErrInvalidInput)
	}

	if req.Account.Username == "" || req.Account.Password == "" {
		return fmt.Errorf("%w: account credentials are required", ErrInvalidInput)
	}

	if len(req.Account.MonitoredTypes) == 0 {
		return fmt.Errorf("%w: at least one monitored session type is required", ErrInvalidInput)
	}

	for _, sessionType := range req.Account.MonitoredTypes {
		if _, err := domain.ParseSessionType(string(sessionType)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}

	for sessionType, limit := range req.SlotsPerType {
		if limit < 0 {
			return fmt.Errorf("%w: slots_per_type[%s] must not be negative", ErrInvalidInput, sessionType)
		}
	}

	return nil
}
