package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"welllink-api/core/errors"
	"welllink-api/core/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// TypeGenerateSlots is the asynq task type for background slot generation.
const TypeGenerateSlots = "availability:generate_slots"

// GenerateSlotsPayload is the JSON body of a TypeGenerateSlots task.
type GenerateSlotsPayload struct {
	ProfileID uuid.UUID `json:"profile_id"`
	ServiceID uuid.UUID `json:"service_id"`
	StartDate string    `json:"start_date"` // YYYY-MM-DD
	EndDate   string    `json:"end_date"`
}

func NewGenerateSlotsTask(profileID, serviceID uuid.UUID, startDate, endDate time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(GenerateSlotsPayload{
		ProfileID: profileID,
		ServiceID: serviceID,
		StartDate: startDate.Format(dateLayout),
		EndDate:   endDate.Format(dateLayout),
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeGenerateSlots, payload, asynq.MaxRetry(3)), nil
}

// HandleGenerateSlotsTask runs a queued range generation. Validation failures
// are terminal; store failures surface as errors so asynq retries.
func (s *AvailabilityService) HandleGenerateSlotsTask(ctx context.Context, t *asynq.Task) error {
	var payload GenerateSlotsPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal %s payload: %w: %w", TypeGenerateSlots, err, asynq.SkipRetry)
	}

	startDate, err := time.Parse(dateLayout, payload.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start_date %q: %w: %w", payload.StartDate, err, asynq.SkipRetry)
	}
	endDate, err := time.Parse(dateLayout, payload.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end_date %q: %w: %w", payload.EndDate, err, asynq.SkipRetry)
	}

	resp, appErr := s.GenerateSlotsForRange(ctx, payload.ProfileID, payload.ServiceID, startDate, endDate)
	if appErr != nil {
		// Validation failures cannot succeed on retry; only store and
		// infrastructure errors are worth re-running.
		if appErr.Code != errors.ErrInternalServer {
			return fmt.Errorf("%s: %w: %w", TypeGenerateSlots, appErr, asynq.SkipRetry)
		}
		return appErr
	}

	logger.Info("AvailabilityService:HandleGenerateSlotsTask:Success",
		"profile_id", payload.ProfileID,
		"service_id", payload.ServiceID,
		"start_date", payload.StartDate,
		"end_date", payload.EndDate,
		"generated", resp.GeneratedCount,
	)
	return nil
}
