package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"welllink-api/core/database"
	"welllink-api/core/logger"
	"welllink-api/modules/availability/entity"

	"github.com/google/uuid"
)

// SlotRepositoryInterface defines the generated-slot persistence contract.
type SlotRepositoryInterface interface {
	BulkCreate(ctx context.Context, slots []entity.TimeSlot) ([]entity.TimeSlot, error)
	CountInRange(ctx context.Context, profileID, serviceID uuid.UUID, from, to time.Time) (int, error)
}

// TimeSlotRepository handles time_slots database operations.
type TimeSlotRepository struct {
	DB database.Database
}

func NewTimeSlotRepository(db database.Database) *TimeSlotRepository {
	return &TimeSlotRepository{DB: db}
}

// BulkCreate inserts the batch in one transaction. Rows whose
// (profile_id, service_id, start_time) already exist are skipped, so re-running
// generation for a covered date cannot duplicate slots. Returns the rows
// actually inserted.
func (r *TimeSlotRepository) BulkCreate(ctx context.Context, slots []entity.TimeSlot) ([]entity.TimeSlot, error) {
	if len(slots) == 0 {
		return nil, nil
	}

	tx, err := r.DB.SQLx().BeginTxx(ctx, nil)
	if err != nil {
		logger.Error("TimeSlotRepository:BulkCreate:Begin", err)
		return nil, err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO time_slots (id, profile_id, service_id, start_time, end_time,
		        max_reservations, current_reservations, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (profile_id, service_id, start_time) DO NOTHING
		RETURNING id
	`

	created := make([]entity.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		var id uuid.UUID
		err := tx.QueryRowxContext(ctx, query,
			slot.ID, slot.ProfileID, slot.ServiceID, slot.StartTime, slot.EndTime,
			slot.MaxReservations, slot.CurrentReservations, slot.Status,
			slot.CreatedAt, slot.UpdatedAt).Scan(&id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				// conflict: slot already exists for this start time
				continue
			}
			logger.Error("TimeSlotRepository:BulkCreate:Insert", err)
			return nil, err
		}
		created = append(created, slot)
	}

	if err := tx.Commit(); err != nil {
		logger.Error("TimeSlotRepository:BulkCreate:Commit", err)
		return nil, err
	}

	return created, nil
}

// CountInRange counts slots whose UTC start falls in [from, to). Used as the
// database-side idempotence check when the redis mark is cold; the caller
// supplies the offset-shifted window so rules crossing UTC midnight count
// against their generation date, not the next one.
func (r *TimeSlotRepository) CountInRange(ctx context.Context, profileID, serviceID uuid.UUID, from, to time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM time_slots
		WHERE profile_id = $1 AND service_id = $2
		AND start_time >= $3 AND start_time < $4
	`

	var count int
	err := r.DB.GetContext(ctx, &count, query, profileID, serviceID, from, to)
	if err != nil {
		logger.Error("TimeSlotRepository:CountInRange", err)
		return 0, err
	}

	return count, nil
}
