package repository

import (
	"context"
	"database/sql"
	"errors"

	"welllink-api/core/database"
	"welllink-api/core/logger"
	"welllink-api/core/params"
	"welllink-api/modules/availability/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrRuleOverlap is returned when the availability_rules exclusion constraint
// rejects a write. The schema keeps active rules for one (profile, day)
// pairwise non-overlapping even under concurrent writers; the validator's
// read-then-check pass exists for richer diagnostics, this is the authority.
var ErrRuleOverlap = errors.New("availability rule overlaps an existing active rule")

// RuleRepositoryInterface defines the rule persistence contract.
type RuleRepositoryInterface interface {
	Create(ctx context.Context, rule *entity.AvailabilityRule) (*entity.AvailabilityRule, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.AvailabilityRule, error)
	GetByProfileID(ctx context.Context, profileID uuid.UUID, activeOnly bool) ([]entity.AvailabilityRule, error)
	GetByDayOfWeek(ctx context.Context, profileID uuid.UUID, dayOfWeek int, activeOnly bool) ([]entity.AvailabilityRule, error)
	GetPagedByProfileID(ctx context.Context, profileID uuid.UUID, p params.QueryParams) (*entity.PaginatedAvailabilityRules, error)
	Update(ctx context.Context, rule *entity.AvailabilityRule) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// AvailabilityRuleRepository handles availability_rules database operations.
type AvailabilityRuleRepository struct {
	DB database.Database
}

func NewAvailabilityRuleRepository(db database.Database) *AvailabilityRuleRepository {
	return &AvailabilityRuleRepository{DB: db}
}

const ruleColumns = `
	id, profile_id, day_of_week, start_time, end_time, slot_duration, buffer_time,
	max_appointments_per_slot, is_active, effective_from, effective_to, created_at, updated_at
`

// isExclusionViolation reports whether err is the Postgres exclusion
// constraint violation (SQLSTATE 23P01) raised by availability_rules_no_overlap.
func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23P01"
	}
	return false
}

func (r *AvailabilityRuleRepository) Create(ctx context.Context, rule *entity.AvailabilityRule) (*entity.AvailabilityRule, error) {
	query := `
		INSERT INTO availability_rules (id, profile_id, day_of_week, start_time, end_time,
		        slot_duration, buffer_time, max_appointments_per_slot, is_active,
		        effective_from, effective_to, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + ruleColumns

	var created entity.AvailabilityRule
	err := r.DB.GetContext(ctx, &created, query,
		rule.ID, rule.ProfileID, rule.DayOfWeek, rule.StartTime, rule.EndTime,
		rule.SlotDuration, rule.BufferTime, rule.MaxAppointmentsPerSlot, rule.IsActive,
		rule.EffectiveFrom, rule.EffectiveTo, rule.CreatedAt, rule.UpdatedAt)
	if err != nil {
		if isExclusionViolation(err) {
			return nil, ErrRuleOverlap
		}
		logger.Error("AvailabilityRuleRepository:Create", err)
		return nil, err
	}

	return &created, nil
}

func (r *AvailabilityRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE id = $1`

	var rule entity.AvailabilityRule
	err := r.DB.GetContext(ctx, &rule, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("AvailabilityRuleRepository:GetByID", err)
		return nil, err
	}

	return &rule, nil
}

func (r *AvailabilityRuleRepository) GetByProfileID(ctx context.Context, profileID uuid.UUID, activeOnly bool) ([]entity.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE profile_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY day_of_week, start_time`

	var rules []entity.AvailabilityRule
	err := r.DB.SelectContext(ctx, &rules, query, profileID)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:GetByProfileID", err)
		return nil, err
	}

	return rules, nil
}

func (r *AvailabilityRuleRepository) GetByDayOfWeek(ctx context.Context, profileID uuid.UUID, dayOfWeek int, activeOnly bool) ([]entity.AvailabilityRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM availability_rules WHERE profile_id = $1 AND day_of_week = $2`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY start_time`

	var rules []entity.AvailabilityRule
	err := r.DB.SelectContext(ctx, &rules, query, profileID, dayOfWeek)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:GetByDayOfWeek", err)
		return nil, err
	}

	return rules, nil
}

func (r *AvailabilityRuleRepository) GetPagedByProfileID(ctx context.Context, profileID uuid.UUID, p params.QueryParams) (*entity.PaginatedAvailabilityRules, error) {
	offset := (p.PageNumber - 1) * p.PageSize

	var totalItems int
	err := r.DB.GetContext(ctx, &totalItems,
		`SELECT COUNT(*) FROM availability_rules WHERE profile_id = $1`, profileID)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:GetPagedByProfileID:Count", err)
		return nil, err
	}

	query := `SELECT ` + ruleColumns + `
		FROM availability_rules
		WHERE profile_id = $1
		ORDER BY day_of_week, start_time
		LIMIT $2 OFFSET $3`

	var rules []entity.AvailabilityRule
	err = r.DB.SelectContext(ctx, &rules, query, profileID, p.PageSize, offset)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:GetPagedByProfileID:Select", err)
		return nil, err
	}

	return &entity.PaginatedAvailabilityRules{
		Items:      rules,
		TotalItems: totalItems,
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}, nil
}

func (r *AvailabilityRuleRepository) Update(ctx context.Context, rule *entity.AvailabilityRule) error {
	query := `
		UPDATE availability_rules
		SET day_of_week = $2, start_time = $3, end_time = $4, slot_duration = $5,
		    buffer_time = $6, max_appointments_per_slot = $7, is_active = $8,
		    effective_from = $9, effective_to = $10, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query,
		rule.ID, rule.DayOfWeek, rule.StartTime, rule.EndTime, rule.SlotDuration,
		rule.BufferTime, rule.MaxAppointmentsPerSlot, rule.IsActive,
		rule.EffectiveFrom, rule.EffectiveTo)
	if err != nil {
		if isExclusionViolation(err) {
			return ErrRuleOverlap
		}
		logger.Error("AvailabilityRuleRepository:Update", err)
		return err
	}

	return nil
}

func (r *AvailabilityRuleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE availability_rules SET is_active = FALSE, updated_at = NOW() WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:Deactivate", err)
		return err
	}
	return nil
}

func (r *AvailabilityRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM availability_rules WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("AvailabilityRuleRepository:Delete", err)
		return err
	}
	return nil
}
