package entity

import (
	"time"

	coreEntity "welllink-api/core/entity"

	"github.com/google/uuid"
)

// AvailabilityRule is a recurring weekly availability window for one profile.
// StartTime/EndTime are local wall-clock times ("HH:MM", seconds tolerated);
// the effective window bounds the calendar dates the rule applies to.
type AvailabilityRule struct {
	coreEntity.BaseEntity
	ProfileID              uuid.UUID  `db:"profile_id" json:"profile_id"`
	DayOfWeek              int        `db:"day_of_week" json:"day_of_week"` // 0=Sunday ... 6=Saturday
	StartTime              string     `db:"start_time" json:"start_time"`
	EndTime                string     `db:"end_time" json:"end_time"`
	SlotDuration           int        `db:"slot_duration" json:"slot_duration"` // minutes
	BufferTime             int        `db:"buffer_time" json:"buffer_time"`     // minutes
	MaxAppointmentsPerSlot int        `db:"max_appointments_per_slot" json:"max_appointments_per_slot"`
	IsActive               bool       `db:"is_active" json:"is_active"`
	EffectiveFrom          time.Time  `db:"effective_from" json:"effective_from"`
	EffectiveTo            *time.Time `db:"effective_to" json:"effective_to,omitempty"` // nil = open-ended
}

// PaginatedAvailabilityRules is the paged list shape returned by the repository.
type PaginatedAvailabilityRules struct {
	Items      []AvailabilityRule `json:"items"`
	TotalItems int                `json:"total_items"`
	PageNumber int                `json:"page_number"`
	PageSize   int                `json:"page_size"`
}
