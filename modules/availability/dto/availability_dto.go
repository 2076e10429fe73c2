package dto

import (
	"time"

	"welllink-api/modules/availability/entity"
)

// CreateRuleRequest is the payload for creating an availability rule.
// Dates use YYYY-MM-DD; times use 24-hour HH:MM.
type CreateRuleRequest struct {
	DayOfWeek              int     `json:"day_of_week"`
	StartTime              string  `json:"start_time"`
	EndTime                string  `json:"end_time"`
	SlotDuration           int     `json:"slot_duration"`
	BufferTime             int     `json:"buffer_time"`
	MaxAppointmentsPerSlot int     `json:"max_appointments_per_slot"`
	EffectiveFrom          string  `json:"effective_from"`
	EffectiveTo            *string `json:"effective_to,omitempty"`
}

// UpdateRuleRequest is a partial patch; nil fields inherit the stored rule.
// An empty-string EffectiveTo clears the bound (open-ended).
type UpdateRuleRequest struct {
	DayOfWeek              *int    `json:"day_of_week,omitempty"`
	StartTime              *string `json:"start_time,omitempty"`
	EndTime                *string `json:"end_time,omitempty"`
	SlotDuration           *int    `json:"slot_duration,omitempty"`
	BufferTime             *int    `json:"buffer_time,omitempty"`
	MaxAppointmentsPerSlot *int    `json:"max_appointments_per_slot,omitempty"`
	EffectiveFrom          *string `json:"effective_from,omitempty"`
	EffectiveTo            *string `json:"effective_to,omitempty"`
}

type RuleResponse struct {
	ID                     string  `json:"id"`
	ProfileID              string  `json:"profile_id"`
	DayOfWeek              int     `json:"day_of_week"`
	StartTime              string  `json:"start_time"`
	EndTime                string  `json:"end_time"`
	SlotDuration           int     `json:"slot_duration"`
	BufferTime             int     `json:"buffer_time"`
	MaxAppointmentsPerSlot int     `json:"max_appointments_per_slot"`
	IsActive               bool    `json:"is_active"`
	EffectiveFrom          string  `json:"effective_from"`
	EffectiveTo            *string `json:"effective_to,omitempty"`
	CreatedAt              string  `json:"created_at"`
	UpdatedAt              string  `json:"updated_at"`
}

type PaginatedRulesResponse struct {
	Items      []RuleResponse `json:"items"`
	TotalItems int            `json:"total_items"`
	PageNumber int            `json:"page_number"`
	PageSize   int            `json:"page_size"`
}

// PreviewRow summarizes the slots one rule would produce on one date.
type PreviewRow struct {
	Date      string `json:"date"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Count     int    `json:"count"`
}

// GenerateSlotsRequest asks for slot generation for one date or a range.
// Async enqueues a background task instead of generating inline.
type GenerateSlotsRequest struct {
	ServiceID string  `json:"service_id"`
	Date      *string `json:"date,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Async     bool    `json:"async"`
}

type SlotResponse struct {
	ID                  string    `json:"id"`
	ProfileID           string    `json:"profile_id"`
	ServiceID           string    `json:"service_id"`
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	MaxReservations     int       `json:"max_reservations"`
	CurrentReservations int       `json:"current_reservations"`
	Status              string    `json:"status"`
}

type GenerateSlotsResponse struct {
	GeneratedCount int            `json:"generated_count"`
	Slots          []SlotResponse `json:"slots"`
}

// EnqueuedResponse acknowledges an async generation request.
type EnqueuedResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
}

const dateLayout = "2006-01-02"

func ToRuleResponse(rule *entity.AvailabilityRule) *RuleResponse {
	resp := &RuleResponse{
		ID:                     rule.ID.String(),
		ProfileID:              rule.ProfileID.String(),
		DayOfWeek:              rule.DayOfWeek,
		StartTime:              rule.StartTime,
		EndTime:                rule.EndTime,
		SlotDuration:           rule.SlotDuration,
		BufferTime:             rule.BufferTime,
		MaxAppointmentsPerSlot: rule.MaxAppointmentsPerSlot,
		IsActive:               rule.IsActive,
		EffectiveFrom:          rule.EffectiveFrom.Format(dateLayout),
		CreatedAt:              rule.CreatedAt.Format(time.RFC3339),
		UpdatedAt:              rule.UpdatedAt.Format(time.RFC3339),
	}
	if rule.EffectiveTo != nil {
		to := rule.EffectiveTo.Format(dateLayout)
		resp.EffectiveTo = &to
	}
	return resp
}

func ToPaginatedRulesResponse(paged *entity.PaginatedAvailabilityRules) *PaginatedRulesResponse {
	items := make([]RuleResponse, 0, len(paged.Items))
	for i := range paged.Items {
		items = append(items, *ToRuleResponse(&paged.Items[i]))
	}
	return &PaginatedRulesResponse{
		Items:      items,
		TotalItems: paged.TotalItems,
		PageNumber: paged.PageNumber,
		PageSize:   paged.PageSize,
	}
}

func ToSlotResponse(slot *entity.TimeSlot) SlotResponse {
	return SlotResponse{
		ID:                  slot.ID.String(),
		ProfileID:           slot.ProfileID.String(),
		ServiceID:           slot.ServiceID.String(),
		StartTime:           slot.StartTime,
		EndTime:             slot.EndTime,
		MaxReservations:     slot.MaxReservations,
		CurrentReservations: slot.CurrentReservations,
		Status:              string(slot.Status),
	}
}

func ToGenerateSlotsResponse(slots []entity.TimeSlot) *GenerateSlotsResponse {
	out := make([]SlotResponse, 0, len(slots))
	for i := range slots {
		out = append(out, ToSlotResponse(&slots[i]))
	}
	return &GenerateSlotsResponse{
		GeneratedCount: len(out),
		Slots:          out,
	}
}
