package service

import (
	"fmt"

	"welllink-api/core/constants"
	"welllink-api/core/errors"
	"welllink-api/modules/availability/entity"
)

// RuleValidator enforces the structural and cross-rule invariants on
// availability rules. It is pure: the caller supplies the sibling rules for
// the candidate's (profile, day).
type RuleValidator struct{}

func NewRuleValidator() *RuleValidator {
	return &RuleValidator{}
}

// OverlapDetails identifies the active rule a candidate collides with.
type OverlapDetails struct {
	ConflictingRuleID string `json:"conflicting_rule_id"`
	ConflictStart     string `json:"conflict_start"`
	ConflictEnd       string `json:"conflict_end"`
}

// WindowDetails carries the available window length when a slot duration does
// not fit.
type WindowDetails struct {
	AvailableWindowMinutes int `json:"available_window_minutes"`
}

// Validate runs the checks in order, short-circuiting on the first failure:
// day range, time ordering, minimum duration, duration-fits-window, effective
// window sanity, then overlap against the supplied siblings. A sibling with
// the candidate's own id (update case) or with IsActive=false is skipped.
func (v *RuleValidator) Validate(rule *entity.AvailabilityRule, siblings []entity.AvailabilityRule) *errors.AppError {
	if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
		return errors.NewAppError(errors.ErrInvalidDayOfWeek,
			fmt.Sprintf("Day of week must be between 0 (Sunday) and 6 (Saturday), got %d", rule.DayOfWeek), nil)
	}

	startMinutes, appErr := TimeToMinutes(rule.StartTime)
	if appErr != nil {
		return appErr
	}
	endMinutes, appErr := TimeToMinutes(rule.EndTime)
	if appErr != nil {
		return appErr
	}

	if startMinutes >= endMinutes {
		return errors.NewAppError(errors.ErrInvalidTimeRange,
			fmt.Sprintf("Start time %s must be before end time %s", rule.StartTime, rule.EndTime), nil)
	}

	if rule.SlotDuration < constants.MinSlotDurationMinutes {
		return errors.NewAppError(errors.ErrSlotTooShort,
			fmt.Sprintf("Slot duration must be at least %d minutes, got %d",
				constants.MinSlotDurationMinutes, rule.SlotDuration), nil)
	}

	window := endMinutes - startMinutes
	if rule.SlotDuration > window {
		return errors.NewAppErrorWithDetails(errors.ErrSlotExceedsWindow,
			fmt.Sprintf("Slot duration %d exceeds the %d minute window", rule.SlotDuration, window),
			WindowDetails{AvailableWindowMinutes: window})
	}

	if rule.EffectiveTo != nil && rule.EffectiveTo.Before(rule.EffectiveFrom) {
		return errors.NewAppError(errors.ErrInvalidInput,
			"effective_to must not be before effective_from", nil)
	}

	for i := range siblings {
		other := &siblings[i]
		if other.ID == rule.ID || !other.IsActive {
			continue
		}
		otherStart, appErr := TimeToMinutes(other.StartTime)
		if appErr != nil {
			continue // stored rule with an unparseable time cannot block writes
		}
		otherEnd, appErr := TimeToMinutes(other.EndTime)
		if appErr != nil {
			continue
		}
		// half-open intervals: [a,b) and [c,d) overlap iff a < d && c < b
		if startMinutes < otherEnd && otherStart < endMinutes {
			return errors.NewAppErrorWithDetails(errors.ErrOverlappingRule,
				fmt.Sprintf("Rule overlaps active rule %s (%s-%s) on day %d",
					other.ID, other.StartTime, other.EndTime, other.DayOfWeek),
				OverlapDetails{
					ConflictingRuleID: other.ID.String(),
					ConflictStart:     other.StartTime,
					ConflictEnd:       other.EndTime,
				})
		}
	}

	return nil
}
