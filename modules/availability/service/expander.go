package service

import (
	"time"

	"welllink-api/core/errors"
	"welllink-api/modules/availability/entity"
)

// SlotTime is one expanded (start, end) pair in UTC.
type SlotTime struct {
	Start time.Time
	End   time.Time
}

// SlotExpander turns a rule plus a calendar date into the ordered slot
// sequence for that date. It is pure: no I/O, strictly increasing start times.
type SlotExpander struct {
	// localUTCOffsetMinutes is added to a rule's local wall-clock minutes to
	// obtain the UTC instant. 300 means local time is UTC-5.
	localUTCOffsetMinutes int
}

func NewSlotExpander(localUTCOffsetMinutes int) *SlotExpander {
	return &SlotExpander{localUTCOffsetMinutes: localUTCOffsetMinutes}
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayWindow returns the UTC interval [start, end) that holds every slot Expand
// can emit for the calendar date. The window is shifted by the local offset so
// rules running past local midnight stay bucketed with their generation date.
func (sx *SlotExpander) DayWindow(date time.Time) (time.Time, time.Time) {
	start := dateOnly(date).Add(time.Duration(sx.localUTCOffsetMinutes) * time.Minute)
	return start, start.Add(24 * time.Hour)
}

// CoversDate reports whether the calendar date falls inside the rule's
// effective window (date-only comparison; nil EffectiveTo means open-ended).
func (sx *SlotExpander) CoversDate(rule *entity.AvailabilityRule, date time.Time) bool {
	day := dateOnly(date)
	if day.Before(dateOnly(rule.EffectiveFrom)) {
		return false
	}
	if rule.EffectiveTo != nil && day.After(dateOnly(*rule.EffectiveTo)) {
		return false
	}
	return true
}

// Expand emits the slot sequence for the rule on the given calendar date.
// Starting at the rule's start time, a slot of SlotDuration minutes is emitted
// while it still fits the window; the cursor then advances by duration plus
// buffer. Dates outside the effective window produce an empty sequence.
func (sx *SlotExpander) Expand(rule *entity.AvailabilityRule, date time.Time) ([]SlotTime, *errors.AppError) {
	if !sx.CoversDate(rule, date) {
		return nil, nil
	}

	startMinutes, appErr := TimeToMinutes(rule.StartTime)
	if appErr != nil {
		return nil, appErr
	}
	endMinutes, appErr := TimeToMinutes(rule.EndTime)
	if appErr != nil {
		return nil, appErr
	}

	midnight := dateOnly(date)
	offset := time.Duration(sx.localUTCOffsetMinutes) * time.Minute

	var slots []SlotTime
	for cursor := startMinutes; cursor+rule.SlotDuration <= endMinutes; cursor += rule.SlotDuration + rule.BufferTime {
		start := midnight.Add(time.Duration(cursor)*time.Minute + offset)
		slots = append(slots, SlotTime{
			Start: start,
			End:   start.Add(time.Duration(rule.SlotDuration) * time.Minute),
		})
	}

	return slots, nil
}

// PreviewCount returns the slot count shown by preview endpoints:
// (window / duration) for applicable dates, zero otherwise. The formula
// ignores buffer time while Expand honors it, so previews can overstate the
// generated count for rules with a buffer; booking UIs rely on this number
// as the theoretical capacity of the window.
func (sx *SlotExpander) PreviewCount(rule *entity.AvailabilityRule, date time.Time) (int, *errors.AppError) {
	if !sx.CoversDate(rule, date) {
		return 0, nil
	}

	startMinutes, appErr := TimeToMinutes(rule.StartTime)
	if appErr != nil {
		return 0, appErr
	}
	endMinutes, appErr := TimeToMinutes(rule.EndTime)
	if appErr != nil {
		return 0, appErr
	}

	if rule.SlotDuration <= 0 {
		return 0, nil
	}
	return (endMinutes - startMinutes) / rule.SlotDuration, nil
}
