package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"welllink-api/core/cache"
	"welllink-api/core/constants"
	"welllink-api/core/errors"
	"welllink-api/core/logger"
	"welllink-api/core/params"
	"welllink-api/modules/availability/dto"
	"welllink-api/modules/availability/entity"
	"welllink-api/modules/availability/repository"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hibiken/asynq"
)

const (
	dateLayout       = "2006-01-02"
	previewCacheSize = 256
)

// AvailabilityServiceInterface is the engine contract consumed by the HTTP
// controller and the asynq worker.
type AvailabilityServiceInterface interface {
	CreateRule(ctx context.Context, profileID uuid.UUID, req *dto.CreateRuleRequest) (*dto.RuleResponse, *errors.AppError)
	UpdateRule(ctx context.Context, profileID, ruleID uuid.UUID, req *dto.UpdateRuleRequest) (*dto.RuleResponse, *errors.AppError)
	DeleteRule(ctx context.Context, profileID, ruleID uuid.UUID) *errors.AppError
	DeactivateRule(ctx context.Context, profileID, ruleID uuid.UUID) (*dto.RuleResponse, *errors.AppError)
	ListRules(ctx context.Context, profileID uuid.UUID, p params.QueryParams) (*dto.PaginatedRulesResponse, *errors.AppError)
	PreviewSlots(ctx context.Context, profileID uuid.UUID, startDate, endDate time.Time) ([]dto.PreviewRow, *errors.AppError)
	GenerateSlotsForDate(ctx context.Context, profileID, serviceID uuid.UUID, date time.Time) (*dto.GenerateSlotsResponse, *errors.AppError)
	GenerateSlotsForRange(ctx context.Context, profileID, serviceID uuid.UUID, startDate, endDate time.Time) (*dto.GenerateSlotsResponse, *errors.AppError)
	EnqueueGeneration(ctx context.Context, profileID, serviceID uuid.UUID, startDate, endDate time.Time) (*dto.EnqueuedResponse, *errors.AppError)
}

// AvailabilityService orchestrates rule validation, persistence and slot
// generation. It is stateless between calls apart from the preview cache.
type AvailabilityService struct {
	ruleRepo     repository.RuleRepositoryInterface
	slotRepo     repository.SlotRepositoryInterface
	validator    *RuleValidator
	expander     *SlotExpander
	asynqClient  *asynq.Client
	previewCache *lru.Cache[string, []dto.PreviewRow]
}

func NewAvailabilityService(
	ruleRepo repository.RuleRepositoryInterface,
	slotRepo repository.SlotRepositoryInterface,
	expander *SlotExpander,
	asynqClient *asynq.Client,
) *AvailabilityService {
	previewCache, _ := lru.New[string, []dto.PreviewRow](previewCacheSize)
	return &AvailabilityService{
		ruleRepo:     ruleRepo,
		slotRepo:     slotRepo,
		validator:    NewRuleValidator(),
		expander:     expander,
		asynqClient:  asynqClient,
		previewCache: previewCache,
	}
}

// ===================== Rules =====================

func (s *AvailabilityService) CreateRule(ctx context.Context, profileID uuid.UUID, req *dto.CreateRuleRequest) (*dto.RuleResponse, *errors.AppError) {
	effectiveFrom, effectiveTo, appErr := parseEffectiveWindow(req.EffectiveFrom, req.EffectiveTo)
	if appErr != nil {
		return nil, appErr
	}

	now := time.Now().UTC()
	rule := &entity.AvailabilityRule{
		ProfileID:              profileID,
		DayOfWeek:              req.DayOfWeek,
		StartTime:              req.StartTime,
		EndTime:                req.EndTime,
		SlotDuration:           req.SlotDuration,
		BufferTime:             req.BufferTime,
		MaxAppointmentsPerSlot: req.MaxAppointmentsPerSlot,
		IsActive:               true,
		EffectiveFrom:          effectiveFrom,
		EffectiveTo:            effectiveTo,
	}
	rule.ID = uuid.New()
	rule.CreatedAt = now
	rule.UpdatedAt = now
	if rule.BufferTime < 0 {
		rule.BufferTime = 0
	}
	if rule.MaxAppointmentsPerSlot <= 0 {
		rule.MaxAppointmentsPerSlot = 1
	}

	siblings, err := s.ruleRepo.GetByDayOfWeek(ctx, profileID, rule.DayOfWeek, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rules", err)
	}
	if appErr := s.validator.Validate(rule, siblings); appErr != nil {
		return nil, appErr
	}

	created, err := s.ruleRepo.Create(ctx, rule)
	if err != nil {
		if err == repository.ErrRuleOverlap {
			return nil, errors.NewAppError(errors.ErrOverlappingRule,
				"Rule overlaps an active rule created concurrently", err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create availability rule", err)
	}

	s.purgePreviewCache(profileID)
	logger.Info("AvailabilityService:CreateRule:Success",
		"rule_id", created.ID, "profile_id", profileID, "day_of_week", created.DayOfWeek)

	return dto.ToRuleResponse(created), nil
}

func (s *AvailabilityService) UpdateRule(ctx context.Context, profileID, ruleID uuid.UUID, req *dto.UpdateRuleRequest) (*dto.RuleResponse, *errors.AppError) {
	existing, appErr := s.getOwnedRule(ctx, profileID, ruleID)
	if appErr != nil {
		return nil, appErr
	}

	merged, appErr := applyRulePatch(existing, req)
	if appErr != nil {
		return nil, appErr
	}

	// Re-validate the merged record against the target day's siblings; moving a
	// rule to another day checks the inherited window against that day.
	siblings, err := s.ruleRepo.GetByDayOfWeek(ctx, profileID, merged.DayOfWeek, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rules", err)
	}
	if appErr := s.validator.Validate(merged, siblings); appErr != nil {
		return nil, appErr
	}

	merged.UpdatedAt = time.Now().UTC()
	if err := s.ruleRepo.Update(ctx, merged); err != nil {
		if err == repository.ErrRuleOverlap {
			return nil, errors.NewAppError(errors.ErrOverlappingRule,
				"Rule overlaps an active rule created concurrently", err)
		}
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update availability rule", err)
	}

	s.purgePreviewCache(profileID)
	logger.Info("AvailabilityService:UpdateRule:Success", "rule_id", ruleID, "profile_id", profileID)

	return dto.ToRuleResponse(merged), nil
}

func (s *AvailabilityService) DeleteRule(ctx context.Context, profileID, ruleID uuid.UUID) *errors.AppError {
	if _, appErr := s.getOwnedRule(ctx, profileID, ruleID); appErr != nil {
		return appErr
	}

	if err := s.ruleRepo.Delete(ctx, ruleID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete availability rule", err)
	}

	s.purgePreviewCache(profileID)
	logger.Info("AvailabilityService:DeleteRule:Success", "rule_id", ruleID, "profile_id", profileID)
	return nil
}

// DeactivateRule soft-deletes the rule. There is no reactivation path: an
// inactive rule stays out of overlap checks and slot generation for good.
func (s *AvailabilityService) DeactivateRule(ctx context.Context, profileID, ruleID uuid.UUID) (*dto.RuleResponse, *errors.AppError) {
	rule, appErr := s.getOwnedRule(ctx, profileID, ruleID)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.ruleRepo.Deactivate(ctx, ruleID); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to deactivate availability rule", err)
	}

	rule.IsActive = false
	rule.UpdatedAt = time.Now().UTC()
	s.purgePreviewCache(profileID)
	logger.Info("AvailabilityService:DeactivateRule:Success", "rule_id", ruleID, "profile_id", profileID)

	return dto.ToRuleResponse(rule), nil
}

func (s *AvailabilityService) ListRules(ctx context.Context, profileID uuid.UUID, p params.QueryParams) (*dto.PaginatedRulesResponse, *errors.AppError) {
	paged, err := s.ruleRepo.GetPagedByProfileID(ctx, profileID, p)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list availability rules", err)
	}
	return dto.ToPaginatedRulesResponse(paged), nil
}

// ===================== Preview =====================

func (s *AvailabilityService) PreviewSlots(ctx context.Context, profileID uuid.UUID, startDate, endDate time.Time) ([]dto.PreviewRow, *errors.AppError) {
	if appErr := validateDateRange(startDate, endDate); appErr != nil {
		return nil, appErr
	}

	cacheKey := previewCacheKey(profileID, startDate, endDate)
	if rows, ok := s.previewCache.Get(cacheKey); ok {
		return rows, nil
	}

	rules, err := s.ruleRepo.GetByProfileID(ctx, profileID, true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rules", err)
	}

	rows := make([]dto.PreviewRow, 0)
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		for i := range rules {
			rule := &rules[i]
			if rule.DayOfWeek != int(date.Weekday()) {
				continue
			}
			if !s.expander.CoversDate(rule, date) {
				continue
			}
			count, appErr := s.expander.PreviewCount(rule, date)
			if appErr != nil {
				return nil, appErr
			}
			rows = append(rows, dto.PreviewRow{
				Date:      date.Format(dateLayout),
				DayOfWeek: rule.DayOfWeek,
				StartTime: rule.StartTime,
				EndTime:   rule.EndTime,
				Count:     count,
			})
		}
	}

	sortPreviewRows(rows)
	s.previewCache.Add(cacheKey, rows)
	return rows, nil
}

// ===================== Generation =====================

func (s *AvailabilityService) GenerateSlotsForDate(ctx context.Context, profileID, serviceID uuid.UUID, date time.Time) (*dto.GenerateSlotsResponse, *errors.AppError) {
	dateKey := date.Format(dateLayout)

	// Idempotence guard: a covered date is skipped rather than regenerated.
	generated, err := cache.HasSlotsGenerated(ctx, profileID, serviceID, dateKey)
	if err != nil {
		logger.Warn("AvailabilityService:GenerateSlotsForDate:CacheCheckFailed", "error", err, "date", dateKey)
	}
	if generated {
		return dto.ToGenerateSlotsResponse(nil), nil
	}

	rules, err := s.ruleRepo.GetByDayOfWeek(ctx, profileID, int(date.Weekday()), true)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rules", err)
	}

	var slots []entity.TimeSlot
	now := time.Now().UTC()
	for i := range rules {
		rule := &rules[i]
		expanded, appErr := s.expander.Expand(rule, date)
		if appErr != nil {
			return nil, appErr
		}
		for _, st := range expanded {
			slot := entity.TimeSlot{
				ProfileID:           profileID,
				ServiceID:           serviceID,
				StartTime:           st.Start,
				EndTime:             st.End,
				MaxReservations:     rule.MaxAppointmentsPerSlot,
				CurrentReservations: 0,
				Status:              entity.SlotStatusAvailable,
			}
			slot.ID = uuid.New()
			slot.CreatedAt = now
			slot.UpdatedAt = now
			slots = append(slots, slot)
		}
	}

	// No applicable rule is a valid outcome, not an error; the store is not touched.
	if len(slots) == 0 {
		return dto.ToGenerateSlotsResponse(nil), nil
	}

	sort.Slice(slots, func(i, j int) bool {
		return slots[i].StartTime.Before(slots[j].StartTime)
	})

	// DB-side backstop when the redis mark is cold. The window is offset-shifted
	// so slots from a rule crossing UTC midnight never satisfy the next day's check.
	windowStart, windowEnd := s.expander.DayWindow(date)
	existing, err := s.slotRepo.CountInRange(ctx, profileID, serviceID, windowStart, windowEnd)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to check existing slots", err)
	}
	if existing > 0 {
		s.markGenerated(ctx, profileID, serviceID, dateKey)
		return dto.ToGenerateSlotsResponse(nil), nil
	}

	created, err := s.slotRepo.BulkCreate(ctx, slots)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to persist generated slots", err)
	}

	s.markGenerated(ctx, profileID, serviceID, dateKey)
	logger.Info("AvailabilityService:GenerateSlotsForDate:Success",
		"profile_id", profileID, "service_id", serviceID, "date", dateKey, "generated", len(created))

	return dto.ToGenerateSlotsResponse(created), nil
}

func (s *AvailabilityService) GenerateSlotsForRange(ctx context.Context, profileID, serviceID uuid.UUID, startDate, endDate time.Time) (*dto.GenerateSlotsResponse, *errors.AppError) {
	if appErr := validateDateRange(startDate, endDate); appErr != nil {
		return nil, appErr
	}

	total := &dto.GenerateSlotsResponse{Slots: []dto.SlotResponse{}}
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Slot generation cancelled", err)
		}
		resp, appErr := s.GenerateSlotsForDate(ctx, profileID, serviceID, date)
		if appErr != nil {
			return nil, appErr
		}
		total.GeneratedCount += resp.GeneratedCount
		total.Slots = append(total.Slots, resp.Slots...)
	}

	return total, nil
}

// EnqueueGeneration schedules range generation on the worker.
func (s *AvailabilityService) EnqueueGeneration(ctx context.Context, profileID, serviceID uuid.UUID, startDate, endDate time.Time) (*dto.EnqueuedResponse, *errors.AppError) {
	if appErr := validateDateRange(startDate, endDate); appErr != nil {
		return nil, appErr
	}
	if s.asynqClient == nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Background generation is not available", nil)
	}

	task, err := NewGenerateSlotsTask(profileID, serviceID, startDate, endDate)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to build generation task", err)
	}

	info, err := s.asynqClient.EnqueueContext(ctx, task, asynq.Queue(constants.QueueDefault))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to enqueue generation task", err)
	}

	logger.Info("AvailabilityService:EnqueueGeneration:Success",
		"task_id", info.ID, "profile_id", profileID, "service_id", serviceID)
	return &dto.EnqueuedResponse{TaskID: info.ID, Queue: info.Queue}, nil
}

// ===================== Helpers =====================

func (s *AvailabilityService) getOwnedRule(ctx context.Context, profileID, ruleID uuid.UUID) (*entity.AvailabilityRule, *errors.AppError) {
	rule, err := s.ruleRepo.GetByID(ctx, ruleID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to load availability rule", err)
	}
	if rule == nil {
		return nil, errors.NewAppError(errors.ErrRuleNotFound,
			fmt.Sprintf("Availability rule %s not found", ruleID), nil)
	}
	if rule.ProfileID != profileID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Rule belongs to another profile", nil)
	}
	return rule, nil
}

func (s *AvailabilityService) markGenerated(ctx context.Context, profileID, serviceID uuid.UUID, dateKey string) {
	if err := cache.MarkSlotsGenerated(ctx, profileID, serviceID, dateKey); err != nil {
		logger.Warn("AvailabilityService:MarkSlotsGenerated:Failed", "error", err, "date", dateKey)
	}
}

func (s *AvailabilityService) purgePreviewCache(profileID uuid.UUID) {
	prefix := profileID.String() + "|"
	for _, key := range s.previewCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.previewCache.Remove(key)
		}
	}
}

func previewCacheKey(profileID uuid.UUID, startDate, endDate time.Time) string {
	return profileID.String() + "|" + startDate.Format(dateLayout) + "|" + endDate.Format(dateLayout)
}

func sortPreviewRows(rows []dto.PreviewRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date < rows[j].Date
		}
		mi, _ := TimeToMinutes(rows[i].StartTime)
		mj, _ := TimeToMinutes(rows[j].StartTime)
		return mi < mj
	})
}

func validateDateRange(startDate, endDate time.Time) *errors.AppError {
	if endDate.Before(startDate) {
		return errors.NewAppError(errors.ErrInvalidInput, "End date must not be before start date", nil)
	}
	days := int(endDate.Sub(startDate).Hours()/24) + 1
	if days > constants.MaxScheduleRangeDays {
		return errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("Date range exceeds %d days", constants.MaxScheduleRangeDays), nil)
	}
	return nil
}

func parseEffectiveWindow(from string, to *string) (time.Time, *time.Time, *errors.AppError) {
	effectiveFrom, err := time.Parse(dateLayout, from)
	if err != nil {
		return time.Time{}, nil, errors.NewAppError(errors.ErrInvalidInput,
			fmt.Sprintf("Invalid effective_from date %q, expected YYYY-MM-DD", from), err)
	}

	var effectiveTo *time.Time
	if to != nil && *to != "" {
		parsed, err := time.Parse(dateLayout, *to)
		if err != nil {
			return time.Time{}, nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Invalid effective_to date %q, expected YYYY-MM-DD", *to), err)
		}
		effectiveTo = &parsed
	}

	return effectiveFrom, effectiveTo, nil
}

// applyRulePatch merges a partial update over the stored rule; untouched
// fields keep their current values. EffectiveTo set to "" clears the bound.
func applyRulePatch(existing *entity.AvailabilityRule, req *dto.UpdateRuleRequest) (*entity.AvailabilityRule, *errors.AppError) {
	merged := *existing
	if req.DayOfWeek != nil {
		merged.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		merged.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		merged.EndTime = *req.EndTime
	}
	if req.SlotDuration != nil {
		merged.SlotDuration = *req.SlotDuration
	}
	if req.BufferTime != nil {
		merged.BufferTime = *req.BufferTime
		if merged.BufferTime < 0 {
			merged.BufferTime = 0
		}
	}
	if req.MaxAppointmentsPerSlot != nil {
		merged.MaxAppointmentsPerSlot = *req.MaxAppointmentsPerSlot
		if merged.MaxAppointmentsPerSlot <= 0 {
			merged.MaxAppointmentsPerSlot = 1
		}
	}
	if req.EffectiveFrom != nil {
		parsed, err := time.Parse(dateLayout, *req.EffectiveFrom)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput,
				fmt.Sprintf("Invalid effective_from date %q, expected YYYY-MM-DD", *req.EffectiveFrom), err)
		}
		merged.EffectiveFrom = parsed
	}
	if req.EffectiveTo != nil {
		if *req.EffectiveTo == "" {
			merged.EffectiveTo = nil
		} else {
			parsed, err := time.Parse(dateLayout, *req.EffectiveTo)
			if err != nil {
				return nil, errors.NewAppError(errors.ErrInvalidInput,
					fmt.Sprintf("Invalid effective_to date %q, expected YYYY-MM-DD", *req.EffectiveTo), err)
			}
			merged.EffectiveTo = &parsed
		}
	}
	return &merged, nil
}
