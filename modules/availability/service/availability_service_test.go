package service

import (
	"context"
	"testing"
	"time"

	"welllink-api/core/errors"
	"welllink-api/core/params"
	"welllink-api/modules/availability/dto"
	"welllink-api/modules/availability/entity"

	"github.com/google/uuid"
)

// ===================== fakes =====================

type fakeRuleRepo struct {
	rules map[uuid.UUID]*entity.AvailabilityRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: make(map[uuid.UUID]*entity.AvailabilityRule)}
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *entity.AvailabilityRule) (*entity.AvailabilityRule, error) {
	stored := *rule
	f.rules[rule.ID] = &stored
	return &stored, nil
}

func (f *fakeRuleRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.AvailabilityRule, error) {
	rule, ok := f.rules[id]
	if !ok {
		return nil, nil
	}
	clone := *rule
	return &clone, nil
}

func (f *fakeRuleRepo) GetByProfileID(_ context.Context, profileID uuid.UUID, activeOnly bool) ([]entity.AvailabilityRule, error) {
	var out []entity.AvailabilityRule
	for _, rule := range f.rules {
		if rule.ProfileID == profileID && (!activeOnly || rule.IsActive) {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) GetByDayOfWeek(_ context.Context, profileID uuid.UUID, dayOfWeek int, activeOnly bool) ([]entity.AvailabilityRule, error) {
	var out []entity.AvailabilityRule
	for _, rule := range f.rules {
		if rule.ProfileID == profileID && rule.DayOfWeek == dayOfWeek && (!activeOnly || rule.IsActive) {
			out = append(out, *rule)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) GetPagedByProfileID(ctx context.Context, profileID uuid.UUID, p params.QueryParams) (*entity.PaginatedAvailabilityRules, error) {
	items, _ := f.GetByProfileID(ctx, profileID, false)
	return &entity.PaginatedAvailabilityRules{
		Items:      items,
		TotalItems: len(items),
		PageNumber: p.PageNumber,
		PageSize:   p.PageSize,
	}, nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *entity.AvailabilityRule) error {
	stored := *rule
	f.rules[rule.ID] = &stored
	return nil
}

func (f *fakeRuleRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if rule, ok := f.rules[id]; ok {
		rule.IsActive = false
	}
	return nil
}

func (f *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rules, id)
	return nil
}

type fakeSlotRepo struct {
	slots       []entity.TimeSlot
	bulkCreates int
}

func (f *fakeSlotRepo) BulkCreate(_ context.Context, slots []entity.TimeSlot) ([]entity.TimeSlot, error) {
	f.bulkCreates++
	f.slots = append(f.slots, slots...)
	return slots, nil
}

func (f *fakeSlotRepo) CountInRange(_ context.Context, profileID, serviceID uuid.UUID, from, to time.Time) (int, error) {
	count := 0
	for _, slot := range f.slots {
		if slot.ProfileID == profileID && slot.ServiceID == serviceID &&
			!slot.StartTime.Before(from) && slot.StartTime.Before(to) {
			count++
		}
	}
	return count, nil
}

func newTestService() (*AvailabilityService, *fakeRuleRepo, *fakeSlotRepo) {
	return newTestServiceWithOffset(0)
}

func newTestServiceWithOffset(offsetMinutes int) (*AvailabilityService, *fakeRuleRepo, *fakeSlotRepo) {
	ruleRepo := newFakeRuleRepo()
	slotRepo := &fakeSlotRepo{}
	svc := NewAvailabilityService(ruleRepo, slotRepo, NewSlotExpander(offsetMinutes), nil)
	return svc, ruleRepo, slotRepo
}

func createReq(day int, start, end string, duration int) *dto.CreateRuleRequest {
	return &dto.CreateRuleRequest{
		DayOfWeek:     day,
		StartTime:     start,
		EndTime:       end,
		SlotDuration:  duration,
		EffectiveFrom: "2026-01-01",
	}
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// ===================== rules =====================

func TestCreateRule_AppliesDefaults(t *testing.T) {
	svc, repo, _ := newTestService()
	profileID := uuid.New()

	resp, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if resp.MaxAppointmentsPerSlot != 1 {
		t.Fatalf("max appointments = %d, want default 1", resp.MaxAppointmentsPerSlot)
	}
	if resp.BufferTime != 0 {
		t.Fatalf("buffer = %d, want 0", resp.BufferTime)
	}
	if !resp.IsActive {
		t.Fatal("new rule should be active")
	}
	if len(repo.rules) != 1 {
		t.Fatalf("stored rules = %d, want 1", len(repo.rules))
	}
}

func TestCreateRule_RejectsInvalidInput(t *testing.T) {
	svc, repo, _ := newTestService()
	profileID := uuid.New()

	tests := []struct {
		name     string
		req      *dto.CreateRuleRequest
		wantCode errors.ErrorCode
	}{
		{"bad day", createReq(8, "09:00", "17:00", 30), errors.ErrInvalidDayOfWeek},
		{"inverted times", createReq(1, "17:00", "09:00", 30), errors.ErrInvalidTimeRange},
		{"short slot", createReq(1, "09:00", "17:00", 5), errors.ErrSlotTooShort},
		{"bad effective date", &dto.CreateRuleRequest{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00", SlotDuration: 30, EffectiveFrom: "01/01/2026"}, errors.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, appErr := svc.CreateRule(context.Background(), profileID, tt.req)
			if appErr == nil || appErr.Code != tt.wantCode {
				t.Fatalf("code = %v, want %s", appErr, tt.wantCode)
			}
		})
	}
	if len(repo.rules) != 0 {
		t.Fatalf("rejected rules were stored: %d", len(repo.rules))
	}
}

func TestCreateRule_Overlap(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	first, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	_, appErr = svc.CreateRule(context.Background(), profileID, createReq(1, "12:00", "13:00", 30))
	if appErr == nil || appErr.Code != errors.ErrOverlappingRule {
		t.Fatalf("expected %s, got %v", errors.ErrOverlappingRule, appErr)
	}
	details, ok := appErr.Details.(OverlapDetails)
	if !ok || details.ConflictingRuleID != first.ID {
		t.Fatalf("overlap details = %+v, want conflict with %s", appErr.Details, first.ID)
	}

	// A different profile may hold the same window.
	_, appErr = svc.CreateRule(context.Background(), uuid.New(), createReq(1, "12:00", "13:00", 30))
	if appErr != nil {
		t.Fatalf("other profile blocked: %v", appErr)
	}
}

func TestUpdateRule_NotFoundAndOwnership(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	_, appErr := svc.UpdateRule(context.Background(), profileID, uuid.New(), &dto.UpdateRuleRequest{})
	if appErr == nil || appErr.Code != errors.ErrRuleNotFound {
		t.Fatalf("expected %s, got %v", errors.ErrRuleNotFound, appErr)
	}

	created, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	ruleID, _ := uuid.Parse(created.ID)

	_, appErr = svc.UpdateRule(context.Background(), uuid.New(), ruleID, &dto.UpdateRuleRequest{})
	if appErr == nil || appErr.Code != errors.ErrForbidden {
		t.Fatalf("expected %s, got %v", errors.ErrForbidden, appErr)
	}
}

func TestUpdateRule_NoSelfConflict(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	created, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	ruleID, _ := uuid.Parse(created.ID)

	updated, appErr := svc.UpdateRule(context.Background(), profileID, ruleID, &dto.UpdateRuleRequest{
		StartTime: strPtr("08:00"),
	})
	if appErr != nil {
		t.Fatalf("widening the only rule failed: %v", appErr)
	}
	if updated.StartTime != "08:00" || updated.EndTime != "17:00" {
		t.Fatalf("merged rule = %s-%s, want 08:00-17:00", updated.StartTime, updated.EndTime)
	}
}

func TestUpdateRule_DayChangeRevalidates(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	tuesday, appErr := svc.CreateRule(context.Background(), profileID, createReq(2, "09:00", "10:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	tuesdayID, _ := uuid.Parse(tuesday.ID)

	// Moving the Tuesday rule onto Monday re-checks its inherited window
	// against Monday's rules.
	_, appErr = svc.UpdateRule(context.Background(), profileID, tuesdayID, &dto.UpdateRuleRequest{
		DayOfWeek: intPtr(1),
	})
	if appErr == nil || appErr.Code != errors.ErrOverlappingRule {
		t.Fatalf("expected %s, got %v", errors.ErrOverlappingRule, appErr)
	}
}

func TestDeactivateRule_ExcludedFromOverlap(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	created, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	ruleID, _ := uuid.Parse(created.ID)

	resp, appErr := svc.DeactivateRule(context.Background(), profileID, ruleID)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if resp.IsActive {
		t.Fatal("rule still active after deactivation")
	}

	// The deactivated window is free for a new rule.
	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30)); appErr != nil {
		t.Fatalf("deactivated rule still blocks: %v", appErr)
	}
}

func TestDeleteRule(t *testing.T) {
	svc, repo, _ := newTestService()
	profileID := uuid.New()

	created, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	ruleID, _ := uuid.Parse(created.ID)

	if appErr := svc.DeleteRule(context.Background(), profileID, ruleID); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(repo.rules) != 0 {
		t.Fatal("rule not deleted")
	}

	if appErr := svc.DeleteRule(context.Background(), profileID, ruleID); appErr == nil || appErr.Code != errors.ErrRuleNotFound {
		t.Fatalf("expected %s, got %v", errors.ErrRuleNotFound, appErr)
	}
}

// ===================== preview =====================

func TestPreviewSlots(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	rows, appErr := svc.PreviewSlots(context.Background(), profileID, monday, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Count != 16 || rows[0].Date != "2026-08-31" || rows[0].DayOfWeek != 1 {
		t.Fatalf("row = %+v, want count 16 on 2026-08-31", rows[0])
	}

	// A full week still yields one row: only Monday matches.
	rows, appErr = svc.PreviewSlots(context.Background(), profileID, monday, monday.AddDate(0, 0, 6))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(rows) != 1 {
		t.Fatalf("rows over a week = %d, want 1", len(rows))
	}
}

func TestPreviewSlots_SortedByStartTime(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "13:00", "17:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "12:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	rows, appErr := svc.PreviewSlots(context.Background(), profileID, monday, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].StartTime != "09:00" || rows[1].StartTime != "13:00" {
		t.Fatalf("rows out of order: %s then %s", rows[0].StartTime, rows[1].StartTime)
	}
}

func TestPreviewSlots_CacheInvalidatedOnMutation(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()

	created, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	ruleID, _ := uuid.Parse(created.ID)

	rows, _ := svc.PreviewSlots(context.Background(), profileID, monday, monday)
	if rows[0].Count != 16 {
		t.Fatalf("count = %d, want 16", rows[0].Count)
	}

	if _, appErr := svc.UpdateRule(context.Background(), profileID, ruleID, &dto.UpdateRuleRequest{
		EndTime: strPtr("12:00"),
	}); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	rows, _ = svc.PreviewSlots(context.Background(), profileID, monday, monday)
	if rows[0].Count != 6 {
		t.Fatalf("count after update = %d, want 6", rows[0].Count)
	}
}

func TestPreviewSlots_InvalidRange(t *testing.T) {
	svc, _, _ := newTestService()

	_, appErr := svc.PreviewSlots(context.Background(), uuid.New(), monday, monday.AddDate(0, 0, -1))
	if appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected %s, got %v", errors.ErrInvalidInput, appErr)
	}

	_, appErr = svc.PreviewSlots(context.Background(), uuid.New(), monday, monday.AddDate(2, 0, 0))
	if appErr == nil || appErr.Code != errors.ErrInvalidInput {
		t.Fatalf("expected %s for oversized range, got %v", errors.ErrInvalidInput, appErr)
	}
}

// ===================== generation =====================

func TestGenerateSlotsForDate_NoApplicableRule(t *testing.T) {
	svc, _, slotRepo := newTestService()

	resp, appErr := svc.GenerateSlotsForDate(context.Background(), uuid.New(), uuid.New(), monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if resp.GeneratedCount != 0 || len(resp.Slots) != 0 {
		t.Fatalf("resp = %+v, want empty result", resp)
	}
	if slotRepo.bulkCreates != 0 {
		t.Fatal("store touched although no rule applied")
	}
}

func TestGenerateSlotsForDate(t *testing.T) {
	svc, _, slotRepo := newTestService()
	profileID := uuid.New()
	serviceID := uuid.New()

	req := createReq(1, "09:00", "17:00", 30)
	req.MaxAppointmentsPerSlot = 3
	if _, appErr := svc.CreateRule(context.Background(), profileID, req); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	resp, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if resp.GeneratedCount != 16 {
		t.Fatalf("generated = %d, want 16", resp.GeneratedCount)
	}

	first := resp.Slots[0]
	if !first.StartTime.Equal(monday.Add(9 * time.Hour)) {
		t.Fatalf("first slot start = %s, want 09:00", first.StartTime)
	}
	if first.Status != string(entity.SlotStatusAvailable) {
		t.Fatalf("status = %s, want available", first.Status)
	}
	if first.MaxReservations != 3 || first.CurrentReservations != 0 {
		t.Fatalf("reservations = %d/%d, want 0/3", first.CurrentReservations, first.MaxReservations)
	}
	for i := 1; i < len(resp.Slots); i++ {
		if !resp.Slots[i-1].StartTime.Before(resp.Slots[i].StartTime) {
			t.Fatalf("slots not sorted at %d", i)
		}
	}
	if len(slotRepo.slots) != 16 {
		t.Fatalf("persisted slots = %d, want 16", len(slotRepo.slots))
	}
}

func TestGenerateSlotsForDate_Idempotent(t *testing.T) {
	svc, _, slotRepo := newTestService()
	profileID := uuid.New()
	serviceID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	first, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if first.GeneratedCount != 16 {
		t.Fatalf("first run generated = %d, want 16", first.GeneratedCount)
	}

	second, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if second.GeneratedCount != 0 {
		t.Fatalf("second run generated = %d, want 0", second.GeneratedCount)
	}
	if slotRepo.bulkCreates != 1 {
		t.Fatalf("bulk creates = %d, want 1", slotRepo.bulkCreates)
	}
}

func TestGenerateSlotsForDate_CrossMidnightRuleDoesNotBlockNextDay(t *testing.T) {
	// Offset 300: a Monday 20:00-22:00 rule emits slots landing on Tuesday in
	// UTC (01:00-03:00). The idempotence backstop must bucket them with Monday
	// so Tuesday's own rule still generates.
	svc, _, _ := newTestServiceWithOffset(300)
	profileID := uuid.New()
	serviceID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "20:00", "22:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(2, "09:00", "10:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	mondayResp, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if mondayResp.GeneratedCount != 4 {
		t.Fatalf("monday generated = %d, want 4", mondayResp.GeneratedCount)
	}
	if !mondayResp.Slots[0].StartTime.Equal(monday.AddDate(0, 0, 1).Add(1 * time.Hour)) {
		t.Fatalf("first monday slot = %s, want 01:00 UTC tuesday", mondayResp.Slots[0].StartTime)
	}

	tuesday := monday.AddDate(0, 0, 1)
	tuesdayResp, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, tuesday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if tuesdayResp.GeneratedCount != 2 {
		t.Fatalf("tuesday generated = %d, want 2", tuesdayResp.GeneratedCount)
	}

	// Re-running either day still skips.
	again, appErr := svc.GenerateSlotsForDate(context.Background(), profileID, serviceID, monday)
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if again.GeneratedCount != 0 {
		t.Fatalf("monday rerun generated = %d, want 0", again.GeneratedCount)
	}
}

func TestGenerateSlotsForRange(t *testing.T) {
	svc, _, _ := newTestService()
	profileID := uuid.New()
	serviceID := uuid.New()

	if _, appErr := svc.CreateRule(context.Background(), profileID, createReq(1, "09:00", "17:00", 30)); appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}

	// One Monday inside the week.
	resp, appErr := svc.GenerateSlotsForRange(context.Background(), profileID, serviceID, monday, monday.AddDate(0, 0, 6))
	if appErr != nil {
		t.Fatalf("unexpected error: %v", appErr)
	}
	if resp.GeneratedCount != 16 || len(resp.Slots) != 16 {
		t.Fatalf("generated = %d (%d slots), want 16", resp.GeneratedCount, len(resp.Slots))
	}
}

func TestGenerateSlotsForRange_Cancellation(t *testing.T) {
	svc, _, _ := newTestService()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, appErr := svc.GenerateSlotsForRange(ctx, uuid.New(), uuid.New(), monday, monday.AddDate(0, 0, 30))
	if appErr == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestEnqueueGeneration_NoClient(t *testing.T) {
	svc, _, _ := newTestService()

	_, appErr := svc.EnqueueGeneration(context.Background(), uuid.New(), uuid.New(), monday, monday)
	if appErr == nil || appErr.Code != errors.ErrInternalServer {
		t.Fatalf("expected %s, got %v", errors.ErrInternalServer, appErr)
	}
}
