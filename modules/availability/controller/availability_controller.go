package controller

import (
	"time"

	"welllink-api/core/constants"
	"welllink-api/core/controller"
	"welllink-api/core/errors"
	"welllink-api/core/params"
	"welllink-api/core/utils"
	"welllink-api/modules/availability/dto"
	"welllink-api/modules/availability/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const dateLayout = "2006-01-02"

// AvailabilityController handles availability HTTP requests.
type AvailabilityController struct {
	controller.BaseController
	AvailabilityService service.AvailabilityServiceInterface
}

func NewAvailabilityController(svc service.AvailabilityServiceInterface) *AvailabilityController {
	return &AvailabilityController{
		BaseController:      controller.NewBaseController(),
		AvailabilityService: svc,
	}
}

// getProfileIDFromContext extracts the profile ID from JWT context
func (c *AvailabilityController) getProfileIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	tokenData := ctx.Get(constants.ContextTokenData)
	if tokenData == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}

	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}

	return claims.ProfileID, nil
}

// CreateRule handles POST /availability/rules
// @Summary Create availability rule
// @Description Create a recurring weekly availability rule for the authenticated profile
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.CreateRuleRequest true "Rule definition"
// @Success 200 {object} dto.RuleResponse
// @Failure 400 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/availability/rules [post]
func (c *AvailabilityController) CreateRule(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.CreateRuleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.AvailabilityService.CreateRule(ctx.Request().Context(), profileID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Availability rule created successfully")
}

// ListRules handles GET /availability/rules
// @Summary List availability rules
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param page_number query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.PaginatedRulesResponse
// @Router /private/availability/rules [get]
func (c *AvailabilityController) ListRules(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	result, appErr := c.AvailabilityService.ListRules(ctx.Request().Context(), profileID, params.FromContext(ctx))
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// UpdateRule handles PUT /availability/rules/:id
// @Summary Update availability rule
// @Description Partial update; omitted fields keep their stored values
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "Rule ID"
// @Param request body dto.UpdateRuleRequest true "Fields to change"
// @Success 200 {object} dto.RuleResponse
// @Failure 404 {object} errors.AppError
// @Failure 409 {object} errors.AppError
// @Router /private/availability/rules/{id} [put]
func (c *AvailabilityController) UpdateRule(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	ruleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rule ID")
	}

	var req dto.UpdateRuleRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	result, appErr := c.AvailabilityService.UpdateRule(ctx.Request().Context(), profileID, ruleID, &req)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Availability rule updated successfully")
}

// DeleteRule handles DELETE /availability/rules/:id
// @Summary Delete availability rule
// @Description Permanent removal; use deactivate to keep history
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 200 {object} controller.SuccessResponse
// @Failure 404 {object} errors.AppError
// @Router /private/availability/rules/{id} [delete]
func (c *AvailabilityController) DeleteRule(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	ruleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rule ID")
	}

	if appErr := c.AvailabilityService.DeleteRule(ctx.Request().Context(), profileID, ruleID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Availability rule deleted successfully")
}

// DeactivateRule handles POST /availability/rules/:id/deactivate
// @Summary Deactivate availability rule
// @Description Soft delete; the rule stops generating slots and leaves overlap checks
// @Tags Availability
// @Security BearerAuth
// @Param id path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 404 {object} errors.AppError
// @Router /private/availability/rules/{id}/deactivate [post]
func (c *AvailabilityController) DeactivateRule(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	ruleID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid rule ID")
	}

	result, appErr := c.AvailabilityService.DeactivateRule(ctx.Request().Context(), profileID, ruleID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Availability rule deactivated successfully")
}

// PreviewSlots handles GET /availability/slots/preview
// @Summary Preview slot counts
// @Description Per-date, per-rule slot counts over a date range; nothing is persisted
// @Tags Availability
// @Security BearerAuth
// @Produce json
// @Param start_date query string true "Start date (YYYY-MM-DD)"
// @Param end_date query string true "End date (YYYY-MM-DD)"
// @Success 200 {array} dto.PreviewRow
// @Router /private/availability/slots/preview [get]
func (c *AvailabilityController) PreviewSlots(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	startDate, err := time.Parse(dateLayout, ctx.QueryParam("start_date"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid start_date, expected YYYY-MM-DD")
	}
	endDate, err := time.Parse(dateLayout, ctx.QueryParam("end_date"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid end_date, expected YYYY-MM-DD")
	}

	result, appErr := c.AvailabilityService.PreviewSlots(ctx.Request().Context(), profileID, startDate, endDate)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Success")
}

// GenerateSlots handles POST /availability/slots/generate
// @Summary Generate bookable slots
// @Description Expand active rules into persisted slots for a date or range; async enqueues a worker task
// @Tags Availability
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body dto.GenerateSlotsRequest true "Generation window"
// @Success 200 {object} dto.GenerateSlotsResponse
// @Failure 400 {object} errors.AppError
// @Router /private/availability/slots/generate [post]
func (c *AvailabilityController) GenerateSlots(ctx echo.Context) error {
	profileID, err := c.getProfileIDFromContext(ctx)
	if err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	var req dto.GenerateSlotsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid request body")
	}

	serviceID, err := uuid.Parse(req.ServiceID)
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid service_id")
	}

	startDate, endDate, parseErr := resolveGenerationWindow(&req)
	if parseErr != "" {
		return c.BadRequest(errors.ErrInvalidInput, parseErr)
	}

	reqCtx := ctx.Request().Context()
	if req.Async {
		result, appErr := c.AvailabilityService.EnqueueGeneration(reqCtx, profileID, serviceID, startDate, endDate)
		if appErr != nil {
			return c.ErrorResponse(ctx, appErr)
		}
		return c.SuccessResponse(ctx, result, "Slot generation enqueued")
	}

	result, appErr := c.AvailabilityService.GenerateSlotsForRange(reqCtx, profileID, serviceID, startDate, endDate)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Slots generated successfully")
}

// resolveGenerationWindow maps {date} or {start_date, end_date} onto an
// inclusive range; a single date yields a one-day range.
func resolveGenerationWindow(req *dto.GenerateSlotsRequest) (time.Time, time.Time, string) {
	if req.Date != nil {
		date, err := time.Parse(dateLayout, *req.Date)
		if err != nil {
			return time.Time{}, time.Time{}, "Invalid date, expected YYYY-MM-DD"
		}
		return date, date, ""
	}

	if req.StartDate == nil || req.EndDate == nil {
		return time.Time{}, time.Time{}, "Either date or start_date and end_date are required"
	}
	startDate, err := time.Parse(dateLayout, *req.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, "Invalid start_date, expected YYYY-MM-DD"
	}
	endDate, err := time.Parse(dateLayout, *req.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, "Invalid end_date, expected YYYY-MM-DD"
	}
	return startDate, endDate, ""
}
