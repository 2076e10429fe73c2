package router

import (
	"welllink-api/core/middleware"
	"welllink-api/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

// AvailabilityRouter handles availability routes
type AvailabilityRouter struct {
	AvailabilityController *controller.AvailabilityController
}

func NewAvailabilityRouter(availabilityController *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{
		AvailabilityController: availabilityController,
	}
}

// Setup registers availability routes
func (r *AvailabilityRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	availability := privateRoutes.Group("/availability", mw.AuthMiddleware())

	// Rule CRUD
	availability.POST("/rules", r.AvailabilityController.CreateRule)
	availability.GET("/rules", r.AvailabilityController.ListRules)
	availability.PUT("/rules/:id", r.AvailabilityController.UpdateRule)
	availability.DELETE("/rules/:id", r.AvailabilityController.DeleteRule)
	availability.POST("/rules/:id/deactivate", r.AvailabilityController.DeactivateRule)

	// Slot preview and generation
	availability.GET("/slots/preview", r.AvailabilityController.PreviewSlots)
	availability.POST("/slots/generate", r.AvailabilityController.GenerateSlots)
}
