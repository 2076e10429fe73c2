package availability

import (
	"welllink-api/core/config"
	"welllink-api/core/database"
	"welllink-api/core/middleware"
	"welllink-api/modules/availability/controller"
	"welllink-api/modules/availability/repository"
	"welllink-api/modules/availability/router"
	"welllink-api/modules/availability/service"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Init wires the availability module and registers its routes. The returned
// service is also consumed by the asynq worker (RegisterTasks).
func Init(e *echo.Echo, db database.Database, mw *middleware.Middleware, asynqClient *asynq.Client) *service.AvailabilityService {
	cfg := config.Get()

	ruleRepo := repository.NewAvailabilityRuleRepository(db)
	slotRepo := repository.NewTimeSlotRepository(db)
	expander := service.NewSlotExpander(cfg.Scheduling.LocalUTCOffsetMinutes)
	svc := service.NewAvailabilityService(ruleRepo, slotRepo, expander, asynqClient)
	ctrl := controller.NewAvailabilityController(svc)
	rtr := router.NewAvailabilityRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}

// RegisterTasks attaches the module's background task handlers.
func RegisterTasks(mux *asynq.ServeMux, svc *service.AvailabilityService) {
	mux.HandleFunc(service.TypeGenerateSlots, svc.HandleGenerateSlotsTask)
}
