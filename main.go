package main

import (
	"welllink-api/core/logger"
	"welllink-api/core/server"
)

// @title WellLink Availability API
// @version 1.0
// @description Availability rule engine and bookable slot generator for practitioner profiles

// @host localhost:7070
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Example: "Bearer {token}"

func main() {
	if err := server.Run(); err != nil {
		logger.Error("run server error", err)
	}
}
