package entity

import (
	"time"

	coreEntity "welllink-api/core/entity"

	"github.com/google/uuid"
)

// SlotStatus is the booking state of a generated slot. The engine only ever
// writes SlotStatusAvailable; the reservation workflow owns later transitions.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusFull      SlotStatus = "full"
	SlotStatusCancelled SlotStatus = "cancelled"
)

// TimeSlot is a concrete bookable instance produced by expanding one rule for
// one calendar date. Timestamps are absolute UTC instants.
type TimeSlot struct {
	coreEntity.BaseEntity
	ProfileID           uuid.UUID  `db:"profile_id" json:"profile_id"`
	ServiceID           uuid.UUID  `db:"service_id" json:"service_id"`
	StartTime           time.Time  `db:"start_time" json:"start_time"`
	EndTime             time.Time  `db:"end_time" json:"end_time"`
	MaxReservations     int        `db:"max_reservations" json:"max_reservations"`
	CurrentReservations int        `db:"current_reservations" json:"current_reservations"`
	Status              SlotStatus `db:"status" json:"status"`
}
