package models

import "time"

// State is the step of the purchase flow a user currently occupies.
// The zero value means no active flow.
type State string

const (
	StateNone State = ""

	StateAwaitingPassport State = "awaiting_passport"
	StateConfirmPassport  State = "confirm_passport"

	StateAwaitingVehiclePlate State = "awaiting_vehicle_doc_license_plate"
	StateAwaitingVehicleVIN   State = "awaiting_vehicle_doc_vin"
	StateConfirmVehicle       State = "confirm_vehicle"

	StatePriceConfirmation State = "price_confirmation"
	StatePolicyGeneration  State = "policy_generation"
	StateConfirmPurchase   State = "confirm_purchase"
	StatePolicySent        State = "policy_sent"
)

// AwaitsPhoto reports whether the state only accepts a document photo.
func (s State) AwaitsPhoto() bool {
	switch s {
	case StateAwaitingPassport, StateAwaitingVehiclePlate, StateAwaitingVehicleVIN:
		return true
	}
	return false
}

// GeneratesPolicy reports whether any message in this state triggers policy delivery.
func (s State) GeneratesPolicy() bool {
	return s == StatePolicyGeneration || s == StateConfirmPurchase
}

type Session struct {
	State     State      `json:"state"`
	Record    UserRecord `json:"record"`
	UpdatedAt time.Time  `json:"updated_at"`
}
