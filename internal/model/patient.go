package model

import (
	"time"
)

// Patient is a clinic patient record. The ID is the externally issued card
// identifier (typically the value decoded from the card barcode), so it is
// an opaque string rather than a generated UUID.
type Patient struct {
	ID                 string    `json:"id" db:"id"`
	CardNumber         int64     `json:"card_number" db:"card_number"`
	Name               string    `json:"name" db:"name"`
	Age                int       `json:"age" db:"age"`
	PhoneNumber        string    `json:"phone_number" db:"phone_number"`
	CNIC               string    `json:"cnic" db:"cnic"`
	Comments           string    `json:"comments" db:"comments"`
	DateLastVisited    time.Time `json:"date_last_visited" db:"date_last_visited"`
	CurrentCycleVisits int       `json:"current_cycle_visits" db:"current_cycle_visits"`
	IsBlocked          bool      `json:"is_blocked" db:"is_blocked"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

type CreatePatientRequest struct {
	ID          string `json:"id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Age         int    `json:"age" binding:"required,gte=0,lte=150"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	CNIC        string `json:"cnic" binding:"required"`
	Comments    string `json:"comments"`
}

// UpdatePatientRequest covers the explicitly editable fields only. The visit
// counter, block flag and last-visit timestamp are owned by the visit cycle
// and are never settable through an edit.
type UpdatePatientRequest struct {
	Name        *string `json:"name"`
	Age         *int    `json:"age" binding:"omitempty,gte=0,lte=150"`
	PhoneNumber *string `json:"phone_number"`
	CNIC        *string `json:"cnic"`
	Comments    *string `json:"comments"`
}
