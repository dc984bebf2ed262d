package model

import (
	"time"

	"github.com/google/uuid"
)

// Visit is an append-only log entry for a single patient check-in. Rows are
// never updated or deleted; a reverification resets the patient's cycle
// counter but leaves the visit history intact.
type Visit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	PatientID string    `json:"patient_id" db:"patient_id"`
	DateTime  time.Time `json:"date_time" db:"date_time"`
}
