package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/clinic-api/internal/model"
)

// All repository interfaces in one file
type (
	// PatientRepository is the patient directory plus the visit-cycle
	// primitives. RecordVisit owns the one transaction in the system that
	// has to be airtight: the visit row and the counter/block update
	// commit together or not at all.
	PatientRepository interface {
		Create(ctx context.Context, patient *model.Patient) error
		Get(ctx context.Context, id string) (*model.Patient, error)
		Update(ctx context.Context, patient *model.Patient) error
		Delete(ctx context.Context, id string) error
		List(ctx context.Context) ([]*model.Patient, error)

		// RecordVisit atomically appends a visit row and advances the
		// patient's cycle state, blocking the card once the counter
		// reaches threshold. Returns the updated patient.
		RecordVisit(ctx context.Context, id string, threshold int, now time.Time) (*model.Patient, error)
		// Reverify clears the block flag and resets the cycle counter.
		// Idempotent on an already-active patient.
		Reverify(ctx context.Context, id string) (*model.Patient, error)
		ListVisits(ctx context.Context, patientID string) ([]*model.Visit, error)
		CountVisits(ctx context.Context, patientID string) (int, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		List(ctx context.Context) ([]*model.User, error)
		ListUnverified(ctx context.Context) ([]*model.User, error)
		SetVerified(ctx context.Context, id uuid.UUID) (*model.User, error)
		Delete(ctx context.Context, id uuid.UUID) error
	}

	SessionRepository interface {
		Create(ctx context.Context, session *model.Session) error
		// Get returns the session and its owning user, or (nil, nil, nil)
		// when the id is unknown. Expiry is the caller's concern.
		Get(ctx context.Context, id string) (*model.Session, *model.User, error)
		UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
		Delete(ctx context.Context, id string) error
		DeleteForUser(ctx context.Context, userID uuid.UUID) error
	}
)
