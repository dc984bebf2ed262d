package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{NewBaseRepository(db)}
}

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) error {
	query := `
		INSERT INTO patients (id, name, age, phone_number, cnic, comments, date_last_visited,
			current_cycle_visits, is_blocked, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 0, FALSE, $8, $8)
		RETURNING card_number
	`
	now := time.Now()
	patient.CurrentCycleVisits = 0
	patient.IsBlocked = false
	patient.CreatedAt = now
	patient.UpdatedAt = now
	if patient.DateLastVisited.IsZero() {
		patient.DateLastVisited = now
	}

	err := r.GetDB().QueryRowxContext(ctx, query,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.PhoneNumber,
		patient.CNIC,
		patient.Comments,
		patient.DateLastVisited,
		now,
	).Scan(&patient.CardNumber)
	if err != nil {
		if IsUniqueViolation(err) {
			return apierror.Conflict("patient already registered", err)
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id string) (*model.Patient, error) {
	query := `SELECT * FROM patients WHERE id = $1`
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NotFound("patient")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) error {
	query := `
		UPDATE patients
		SET name = $1, age = $2, phone_number = $3, cnic = $4, comments = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := r.GetDB().ExecContext(ctx, query,
		patient.Name,
		patient.Age,
		patient.PhoneNumber,
		patient.CNIC,
		patient.Comments,
		time.Now(),
		patient.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apierror.NotFound("patient")
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id string) error {
	res, err := r.GetDB().ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apierror.NotFound("patient")
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context) ([]*model.Patient, error) {
	query := `SELECT * FROM patients ORDER BY date_last_visited DESC`
	var patients []*model.Patient
	if err := r.GetDB().SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

// RecordVisit runs the visit-cycle transition in a single transaction. The
// patient row is locked with FOR UPDATE so concurrent check-ins for the same
// card serialize at the row and the counter can never skip or double-count.
// A crash anywhere inside rolls back both the visit row and the counter.
func (r *patientRepository) RecordVisit(ctx context.Context, id string, threshold int, now time.Time) (*model.Patient, error) {
	var patient model.Patient
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &patient, `SELECT * FROM patients WHERE id = $1 FOR UPDATE`, id)
		if errors.Is(err, sql.ErrNoRows) {
			return apierror.NotFound("patient")
		}
		if err != nil {
			return fmt.Errorf("failed to lock patient row: %w", err)
		}

		if patient.IsBlocked {
			return apierror.CardBlocked()
		}

		next := patient.CurrentCycleVisits + 1
		blocked := next >= threshold

		visitQuery := `INSERT INTO visits (id, patient_id, date_time) VALUES ($1, $2, $3)`
		if _, err := tx.ExecContext(ctx, visitQuery, uuid.New(), id, now); err != nil {
			return fmt.Errorf("failed to append visit: %w", err)
		}

		updateQuery := `
			UPDATE patients
			SET current_cycle_visits = $1, is_blocked = $2, date_last_visited = $3, updated_at = $3
			WHERE id = $4
		`
		if _, err := tx.ExecContext(ctx, updateQuery, next, blocked, now, id); err != nil {
			return fmt.Errorf("failed to update visit cycle: %w", err)
		}

		patient.CurrentCycleVisits = next
		patient.IsBlocked = blocked
		patient.DateLastVisited = now
		patient.UpdatedAt = now
		return nil
	})
	if err != nil {
		if IsSerializationFailure(err) {
			return nil, apierror.Conflict("visit transaction conflict", err)
		}
		return nil, err
	}
	return &patient, nil
}

// Reverify records the administrative decision to unblock a card. The visit
// history is untouched; only the cycle counter and flag reset.
func (r *patientRepository) Reverify(ctx context.Context, id string) (*model.Patient, error) {
	query := `
		UPDATE patients
		SET is_blocked = FALSE, current_cycle_visits = 0, updated_at = $1
		WHERE id = $2
		RETURNING *
	`
	var patient model.Patient
	err := r.GetDB().GetContext(ctx, &patient, query, time.Now(), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.NotFound("patient")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reverify patient: %w", err)
	}
	return &patient, nil
}

func (r *patientRepository) ListVisits(ctx context.Context, patientID string) ([]*model.Visit, error) {
	query := `SELECT * FROM visits WHERE patient_id = $1 ORDER BY date_time DESC`
	var visits []*model.Visit
	if err := r.GetDB().SelectContext(ctx, &visits, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list visits: %w", err)
	}
	return visits, nil
}

func (r *patientRepository) CountVisits(ctx context.Context, patientID string) (int, error) {
	var count int
	err := r.GetDB().GetContext(ctx, &count, `SELECT COUNT(*) FROM visits WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count visits: %w", err)
	}
	return count, nil
}
