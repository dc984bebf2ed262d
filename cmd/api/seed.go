package main

import (
	"context"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

// seedPatients loads a handful of demo records for local development.
// Existing records are left alone so the seed is safe to re-run.
func seedPatients(ctx context.Context, repo repository.PatientRepository) error {
	demo := []*model.Patient{
		{
			ID:          "9781108859035",
			Name:        "Ahmed Hassan",
			Age:         45,
			PhoneNumber: "+92-300-1234567",
			CNIC:        "42101-1234567-1",
			Comments:    "Regular checkup completed. Blood pressure normal. Next visit in 3 months.",
		},
		{
			ID:          "9781108733755",
			Name:        "Fatima Khan",
			Age:         32,
			PhoneNumber: "+92-301-9876543",
			CNIC:        "42201-9876543-2",
			Comments:    "Diabetes follow-up. Medication adjusted. Diet counseling provided.",
		},
		{
			ID:          "PAT003",
			Name:        "Muhammad Ali",
			Age:         28,
			PhoneNumber: "+92-302-5555555",
			CNIC:        "42301-5555555-3",
			Comments:    "First visit. General health screening completed. All vitals normal.",
		},
		{
			ID:          "PAT004",
			Name:        "Aisha Malik",
			Age:         55,
			PhoneNumber: "+92-303-7777777",
			CNIC:        "42401-7777777-4",
			Comments:    "Hypertension management. Prescribed new medication. Follow-up in 2 weeks.",
		},
		{
			ID:          "PAT005",
			Name:        "Omar Sheikh",
			Age:         38,
			PhoneNumber: "+92-304-9999999",
			CNIC:        "42501-9999999-5",
			Comments:    "Routine vaccination completed. Health education provided.",
		},
	}

	for _, p := range demo {
		err := repo.Create(ctx, p)
		if err != nil && !apierror.IsKind(err, apierror.KindConflict) {
			return err
		}
	}
	return nil
}
