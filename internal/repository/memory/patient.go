// Package memory holds in-memory implementations of the repository
// interfaces. They back the unit tests and mirror the semantics of the
// postgres implementations, including per-patient serialization of visit
// recording.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

type PatientRepository struct {
	mu       sync.Mutex
	patients map[string]*model.Patient
	visits   []*model.Visit
	nextCard int64
}

func NewPatientRepository() *PatientRepository {
	return &PatientRepository{
		patients: make(map[string]*model.Patient),
		nextCard: 1,
	}
}

var _ repository.PatientRepository = (*PatientRepository)(nil)

func copyPatient(p *model.Patient) *model.Patient {
	cp := *p
	return &cp
}

func (r *PatientRepository) Create(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[patient.ID]; ok {
		return apierror.Conflict("patient already registered", nil)
	}

	now := time.Now()
	patient.CardNumber = r.nextCard
	r.nextCard++
	patient.CurrentCycleVisits = 0
	patient.IsBlocked = false
	patient.CreatedAt = now
	patient.UpdatedAt = now
	if patient.DateLastVisited.IsZero() {
		patient.DateLastVisited = now
	}

	r.patients[patient.ID] = copyPatient(patient)
	return nil
}

func (r *PatientRepository) Get(_ context.Context, id string) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, apierror.NotFound("patient")
	}
	return copyPatient(p), nil
}

func (r *PatientRepository) Update(_ context.Context, patient *model.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[patient.ID]
	if !ok {
		return apierror.NotFound("patient")
	}

	p.Name = patient.Name
	p.Age = patient.Age
	p.PhoneNumber = patient.PhoneNumber
	p.CNIC = patient.CNIC
	p.Comments = patient.Comments
	p.UpdatedAt = time.Now()
	return nil
}

func (r *PatientRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.patients[id]; !ok {
		return apierror.NotFound("patient")
	}
	delete(r.patients, id)

	kept := r.visits[:0]
	for _, v := range r.visits {
		if v.PatientID != id {
			kept = append(kept, v)
		}
	}
	r.visits = kept
	return nil
}

func (r *PatientRepository) List(_ context.Context) ([]*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*model.Patient, 0, len(r.patients))
	for _, p := range r.patients {
		out = append(out, copyPatient(p))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateLastVisited.After(out[j].DateLastVisited)
	})
	return out, nil
}

// RecordVisit serializes on the repository mutex, standing in for the
// postgres row lock: no two visits for the same patient can interleave.
func (r *PatientRepository) RecordVisit(_ context.Context, id string, threshold int, now time.Time) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, apierror.NotFound("patient")
	}
	if p.IsBlocked {
		return nil, apierror.CardBlocked()
	}

	next := p.CurrentCycleVisits + 1
	r.visits = append(r.visits, &model.Visit{
		ID:        uuid.New(),
		PatientID: id,
		DateTime:  now,
	})
	p.CurrentCycleVisits = next
	p.IsBlocked = next >= threshold
	p.DateLastVisited = now
	p.UpdatedAt = now

	return copyPatient(p), nil
}

func (r *PatientRepository) Reverify(_ context.Context, id string) (*model.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[id]
	if !ok {
		return nil, apierror.NotFound("patient")
	}

	p.IsBlocked = false
	p.CurrentCycleVisits = 0
	p.UpdatedAt = time.Now()
	return copyPatient(p), nil
}

func (r *PatientRepository) ListVisits(_ context.Context, patientID string) ([]*model.Visit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*model.Visit
	for _, v := range r.visits {
		if v.PatientID == patientID {
			cp := *v
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DateTime.After(out[j].DateTime)
	})
	return out, nil
}

func (r *PatientRepository) CountVisits(_ context.Context, patientID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, v := range r.visits {
		if v.PatientID == patientID {
			count++
		}
	}
	return count, nil
}
