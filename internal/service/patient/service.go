package patient

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository"
	"github.com/clinicware/clinic-api/pkg/apierror"
)

// Lookup cache tuning. The scan flow fires a lookup for every badge read,
// often the same patient several times in a row at the front desk.
const (
	cacheTTL     = 30 * time.Second
	cacheCleanup = 5 * time.Minute
)

var (
	visitsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_visits_recorded_total",
		Help: "Number of patient visits recorded.",
	})
	cardsBlocked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_cards_blocked_total",
		Help: "Number of cards auto-blocked on reaching the visit threshold.",
	})
	reverifications = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinic_reverifications_total",
		Help: "Number of manual card reverifications.",
	})
)

// Service is the patient directory and the visit cycle engine. The atomicity
// of a visit lives in the repository transaction; this layer owns the policy
// threshold, the single conflict retry, caching and metrics.
type Service struct {
	repo      repository.PatientRepository
	cache     *gocache.Cache
	threshold int
	logger    zerolog.Logger
}

func NewService(repo repository.PatientRepository, visitThreshold int, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     gocache.New(cacheTTL, cacheCleanup),
		threshold: visitThreshold,
		logger:    logger,
	}
}

func (s *Service) CreatePatient(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	patient := &model.Patient{
		ID:          req.ID,
		Name:        req.Name,
		Age:         req.Age,
		PhoneNumber: req.PhoneNumber,
		CNIC:        req.CNIC,
		Comments:    req.Comments,
	}
	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, err
	}

	s.logger.Info().Str("patient_id", patient.ID).Int64("card_number", patient.CardNumber).Msg("patient registered")
	return patient, nil
}

// GetPatient is the scan-and-lookup path. The identifier is whatever string
// the barcode reader decoded; it is opaque here.
func (s *Service) GetPatient(ctx context.Context, id string) (*model.Patient, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(*model.Patient), nil
	}

	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(id, patient, gocache.DefaultExpiration)
	return patient, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*model.Patient, error) {
	return s.repo.List(ctx)
}

func (s *Service) UpdatePatient(ctx context.Context, id string, req *model.UpdatePatientRequest) (*model.Patient, error) {
	patient, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		patient.Name = *req.Name
	}
	if req.Age != nil {
		patient.Age = *req.Age
	}
	if req.PhoneNumber != nil {
		patient.PhoneNumber = *req.PhoneNumber
	}
	if req.CNIC != nil {
		patient.CNIC = *req.CNIC
	}
	if req.Comments != nil {
		patient.Comments = *req.Comments
	}

	if err := s.repo.Update(ctx, patient); err != nil {
		return nil, err
	}
	s.cache.Delete(id)
	return patient, nil
}

func (s *Service) DeletePatient(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(id)
	s.logger.Info().Str("patient_id", id).Msg("patient deleted")
	return nil
}

// RecordVisit runs the visit-cycle transition. On a transient transaction
// conflict the call is retried exactly once before surfacing Conflict; every
// other failure is returned as is.
func (s *Service) RecordVisit(ctx context.Context, id string) (*model.Patient, error) {
	now := time.Now()

	patient, err := s.repo.RecordVisit(ctx, id, s.threshold, now)
	if err != nil && apierror.IsKind(err, apierror.KindConflict) {
		s.logger.Warn().Str("patient_id", id).Msg("visit transaction conflict, retrying once")
		patient, err = s.repo.RecordVisit(ctx, id, s.threshold, now)
	}
	if err != nil {
		return nil, err
	}

	s.cache.Delete(id)
	visitsRecorded.Inc()
	if patient.IsBlocked {
		cardsBlocked.Inc()
		s.logger.Info().Str("patient_id", id).Int("visits", patient.CurrentCycleVisits).Msg("card blocked at threshold")
	}
	return patient, nil
}

// Reverify records the out-of-band administrative decision that the
// patient's documents were re-checked: unblock and reset the cycle counter.
// Idempotent on an already-active card.
func (s *Service) Reverify(ctx context.Context, id string) (*model.Patient, error) {
	patient, err := s.repo.Reverify(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cache.Delete(id)
	reverifications.Inc()
	s.logger.Info().Str("patient_id", id).Msg("card reverified")
	return patient, nil
}

func (s *Service) ListVisits(ctx context.Context, patientID string) ([]*model.Visit, error) {
	// Surface NotFound for an unknown patient rather than an empty list.
	if _, err := s.GetPatient(ctx, patientID); err != nil {
		return nil, err
	}
	return s.repo.ListVisits(ctx, patientID)
}
