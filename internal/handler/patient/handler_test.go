package patient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicware/clinic-api/config"
	"github.com/clinicware/clinic-api/internal/email"
	"github.com/clinicware/clinic-api/internal/middleware"
	"github.com/clinicware/clinic-api/internal/model"
	"github.com/clinicware/clinic-api/internal/repository/memory"
	redisrepo "github.com/clinicware/clinic-api/internal/repository/redis"
	"github.com/clinicware/clinic-api/internal/service/auth"
	patientsvc "github.com/clinicware/clinic-api/internal/service/patient"
	"github.com/clinicware/clinic-api/pkg/security"
)

const testThreshold = 6

func init() {
	gin.SetMode(gin.TestMode)
}

type apiFixture struct {
	router *gin.Engine
	auth   *auth.Service
	users  *memory.UserRepository
}

// newAPIFixture wires the patient routes exactly as the real router does:
// behind RequireAuth, with delete behind RequireAdmin.
func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	users := memory.NewUserRepository()
	sessions := memory.NewSessionRepository(users)
	index, err := redisrepo.NewSessionIndex("")
	require.NoError(t, err)

	authSvc := auth.NewService(
		users,
		sessions,
		index,
		security.NewBcryptHasher(4),
		email.NewService(config.SMTPConfig{}, zerolog.Nop()),
		config.SessionConfig{Duration: time.Hour, RenewalWindow: 30 * time.Minute},
		zerolog.Nop(),
	)
	authMW := middleware.NewAuthMiddleware(authSvc)

	svc := patientsvc.NewService(memory.NewPatientRepository(), testThreshold, zerolog.Nop())
	h := NewHandler(svc, authMW)

	r := gin.New()
	api := r.Group("/api/v1", authMW.RequireAuth())
	h.RegisterRoutes(api)

	return &apiFixture{router: r, auth: authSvc, users: users}
}

func (f *apiFixture) tokenFor(t *testing.T, role string) string {
	t.Helper()
	u := &model.User{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        uuid.NewString() + "@clinic.test",
		PasswordHash: "x",
		Role:         role,
		Verified:     true,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	token, _, err := f.auth.CreateSession(context.Background(), u.ID)
	require.NoError(t, err)
	return token
}

func (f *apiFixture) do(t *testing.T, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *apiFixture) register(t *testing.T, token, cardID string) {
	t.Helper()
	w := f.do(t, token, http.MethodPost, "/api/v1/patients", model.CreatePatientRequest{
		ID:          cardID,
		Name:        "Ahmed Hassan",
		Age:         42,
		PhoneNumber: "0300-1234567",
		CNIC:        "35202-1234567-1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	var envelope struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, "success", envelope.Status)
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestPatientRoutesRequireAuth(t *testing.T) {
	f := newAPIFixture(t)

	w := f.do(t, "", http.MethodGet, "/api/v1/patients", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateAndFetchPatient(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)

	f.register(t, token, "9781108859035")

	w := f.do(t, token, http.MethodGet, "/api/v1/patients/9781108859035", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p model.Patient
	decodeData(t, w, &p)
	assert.Equal(t, "9781108859035", p.ID)
	assert.Equal(t, 0, p.CurrentCycleVisits)
	assert.False(t, p.IsBlocked)
}

func TestCreatePatientMissingFields(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)

	w := f.do(t, token, http.MethodPost, "/api/v1/patients", gin.H{"name": "No Card"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUnknownPatient(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)

	w := f.do(t, token, http.MethodGet, "/api/v1/patients/missing-card", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVisitCycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)
	f.register(t, token, "card-1")

	visitPath := "/api/v1/patients/card-1/visits"
	for i := 1; i <= testThreshold; i++ {
		w := f.do(t, token, http.MethodPost, visitPath, nil)
		require.Equal(t, http.StatusOK, w.Code, "visit %d", i)

		var p model.Patient
		decodeData(t, w, &p)
		assert.Equal(t, i, p.CurrentCycleVisits)
	}

	// The sixth visit blocked the card; the seventh is rejected.
	w := f.do(t, token, http.MethodPost, visitPath, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "card is blocked, verification required")

	// Reverify unblocks and resets the cycle.
	w = f.do(t, token, http.MethodPost, "/api/v1/patients/card-1/reverify", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var p model.Patient
	decodeData(t, w, &p)
	assert.False(t, p.IsBlocked)
	assert.Equal(t, 0, p.CurrentCycleVisits)

	w = f.do(t, token, http.MethodPost, visitPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, w, &p)
	assert.Equal(t, 1, p.CurrentCycleVisits)

	// Visit history spans the whole lifetime, across the block.
	w = f.do(t, token, http.MethodGet, visitPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var visits []model.Visit
	decodeData(t, w, &visits)
	assert.Len(t, visits, testThreshold+1)
}

func TestRecordVisitUnknownPatient(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)

	w := f.do(t, token, http.MethodPost, "/api/v1/patients/missing-card/visits", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdatePatient(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)
	f.register(t, token, "card-1")

	w := f.do(t, token, http.MethodPut, "/api/v1/patients/card-1", gin.H{"comments": "diabetic, follow-up monthly"})
	require.Equal(t, http.StatusOK, w.Code)

	var p model.Patient
	decodeData(t, w, &p)
	assert.Equal(t, "diabetic, follow-up monthly", p.Comments)
	assert.Equal(t, "Ahmed Hassan", p.Name, "unset fields are left alone")
}

func TestDeletePatientVolunteerForbidden(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)
	f.register(t, token, "card-1")

	w := f.do(t, token, http.MethodDelete, "/api/v1/patients/card-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(t, token, http.MethodGet, "/api/v1/patients/card-1", nil)
	assert.Equal(t, http.StatusOK, w.Code, "the record survives the denied delete")
}

func TestDeletePatientAsAdmin(t *testing.T) {
	f := newAPIFixture(t)
	volunteer := f.tokenFor(t, model.RoleVolunteer)
	admin := f.tokenFor(t, model.RoleAdmin)
	f.register(t, volunteer, "card-1")

	w := f.do(t, admin, http.MethodDelete, "/api/v1/patients/card-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, admin, http.MethodGet, "/api/v1/patients/card-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDuplicateCardConflict(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)
	f.register(t, token, "card-1")

	w := f.do(t, token, http.MethodPost, "/api/v1/patients", model.CreatePatientRequest{
		ID:          "card-1",
		Name:        "Someone Else",
		Age:         30,
		PhoneNumber: "0300-7654321",
		CNIC:        "35202-7654321-9",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestListPatients(t *testing.T) {
	f := newAPIFixture(t)
	token := f.tokenFor(t, model.RoleVolunteer)
	for i := 1; i <= 3; i++ {
		f.register(t, token, fmt.Sprintf("card-%d", i))
	}

	w := f.do(t, token, http.MethodGet, "/api/v1/patients", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var patients []model.Patient
	decodeData(t, w, &patients)
	assert.Len(t, patients, 3)
}
