package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"school-app-server/internal/config"
	"school-app-server/internal/models"
	"school-app-server/internal/scheduling"
	"school-app-server/internal/services"
	"school-app-server/internal/testutil"
	"school-app-server/internal/utils"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	cfg     *config.Config
	psych   models.User
	student models.User
	other   models.User
	admin   models.User
	teacher models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:               "test",
		JWTSecret:                 "access-secret",
		JWTRefreshSecret:          "refresh-secret",
		JWTExpirationMinutes:      15,
		JWTRefreshExpirationHours: 24,
	}
	tpl, err := scheduling.ParseTemplate(
		"08:00-08:30,08:30-09:00,09:00-09:30,09:30-10:00,10:30-11:00,11:00-11:30,11:30-12:00,14:00-14:40,14:40-15:20",
		"mon,tue,wed,thu,fri", "UTC")
	require.NoError(t, err)

	db := testutil.NewDB(t)
	clock := scheduling.FixedClock(time.Date(2024, 4, 29, 8, 0, 0, 0, time.UTC))
	svc := services.NewAppointmentService(db, tpl, clock, zap.NewNop())

	router := gin.New()
	SetupRoutes(router, db, cfg, svc)

	return &testServer{
		router:  router,
		db:      db,
		cfg:     cfg,
		psych:   testutil.CreateUser(t, db, "psych@school.test", models.RolePsychologist),
		student: testutil.CreateUser(t, db, "student@school.test", models.RoleStudent),
		other:   testutil.CreateUser(t, db, "other@school.test", models.RoleStudent),
		admin:   testutil.CreateUser(t, db, "admin@school.test", models.RoleAdmin),
		teacher: testutil.CreateUser(t, db, "teacher@school.test", models.RoleTeacher),
	}
}

func (s *testServer) token(t *testing.T, u models.User) string {
	t.Helper()
	access, _, err := utils.GenerateTokens(&u, s.cfg)
	require.NoError(t, err)
	return access
}

func (s *testServer) do(t *testing.T, method, path string, as *models.User, body interface{}) (int, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(t, *as))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

type slotsResponse struct {
	Date  string            `json:"date"`
	Slots []scheduling.Slot `json:"slots"`
}

func (s *testServer) availability(t *testing.T, date string) slotsResponse {
	t.Helper()
	code, env := s.do(t, http.MethodGet,
		"/api/v1/appointments/availability?practitionerId="+s.psych.ID+"&date="+date, &s.student, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	var resp slotsResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp
}

func booking(practitionerID, start, end string) gin.H {
	return gin.H{
		"practitionerId": practitionerID,
		"startTime":      start,
		"endTime":        end,
		"reason":         "talk about exams",
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"UP"}`, w.Body.String())
}

func TestAvailabilityEndpoint(t *testing.T) {
	s := newTestServer(t)

	resp := s.availability(t, "2024-05-01")
	assert.Equal(t, "2024-05-01", resp.Date)
	require.Len(t, resp.Slots, 9)
	for _, slot := range resp.Slots {
		assert.True(t, slot.Available)
	}

	weekend := s.availability(t, "2024-05-04")
	assert.Empty(t, weekend.Slots)

	code, _ := s.do(t, http.MethodGet, "/api/v1/appointments/availability?practitionerId="+s.psych.ID+"&date=05/01/2024", &s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/availability?date=2024-05-01", &s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/availability?practitionerId="+uuid.NewString()+"&date=2024-05-01", &s.student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/availability?practitionerId="+s.psych.ID+"&date=2024-05-01", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBookingEndpoint(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &s.student,
		booking(s.psych.ID, "2024-05-01T09:00:00Z", "2024-05-01T09:30:00Z"))
	require.Equal(t, http.StatusCreated, code, env.Error)

	var created models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, s.student.ID, created.StudentID)
	assert.Equal(t, models.StatusPending, created.Status)

	resp := s.availability(t, "2024-05-01")
	for _, slot := range resp.Slots {
		assert.Equal(t, !slot.Start.Equal(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)), slot.Available, slot.Start)
	}

	t.Run("overlap is a conflict", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &s.other,
			booking(s.psych.ID, "2024-05-01T09:15:00Z", "2024-05-01T09:45:00Z"))
		require.Equal(t, http.StatusConflict, code)

		var conflict services.ConflictError
		require.NoError(t, json.Unmarshal(env.Data, &conflict))
		assert.Equal(t, created.ID, conflict.AppointmentID)
		assert.NotEmpty(t, env.Error)
	})

	t.Run("adjacent interval is fine", func(t *testing.T) {
		code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &s.other,
			booking(s.psych.ID, "2024-05-01T09:30:00Z", "2024-05-01T10:00:00Z"))
		assert.Equal(t, http.StatusCreated, code, env.Error)
	})

	t.Run("invalid requests", func(t *testing.T) {
		cases := []struct {
			name string
			as   *models.User
			body gin.H
			code int
		}{
			{"past", &s.student, booking(s.psych.ID, "2024-04-26T09:00:00Z", "2024-04-26T09:30:00Z"), http.StatusBadRequest},
			{"weekend", &s.student, booking(s.psych.ID, "2024-05-04T09:00:00Z", "2024-05-04T09:30:00Z"), http.StatusBadRequest},
			{"end before start", &s.student, booking(s.psych.ID, "2024-05-01T10:00:00Z", "2024-05-01T09:30:00Z"), http.StatusBadRequest},
			{"missing reason", &s.student, gin.H{"practitionerId": s.psych.ID, "startTime": "2024-05-01T11:00:00Z", "endTime": "2024-05-01T11:30:00Z"}, http.StatusBadRequest},
			{"bad practitioner id", &s.student, booking("nope", "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z"), http.StatusBadRequest},
			{"unknown practitioner", &s.student, booking(uuid.NewString(), "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z"), http.StatusNotFound},
			{"teacher", &s.teacher, booking(s.psych.ID, "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z"), http.StatusForbidden},
			{"admin without student", &s.admin, booking(s.psych.ID, "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z"), http.StatusBadRequest},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				code, env := s.do(t, http.MethodPost, "/api/v1/appointments", tc.as, tc.body)
				assert.Equal(t, tc.code, code, env.Error)
			})
		}
	})

	t.Run("student cannot book for someone else", func(t *testing.T) {
		body := booking(s.psych.ID, "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z")
		body["studentId"] = s.other.ID
		code, _ := s.do(t, http.MethodPost, "/api/v1/appointments", &s.student, body)
		assert.Equal(t, http.StatusForbidden, code)
	})

	t.Run("admin books for a student", func(t *testing.T) {
		body := booking(s.psych.ID, "2024-05-01T11:00:00Z", "2024-05-01T11:30:00Z")
		body["studentId"] = s.other.ID
		code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &s.admin, body)
		assert.Equal(t, http.StatusCreated, code, env.Error)
	})
}

func TestAppointmentLifecycleEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &s.student,
		booking(s.psych.ID, "2024-05-01T09:00:00Z", "2024-05-01T09:30:00Z"))
	require.Equal(t, http.StatusCreated, code, env.Error)
	var appt models.Appointment
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	statusPath := "/api/v1/appointments/" + appt.ID + "/status"

	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/"+appt.ID, &s.other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/not-a-uuid", &s.student, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), &s.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodPatch, statusPath, &s.student, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodPatch, statusPath, &s.psych, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodPatch, statusPath, &s.psych, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(t, http.MethodPatch, statusPath, &s.psych, gin.H{"status": "confirmed", "notes": "see you there"})
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, models.StatusConfirmed, appt.Status)
	assert.Equal(t, "see you there", appt.Notes)

	code, env = s.do(t, http.MethodPatch, "/api/v1/appointments/"+appt.ID+"/reschedule", &s.student,
		gin.H{"startTime": "2024-05-01T10:30:00Z", "endTime": "2024-05-01T11:00:00Z"})
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &appt))
	assert.Equal(t, models.StatusPending, appt.Status)

	resp := s.availability(t, "2024-05-01")
	for _, slot := range resp.Slots {
		assert.Equal(t, !slot.Start.Equal(time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)), slot.Available, slot.Start)
	}

	code, env = s.do(t, http.MethodPatch, statusPath, &s.student, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = s.do(t, http.MethodPatch, statusPath, &s.admin, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	for _, slot := range s.availability(t, "2024-05-01").Slots {
		assert.True(t, slot.Available)
	}
}

func TestListAppointmentsEndpoint(t *testing.T) {
	s := newTestServer(t)

	for _, tc := range []struct {
		as         models.User
		start, end string
	}{
		{s.student, "2024-05-01T09:00:00Z", "2024-05-01T09:30:00Z"},
		{s.other, "2024-05-02T09:00:00Z", "2024-05-02T09:30:00Z"},
	} {
		code, env := s.do(t, http.MethodPost, "/api/v1/appointments", &tc.as, booking(s.psych.ID, tc.start, tc.end))
		require.Equal(t, http.StatusCreated, code, env.Error)
	}

	count := func(as *models.User, query string) int {
		code, env := s.do(t, http.MethodGet, "/api/v1/appointments"+query, as, nil)
		require.Equal(t, http.StatusOK, code, env.Error)
		var appts []models.Appointment
		require.NoError(t, json.Unmarshal(env.Data, &appts))
		return len(appts)
	}

	assert.Equal(t, 1, count(&s.student, ""))
	assert.Equal(t, 2, count(&s.psych, ""))
	assert.Equal(t, 2, count(&s.admin, ""))
	assert.Equal(t, 1, count(&s.admin, "?from=2024-05-02T00:00:00Z"))
	assert.Equal(t, 1, count(&s.admin, "?to=2024-05-02T00:00:00Z"))
	assert.Equal(t, 0, count(&s.admin, "?status=confirmed"))
	assert.Equal(t, 1, count(&s.admin, "?studentId="+s.other.ID))

	code, _ := s.do(t, http.MethodGet, "/api/v1/appointments?from=yesterday", &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments?status=archived", &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/appointments", &s.teacher, nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/auth/register", nil, gin.H{
		"firstName": "Ana", "lastName": "Rojas", "email": "ana@school.test", "password": "supersecret",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var registered models.UserSanitized
	require.NoError(t, json.Unmarshal(env.Data, &registered))
	assert.Equal(t, models.RoleStudent, registered.Role)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", nil, gin.H{
		"firstName": "Ana", "lastName": "Rojas", "email": "ana@school.test", "password": "supersecret",
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "ana@school.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/login", nil, gin.H{"email": "ana@school.test", "password": "supersecret"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var login struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	require.NotEmpty(t, login.AccessToken)

	code, env = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, gin.H{"refreshToken": login.RefreshToken})
	require.Equal(t, http.StatusOK, code, env.Error)
	var refreshed struct {
		RefreshToken string `json:"refreshToken"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &refreshed))
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// rotated tokens cannot be replayed
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, gin.H{"refreshToken": login.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code)

	var user models.User
	require.NoError(t, s.db.First(&user, "email = ?", "ana@school.test").Error)

	code, env = s.do(t, http.MethodGet, "/api/v1/auth/profile", &user, nil)
	require.Equal(t, http.StatusOK, code, env.Error)

	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", &user, gin.H{"refreshToken": refreshed.RefreshToken})
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/auth/refresh-token", nil, gin.H{"refreshToken": refreshed.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodGet, "/api/v1/users/practitioners", &s.student, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var practitioners []models.UserSanitized
	require.NoError(t, json.Unmarshal(env.Data, &practitioners))
	require.Len(t, practitioners, 1)
	assert.Equal(t, s.psych.ID, practitioners[0].ID)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users/students", &s.student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/users/students", &s.teacher, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/users", &s.psych, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodPost, "/api/v1/users", &s.admin, gin.H{
		"firstName": "Luis", "lastName": "Soto", "email": "luis@school.test", "password": "supersecret", "role": 2,
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var created models.UserSanitized
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, models.RolePsychologist, created.Role)

	code, _ = s.do(t, http.MethodPost, "/api/v1/users", &s.admin, gin.H{
		"firstName": "X", "lastName": "Y", "email": "xy@school.test", "password": "supersecret", "role": 9,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodPut, "/api/v1/users/"+created.ID, &s.admin, gin.H{"role": 3, "phone": "555-0101"})
	require.Equal(t, http.StatusOK, code, env.Error)
	var updated models.UserSanitized
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, models.RoleTeacher, updated.Role)
	assert.Equal(t, "555-0101", updated.Phone)

	code, env = s.do(t, http.MethodGet, "/api/v1/users?role=3", &s.admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var teachers []models.UserSanitized
	require.NoError(t, json.Unmarshal(env.Data, &teachers))
	assert.Len(t, teachers, 2)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/users/"+created.ID, &s.admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/users/"+created.ID, &s.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestIncidentEndpoints(t *testing.T) {
	s := newTestServer(t)

	code, _ := s.do(t, http.MethodPost, "/api/v1/incidents", &s.student, gin.H{"studentId": s.student.ID, "title": "x"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodPost, "/api/v1/incidents", &s.teacher, gin.H{
		"studentId": s.student.ID, "title": "Argument in the yard", "severity": "medium",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)
	var incident models.Incident
	require.NoError(t, json.Unmarshal(env.Data, &incident))
	assert.Equal(t, models.IncidentOpen, incident.Status)
	assert.Equal(t, s.teacher.ID, incident.ReporterID)

	code, _ = s.do(t, http.MethodPost, "/api/v1/incidents", &s.teacher, gin.H{"studentId": s.psych.ID, "title": "x"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = s.do(t, http.MethodPost, "/api/v1/incidents", &s.teacher, gin.H{"studentId": s.student.ID, "title": "x", "severity": "extreme"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/v1/incidents/"+incident.ID, &s.other, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/incidents/"+incident.ID, &s.student, nil)
	assert.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/incidents", &s.other, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var own []models.Incident
	require.NoError(t, json.Unmarshal(env.Data, &own))
	assert.Empty(t, own)

	resolvePath := "/api/v1/incidents/" + incident.ID + "/resolve"
	code, _ = s.do(t, http.MethodPatch, resolvePath, &s.student, gin.H{"resolution": "talked it out"})
	assert.Equal(t, http.StatusForbidden, code)
	code, env = s.do(t, http.MethodPatch, resolvePath, &s.psych, gin.H{"resolution": "talked it out"})
	require.Equal(t, http.StatusOK, code, env.Error)
	require.NoError(t, json.Unmarshal(env.Data, &incident))
	assert.Equal(t, models.IncidentResolved, incident.Status)
	require.NotNil(t, incident.ResolvedAt)

	code, _ = s.do(t, http.MethodPatch, resolvePath, &s.psych, gin.H{"resolution": "again"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = s.do(t, http.MethodGet, "/api/v1/incidents?status=resolved&studentId="+s.student.ID, &s.admin, nil)
	require.Equal(t, http.StatusOK, code, env.Error)
	var resolved []models.Incident
	require.NoError(t, json.Unmarshal(env.Data, &resolved))
	assert.Len(t, resolved, 1)

	code, _ = s.do(t, http.MethodDelete, "/api/v1/incidents/"+incident.ID, &s.teacher, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(t, http.MethodDelete, "/api/v1/incidents/"+incident.ID, &s.admin, nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = s.do(t, http.MethodGet, "/api/v1/incidents/"+incident.ID, &s.admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeleteUserWithRecords(t *testing.T) {
	s := newTestServer(t)

	code, env := s.do(t, http.MethodPost, "/api/v1/incidents", &s.teacher, gin.H{
		"studentId": s.student.ID, "title": "Broken window",
	})
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(t, http.MethodDelete, "/api/v1/users/"+s.student.ID, &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "incidents")

	code, env = s.do(t, http.MethodDelete, "/api/v1/users/"+s.teacher.ID, &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "incidents")

	code, env = s.do(t, http.MethodPost, "/api/v1/appointments", &s.other,
		booking(s.psych.ID, "2024-05-01T09:00:00Z", "2024-05-01T09:30:00Z"))
	require.Equal(t, http.StatusCreated, code, env.Error)

	code, env = s.do(t, http.MethodDelete, "/api/v1/users/"+s.psych.ID, &s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Error, "appointments")

	var remaining int64
	require.NoError(t, s.db.Model(&models.User{}).
		Where("id IN ?", []string{s.student.ID, s.teacher.ID, s.psych.ID}).Count(&remaining).Error)
	assert.EqualValues(t, 3, remaining)
}
