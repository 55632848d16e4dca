package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtracker/internal/auth"
	"jobtracker/internal/cache"
	"jobtracker/internal/config"
	"jobtracker/internal/db"
	"jobtracker/internal/email"
	"jobtracker/internal/handler"
	"jobtracker/internal/metrics"
	"jobtracker/internal/model"
	"jobtracker/internal/repository"
	"jobtracker/internal/service"
	"jobtracker/internal/storage"
)

type discardSender struct{}

func (discardSender) Send(context.Context, email.Message) error { return nil }

type api struct {
	t     *testing.T
	e     *echo.Echo
	roles service.RoleService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	ctx := context.Background()

	gdb, err := db.NewSQLite(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	files, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{CORSOrigins: []string{"https://app.example.com"}, FrontendURL: "https://app.example.com"}
	store := repository.NewStore(gdb)
	memory := cache.NewMemory()
	m := metrics.New()
	jwtService := auth.NewJWTService("test-secret", "jobtracker-test", "jobtracker-test-clients")
	tokens := auth.NewTokenStore(memory)
	mailer := email.NewMailer(discardSender{}, email.Links{
		VerifyEmail:        "https://app.example.com/verify-email",
		ResetPassword:      "https://app.example.com/reset-password",
		ConfirmEmailChange: "https://app.example.com/confirm-email",
	})

	roles := service.NewRoleService(store)
	require.NoError(t, roles.EnsureRolesCreated(ctx))
	deleter := service.NewAccountDeleter(store, files, mailer, nil, m, memory)
	authService := service.NewAuthService(store, jwtService, tokens, mailer, service.AuthOptions{})

	e := echo.New()
	Register(e, cfg, jwtService, m, Handlers{
		Auth:            handler.NewAuthHandler(authService, cfg.FrontendURL+"/login"),
		OAuth:           handler.NewOAuthHandler(authService, nil),
		Profile:         handler.NewProfileHandler(service.NewProfileService(store, jwtService, tokens, mailer, deleter, nil)),
		JobApplications: handler.NewJobApplicationHandler(service.NewJobApplicationService(store, files, mailer, nil, m, nil)),
		JobPostings:     handler.NewJobPostingHandler(service.NewJobPostingService(store, files, memory, nil)),
		Recruiters:      handler.NewRecruiterApplicationHandler(service.NewRecruiterService(store, mailer, nil, m, nil)),
		Admin:           handler.NewAdminHandler(service.NewAdminService(store, roles, deleter, nil)),
		Uploads:         handler.NewUploadHandler(files),
		Health:          handler.NewHealthHandler(nil),
	})
	return &api{t: t, e: e, roles: roles}
}

func (a *api) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	a.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return a.send(req, token)
}

func (a *api) send(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

// signUp registers and logs in, returning the bearer token.
func (a *api) signUp(emailAddr string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": emailAddr, "password": "secret123"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	return a.login(emailAddr, "secret123")
}

func (a *api) login(emailAddr, password string) string {
	a.t.Helper()
	rec := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": emailAddr, "password": password})
	require.Equal(a.t, http.StatusOK, rec.Code, rec.Body.String())
	var res service.AuthResult
	decode(a.t, rec, &res)
	require.NotEmpty(a.t, res.Token)
	return res.Token
}

func (a *api) admin() string {
	a.t.Helper()
	require.NoError(a.t, a.roles.BootstrapAdmin(context.Background(), "admin@example.com", "admin-pass"))
	return a.login("admin@example.com", "admin-pass")
}

func TestAuthAndProfile(t *testing.T) {
	a := newAPI(t)
	token := a.signUp("alice@example.com")

	rec := a.do(http.MethodGet, "/api/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var profile service.Profile
	decode(t, rec, &profile)
	assert.Equal(t, "alice@example.com", profile.Email)
	assert.Equal(t, []string{model.RoleUser}, profile.Roles)

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/profile", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/profile", "garbage", nil).Code)

	rec = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")
}

func TestValidationErrorsNameFields(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{"email": "not-an-email", "password": "123"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	decode(t, rec, &body)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)
	assert.Equal(t, "must be a valid e-mail address", body.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", body.Fields["password"])
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	a := newAPI(t)
	user := a.signUp("bob@example.com")
	admin := a.admin()

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/admin/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/admin/users", user, nil).Code)

	rec := a.do(http.MethodGet, "/api/admin/users", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var users []service.UserSummary
	decode(t, rec, &users)
	assert.Len(t, users, 2)

	rec = a.do(http.MethodGet, "/api/admin/users/not-a-uuid", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecruiterFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	admin := a.admin()
	candidate := a.signUp("carol@example.com")
	recruiter := a.signUp("rita@example.com")

	rec := a.do(http.MethodPost, "/api/recruiterapplications", recruiter, map[string]string{
		"company_name":    "Acme",
		"company_website": "https://acme.example.com",
		"job_title":       "Talent Lead",
		"motivation":      "Hiring",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ra model.RecruiterApplication
	decode(t, rec, &ra)

	rec = a.do(http.MethodPost, fmt.Sprintf("/api/recruiterapplications/%d/approve", ra.ID), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// The Recruiter role reaches the token at the next sign-in.
	recruiter = a.login("rita@example.com", "secret123")
	rec = a.do(http.MethodPost, "/api/jobpostings", recruiter, map[string]interface{}{
		"title":                "Go Developer",
		"company_name":         "Acme",
		"description":          "Write Go",
		"requirements":         "Go",
		"application_deadline": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var posting model.JobPosting
	decode(t, rec, &posting)

	rec = a.do(http.MethodGet, "/api/jobpostings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var postings []model.JobPosting
	decode(t, rec, &postings)
	assert.Len(t, postings, 1)

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	require.NoError(t, mw.WriteField("notes", "excited"))
	require.NoError(t, mw.WriteField("coverLetter", "Dear Acme"))
	fw, err := mw.CreateFormFile("cv", "resume.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4 test"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, fmt.Sprintf("/api/jobapplications/apply/%d", posting.ID), &form)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec = a.send(req, candidate)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var app model.JobApplication
	decode(t, rec, &app)
	require.NotNil(t, app.CvFilePath)
	assert.Equal(t, "Dear Acme", app.CoverLetter)

	rec = a.do(http.MethodGet, *app.CvFilePath, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4 test", rec.Body.String())
	assert.Equal(t, "application/pdf", rec.Header().Get(echo.HeaderContentType))

	rec = a.do(http.MethodGet, fmt.Sprintf("/api/jobpostings/%d/applicants", posting.ID), recruiter, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var applicants []service.Applicant
	decode(t, rec, &applicants)
	require.Len(t, applicants, 1)
	assert.Equal(t, "carol@example.com", applicants[0].ApplicantEmail)

	rec = a.do(http.MethodPut, fmt.Sprintf("/api/jobapplications/%d/recruiter-status", app.ID), recruiter,
		map[string]string{"status": string(model.RecruiterStatusInterviewRequested)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A third party gets the same denial for an existing and a missing application.
	outsider := a.signUp("olga@example.com")
	existing := a.do(http.MethodGet, fmt.Sprintf("/api/jobapplications/%d", app.ID), outsider, nil)
	missing := a.do(http.MethodGet, "/api/jobapplications/99999", outsider, nil)
	assert.Equal(t, http.StatusForbidden, existing.Code)
	assert.Equal(t, existing.Code, missing.Code)
	assert.Equal(t, existing.Body.String(), missing.Body.String())
}

func TestApplyRejectsDisallowedFile(t *testing.T) {
	a := newAPI(t)
	candidate := a.signUp("dan@example.com")

	var form bytes.Buffer
	mw := multipart.NewWriter(&form)
	fw, err := mw.CreateFormFile("cv", "virus.exe")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("MZ"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/jobapplications/apply/1", &form)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	rec := a.send(req, candidate)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_FILE")
}

func TestOperationalEndpoints(t *testing.T) {
	a := newAPI(t)

	rec := a.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	a.do(http.MethodGet, "/api/jobpostings", "", nil)
	rec = a.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "http_requests_total"), "request counter exported")

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/uploads/missing.pdf", "", nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/auth/google-login", "", nil).Code)

	rec = a.do(http.MethodGet, "/api/auth/verify-email?token=bogus", "", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://app.example.com/login?status=error", rec.Header().Get(echo.HeaderLocation))
}
