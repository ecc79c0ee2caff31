package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/skycost/skycost/pkg/auth"
	"github.com/skycost/skycost/pkg/directory"
	"github.com/skycost/skycost/pkg/impersonate"
	"github.com/skycost/skycost/pkg/sessions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	router   chi.Router
	sessions *sessions.Service
	admin    directory.Subject
	customer directory.Subject
	auditor  directory.Subject
}

func setupEnv(t *testing.T) *testEnv {
	ctx := context.Background()

	directoryService := directory.NewService(directory.NewInMemoryRepository())
	sessionService := sessions.NewService(sessions.NewInMemoryRepository(), sessions.DefaultIdleTimeout)
	impersonateService := impersonate.NewService(sessionService, directoryService)

	admin, err := directoryService.CreateSubject(ctx, directory.CreateSubjectParams{
		Username: "admin",
		Email:    "admin@example.com",
		Role:     directory.RoleAdmin,
	})
	require.NoError(t, err)

	customer, err := directoryService.CreateSubject(ctx, directory.CreateSubjectParams{
		Username: "acme",
		Email:    "billing@acme.example.com",
		Role:     directory.RoleCustomer,
	})
	require.NoError(t, err)

	auditor, err := directoryService.CreateSubject(ctx, directory.CreateSubjectParams{
		Username: "auditor",
		Email:    "auditor@example.com",
		Role:     directory.RoleReadOnly,
	})
	require.NoError(t, err)

	middleware := auth.NewMiddleware(sessionService, directoryService)
	handler := NewHandler(impersonateService)

	router := chi.NewRouter()
	router.Route("/api/users", func(r chi.Router) {
		r.Use(middleware.Authenticate)
		handler.RegisterRoutes(r)
	})

	return &testEnv{
		router:   router,
		sessions: sessionService,
		admin:    admin,
		customer: customer,
		auditor:  auditor,
	}
}

func (e *testEnv) login(t *testing.T, subjectID uuid.UUID) *sessions.Session {
	session, err := e.sessions.CreateSession(context.Background(), subjectID, "10.0.0.1", "test")
	require.NoError(t, err)
	return session
}

func (e *testEnv) post(path, token string, body any) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestImpersonateEndpoint(t *testing.T) {
	t.Run("AdminImpersonatesCustomer", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate", adminSession.Token, BeginRequest{TargetID: env.customer.ID})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.NotEmpty(t, resp.Token)
		assert.NotEqual(t, adminSession.Token, resp.Token)

		subjectID, err := env.sessions.Validate(context.Background(), resp.Token)
		require.NoError(t, err)
		assert.Equal(t, env.customer.ID, subjectID)
	})

	t.Run("NonAdminForbidden", func(t *testing.T) {
		env := setupEnv(t)
		auditorSession := env.login(t, env.auditor.ID)

		rec := env.post("/api/users/impersonate", auditorSession.Token, BeginRequest{TargetID: env.customer.ID})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("TargetNotFound", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate", adminSession.Token, BeginRequest{TargetID: uuid.New()})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("TargetNotCustomer", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate", adminSession.Token, BeginRequest{TargetID: env.auditor.ID})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("MissingTarget", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate", adminSession.Token, map[string]string{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		env := setupEnv(t)
		rec := env.post("/api/users/impersonate", "", BeginRequest{TargetID: env.customer.ID})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRevertEndpoint(t *testing.T) {
	t.Run("RestoresAdminSession", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate", adminSession.Token, BeginRequest{TargetID: env.customer.ID})
		require.Equal(t, http.StatusOK, rec.Code)

		var child TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&child))

		rec = env.post("/api/users/impersonate/revert", child.Token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var restored TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&restored))
		assert.Equal(t, adminSession.Token, restored.Token)

		// The impersonation session is dead after the revert.
		_, err := env.sessions.Validate(context.Background(), child.Token)
		assert.ErrorIs(t, err, sessions.ErrSessionInvalid)
	})

	t.Run("RevertWithPlainSession", func(t *testing.T) {
		env := setupEnv(t)
		adminSession := env.login(t, env.admin.ID)

		rec := env.post("/api/users/impersonate/revert", adminSession.Token, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
