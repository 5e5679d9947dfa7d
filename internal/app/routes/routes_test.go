package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placeintern/backend/internal/app/controllers"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/middleware"
	"github.com/placeintern/backend/internal/pkg/auth"
)

func newTestRouter(t *testing.T) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "routes-test-secret",
		AccessTokenExp:  time.Hour,
		RefreshTokenExp: time.Hour,
		TokenIssuer:     "placeintern.test",
		SessionWarning:  5 * time.Minute,
	})

	router := gin.New()
	SetupRouter(router, Controllers{
		Student: controllers.NewStudentController(nil),
	}, middleware.NewAuthMiddleware(jwtService), nil)
	return router, jwtService
}

func tokenFor(t *testing.T, s *auth.JWTService, role models.RoleType) string {
	t.Helper()
	institutionID := int64(1)
	pair, err := s.GenerateTokenPair(&models.User{ID: 9, Email: "user@gpc.in", RoleType: role, InstitutionID: &institutionID})
	require.NoError(t, err)
	return pair.AccessToken
}

func serve(router *gin.Engine, method, path, token string) (*httptest.ResponseRecorder, dto.ErrorResponse) {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var body dto.ErrorResponse
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := serve(router, http.MethodGet, "/api/v1/principal/dashboard", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, dto.ErrorCodeUnauthorized, body.Error.Code)
}

func TestRoleGroupsRejectOtherRoles(t *testing.T) {
	router, jwtService := newTestRouter(t)

	cases := []struct {
		role models.RoleType
		path string
	}{
		{models.RoleStudent, "/api/v1/principal/dashboard"},
		{models.RolePrincipal, "/api/v1/system-admin/users"},
		{models.RoleFacultySupervisor, "/api/v1/state/overview"},
		{models.RoleStateDirectorate, "/api/v1/student/profile"},
		{models.RoleStudent, "/api/v1/shared/reports"},
	}
	for _, tc := range cases {
		t.Run(string(tc.role)+tc.path, func(t *testing.T) {
			w, body := serve(router, http.MethodGet, tc.path, tokenFor(t, jwtService, tc.role))

			assert.Equal(t, http.StatusForbidden, w.Code)
			require.NotNil(t, body.Error)
			assert.Equal(t, dto.ErrorCodeForbidden, body.Error.Code)
		})
	}
}

func TestInvalidIDParamIsRejected(t *testing.T) {
	router, jwtService := newTestRouter(t)

	w, body := serve(router, http.MethodGet, "/api/v1/principal/students/abc", tokenFor(t, jwtService, models.RolePrincipal))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, dto.ErrorCodeValidationFailed, body.Error.Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	router, _ := newTestRouter(t)

	w, body := serve(router, http.MethodGet, "/api/v1/nowhere", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	require.NotNil(t, body.Error)
	assert.Equal(t, dto.ErrorCodeResourceNotFound, body.Error.Code)
}
