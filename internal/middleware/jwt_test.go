package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/timegrid/timegrid-api/internal/models"
	"github.com/timegrid/timegrid-api/internal/service"
)

const testSecret = "middleware_test_secret"

func newTestAuthService() *service.AuthService {
	return service.NewAuthService(nil, nil, zap.NewNop(), service.AuthConfig{Secret: testSecret})
}

func signTestToken(t *testing.T, tokenType string, role models.UserRole, expiry time.Duration) string {
	t.Helper()
	claims := &models.JWTClaims{
		UserID:    "u-1",
		Role:      role,
		Email:     "planner@example.com",
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func performRequest(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func newProtectedRouter(roles ...models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := []gin.HandlerFunc{JWT(newTestAuthService())}
	if len(roles) > 0 {
		handlers = append(handlers, RequireRoles(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/protected", handlers...)
	return r
}

func TestJWTMissingHeader(t *testing.T) {
	w := performRequest(newProtectedRouter(), "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTMalformedHeader(t *testing.T) {
	w := performRequest(newProtectedRouter(), "Token abc")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTExpiredToken(t *testing.T) {
	token := signTestToken(t, models.TokenTypeAccess, models.RolePlanner, -time.Minute)
	w := performRequest(newProtectedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTRefreshTokenRejected(t *testing.T) {
	token := signTestToken(t, models.TokenTypeRefresh, models.RolePlanner, time.Hour)
	w := performRequest(newProtectedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestJWTValidToken(t *testing.T) {
	token := signTestToken(t, models.TokenTypeAccess, models.RolePlanner, time.Hour)
	w := performRequest(newProtectedRouter(), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRolesBlocksViewer(t *testing.T) {
	token := signTestToken(t, models.TokenTypeAccess, models.RoleViewer, time.Hour)
	w := performRequest(newProtectedRouter(models.RoleAdmin, models.RolePlanner), "Bearer "+token)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRolesAllowsPlanner(t *testing.T) {
	token := signTestToken(t, models.TokenTypeAccess, models.RolePlanner, time.Hour)
	w := performRequest(newProtectedRouter(models.RoleAdmin, models.RolePlanner), "Bearer "+token)
	assert.Equal(t, http.StatusOK, w.Code)
}
