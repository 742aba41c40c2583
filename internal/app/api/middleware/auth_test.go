package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret, role string) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": time.Now().Add(time.Hour).Unix()}
	if role != "" {
		claims["role"] = role
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authTestRouter(secret string, extra ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(secret)}, extra...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/guarded", handlers...)
	return r
}

func doGet(r *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	r := authTestRouter("s3cret")
	w := doGet(r, signToken(t, "s3cret", ""))
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	r := authTestRouter("s3cret")
	w := doGet(r, "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	r := authTestRouter("s3cret")
	w := doGet(r, signToken(t, "other-secret", ""))
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_RejectsUnsignedAlg(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"role": RoleAdmin})
	s, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	r := authTestRouter("s3cret")
	w := doGet(r, s)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole_AdminOnly(t *testing.T) {
	r := authTestRouter("s3cret", RequireRole(RoleAdmin))

	w := doGet(r, signToken(t, "s3cret", RoleAdmin))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = doGet(r, signToken(t, "s3cret", "bot"))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = doGet(r, signToken(t, "s3cret", ""))
	require.Equal(t, http.StatusForbidden, w.Code)
}
