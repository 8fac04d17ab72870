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
	"gorm.io/gorm"

	"github.com/societyhub/society_backend/internal/database/dbtest"
	"github.com/societyhub/society_backend/internal/logging"
	"github.com/societyhub/society_backend/internal/models"
)

const testSecret = "test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func validClaims(sub string) Claims {
	return Claims{
		Email: "Asha@Example.com",
		Name:  "  Asha   Rao ",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "idp",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func newAuthRouter(t *testing.T, extra ...gin.HandlerFunc) (*gin.Engine, func() *models.Person) {
	t.Helper()
	return newAuthRouterOn(t, dbtest.Open(t), extra...)
}

func newAuthRouterOn(t *testing.T, db *gorm.DB, extra ...gin.HandlerFunc) (*gin.Engine, func() *models.Person) {
	t.Helper()
	var seen *models.Person
	r := gin.New()
	handlers := append([]gin.HandlerFunc{AuthMiddleware(db, AuthConfig{JWTSecret: testSecret, Issuer: "idp"}, logging.Nop())}, extra...)
	handlers = append(handlers, func(c *gin.Context) {
		seen = CurrentPerson(c)
		c.Status(http.StatusNoContent)
	})
	r.GET("/me", handlers...)
	r.GET("/ws", handlers...)
	return r, func() *models.Person { return seen }
}

func do(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_FirstSignInCreatesVisitor(t *testing.T) {
	r, seen := newAuthRouter(t)
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user_1"))

	w := do(r, "/me", tok)
	require.Equal(t, http.StatusNoContent, w.Code)
	p := seen()
	require.NotNil(t, p)
	assert.Equal(t, "user_1", p.ExternalID)
	assert.Equal(t, models.RoleVisitor, p.Role)
	assert.Equal(t, "Asha Rao", p.Name)
	assert.Equal(t, "asha@example.com", p.Email)

	firstID := p.ID
	w = do(r, "/me", tok)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, firstID, seen().ID, "second sign-in reuses the person")
}

func TestAuth_KnownPersonIsOnlyRead(t *testing.T) {
	db := dbtest.Open(t)
	var creates int
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("count_creates", func(*gorm.DB) {
		creates++
	}))
	r, seen := newAuthRouterOn(t, db)
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user_2"))

	require.Equal(t, http.StatusNoContent, do(r, "/me", tok).Code)
	require.Equal(t, 1, creates, "first sign-in registers the person")
	firstID := seen().ID

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusNoContent, do(r, "/me", tok).Code)
	}
	assert.Equal(t, 1, creates, "later sign-ins do not insert")
	assert.Equal(t, firstID, seen().ID)

	var n int64
	require.NoError(t, db.Model(&models.Person{}).Where("external_id = ?", "user_2").Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestAuth_Rejections(t *testing.T) {
	r, _ := newAuthRouter(t)

	expired := validClaims("user_1")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims("user_1")
	wrongIssuer.Issuer = "someone-else"

	cases := map[string]string{
		"missing":      "",
		"garbage":      "not-a-jwt",
		"wrong secret": signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("user_1")),
		"expired":      signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"wrong issuer": signToken(t, jwt.SigningMethodHS256, []byte(testSecret), wrongIssuer),
		"no subject":   signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("")),
		"alg none":     signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("user_1")),
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(r, "/me", tok)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"AUTHENTICATION"`)
		})
	}
}

func TestAuth_WebsocketQueryToken(t *testing.T) {
	r, seen := newAuthRouter(t)
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user_ws"))

	req := httptest.NewRequest(http.MethodGet, "/ws?access_token="+tok, nil)
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "user_ws", seen().ExternalID)

	// plain requests may not use the query parameter
	w = do(r, "/me?access_token="+tok, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoles(t *testing.T) {
	r, _ := newAuthRouter(t, RequireRoles(logging.Nop(), models.GateRoles...))
	tok := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("user_2"))

	w := do(r, "/me", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"code":"AUTHORIZATION"`)
}
