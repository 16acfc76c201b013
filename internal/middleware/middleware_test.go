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
)

const secret = "middleware-secret"

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func authRouter(issuer string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/me", JWTAuth(secret, issuer), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":    c.GetString(CtxUserID),
			"request_id": c.GetString(CtxRequestID),
		})
	})
	return r
}

func call(r *gin.Engine, token string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAuth(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()

	t.Run("valid token", func(t *testing.T) {
		w := call(authRouter("nimo-plm"), sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "iss": "nimo-plm", "exp": exp}), nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":"u1"`)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	cases := []struct {
		name   string
		issuer string
		token  string
	}{
		{"wrong issuer", "nimo-plm", sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "iss": "other", "exp": exp})},
		{"expired", "", sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "exp": time.Now().Add(-time.Minute).Unix()})},
		{"other algorithm", "", sign(t, jwt.SigningMethodHS512, jwt.MapClaims{"uid": "u1", "exp": exp})},
		{"garbage", "", "abc.def.ghi"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := call(authRouter(tc.issuer), tc.token, nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), "40102")
		})
	}

	t.Run("missing uid", func(t *testing.T) {
		w := call(authRouter(""), sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"exp": exp}), nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "40103")
	})

	t.Run("missing header", func(t *testing.T) {
		w := call(authRouter(""), "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "40100")
	})

	t.Run("request id passthrough", func(t *testing.T) {
		token := sign(t, jwt.SigningMethodHS256, jwt.MapClaims{"uid": "u1", "exp": exp})
		w := call(authRouter(""), token, map[string]string{"X-Request-ID": "req-42"})
		assert.Equal(t, "req-42", w.Header().Get("X-Request-ID"))
		assert.Contains(t, w.Body.String(), `"request_id":"req-42"`)
	})
}

func TestHasPermission(t *testing.T) {
	assert.True(t, HasPermission([]string{"*"}, "mfg.bom.write"))
	assert.True(t, HasPermission([]string{"mfg.*"}, "mfg.bom.write"))
	assert.True(t, HasPermission([]string{"mfg.read", "mfg.bom.write"}, "mfg.bom.write"))
	assert.False(t, HasPermission([]string{"mfg.read"}, "mfg.bom.write"))
	assert.False(t, HasPermission([]string{"srm.*"}, "mfg.bom.write"))
	assert.False(t, HasPermission(nil, "mfg.read"))
}
