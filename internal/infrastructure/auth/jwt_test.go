package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignAndValidate(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "course_token", time.Hour)

	tokenStr, err := ju.GenerateTokenStr("acc-1", "Айгерим Серикова")
	require.NoError(t, err)

	claims, err := ju.Validate(tokenStr)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", claims.UID)
	assert.Equal(t, "Айгерим Серикова", claims.Name)
	assert.True(t, claims.TimeRemaining() > 59*time.Minute)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	tokenStr, err := NewJWTUtil("HS256", "other", "course_token", time.Hour).GenerateTokenStr("acc-1", "")
	require.NoError(t, err)

	_, err = NewJWTUtil("HS256", "secret", "course_token", time.Hour).Validate(tokenStr)
	assert.Error(t, err)
}

func TestValidateRequiresAccount(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "course_token", time.Hour)
	tokenStr, err := ju.GenerateTokenStr("", "nobody")
	require.NoError(t, err)

	_, err = ju.Validate(tokenStr)
	assert.ErrorIs(t, err, ErrMissingAccount)
}

func TestExtractToken(t *testing.T) {
	ju := NewJWTUtil("HS256", "secret", "course_token", time.Hour)
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "course_token", Value: "from-cookie"})
	got, err := ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "from-cookie", got)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer from-header")
	got, err = ju.ExtractToken(e.NewContext(req, httptest.NewRecorder()))
	require.NoError(t, err)
	assert.Equal(t, "from-header", got)

	_, err = ju.ExtractToken(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	assert.Error(t, err)
}
