package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/storage/memory"
)

func TestTokensRoundTrip(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	tok, err := tokens.Issue("u1", order.RoleClient)
	require.NoError(t, err)

	a, err := tokens.ResolveActor(tok)
	require.NoError(t, err)
	assert.Equal(t, order.Actor{ID: "u1", Role: order.RoleClient}, a)

	_, err = tokens.Issue("u1", order.Role("admin"))
	require.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	tokens := auth.NewTokens("secret", -time.Minute)
	tok, err := tokens.Issue("u1", order.RoleClient)
	require.NoError(t, err)
	_, err = tokens.ResolveActor(tok)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSignupAndLogin(t *testing.T) {
	store := memory.New()
	tokens := auth.NewTokens("secret", time.Hour)
	h := auth.NewHandler(store, tokens, zap.NewNop())
	e := echo.New()
	e.POST("/auth/signup", h.Signup)
	e.POST("/auth/login", h.Login)

	rec := post(e, "/auth/signup", `{"name":"أحمد","email":"Ahmad@Example.com","password":"secret1","role":"craftsman","specialty":"سباكة","location":"الرياض"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp auth.TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	a, err := tokens.ResolveActor(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, order.RoleCraftsman, a.Role)

	rec = post(e, "/auth/signup", `{"name":"x","email":"ahmad@example.com","password":"secret1"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(e, "/auth/signup", `{"name":"x","email":"y@example.com","password":"secret1","role":"craftsman","specialty":"طيران"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(e, "/auth/login", `{"email":"ahmad@example.com","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(e, "/auth/login", `{"email":"ahmad@example.com","password":"secret1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
}
