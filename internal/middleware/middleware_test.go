package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/order"
)

func serve(t *testing.T, token string, mw ...echo.MiddlewareFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/x", func(c echo.Context) error {
		a, ok := ActorFrom(c)
		require.True(t, ok)
		return c.String(http.StatusOK, a.ID+"/"+string(a.Role))
	}, mw...)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWT(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	tok, err := tokens.Issue("u1", order.RoleCraftsman)
	require.NoError(t, err)

	rec := serve(t, tok, JWT(tokens))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1/craftsman", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(t, "", JWT(tokens)).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, "garbage", JWT(tokens)).Code)

	forged, err := auth.NewTokens("other", time.Hour).Issue("u1", order.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(t, forged, JWT(tokens)).Code)
}

func TestRequireRoles(t *testing.T) {
	tokens := auth.NewTokens("secret", time.Hour)
	tok, err := tokens.Issue("u1", order.RoleClient)
	require.NoError(t, err)

	denied := serve(t, tok, JWT(tokens), RequireRoles(order.RoleCraftsman))
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.JSONEq(t, `{"error":"access denied: unauthorized","kind":"unauthorized"}`, denied.Body.String())

	missing := serve(t, "", RequireRoles(order.RoleCraftsman))
	assert.Equal(t, http.StatusForbidden, missing.Code)
	assert.Contains(t, missing.Body.String(), `"kind":"unauthorized"`)
	assert.Equal(t, http.StatusOK, serve(t, tok, JWT(tokens), RequireRoles(order.RoleCraftsman, order.RoleClient)).Code)
}

func TestFailMapsKinds(t *testing.T) {
	cases := map[error]int{
		errors.Wrap(order.ErrInvalidTransition, "x"):    http.StatusConflict,
		errors.Wrap(order.ErrSubscriptionRequired, "x"): http.StatusPaymentRequired,
		errors.Wrap(order.ErrNotFound, "x"):             http.StatusNotFound,
		errors.Wrap(order.ErrValidation, "x"):           http.StatusBadRequest,
		errors.Wrap(order.ErrUnauthorized, "x"):         http.StatusForbidden,
		errors.New("connection refused"):                http.StatusServiceUnavailable,
	}
	e := echo.New()
	for err, want := range cases {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, Fail(c, err))
		assert.Equal(t, want, rec.Code, err.Error())
		assert.Contains(t, rec.Body.String(), `"kind":"`+string(order.KindOf(err))+`"`)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	require.NoError(t, Fail(c, errors.New("dial tcp 10.0.0.1:5432: secret detail")))
	assert.NotContains(t, rec.Body.String(), "secret detail")
}
