package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestKindStatus(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
	}{
		{Authentication("no token"), http.StatusUnauthorized},
		{Authorization("wrong role"), http.StatusForbidden},
		{Validation("missing"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{InvalidState("already checked in"), http.StatusConflict},
		{Conflict("dup"), http.StatusConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Upstream("gateway", errors.New("timeout")), http.StatusBadGateway},
		{Internal("db", errors.New("boom")), http.StatusInternalServerError},
		{New(Kind("ODD"), "x"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, tc.err.Status(), string(tc.err.Kind))
	}
}

func TestRoutine(t *testing.T) {
	assert.True(t, InvalidState("x").Routine())
	assert.True(t, Authorization("x").Routine())
	assert.False(t, Upstream("x", nil).Routine())
	assert.False(t, Internal("x", nil).Routine())
}

func TestFrom_WrapsUnknownAsInternal(t *testing.T) {
	assert.Nil(t, From(nil))

	e := From(errors.New("raw"))
	assert.Equal(t, KindInternal, e.Kind)

	wrapped := fmt.Errorf("ctx: %w", NotFound("visitor not found"))
	assert.Equal(t, KindNotFound, From(wrapped).Kind)
	assert.True(t, Is(wrapped, KindNotFound))
	assert.False(t, Is(wrapped, KindInvalidState))
}

func TestError_MessageIncludesCause(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	e := Upstream("payment gateway unavailable", cause)
	assert.Contains(t, e.Error(), "dial tcp")
	assert.ErrorIs(t, e, cause)
}

func TestFromDB(t *testing.T) {
	assert.Nil(t, FromDB(nil, "x"))
	assert.Equal(t, KindNotFound, FromDB(gorm.ErrRecordNotFound, "flat not found").Kind)
	assert.Equal(t, "flat not found", FromDB(gorm.ErrRecordNotFound, "flat not found").Message)
	assert.Equal(t, KindConflict, FromDB(&pgconn.PgError{Code: "23505"}, "x").Kind)
	assert.Equal(t, KindConflict, FromDB(errors.New("UNIQUE constraint failed: visitors.token"), "x").Kind)
	assert.Equal(t, KindConflict, FromDB(errors.New("Error 1062: Duplicate entry 'a' for key 'name'"), "x").Kind)
	assert.Equal(t, KindInternal, FromDB(errors.New("connection reset"), "x").Kind)
}
