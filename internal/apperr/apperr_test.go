package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{Validation("bad"), http.StatusBadRequest},
		{Blocked("nope"), http.StatusBadRequest},
		{NotFound("gone"), http.StatusNotFound},
		{Conflict("state"), http.StatusConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{Unauthorized("who"), http.StatusUnauthorized},
		{Dependency(errors.New("db down"), "insert post"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.status, Status(c.err), c.err.Error())
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(NotFound("missing post"), "load")
	assert.True(t, Is(err, KindNotFound))
	assert.Equal(t, "missing post", Public(err))
}

func TestPublicHidesDependencyDetail(t *testing.T) {
	err := Dependency(errors.New("pq: connection refused"), "insert post")
	assert.Equal(t, genericMessage, Public(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, genericMessage, Public(errors.New("boom")))
}
