package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStatusCode(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFound("Task", "t-1"), http.StatusNotFound},
		{Validation("bad"), http.StatusBadRequest},
		{Conflict("dup"), http.StatusConflict},
		{Forbidden("no"), http.StatusForbidden},
		{Unauthorized("who"), http.StatusUnauthorized},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, StatusCode(tc.err), tc.err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("creating swipe: %w", Conflict("Already swiped on this task"))
	require.Equal(t, KindConflict, KindOf(err))
	require.True(t, Is(err, KindConflict))
	require.False(t, Is(nil, KindConflict))
}

func TestPublicMessage(t *testing.T) {
	require.Equal(t, "Task (42) was not found", PublicMessage(NotFound("Task", 42), false))

	internal := Internal("saving task", errors.New("disk full"))
	require.Equal(t, "An internal server error occurred", PublicMessage(internal, false))
	require.Contains(t, PublicMessage(internal, true), "disk full")
}
