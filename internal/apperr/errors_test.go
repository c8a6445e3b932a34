package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{Field("email", "is required"), http.StatusBadRequest},
		{Unauthenticated(""), http.StatusUnauthorized},
		{Forbidden(""), http.StatusForbidden},
		{NotFound("project not found"), http.StatusNotFound},
		{Conflict("already enrolled"), http.StatusConflict},
		{RateLimited(), http.StatusTooManyRequests},
		{Internal("load project", errors.New("boom")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.Status(); got != tc.want {
			t.Fatalf("%q: expected %d, got %d", tc.err.Message, tc.want, got)
		}
	}
}

func TestInternalHidesDetail(t *testing.T) {
	err := Internal("load project", errors.New("pq: connection refused"))
	if err.PublicMessage() != "internal server error" {
		t.Fatalf("unexpected public message: %q", err.PublicMessage())
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected wrapped error to unwrap")
	}
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("enroll: %w", Conflict("course is full"))
	if !Is(err, KindConflict) {
		t.Fatalf("expected conflict kind through wrapping")
	}
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("plain errors should be internal")
	}
}
