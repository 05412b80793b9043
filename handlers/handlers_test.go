// SPDX-License-Identifier: GPL-3.0-only

package handlers

import (
	"net/http"
	"testing"

	"newsdesk-server/subscriptions"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"My First Post", "my-first-post"},
		{"  Hello,   World!  ", "hello-world"},
		{"Go 1.23 Released", "go-1-23-released"},
		{"already-a-slug", "already-a-slug"},
		{"!!!", ""},
	}
	for _, c := range cases {
		if got := slugify(c.in); got != c.want {
			t.Errorf("slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	if got := totalPages(0, 20); got != 0 {
		t.Errorf("totalPages(0, 20) = %d, want 0", got)
	}
	if got := totalPages(20, 20); got != 1 {
		t.Errorf("totalPages(20, 20) = %d, want 1", got)
	}
	if got := totalPages(21, 20); got != 2 {
		t.Errorf("totalPages(21, 20) = %d, want 2", got)
	}
}

func TestHTTPErrorFor(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"conflict", &subscriptions.ConflictError{Message: "already subscribed"}, http.StatusConflict},
		{"invalid state", &subscriptions.InvalidStateError{Message: "not active"}, http.StatusBadRequest},
		{"forbidden", &subscriptions.ForbiddenError{Message: "cannot pin"}, http.StatusForbidden},
		{"not found", &subscriptions.NotFoundError{Message: "no pinned post"}, http.StatusNotFound},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			httpErr := httpErrorFor(c.err)
			if httpErr.Code != c.code {
				t.Errorf("httpErrorFor(%v) code = %d, want %d", c.err, httpErr.Code, c.code)
			}
		})
	}
}
