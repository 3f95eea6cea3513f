package testutil

import (
	"net/http"
	"time"

	"zerotrust/pkg/requestcontext"
)

// WithBearer sets the Authorization header to a bearer credential.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

// WithTime pins the request clock, as the request middleware would.
func WithTime(req *http.Request, at time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), at))
}
