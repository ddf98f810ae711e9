package api

import (
	"context"
	"net/http"

	"github.com/ignite/engage/internal/pkg/httputil"
)

type ownerKey struct{}

// ownerContext extracts the owner scope from the X-Owner-ID header.
// Authentication proper happens upstream (gateway, session layer);
// every /api route still refuses requests with no owner at all.
func ownerContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.Header.Get("X-Owner-ID")
		if owner == "" {
			httputil.Error(w, http.StatusUnauthorized, "X-Owner-ID header is required")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner)))
	})
}

// ownerID returns the owner scope set by ownerContext.
func ownerID(r *http.Request) string {
	owner, _ := r.Context().Value(ownerKey{}).(string)
	return owner
}
