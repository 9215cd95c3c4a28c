package server

import (
	"context"
	"net/http"

	"github.com/quizdeck/quizdeck/internal/store"
)

type ctxKey int

const ctxKeyHost ctxKey = iota

const hostCookieName = "host_session"

func hostAuthMiddleware(st *store.SQLiteStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(hostCookieName)
			if err != nil || cookie.Value == "" {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			host, err := st.HostFromSession(r.Context(), cookie.Value)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyHost, host)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hostFrom(r *http.Request) store.Host {
	return r.Context().Value(ctxKeyHost).(store.Host)
}

// hostFromRequest checks host credentials without requiring the middleware,
// for endpoints that are public but behave differently for hosts.
func hostFromRequest(r *http.Request, st *store.SQLiteStore) (store.Host, bool) {
	cookie, err := r.Cookie(hostCookieName)
	if err != nil || cookie.Value == "" {
		return store.Host{}, false
	}
	host, err := st.HostFromSession(r.Context(), cookie.Value)
	if err != nil {
		return store.Host{}, false
	}
	return host, true
}
