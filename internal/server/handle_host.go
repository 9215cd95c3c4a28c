package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/quizdeck/quizdeck/internal/game"
	"github.com/quizdeck/quizdeck/internal/store"
)

// HostLoginRequest is the request body for POST /api/host/login.
type HostLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HostMeResponse is the response for GET /api/host/me.
type HostMeResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func handleHostLogin(st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req HostLoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Email = strings.TrimSpace(strings.ToLower(req.Email))
		if req.Email == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "email and password are required")
			return
		}

		host, err := st.HostByEmail(r.Context(), req.Email)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(host.PasswordHash), []byte(req.Password)); err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		sessionID, err := st.CreateHostSession(r.Context(), host.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     hostCookieName,
			Value:    sessionID,
			Path:     "/",
			MaxAge:   int(7 * 24 * time.Hour / time.Second),
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, HostMeResponse{ID: host.ID, Email: host.Email})
	}
}

func handleHostLogout(st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(hostCookieName)
		if err == nil && cookie.Value != "" {
			st.DeleteHostSession(r.Context(), cookie.Value)
		}

		http.SetCookie(w, &http.Cookie{
			Name:     hostCookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func handleHostMe(st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, ok := hostFromRequest(r, st)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		writeJSON(w, http.StatusOK, HostMeResponse{ID: host.ID, Email: host.Email})
	}
}

// CreateTeamRequest is the request body for POST /api/host/teams.
type CreateTeamRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func handleCreateTeam(session *game.Session, st *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateTeamRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		team, err := st.CreateTeam(r.Context(), req.Name, req.Color)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		session.AddTeam(team)
		writeJSON(w, http.StatusCreated, team)
	}
}

func handleClearPlayers(logger *slog.Logger, session *game.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host := hostFrom(r)
		session.ClearPlayers(r.Context())
		logger.Info("roster cleared", "host_id", host.ID, "host_email", host.Email)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
