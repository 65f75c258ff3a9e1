package handlers

import (
	"net/http"
	"time"

	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/session"

	apierrors "github.com/pribylovaa/backoffice-console/internal/http/errors"
)

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	if err := h.Session.Login(r.Context(), in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.info())
}

// Refresh принудительно обновляет пару. Неудача завершает сессию.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	pair, ok := h.Session.Token()
	if !ok {
		apierrors.WriteError(w, r, session.ErrNotAuthenticated)
		return
	}

	if _, err := h.Session.RefreshToken(r.Context(), pair.RefreshToken); err != nil {
		h.Session.Logout(r.Context())
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, h.info())
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Session.Logout(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

// GetSession отдаёт состояние без побочных эффектов (без загрузки и refresh).
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info())
}

func (h *Handlers) info() models.SessionInfo {
	out := models.SessionInfo{
		Authenticated: h.Session.IsAuthenticated(),
		State:         h.Session.State().String(),
	}
	if p, ok := h.Session.Payload(); ok {
		out.Username = p.Username
		out.Subject = p.Subject
		exp := time.Unix(p.ExpiresAt, 0).UTC()
		out.ExpiresAt = &exp
	}
	if h.Nav != nil {
		out.Route = h.Nav.Current()
	}

	return out
}
