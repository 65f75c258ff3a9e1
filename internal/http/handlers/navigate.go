package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/backoffice-console/internal/models"
	"github.com/pribylovaa/backoffice-console/internal/session"

	apierrors "github.com/pribylovaa/backoffice-console/internal/http/errors"
)

// Navigate переходит на маршрут {route} с выполнением guards.
func (h *Handlers) Navigate(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "route")
	if name == "" {
		apierrors.WriteError(w, r, apierrors.ErrInvalidArgument)
		return
	}

	got, err := h.Nav.Push(r.Context(), name)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.NavigationResult{Requested: name, Route: got})
}

// Proxy проксирует /api/* на back-office API. Перед отправкой сессия
// загружается (и при необходимости обновляется), как это делает guard.
func (h *Handlers) Proxy(w http.ResponseWriter, r *http.Request) {
	if h.proxy == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.Session.LoadAuth(r.Context()); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}
	if !h.Session.IsAuthenticated() {
		apierrors.WriteError(w, r, session.ErrNotAuthenticated)
		return
	}

	h.proxy.ServeHTTP(w, r)
}
