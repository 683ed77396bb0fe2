package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/middleware"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Брони пользовательского портала: маршруты работают только с бронями
// текущего пользователя. Полный CRUD по всем броням есть в админ-консоли.

type createReservationRequest struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name,omitempty"`
}

type patchReservationState struct {
	State models.ReservationState `json:"state"`
}

// ListMyReservations возвращает брони текущего пользователя.
func (h *Handlers) ListMyReservations(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess.User == nil {
		apierrors.WriteCode(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	q := r.URL.Query()
	q.Set("user_id", sess.User.ID)

	svc := zencat.NewResource[models.Reservation](h.bound(r), zencat.PathReservations)

	env, err := svc.List(r.Context(), q)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, env)
}

// CreateMyReservation бронирует место на занятие для текущего пользователя.
// user_id в теле не принимается: бронь всегда на себя.
func (h *Handlers) CreateMyReservation(w http.ResponseWriter, r *http.Request) {
	var in createReservationRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	if sess.User == nil {
		apierrors.WriteCode(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	name := in.Name
	if name == "" {
		name = sess.User.Name
	}

	body := models.Reservation{
		Name:      name,
		UserID:    sess.User.ID,
		SessionID: in.SessionID,
	}

	svc := zencat.NewResource[models.Reservation](h.bound(r), zencat.PathReservations)

	out, err := svc.Create(r.Context(), body)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, out)
}

// CancelMyReservation переводит бронь текущего пользователя в cancelled.
// Чужая бронь неотличима от несуществующей (404, не 403).
func (h *Handlers) CancelMyReservation(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())
	if sess.User == nil {
		apierrors.WriteCode(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	id := chi.URLParam(r, "id")
	svc := zencat.NewResource[models.Reservation](h.bound(r), zencat.PathReservations)

	cur, err := svc.Get(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	if cur.UserID != sess.User.ID {
		apierrors.WriteCode(w, r, http.StatusNotFound, "not_found", "not found")
		return
	}

	out, err := svc.Update(r.Context(), id, patchReservationState{State: models.ReservationCancelled})
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
