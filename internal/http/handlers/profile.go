package handlers

import (
	"net/http"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/middleware"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
)

// GetProfile отдаёт профиль текущего пользователя.
func (h *Handlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := h.bound(r).Me(r.Context())
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile частично обновляет профиль текущего пользователя.
// id берётся из сессии: чужой профиль через этот маршрут не достать.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in models.UpdateUserRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	sess := middleware.SessionFromContext(r.Context())
	if sess.User == nil {
		apierrors.WriteCode(w, r, http.StatusUnauthorized, "unauthenticated", "authentication required")
		return
	}

	// Обновление идёт через контроллер: он переписывает кэшированный
	// снапшот сессии, чтобы GET /auth/session не отдавал старый профиль.
	store := middleware.StoreFromContext(r.Context())

	user, err := h.Sessions.UpdateProfile(r.Context(), store, sess.User.ID, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
