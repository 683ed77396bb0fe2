package handlers

import (
	"net/http"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/middleware"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
)

// Login выполняет вход: токены уезжают в HttpOnly-cookie,
// фронту возвращается только профиль.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in models.LoginRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	store := middleware.StoreFromContext(r.Context())
	sess, err := h.Sessions.Login(r.Context(), store, in.Email, in.Password)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: sess.Authenticated,
		User:          sess.User,
	})
}

// Register создаёт пользователя; успех означает немедленную аутентификацию.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	store := middleware.StoreFromContext(r.Context())
	sess, err := h.Sessions.Register(r.Context(), store, in)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: sess.Authenticated,
		User:          sess.User,
	})
}

// Logout завершает сессию. Ответ всегда успешный: локальная очистка
// cookie выполняется независимо от исхода серверного вызова.
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.Logout(r.Context(), middleware.StoreFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}

// RefreshSession вручную обновляет пару токенов текущей сессии.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Refresh(r.Context(), middleware.StoreFromContext(r.Context())); err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Session отдаёт фронт-оболочке снапшот сессии (bootstrap-эндпойнт).
func (h *Handlers) Session(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromContext(r.Context())

	writeJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: sess.Authenticated,
		Loading:       sess.Loading,
		User:          sess.User,
	})
}
