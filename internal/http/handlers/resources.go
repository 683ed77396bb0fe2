package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Обобщённые прокси-хендлеры CRUD: портал не перекраивает ресурсы бэкенда,
// а пробрасывает их с типовой валидацией формы и единым конвертом ошибок.
// Параметр T фиксирует форму ресурса, base — путь коллекции бэкенда.

// List проксирует листинг; query уходит бэкенду как есть.
func List[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := zencat.NewResource[T](h.bound(r), base)

		env, err := svc.List(r.Context(), r.URL.Query())
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, env)
	}
}

// GetByID проксирует получение объекта по id.
func GetByID[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := zencat.NewResource[T](h.bound(r), base)

		out, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// Create строго декодирует тело в T (неизвестные поля — 400) и создаёт объект.
func Create[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in T
		if err := decodeStrict(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		svc := zencat.NewResource[T](h.bound(r), base)

		out, err := svc.Create(r.Context(), in)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, out)
	}
}

// Update проксирует частичное обновление. Тело уходит бэкенду как есть
// (PATCH-семантика: присланы только изменяемые поля), поэтому здесь
// только проверка, что это валидный JSON.
func Update[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch json.RawMessage
		if err := decodeStrict(r, &patch); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		svc := zencat.NewResource[T](h.bound(r), base)

		out, err := svc.Update(r.Context(), chi.URLParam(r, "id"), patch)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, out)
	}
}

// Remove проксирует удаление объекта.
func Remove[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc := zencat.NewResource[T](h.bound(r), base)

		if err := svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// BulkCreate создаёт пачку объектов одним вызовом.
func BulkCreate[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in []T
		if err := decodeStrict(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		svc := zencat.NewResource[T](h.bound(r), base)

		env, err := svc.BulkCreate(r.Context(), in)
		if err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, env)
	}
}

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BulkDelete удаляет пачку объектов по id.
func BulkDelete[T any](h *Handlers, base string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in bulkDeleteRequest
		if err := decodeStrict(r, &in); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		svc := zencat.NewResource[T](h.bound(r), base)

		if err := svc.BulkDelete(r.Context(), in.IDs); err != nil {
			apierrors.WriteError(w, r, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}
