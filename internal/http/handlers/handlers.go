package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/middleware"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Handlers агрегирует зависимости HTTP-слоя портала.
type Handlers struct {
	Client   *zencat.Client
	Sessions *session.Controller
}

func New(client *zencat.Client, sessions *session.Controller) *Handlers {
	return &Handlers{Client: client, Sessions: sessions}
}

// bound возвращает клиент, привязанный к стору токенов текущего запроса.
func (h *Handlers) bound(r *http.Request) *zencat.Client {
	if store := middleware.StoreFromContext(r.Context()); store != nil {
		return h.Client.WithStore(store)
	}

	return h.Client
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		return fmt.Errorf("%w: %v", apierrors.ErrInvalidArgument, err)
	}
	return nil
}
