// errors стандартизирует ответы об ошибках HTTP-слоя порталов.
// На вход он принимает ошибку клиентского/сессионного слоя,
// а на выход даёт:
//   - корректный HTTP-статус;
//   - краткое безопасное message без утечки деталей.
//
// Маппинг:
//   - *zencat.HTTPError — статус/код бэкенда пробрасываются как есть
//     (порталы не перекраивают семантику ошибок апстрима);
//   - zencat.ErrAuthExpired — 401/session_expired (фронт уводит на логин);
//   - session.ErrInvalidCredentials — 401/invalid_credentials;
//   - *zencat.NetworkError — 503/unavailable (бэкенд недоступен);
//   - context.DeadlineExceeded — 504/deadline_exceeded;
//   - context.Canceled — 499 (клиент закрыл соединение);
//   - прочее — 500/internal.
package errors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Нестандартный код, часто используемый для "клиент закрыл соединение".
const StatusClientClosedRequest = 499

// ErrInvalidArgument — локальная ошибка разбора входных данных портала.
var ErrInvalidArgument = errors.New("invalid argument")

// APIError — единый формат для фронта.
// Code — короткий стабильный код для машиночитаемой обработки на FE.
// Message — безопасное человекочитаемое описание.
// RequestID — прокидывается из X-Request-Id, если есть (для трассировки).
type APIError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorResponse — корневой объект в ответе.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// ToHTTP конвертирует ошибку в HTTP-статус и унифицированный ответ.
// err == nil — программная ошибка вызова: возвращаем 500/internal,
// чтобы не послать "200 OK" с телом ошибки и не маскировать баг.
func ToHTTP(err error) (int, ErrorResponse) {
	if err == nil {
		return internalResponse()
	}

	var he *zencat.HTTPError
	if errors.As(err, &he) {
		return he.Status, envelope(he.Code, he.Message)
	}

	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized, envelope("invalid_credentials", "invalid credentials")
	case errors.Is(err, zencat.ErrAuthExpired):
		return http.StatusUnauthorized, envelope("session_expired", "session expired")
	case errors.Is(err, ErrInvalidArgument):
		return http.StatusBadRequest, envelope("invalid_argument", "invalid argument")
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, envelope("deadline_exceeded", "deadline exceeded")
	case errors.Is(err, context.Canceled):
		return StatusClientClosedRequest, envelope("canceled", "canceled")
	}

	var ne *zencat.NetworkError
	if errors.As(err, &ne) {
		return http.StatusServiceUnavailable, envelope("unavailable", "backend unavailable")
	}

	return internalResponse()
}

// WriteError — хелпер для HTTP-хендлеров.
// Пишет корректный статус/тело, добавляет request_id из заголовка, если он есть.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := ToHTTP(err)

	// Прокидываем request_id для фронта, чтобы он мог репортить баги с привязкой.
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteCode пишет ответ-ошибку с явным статусом и кодом (для гвардов,
// у которых нет исходной error: unauthenticated/permission_denied и т.п.).
func WriteCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	resp := envelope(code, message)
	if rid := r.Header.Get("X-Request-Id"); rid != "" {
		resp.Error.RequestID = rid
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func envelope(code, message string) ErrorResponse {
	return ErrorResponse{Error: APIError{Code: code, Message: message}}
}

func internalResponse() (int, ErrorResponse) {
	return http.StatusInternalServerError, envelope("internal", "internal error")
}
