// zencat — HTTP-клиент REST-бэкенда zen-cat с жизненным циклом токенов:
// прикрепление bearer-кредов, персистентное хранение пары токенов и
// прозрачный однократный retry после успешного тихого refresh на 401.
package zencat

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthExpired — терминальный исход неудачного тихого refresh:
	// токены очищены, сессию нужно переводить в UNAUTHENTICATED.
	ErrAuthExpired = errors.New("auth expired")
)

// HTTPError — ответ бэкенда с не-2xx статусом (кроме 401, погашенного refresh).
// Code — короткий машиночитаемый код из конверта ошибки бэкенда,
// Message — безопасное человекочитаемое описание.
type HTTPError struct {
	Status  int
	Code    string
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("backend: %d %s: %s", e.Status, e.Code, e.Message)
}

// NetworkError — запрос не дошёл до бэкенда (offline/DNS/timeout).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network: %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// errorEnvelope — конверт ошибки бэкенда: {"error":{"code","message"}}.
type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// httpError строит *HTTPError из тела ответа.
// Чужие формы тела не считаются ошибкой разбора: статус всегда сохраняется,
// code выводится из статуса, message — из тела, если получилось.
func httpError(status int, body []byte) *HTTPError {
	he := &HTTPError{
		Status:  status,
		Code:    codeFromStatus(status),
		Message: http.StatusText(status),
	}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Code != "" {
		he.Code = env.Error.Code
		if env.Error.Message != "" {
			he.Message = env.Error.Message
		}
	}

	return he
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusUnauthorized:
		return "unauthenticated"
	case http.StatusForbidden:
		return "permission_denied"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "already_exists"
	case http.StatusTooManyRequests:
		return "resource_exhausted"
	case http.StatusServiceUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}
