package models

// Входные модели auth-роутов портала.

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SessionResponse — снапшот сессии для фронт-оболочки (GET /session).
type SessionResponse struct {
	Authenticated bool  `json:"authenticated"`
	Loading       bool  `json:"loading"`
	User          *User `json:"user,omitempty"`
}
