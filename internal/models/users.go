// models — REST-модели портального слоя, зеркалят JSON бэкенда zen-cat.
package models

// Role — роль пользователя в платформе.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

// User — профиль пользователя, как его отдаёт бэкенд.
// Клиентский слой считает запись неизменяемой: обновление профиля
// всегда заменяет объект целиком (PATCH /users/{id}/ -> новый User).
type User struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	Role        Role     `json:"role"`
	Permissions []string `json:"permissions,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	PhoneNumber string   `json:"phone_number,omitempty"`
	District    string   `json:"district,omitempty"`
	CreatedAt   int64    `json:"created_at,omitempty"` // Unix UTC
	UpdatedAt   int64    `json:"updated_at,omitempty"` // Unix UTC
}

// UpdateUserRequest — запрос на изменение профиля; пустые поля не трогаются.
type UpdateUserRequest struct {
	Name        string `json:"name,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
	District    string `json:"district,omitempty"`
}
