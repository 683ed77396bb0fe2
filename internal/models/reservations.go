package models

// ReservationState — состояние брони.
type ReservationState string

const (
	ReservationConfirmed ReservationState = "confirmed"
	ReservationCancelled ReservationState = "cancelled"
	ReservationDone      ReservationState = "done"
)

// ClassSession — занятие в расписании (окно, на которое бронируются места).
type ClassSession struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Date            string `json:"date"`       // YYYY-MM-DD
	StartTime       string `json:"start_time"` // HH:MM
	EndTime         string `json:"end_time"`   // HH:MM
	Capacity        int64  `json:"capacity"`
	RegisteredCount int64  `json:"registered_count"`
	ProfessionalID  string `json:"professional_id"`
	LocalID         string `json:"local_id,omitempty"`     // пусто для виртуальных занятий
	SessionLink     string `json:"session_link,omitempty"` // ссылка для виртуальных занятий
}

// Reservation — бронь пользователя на занятие.
type Reservation struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	ReservationTime int64            `json:"reservation_time"` // Unix UTC
	State           ReservationState `json:"state"`
	UserID          string           `json:"user_id"`
	SessionID       string           `json:"session_id"`
}
