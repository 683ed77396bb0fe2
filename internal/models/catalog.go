package models

// Каталог платформы: сообщества, услуги, специалисты, площадки и тарифы.

// Community — сообщество (йога, runners и т.п.).
type Community struct {
	ID                  string `json:"id"`
	Name                string `json:"name"`
	Purpose             string `json:"purpose"`
	ImageURL            string `json:"image_url,omitempty"`
	NumberSubscriptions int64  `json:"number_subscriptions"`
}

// Service — услуга из каталога сообщества.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
	IsVirtual   bool   `json:"is_virtual"`
}

// Professional — специалист, ведущий занятия.
type Professional struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	FirstLastName  string `json:"first_last_name"`
	SecondLastName string `json:"second_last_name,omitempty"`
	Specialty      string `json:"specialty"`
	Email          string `json:"email"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	Type           string `json:"type"`
	ImageURL       string `json:"image_url,omitempty"`
}

// Local — физическая площадка для занятий.
type Local struct {
	ID             string `json:"id"`
	LocalName      string `json:"local_name"`
	StreetName     string `json:"street_name"`
	BuildingNumber string `json:"building_number"`
	District       string `json:"district"`
	Province       string `json:"province"`
	Region         string `json:"region"`
	Capacity       int64  `json:"capacity"`
	ImageURL       string `json:"image_url,omitempty"`
}

// MembershipPlan — тариф подписки на сообщество.
type MembershipPlan struct {
	ID               string  `json:"id"`
	Type             string  `json:"type"` // monthly | annual
	Fee              float64 `json:"fee"`
	ReservationLimit int64   `json:"reservation_limit,omitempty"` // 0 — без лимита
}
