// devserver — автономный dev-бэкенд zen-cat: REST API с завершающими
// слэшами, JWT-доступом и ротацией refresh-токенов поверх SQLite.
// Поднимается одной командой и заменяет настоящий бэкенд при локальной
// разработке порталов.
package devserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
)

// Config — параметры dev-бэкенда.
type Config struct {
	JWTSecret  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// Server — dev-бэкенд целиком: хранилище, выпуск токенов и маршруты.
type Server struct {
	cfg   Config
	store *Storage
	log   *slog.Logger
}

// collections — коллекции каталога, доступные через generic CRUD.
// users обслуживается отдельно (таблица пользователей, а не документы).
var collections = map[string]bool{
	"communities":      true,
	"services":         true,
	"professionals":    true,
	"locals":           true,
	"membership-plans": true,
	"sessions":         true,
	"reservations":     true,
}

func New(cfg Config, store *Storage, log *slog.Logger) *Server {
	if cfg.Issuer == "" {
		cfg.Issuer = "zen-cat-dev"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 720 * time.Hour
	}

	return &Server{cfg: cfg, store: store, log: log}
}

// Router собирает маршруты API. Все пути заканчиваются слэшом.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Post("/login/", s.handleLogin)
	r.Post("/register/", s.handleRegister)
	r.Post("/auth/refresh/", s.handleRefresh)
	r.Post("/auth/logout/", s.handleLogout)

	r.Group(func(g chi.Router) {
		g.Use(s.requireAuth)

		g.Get("/me/", s.handleMe)

		g.Get("/users/", s.handleListUsers)
		g.Get("/users/{id}/", s.handleGetUser)
		g.Patch("/users/{id}/", s.handlePatchUser)

		g.Get("/{collection}/", s.handleList)
		g.Post("/{collection}/", s.handleCreate)
		g.Post("/{collection}/bulk-create/", s.handleBulkCreate)
		g.Delete("/{collection}/bulk-delete/", s.handleBulkDelete)
		g.Get("/{collection}/{id}/", s.handleGet)
		g.Patch("/{collection}/{id}/", s.handlePatch)
		g.Delete("/{collection}/{id}/", s.handleDelete)
	})

	return r
}

type ctxUserKey struct{}

// requireAuth проверяет Bearer access-токен и кладёт пользователя в контекст.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("Authorization")
		parts := strings.SplitN(raw, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			s.writeError(w, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}

		userID, err := s.validateAccessToken(parts[1])
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "unauthenticated", "invalid or expired token")
			return
		}

		u, err := s.store.UserByID(r.Context(), userID)
		if err != nil {
			s.writeError(w, http.StatusUnauthorized, "unauthenticated", "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxUserKey{}, u)))
	})
}

func currentUser(ctx context.Context) *userRecord {
	u, _ := ctx.Value(ctxUserKey{}).(*userRecord)
	return u
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		s.log.Warn("response_encode_failed", slog.String("err", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	type apiError struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	s.writeJSON(w, status, struct {
		Error apiError `json:"error"`
	}{Error: apiError{Code: code, Message: message}})
}

func toUser(u *userRecord) models.User {
	return models.User{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        models.Role(u.Role),
		AvatarURL:   u.AvatarURL,
		PhoneNumber: u.PhoneNumber,
		District:    u.District,
		CreatedAt:   u.CreatedAt.Unix(),
		UpdatedAt:   u.UpdatedAt.Unix(),
	}
}

// Seed наполняет пустую базу админом, демо-пользователем и демо-каталогом.
func (s *Server) Seed(ctx context.Context) error {
	if _, err := s.store.UserByEmail(ctx, "admin@zen-cat.dev"); err == nil {
		return nil // уже засеяно
	}

	now := time.Now().UTC()

	seedUser := func(email, password, name, role string) error {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return s.store.CreateUser(ctx, &userRecord{
			ID:           uuid.NewString(),
			Email:        email,
			PasswordHash: string(hash),
			Name:         name,
			Role:         role,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := seedUser("admin@zen-cat.dev", "admin123", "Dev Admin", string(models.RoleAdmin)); err != nil {
		return err
	}
	if err := seedUser("demo@zen-cat.dev", "demo123", "Demo User", string(models.RoleUser)); err != nil {
		return err
	}

	seedDoc := func(collection string, value any) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		id, _ := docID(data)
		return s.store.PutDoc(ctx, collection, id, data)
	}

	community := models.Community{ID: uuid.NewString(), Name: "Zen Runners", Purpose: "Беговое сообщество"}
	if err := seedDoc("communities", community); err != nil {
		return err
	}

	professional := models.Professional{ID: uuid.NewString(), Name: "Ana", FirstLastName: "Torres", Specialty: "Yoga", Type: "MEDIC"}
	if err := seedDoc("professionals", professional); err != nil {
		return err
	}

	session := models.ClassSession{
		ID:             uuid.NewString(),
		Title:          "Morning Yoga",
		Date:           now.Format("2006-01-02"),
		StartTime:      "08:00",
		EndTime:        "09:00",
		Capacity:       20,
		ProfessionalID: professional.ID,
	}
	return seedDoc("sessions", session)
}
