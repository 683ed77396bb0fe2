package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cookies"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/handlers"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/http/middleware"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

// Options — параметры сборки HTTP-роутера портала.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	Cookies  cookies.Config
	BasePath string // например, "/api"; если пустой — защищённые роуты регистрируются на корне.
}

// NewAdminRouter собирает роутер админ-консоли: все защищённые роуты
// требуют роль admin, несоответствие роли — 403 без редиректа.
func NewAdminRouter(client *zencat.Client, ctrl *session.Controller, opts Options) http.Handler {
	root := newRouter(ctrl, opts)
	h := handlers.New(client, ctrl)

	registerAuthRoutes(root, h)

	api := chi.NewRouter()
	api.Use(middleware.RequireRole(models.RoleAdmin, ""))
	registerAdminRoutes(api, h)
	mount(root, api, opts.BasePath)

	return root
}

// NewUserRouter собирает роутер пользовательского портала: каталог и
// собственные брони, защищённые роуты требуют только аутентификацию.
func NewUserRouter(client *zencat.Client, ctrl *session.Controller, opts Options) http.Handler {
	root := newRouter(ctrl, opts)
	h := handlers.New(client, ctrl)

	registerAuthRoutes(root, h)

	api := chi.NewRouter()
	api.Use(middleware.RequireAuth(""))
	registerUserRoutes(api, h)
	mount(root, api, opts.BasePath)

	return root
}

// newRouter — общая часть обоих порталов: цепочка middleware и сессия.
func newRouter(ctrl *session.Controller, opts Options) *chi.Mux {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),                   // безопасно ловим паники
		middleware.RequestID(),                 // формируем/прокидываем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger),        // кладём request-scoped логгер в контекст и логируем
		middleware.Session(ctrl, opts.Cookies), // восстанавливаем сессию из cookie на каждый запрос
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	return root
}

func mount(root *chi.Mux, api chi.Router, basePath string) {
	if basePath != "" {
		root.Mount(basePath, api)
		return
	}
	root.Mount("/", api)
}

// registerAuthRoutes — вход/регистрация/выход и снимок сессии.
// Логин и регистрация закрыты от уже вошедших (GuestOnly).
func registerAuthRoutes(r chi.Router, h *handlers.Handlers) {
	r.Group(func(g chi.Router) {
		g.Use(middleware.GuestOnly(""))
		g.Post("/auth/login", h.Login)
		g.Post("/auth/register", h.Register)
	})

	r.Post("/auth/logout", h.Logout)
	r.Post("/auth/refresh", h.RefreshSession)
	r.Get("/auth/session", h.Session)
}

// registerAdminRoutes — полный CRUD по каталогу, расписанию, броням
// и пользователям.
func registerAdminRoutes(r chi.Router, h *handlers.Handlers) {
	registerCRUD[models.Community](r, h, "/communities", zencat.PathCommunities)
	registerCRUD[models.Service](r, h, "/services", zencat.PathServices)
	registerCRUD[models.Professional](r, h, "/professionals", zencat.PathProfessionals)
	registerCRUD[models.Local](r, h, "/locals", zencat.PathLocals)
	registerCRUD[models.MembershipPlan](r, h, "/membership-plans", zencat.PathMembershipPlans)
	registerCRUD[models.ClassSession](r, h, "/sessions", zencat.PathSessions)
	registerCRUD[models.Reservation](r, h, "/reservations", zencat.PathReservations)
	registerCRUD[models.User](r, h, "/users", zencat.PathUsers)
}

// registerUserRoutes — каталог только на чтение, собственные брони и профиль.
func registerUserRoutes(r chi.Router, h *handlers.Handlers) {
	registerReadOnly[models.Community](r, h, "/communities", zencat.PathCommunities)
	registerReadOnly[models.Service](r, h, "/services", zencat.PathServices)
	registerReadOnly[models.Professional](r, h, "/professionals", zencat.PathProfessionals)
	registerReadOnly[models.Local](r, h, "/locals", zencat.PathLocals)
	registerReadOnly[models.MembershipPlan](r, h, "/membership-plans", zencat.PathMembershipPlans)
	registerReadOnly[models.ClassSession](r, h, "/sessions", zencat.PathSessions)

	r.Get("/reservations", h.ListMyReservations)
	r.Post("/reservations", h.CreateMyReservation)
	r.Post("/reservations/{id}/cancel", h.CancelMyReservation)

	r.Get("/profile", h.GetProfile)
	r.Patch("/profile", h.UpdateProfile)
}

func registerCRUD[T any](r chi.Router, h *handlers.Handlers, route, upstream string) {
	r.Get(route, handlers.List[T](h, upstream))
	r.Post(route, handlers.Create[T](h, upstream))
	r.Post(route+"/bulk-create", handlers.BulkCreate[T](h, upstream))
	r.Post(route+"/bulk-delete", handlers.BulkDelete[T](h, upstream))
	r.Get(route+"/{id}", handlers.GetByID[T](h, upstream))
	r.Patch(route+"/{id}", handlers.Update[T](h, upstream))
	r.Delete(route+"/{id}", handlers.Remove[T](h, upstream))
}

func registerReadOnly[T any](r chi.Router, h *handlers.Handlers, route, upstream string) {
	r.Get(route, handlers.List[T](h, upstream))
	r.Get(route+"/{id}", handlers.GetByID[T](h, upstream))
}
