package middleware

import (
	"net/http"

	apierrors "github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/errors"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/models"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
)

// Decision — исход проверки гварда. Исходы взаимоисключающие и вычисляются
// чистой функцией Decide из снапшота сессии и конфигурации гварда; сам
// side-effect (редирект/отказ) выполняет мидлвар. Гварды никогда не меняют
// ни сессию, ни стор токенов.
type Decision int

const (
	// DecisionAllow — пропустить запрос к защищённому контенту.
	DecisionAllow Decision = iota
	// DecisionWait — сессия ещё разрешается: отдать fallback, не редиректить.
	DecisionWait
	// DecisionRedirect — увести на другой маршрут (не аутентифицирован,
	// либо аутентифицирован на guest-only странице).
	DecisionRedirect
	// DecisionDeny — аутентифицирован, но роль не подходит: отказ без редиректа.
	DecisionDeny
)

// GuardConfig — конфигурация одного гварда.
type GuardConfig struct {
	// RequiredRole — требуемая роль; пустая строка — роль не проверяется.
	RequiredRole models.Role
	// GuestOnly инвертирует проверку: аутентифицированных уводим прочь
	// (страницы логина/регистрации).
	GuestOnly bool
}

// Decide вычисляет исход гварда. Не выполняет никаких side-effect'ов.
func Decide(s session.Session, cfg GuardConfig) Decision {
	if s.Loading {
		return DecisionWait
	}

	if cfg.GuestOnly {
		if s.Authenticated {
			return DecisionRedirect
		}
		return DecisionAllow
	}

	if !s.Authenticated {
		return DecisionRedirect
	}

	if cfg.RequiredRole != "" && (s.User == nil || s.User.Role != cfg.RequiredRole) {
		return DecisionDeny
	}

	return DecisionAllow
}

// RequireAuth пропускает только аутентифицированных.
// loginURL != "" — браузерный редирект на страницу логина;
// loginURL == "" — API-режим: 401 с конвертом ошибки, редиректит сам фронт.
func RequireAuth(loginURL string) Middleware {
	return guard(GuardConfig{}, loginURL)
}

// RequireRole пропускает только аутентифицированных с заданной ролью.
// Несовпадение роли — всегда 403 без редиректа.
func RequireRole(role models.Role, loginURL string) Middleware {
	return guard(GuardConfig{RequiredRole: role}, loginURL)
}

// GuestOnly уводит уже аутентифицированных с guest-only маршрутов
// (логин/регистрация) на homeURL.
func GuestOnly(homeURL string) Middleware {
	return guard(GuardConfig{GuestOnly: true}, homeURL)
}

func guard(cfg GuardConfig, redirectURL string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Decide(SessionFromContext(r.Context()), cfg) {
			case DecisionAllow:
				next.ServeHTTP(w, r)

			case DecisionWait:
				// Fallback вместо контента; редиректа в этом состоянии нет.
				w.Header().Set("Retry-After", "1")
				apierrors.WriteCode(w, r, http.StatusServiceUnavailable,
					"session_loading", "session is being resolved")

			case DecisionRedirect:
				if redirectURL != "" {
					http.Redirect(w, r, redirectURL, http.StatusSeeOther)
					return
				}
				apierrors.WriteCode(w, r, http.StatusUnauthorized,
					"unauthenticated", "authentication required")

			case DecisionDeny:
				apierrors.WriteCode(w, r, http.StatusForbidden,
					"permission_denied", "access denied")
			}
		})
	}
}
