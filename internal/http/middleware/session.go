package middleware

import (
	"context"
	"net/http"

	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/cookies"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/session"
	"github.com/Los-Onichan-Kimochi/zen-cat-portal/internal/zencat"
)

type ctxSessionKey struct{}
type ctxStoreKey struct{}

// Session разрешает сессию запроса: привязывает cookie-стор токенов,
// выполняет bootstrap через контроллер и кладёт снапшот сессии и стор
// в контекст. Гварды и хендлеры ниже по цепочке читают их оттуда.
func Session(ctrl *session.Controller, cookieCfg cookies.Config) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := cookies.New(w, r, cookieCfg)
			sess := ctrl.Bootstrap(r.Context(), store)

			ctx := context.WithValue(r.Context(), ctxStoreKey{}, store)
			ctx = context.WithValue(ctx, ctxSessionKey{}, sess)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionFromContext возвращает снапшот сессии запроса.
// До мидлвара Session сессия считается ещё не разрешённой (Loading).
func SessionFromContext(ctx context.Context) session.Session {
	if v := ctx.Value(ctxSessionKey{}); v != nil {
		if s, ok := v.(session.Session); ok {
			return s
		}
	}

	return session.Initializing()
}

// StoreFromContext возвращает стор токенов запроса (nil до мидлвара Session).
func StoreFromContext(ctx context.Context) zencat.TokenStore {
	if v := ctx.Value(ctxStoreKey{}); v != nil {
		if s, ok := v.(zencat.TokenStore); ok {
			return s
		}
	}

	return nil
}
