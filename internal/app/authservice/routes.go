// Package authservice предоставляет маршруты сервиса аутентификации.
package authservice

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/time/rate"

	"github.com/agoraplace/auth-service/internal/http/handlers/auth/forgotpassword"
	"github.com/agoraplace/auth-service/internal/http/handlers/auth/login"
	"github.com/agoraplace/auth-service/internal/http/handlers/auth/loginhistory"
	"github.com/agoraplace/auth-service/internal/http/handlers/auth/refreshtoken"
	"github.com/agoraplace/auth-service/internal/http/handlers/auth/register"
	"github.com/agoraplace/auth-service/internal/http/handlers/auth/verifyemail"
	"github.com/agoraplace/auth-service/internal/http/middlewarectx"
	authservice "github.com/agoraplace/auth-service/internal/services/auth"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, authSvc *authservice.AuthService, tokenParser middlewarectx.TokenParser) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	limiter := rate.NewLimiter(10, 30)

	r.Route("/api/v1/auth", func(r chi.Router) {
		// Открытые конечные точки, ограниченные по частоте
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, limiter))
			r.Post("/register", register.New(logger, authSvc).ServeHTTP)
			r.Get("/verify-email", verifyemail.New(logger, authSvc).ServeHTTP)
			r.Post("/login", login.New(logger, authSvc).ServeHTTP)
			r.Post("/refresh-token", refreshtoken.New(logger, authSvc).ServeHTTP)

			fp := forgotpassword.New(logger, authSvc)
			r.Post("/forgot-password", fp.HandleRequest)
			r.Get("/forgot-password", fp.HandleValidate)
			r.Put("/forgot-password", fp.HandleReset)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(tokenParser, logger))
			r.Get("/login-history", loginhistory.New(logger, authSvc).ServeHTTP)
		})
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
