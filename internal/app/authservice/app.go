// Package authservice собирает приложение сервиса аутентификации:
// подключение к хранилищу, миграции, кэш, почтовый транспорт, эмитент
// токенов и HTTP-сервер.
package authservice

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/agoraplace/auth-service/internal/cache"
	"github.com/agoraplace/auth-service/internal/config"
	customjwt "github.com/agoraplace/auth-service/internal/lib/jwt"
	"github.com/agoraplace/auth-service/internal/lib/smtp"
	"github.com/agoraplace/auth-service/internal/migrations"
	authservice "github.com/agoraplace/auth-service/internal/services/auth"
	senderservice "github.com/agoraplace/auth-service/internal/services/sender"
	"github.com/agoraplace/auth-service/internal/storage/repository"
)

// App хранит собранный HTTP-сервер и ресурсы, требующие закрытия.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
}

// New создает приложение: устанавливает соединения, прогоняет миграции
// и регистрирует маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, err
	}
	if err = migrations.Run(db.DB, "./migrations"); err != nil {
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		return nil, err
	}

	transport := smtp.NewTransport(cfg, logger)
	sender := senderservice.NewSenderService(transport, cfg.FrontendURL, logger)

	jwtMaker := customjwt.NewJWTMaker(
		cfg.AccessSecretKey,
		cfg.RefreshSecretKey,
		cfg.AccessTokenTTL,
		cfg.RefreshTokenTTL,
	)

	authSvc := authservice.NewAuthService(
		db, db, db,
		sender,
		cacheRedis,
		jwtMaker,
		cfg.NotificationPolicy,
		logger,
	)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, authSvc, jwtMaker)

	srv := &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
	}, nil
}

// Run запускает HTTP-сервер и блокируется до его остановки или отмены ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.db.DB.Close()
		return err
	}
}
