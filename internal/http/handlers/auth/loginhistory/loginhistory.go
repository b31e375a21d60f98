// Package loginhistory реализует HTTP-обработчик журнала входов.
//
// Обычный пользователь получает только собственные события; пользователь с
// ролью супер-администратора — события всех учетных записей.
package loginhistory

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/agoraplace/auth-service/internal/http/middlewarectx"
	"github.com/agoraplace/auth-service/internal/http/response"
	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/models"
	"github.com/agoraplace/auth-service/internal/services/auth"
)

// Service описывает интерфейс бизнес-логики журнала входов.
type Service interface {
	LoginHistory(ctx context.Context, caller models.Identity) ([]*models.LoginEvent, error)
}

// Handler обрабатывает HTTP-запросы журнала входов.
type Handler struct {
	log         *slog.Logger
	authService Service
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
	}
}

// ServeHTTP godoc
// @Summary Журнал входов
// @Description Возвращает события входа вызывающего; супер-администратору — события всех пользователей.
// @Tags Auth
// @Produce  json
// @Security BearerAuth
// @Success 200 {object} response.Response "Список событий входа"
// @Failure 401 {object} response.ErrorResponse "Отсутствует или недействительный токен"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/login-history [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.loginhistory"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	caller, ok := middlewarectx.IdentityFromContext(r.Context())
	if !ok {
		log.Error("caller identity missing")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}

	events, err := h.authService.LoginHistory(r.Context(), caller)
	if errors.Is(err, auth.ErrUnauthorized) {
		log.Error("unauthorized login history access")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return
	}
	if err != nil {
		log.Error("failed to list login history", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("internal server error"))
		return
	}

	log.Info("login history listed", slog.Int("count", len(events)))
	render.JSON(w, r, response.OKWithData(events))
}
