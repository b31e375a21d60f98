// Package forgotpassword реализует HTTP-обработчики одноразового процесса
// сброса пароля: создание заявки (POST), проверку ссылки без побочных
// эффектов (GET) и сам сброс (PUT).
//
// Ответы этих ручек имеют собственную форму {code, title, description},
// ожидаемую формой восстановления пароля; HTTP-статус всегда равен полю code.
package forgotpassword

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/agoraplace/auth-service/internal/http/response"
	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/services/auth"
)

// RequestBody — входные данные для создания заявки на сброс.
type RequestBody struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetBody — входные данные для сброса пароля по токену из письма.
type ResetBody struct {
	Token           string `json:"token" validate:"required"`
	OldPassword     string `json:"old_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// Service описывает интерфейс бизнес-логики сброса пароля.
type Service interface {
	ForgotPassword(ctx context.Context, email string) auth.Notice
	ValidateResetToken(ctx context.Context, token string) auth.Notice
	ResetPassword(ctx context.Context, params auth.ResetParams) auth.Notice
}

// Handler обрабатывает HTTP-запросы процесса сброса пароля.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler.
func New(log *slog.Logger, authService Service) *Handler {
	return &Handler{
		log:         log,
		authService: authService,
		validate:    validator.New(),
	}
}

// HandleRequest godoc
// @Summary Заявка на сброс пароля
// @Description Создает одноразовую заявку и отправляет письмо со ссылкой. Для незарегистрированной почты отвечает 202 без создания заявки.
// @Tags Password
// @Accept  json
// @Produce  json
// @Param request body RequestBody true "Почта учетной записи"
// @Success 200 {object} auth.Notice "Заявка создана, письмо отправлено"
// @Success 202 {object} auth.Notice "Почта неизвестна, заявка не создана"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} auth.Notice "Ошибка создания заявки или отправки письма"
// @Router /auth/forgot-password [post]
func (h *Handler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword.request"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req RequestBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	notice := h.authService.ForgotPassword(r.Context(), req.Email)
	log.Info("forgot password handled", slog.Int("code", notice.Code))
	w.WriteHeader(notice.Code)
	render.JSON(w, r, notice)
}

// HandleValidate godoc
// @Summary Проверка ссылки сброса
// @Description Проверяет токен сброса, не потребляя его. Используется формой восстановления перед показом полей.
// @Tags Password
// @Produce  json
// @Param token query string true "Токен сброса"
// @Success 200 {object} auth.Notice "Ссылка действительна"
// @Failure 401 {object} auth.Notice "Токен просрочен или уже использован"
// @Failure 404 {object} auth.Notice "Токен неизвестен"
// @Router /auth/forgot-password [get]
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword.validate"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	token := r.URL.Query().Get("token")

	notice := h.authService.ValidateResetToken(r.Context(), token)
	log.Info("reset token checked", slog.Int("code", notice.Code))
	w.WriteHeader(notice.Code)
	render.JSON(w, r, notice)
}

// HandleReset godoc
// @Summary Сброс пароля
// @Description Потребляет одноразовый токен: проверяет старый пароль по последнему хэшу истории и добавляет новый хэш в историю.
// @Tags Password
// @Accept  json
// @Produce  json
// @Param request body ResetBody true "Токен и пароли"
// @Success 201 {object} auth.Notice "Пароль сброшен"
// @Failure 400 {object} auth.Notice "Отсутствующие или несогласованные пароли"
// @Failure 401 {object} auth.Notice "Токен недействителен, просрочен или уже использован"
// @Failure 404 {object} auth.Notice "Заявка или пользователь не найдены"
// @Failure 409 {object} auth.Notice "Старый пароль не совпадает"
// @Failure 500 {object} auth.Notice "Внутренняя ошибка сервера"
// @Router /auth/forgot-password [put]
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.forgotpassword.reset"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req ResetBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	// Отсутствующие поля отдаются сервису: он отвечает той же формой
	// {code, title, description}, что и остальные исходы сброса.
	notice := h.authService.ResetPassword(r.Context(), auth.ResetParams{
		Token:           req.Token,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	log.Info("password reset handled", slog.Int("code", notice.Code))

	// Успешный сброс отвечает HTTP 201, тело при этом сохраняет code=200.
	status := notice.Code
	if status == http.StatusOK {
		status = http.StatusCreated
	}
	w.WriteHeader(status)
	render.JSON(w, r, notice)
}
