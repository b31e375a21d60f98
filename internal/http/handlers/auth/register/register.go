// Package register реализует HTTP-обработчик регистрации пользователей.
//
// В нём определяется структура Request для входных данных, выполняется декодирование JSON,
// проверка и валидация полей (включая политику сложности пароля), а также
// делегирование операции сервису аутентификации. При успехе возвращается
// HTTP 201 с идентификатором и почтой созданного пользователя; подтверждение
// почты выполняется отдельной ручкой по ссылке из письма.
package register

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/agoraplace/auth-service/internal/http/response"
	"github.com/agoraplace/auth-service/internal/lib/password"
	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/agoraplace/auth-service/internal/services/auth"
)

// Request — входные данные для регистрации.
//
// Пароль проверяется политикой сложности: минимум 12 символов, строчные и
// прописные буквы, цифры и спецсимволы.
type Request struct {
	Email          string `json:"email" validate:"required,email"`
	Password       string `json:"password" validate:"required,password_strength"`
	Firstname      string `json:"firstname" validate:"required,max=100"`
	Lastname       string `json:"lastname" validate:"required,max=100"`
	PhoneNumber    string `json:"phone_number" validate:"omitempty,max=30"`
	IsCguAccepted  bool   `json:"is_cgu_accepted"`
	IsVgclAccepted bool   `json:"is_vgcl_accepted"`
	OrganizationID string `json:"organization_id" validate:"omitempty,uuid"`
}

// Service описывает интерфейс бизнес-логики регистрации.
type Service interface {
	Register(ctx context.Context, params auth.RegisterParams) (*auth.RegisterResult, error)
}

// Handler обрабатывает HTTP-запросы регистрации.
type Handler struct {
	log         *slog.Logger
	authService Service
	validate    *validator.Validate
}

// New создает новый экземпляр Handler с указанными логгером и сервисом.
//
// Инициализирует валидатор и регистрирует проверку сложности пароля.
func New(log *slog.Logger, authService Service) *Handler {
	v := validator.New()
	_ = v.RegisterValidation("password_strength", func(fl validator.FieldLevel) bool {
		return password.CheckPolicy(fl.Field().String()) == nil
	})
	return &Handler{
		log:         log,
		authService: authService,
		validate:    v,
	}
}

// ServeHTTP godoc
// @Summary Регистрация пользователя
// @Description Создает учетную запись и отправляет письмо для подтверждения почты.
// @Tags Auth
// @Accept  json
// @Produce  json
// @Param request body Request true "Данные нового пользователя"
// @Success 201 {object} response.Response "Пользователь создан"
// @Failure 400 {object} response.ErrorResponse "Некорректный JSON"
// @Failure 409 {object} response.ErrorResponse "Почта уже занята"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Failure 500 {object} response.ErrorResponse "Внутренняя ошибка сервера"
// @Router /auth/register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	log.Info("request body decoded", slog.String("email", req.Email))

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}
	log.Info("all fields are validated")

	var organizationID *string
	if req.OrganizationID != "" {
		organizationID = &req.OrganizationID
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterParams{
		Email:          req.Email,
		Password:       req.Password,
		Firstname:      req.Firstname,
		Lastname:       req.Lastname,
		PhoneNumber:    req.PhoneNumber,
		IsCguAccepted:  req.IsCguAccepted,
		IsVgclAccepted: req.IsVgclAccepted,
		OrganizationID: organizationID,
	})
	if errors.Is(err, auth.ErrEmailTaken) {
		log.Error("email already registered")
		w.WriteHeader(http.StatusConflict)
		render.JSON(w, r, response.Error("email already registered"))
		return
	}
	if err != nil {
		log.Error("registration failed", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to register user"))
		return
	}

	log.Info("user registered", slog.String("uid", result.UID))
	w.WriteHeader(http.StatusCreated)
	render.JSON(w, r, response.OKWithData(result))
}
