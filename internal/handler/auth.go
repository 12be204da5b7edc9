package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/pos-platform/internal/auth"
	"github.com/vasiliy-maslov/pos-platform/internal/user"
)

type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role" validate:"required"`
	TenantID *string `json:"tenant_id,omitempty" validate:"omitempty,uuid4"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UserResponse struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Role      auth.Role  `json:"role"`
	TenantID  *uuid.UUID `json:"tenant_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type LoginResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

type AuthHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewAuthHandler(service user.Service) *AuthHandler {
	return &AuthHandler{service: service, validate: validator.New()}
}

func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Post("/auth/register", h.handleRegister)
	router.Post("/auth/login", h.handleLogin)
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	principal, ok := requirePermission(w, r, "users", "create")
	if !ok {
		return
	}

	var requestPayload RegisterRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode register request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	domainUser := user.User{
		Email: requestPayload.Email,
		Role:  auth.Role(requestPayload.Role),
	}

	if principal.Superuser {
		if requestPayload.TenantID != nil {
			tenantID, err := uuid.FromString(*requestPayload.TenantID)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid tenant_id parameter")
				return
			}
			domainUser.TenantID = &tenantID
		}
	} else {
		// Tenant administrators only ever provision accounts inside their
		// own tenant; the request cannot point the account elsewhere.
		if principal.TenantID == nil {
			respondWithError(w, http.StatusForbidden, "Permission denied")
			return
		}
		if requestPayload.TenantID != nil {
			requested, err := uuid.FromString(*requestPayload.TenantID)
			if err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid tenant_id parameter")
				return
			}
			if requested != *principal.TenantID {
				respondWithError(w, http.StatusForbidden, "Permission denied")
				return
			}
		}
		tenantID := *principal.TenantID
		domainUser.TenantID = &tenantID
	}

	created, err := h.service.Register(r.Context(), &domainUser, requestPayload.Password)
	if err != nil {
		statusCode := mapErrorToStatusCode(err)
		clientMessage := "Failed to register user"
		if errors.Is(err, user.ErrEmailExists) {
			clientMessage = "Email already exists"
		} else if statusCode == http.StatusInternalServerError {
			log.Error().Err(err).Msg("Failed to register user via service")
		} else {
			clientMessage = err.Error()
		}
		respondWithError(w, statusCode, clientMessage)
		return
	}

	respondWithJSON(w, http.StatusCreated, UserResponse{
		ID:        created.ID,
		Email:     created.Email,
		Role:      created.Role,
		TenantID:  created.TenantID,
		CreatedAt: created.CreatedAt,
	})
}

func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var requestPayload LoginRequest

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&requestPayload); err != nil {
		log.Warn().Err(err).Msg("Failed to decode login request")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	if err := h.validate.Struct(requestPayload); err != nil {
		respondWithValidationError(w, err)
		return
	}

	token, loggedIn, err := h.service.Login(r.Context(), requestPayload.Email, requestPayload.Password)
	if err != nil {
		if errors.Is(err, user.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		log.Error().Err(err).Msg("Failed to log user in via service")
		respondWithError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	respondWithJSON(w, http.StatusOK, LoginResponse{
		Token: token,
		User: UserResponse{
			ID:        loggedIn.ID,
			Email:     loggedIn.Email,
			Role:      loggedIn.Role,
			TenantID:  loggedIn.TenantID,
			CreatedAt: loggedIn.CreatedAt,
		},
	})
}
