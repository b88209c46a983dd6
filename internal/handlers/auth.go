package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vertilift/lift-maintenance/internal/auth"
	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
)

// AuthHandler handles registration, login and the current-user endpoint.
type AuthHandler struct {
	authService *auth.Service
	users       db.UserCollection
	log         *logrus.Logger
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(authService *auth.Service, users db.UserCollection, log *logrus.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, users: users, log: log}
}

// createAccount validates a registration request, hashes the password and
// inserts the account. Shared by self-registration and admin user creation.
func createAccount(ctx context.Context, authService *auth.Service, users db.UserCollection, log *logrus.Logger, req models.RegisterRequest, w http.ResponseWriter) (*models.User, bool) {
	if err := authService.ValidateName(req.Name); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err := authService.ValidateEmail(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err := authService.ValidatePassword(req.Password); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}
	if !models.IsValidRole(req.Role) {
		respondError(w, http.StatusBadRequest, "Invalid role")
		return nil, false
	}

	if _, err := users.FindUserByEmail(ctx, req.Email); err == nil {
		respondError(w, http.StatusConflict, "Email is already registered")
		return nil, false
	} else if !errors.Is(err, db.ErrNotFound) {
		respondError(w, http.StatusInternalServerError, "Failed to check existing users")
		return nil, false
	}

	hash, err := authService.HashPassword(req.Password)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to hash password")
		return nil, false
	}

	now := time.Now()
	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Phone:        req.Phone,
		Address:      req.Address,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	id, err := users.InsertUser(ctx, user)
	if err != nil {
		log.WithError(err).Error("Failed to insert user")
		respondError(w, http.StatusInternalServerError, "Failed to create user")
		return nil, false
	}
	user.ID = id
	return &user, true
}

// Register creates a new user account and returns a token for it.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := createAccount(r.Context(), h.authService, h.users, h.log, req, w)
	if !ok {
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	respondData(w, http.StatusCreated, models.LoginResponse{Token: token, User: *user})
}

// Login authenticates a user by email and password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.users.FindUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if user.Status == models.UserStatusInactive {
		respondError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}
	if !h.authService.CheckPassword(req.Password, user.PasswordHash) {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	if err := h.users.UpdateLastLogin(r.Context(), user.ID.Hex()); err != nil {
		h.log.WithError(err).Warn("Failed to update last login")
	}

	respondData(w, http.StatusOK, models.LoginResponse{Token: token, User: *user})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	user, err := h.users.FindUserByID(r.Context(), claims.UserID)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondData(w, http.StatusOK, user)
}
