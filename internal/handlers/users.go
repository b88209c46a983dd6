package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/vertilift/lift-maintenance/internal/auth"
	"github.com/vertilift/lift-maintenance/internal/db"
	"github.com/vertilift/lift-maintenance/internal/middleware"
	"github.com/vertilift/lift-maintenance/internal/models"
)

// UserHandler handles user administration endpoints.
type UserHandler struct {
	users       db.UserCollection
	authService *auth.Service
	log         *logrus.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users db.UserCollection, authService *auth.Service, log *logrus.Logger) *UserHandler {
	return &UserHandler{users: users, authService: authService, log: log}
}

// Create adds a user account on behalf of an administrator. Unlike
// registration it returns no token; the new user logs in themselves.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, ok := createAccount(r.Context(), h.authService, h.users, h.log, req, w)
	if !ok {
		return
	}
	respondData(w, http.StatusCreated, user)
}

// List returns all users, optionally filtered by ?role=.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := bson.M{}
	if role := r.URL.Query().Get("role"); role != "" {
		if !models.IsValidRole(models.Role(role)) {
			respondError(w, http.StatusBadRequest, "Invalid role filter")
			return
		}
		filter["role"] = role
	}

	users, err := h.users.FindUsers(r.Context(), filter)
	if err != nil {
		h.log.WithError(err).Error("Failed to list users")
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondList(w, users, len(users))
}

// ListTechnicians returns every technician account.
func (h *UserHandler) ListTechnicians(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, models.RoleTechnician)
}

// ListClients returns every client account.
func (h *UserHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	h.listByRole(w, r, models.RoleClient)
}

func (h *UserHandler) listByRole(w http.ResponseWriter, r *http.Request, role models.Role) {
	users, err := h.users.FindUsersByRole(r.Context(), role)
	if err != nil {
		h.log.WithError(err).Error("Failed to list users by role")
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}
	respondList(w, users, len(users))
}

// Get returns a single user. Non-admins may only read their own profile.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := mux.Vars(r)["id"]
	if claims.Role != models.RoleAdmin && claims.UserID != id {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	user, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondData(w, http.StatusOK, user)
}

// Update modifies a user profile. Non-admins may only update their own
// profile and may not change role or account status.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	id := mux.Vars(r)["id"]
	if claims.Role != models.RoleAdmin && claims.UserID != id {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	existing, err := h.users.FindUserByID(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}

	var updated models.User
	if !decodeBody(w, r, &updated) {
		return
	}

	// Identity and credential fields are never taken from the payload.
	updated.ID = existing.ID
	updated.Email = existing.Email
	updated.PasswordHash = existing.PasswordHash
	updated.CreatedAt = existing.CreatedAt
	updated.LastLogin = existing.LastLogin
	updated.UpdatedAt = time.Now()

	if claims.Role != models.RoleAdmin {
		updated.Role = existing.Role
		updated.Status = existing.Status
	} else {
		if updated.Role == "" {
			updated.Role = existing.Role
		}
		if !models.IsValidRole(updated.Role) {
			respondError(w, http.StatusBadRequest, "Invalid role")
			return
		}
		if updated.Status == "" {
			updated.Status = existing.Status
		}
		if !models.IsValidUserStatus(updated.Status) {
			respondError(w, http.StatusBadRequest, "Invalid account status")
			return
		}
	}

	if err := h.users.UpdateUser(r.Context(), id, updated); err != nil {
		h.log.WithError(err).Error("Failed to update user")
		respondError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	respondData(w, http.StatusOK, updated)
}

// Delete removes a user account.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.users.DeleteUser(r.Context(), id); err != nil {
		respondError(w, http.StatusNotFound, "User not found")
		return
	}
	respondMessage(w, http.StatusOK, "User deleted")
}
