package user

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/redmonkez12/go-blog-api/internal/auth"
	"github.com/redmonkez12/go-blog-api/internal/httputil"
	"github.com/redmonkez12/go-blog-api/internal/logging"
)

// PostCacheInvalidator drops cached post listings after account deletion
// removes the user's posts.
type PostCacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler contains HTTP handlers for registration, login, and /users/me.
type Handler struct {
	service       *Service
	postCache     PostCacheInvalidator
	isDevelopment bool
}

func NewHandler(service *Service, postCache PostCacheInvalidator, isDevelopment bool) *Handler {
	return &Handler{
		service:       service,
		postCache:     postCache,
		isDevelopment: isDevelopment,
	}
}

// CredentialsRequest is the register/login request body
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest is the PUT /users/me request body
type UpdateProfileRequest struct {
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Password        *string `json:"password"`
	CurrentPassword *string `json:"currentPassword"`
}

// DeleteAccountRequest is the DELETE /users/me request body
type DeleteAccountRequest struct {
	Password string `json:"password"`
}

// UserResponse is the user summary embedded in auth responses
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// AuthResponse is the register/login success body
type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// ProfileResponse is the /users/me success body
type ProfileResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      *string   `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	PostCount int       `json:"postCount"`
}

func newUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
	}
}

func newProfileResponse(u *User, postCount int) ProfileResponse {
	return ProfileResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
		PostCount: postCount,
	}
}

// Register handles user registration
// @Summary      Register a new user
// @Description  Create an account with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body CredentialsRequest true "Registration credentials"
// @Success      201 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      409 {object} httputil.ErrorResponse "Email already exists"
// @Router       /auth/register [post]
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	newUser, token, err := h.service.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCredentials):
			httputil.RespondError(w, "Validation error", "Email and password are required", http.StatusBadRequest)
		case errors.Is(err, auth.ErrPasswordTooShort):
			httputil.RespondError(w, "Validation error", "Password must be at least 6 characters long", http.StatusBadRequest)
		case errors.Is(err, ErrDuplicateEmail):
			logger.Warn("registration failed: email already exists")
			httputil.RespondError(w, "User already exists", "A user with this email already exists", http.StatusConflict)
		default:
			logger.Error("registration failed", "error", err.Error())
			h.respondInternal(w, "Failed to create user", err)
		}
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)

	httputil.RespondJSON(w, AuthResponse{User: newUserResponse(newUser), Token: token}, http.StatusCreated)
}

// Login handles user login
// @Summary      User login
// @Description  Authenticate with email and password and receive a bearer token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        request body CredentialsRequest true "Login credentials"
// @Success      200 {object} AuthResponse
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Invalid credentials"
// @Router       /auth/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	existing, token, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrMissingCredentials):
			httputil.RespondError(w, "Validation error", "Email and password are required", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidCredentials):
			logger.Warn("login failed: invalid credentials")
			httputil.RespondError(w, "Authentication failed", "Invalid email or password", http.StatusUnauthorized)
		default:
			logger.Error("login failed", "error", err.Error())
			h.respondInternal(w, "Failed to authenticate user", err)
		}
		return
	}

	logger.Info("user logged in", "user_id", existing.ID)

	httputil.RespondJSON(w, AuthResponse{User: newUserResponse(existing), Token: token}, http.StatusOK)
}

// Me returns the current user's profile
// @Summary      Current user profile
// @Description  Return the authenticated user's profile and post count
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} ProfileResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Failure      404 {object} httputil.ErrorResponse "Account no longer exists"
// @Router       /users/me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Authentication required", "You must be logged in to access this resource", http.StatusUnauthorized)
		return
	}

	u, postCount, err := h.service.Profile(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A valid token can outlive its account
			httputil.RespondError(w, "User not found", "User account no longer exists", http.StatusNotFound)
			return
		}
		logger.Error("failed to fetch profile", "error", err.Error())
		h.respondInternal(w, "Failed to fetch user information", err)
		return
	}

	httputil.RespondJSON(w, newProfileResponse(u, postCount), http.StatusOK)
}

// UpdateMe updates the current user's profile
// @Summary      Update profile
// @Description  Update name, email, or password. Changing the password requires the current password.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body UpdateProfileRequest true "Fields to update"
// @Success      200 {object} map[string]any
// @Failure      400 {object} httputil.ErrorResponse "Validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Failure      409 {object} httputil.ErrorResponse "Email already taken"
// @Router       /users/me [put]
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Authentication required", "You must be logged in to update your profile", http.StatusUnauthorized)
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	updated, postCount, err := h.service.UpdateProfile(r.Context(), identity.UserID, ProfileUpdate{
		Name:            req.Name,
		Email:           req.Email,
		Password:        req.Password,
		CurrentPassword: req.CurrentPassword,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrNoFieldsToUpdate):
			httputil.RespondError(w, "Validation error", "At least one field (name, email, or password) must be provided", http.StatusBadRequest)
		case errors.Is(err, ErrNameTooShort):
			httputil.RespondError(w, "Validation error", "Name must be at least 2 characters long", http.StatusBadRequest)
		case errors.Is(err, ErrInvalidEmail):
			httputil.RespondError(w, "Validation error", "Please provide a valid email address", http.StatusBadRequest)
		case errors.Is(err, ErrDuplicateEmail):
			httputil.RespondError(w, "Email already exists", "This email is already registered to another account", http.StatusConflict)
		case errors.Is(err, ErrCurrentPasswordRequired):
			httputil.RespondError(w, "Validation error", "Current password is required to set a new password", http.StatusBadRequest)
		case errors.Is(err, ErrCurrentPasswordIncorrect):
			httputil.RespondError(w, "Authentication failed", "Current password is incorrect", http.StatusBadRequest)
		case errors.Is(err, auth.ErrPasswordTooShort):
			httputil.RespondError(w, "Validation error", "New password must be at least 6 characters long", http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			httputil.RespondError(w, "User not found", "User account no longer exists", http.StatusNotFound)
		default:
			logger.Error("failed to update profile", "error", err.Error())
			h.respondInternal(w, "Failed to update user information", err)
		}
		return
	}

	logger.Info("profile updated", "user_id", identity.UserID)

	httputil.RespondJSON(w, map[string]any{
		"message": "Profile updated successfully",
		"user":    newProfileResponse(updated, postCount),
	}, http.StatusOK)
}

// DeleteMe deletes the current user's account
// @Summary      Delete account
// @Description  Delete the authenticated user's account and all owned posts. Requires password confirmation.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body DeleteAccountRequest true "Password confirmation"
// @Success      200 {object} map[string]string
// @Failure      400 {object} httputil.ErrorResponse "Missing or wrong password"
// @Failure      401 {object} httputil.ErrorResponse "Unauthenticated"
// @Router       /users/me [delete]
func (h *Handler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, "Authentication required", "You must be logged in to delete your account", http.StatusUnauthorized)
		return
	}

	var req DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, "Validation error", "Invalid request body", http.StatusBadRequest)
		return
	}

	err := h.service.DeleteAccount(r.Context(), identity.UserID, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordRequired):
			httputil.RespondError(w, "Validation error", "Password confirmation is required to delete your account", http.StatusBadRequest)
		case errors.Is(err, ErrPasswordIncorrect):
			httputil.RespondError(w, "Authentication failed", "Password is incorrect", http.StatusBadRequest)
		case errors.Is(err, ErrNotFound):
			httputil.RespondError(w, "User not found", "User account no longer exists", http.StatusNotFound)
		default:
			logger.Error("failed to delete account", "error", err.Error())
			h.respondInternal(w, "Failed to delete user account", err)
		}
		return
	}

	// The cascade removed the user's posts; drop stale listings
	if err := h.postCache.Invalidate(r.Context()); err != nil {
		logger.Warn("failed to invalidate post cache", "error", err.Error())
	}

	logger.Info("account deleted", "user_id", identity.UserID)

	httputil.RespondJSON(w, map[string]string{
		"message": "Account deleted successfully",
	}, http.StatusOK)
}

func (h *Handler) respondInternal(w http.ResponseWriter, message string, err error) {
	if h.isDevelopment {
		message = err.Error()
	}
	httputil.RespondError(w, "Internal server error", message, http.StatusInternalServerError)
}
