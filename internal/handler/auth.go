package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
	"sharefun/internal/service"
	"sharefun/internal/transport/http/middleware"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService *service.UserService
	authService *service.AuthService
}

// NewAuthHandler wires dependencies for authentication endpoints.
func NewAuthHandler(userService *service.UserService, authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		authService: authService,
	}
}

// Register handles user sign-up
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req model.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		httputil.WriteBadRequest(w, "Email is required")
		return
	}

	// An empty password is a policy failure, reported by Register.
	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to register")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Email == "" {
		httputil.WriteBadRequest(w, "Email is required")
		return
	}
	if req.Password == "" {
		httputil.WriteBadRequest(w, "Password is required")
		return
	}

	resp, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to login")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Me returns the currently authenticated user
// GET /me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get user")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, user)
}

// Logout revokes one session. The token comes from the body, or from the
// request headers when the body is empty. Revoking an unknown session
// succeeds, so repeating a logout is harmless.
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req model.LogoutRequest
	if r.Body != nil {
		if err := decodeOptionalJSON(r.Body, &req); err != nil {
			httputil.WriteBadRequest(w, "Invalid request body")
			return
		}
	}

	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = middleware.TokenFromRequest(r)
	}
	if token == "" {
		httputil.WriteBadRequest(w, "Token is required")
		return
	}

	if err := h.authService.Logout(r.Context(), token); err != nil {
		writeServiceError(w, r, err, "Failed to logout")
		return
	}

	httputil.WriteMessage(w, "Logged out successfully")
}

// LogoutAll handles logout from all devices
// POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}

	if err := h.authService.LogoutAll(r.Context(), userID); err != nil {
		writeServiceError(w, r, err, "Failed to logout from all devices")
		return
	}

	httputil.WriteMessage(w, "Logged out from all devices")
}

// decodeOptionalJSON accepts an empty body.
func decodeOptionalJSON(body io.Reader, dst interface{}) error {
	data, err := io.ReadAll(io.LimitReader(body, 1<<16))
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil
	}
	return json.Unmarshal(data, dst)
}
