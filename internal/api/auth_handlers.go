package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/example/ec-storefront/internal/api/middleware"
	"github.com/example/ec-storefront/internal/api/respond"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/user"
	"github.com/go-chi/chi/v5"
)

// AuthHandlers handles authentication-related HTTP requests
type AuthHandlers struct {
	userService   *user.Service
	jwtService    *auth.JWTService
	carts         *cart.Service
	secureCookies bool
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(userService *user.Service, jwtService *auth.JWTService, carts *cart.Service, secureCookies bool) *AuthHandlers {
	return &AuthHandlers{
		userService:   userService,
		jwtService:    jwtService,
		carts:         carts,
		secureCookies: secureCookies,
	}
}

// AuthResponse represents the authentication response
type AuthResponse struct {
	User    *user.User `json:"user"`
	Message string     `json:"message,omitempty"`
}

// Register handles user registration
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/users/register")
		return
	}

	newUser, err := h.userService.Register(r.Context(), user.RegisterInput{
		Email:     f.String("email"),
		Password:  f.String("password"),
		FirstName: f.String("firstName"),
		LastName:  f.String("lastName"),
	})
	if err != nil {
		respond.Error(w, r, err, "/users/register")
		return
	}

	if err := h.setAuthCookie(w, newUser); err != nil {
		respond.Error(w, r, err, "/users/login")
		return
	}
	respond.Done(w, r, http.StatusCreated, AuthResponse{User: newUser, Message: "Registration successful"},
		"/products", "Registration successful")
}

// Login handles user login
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, respond.LoginPath)
		return
	}

	u, err := h.userService.Authenticate(r.Context(), f.String("email"), f.String("password"))
	if err != nil {
		respond.Error(w, r, err, respond.LoginPath)
		return
	}

	if err := h.setAuthCookie(w, u); err != nil {
		respond.Error(w, r, err, respond.LoginPath)
		return
	}
	log.Printf("[API] User %s logged in", u.ID)
	respond.Done(w, r, http.StatusOK, AuthResponse{User: u, Message: "Login successful"}, "/products", "")
}

// Logout clears the auth cookie and the session cart.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sessionID := middleware.SessionID(r.Context()); sessionID != "" {
		if err := h.carts.Clear(r.Context(), sessionID); err != nil {
			log.Printf("[API] Failed to clear cart on logout: %v", err)
		}
	}

	h.clearAuthCookie(w)
	respond.Done(w, r, http.StatusOK, map[string]string{"message": "Logout successful"}, respond.LoginPath, "")
}

// Me returns the current authenticated user's information
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Get(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.JSON(w, http.StatusOK, u)
}

func (h *AuthHandlers) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Deactivate(r.Context(), principal(r), chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.Done(w, r, http.StatusOK, u, "/", "User deactivated")
}

func (h *AuthHandlers) ActivateUser(w http.ResponseWriter, r *http.Request) {
	u, err := h.userService.Activate(r.Context(), principal(r), chi.URLParam(r, "userId"))
	if err != nil {
		respond.Error(w, r, err, "/")
		return
	}
	respond.Done(w, r, http.StatusOK, u, "/", "User activated")
}

// resetRequested is shown whether or not the email matched an account.
const resetRequested = "If an account with that email exists, a reset link has been sent."

// ForgotPassword serves POST /password/forgot.
func (h *AuthHandlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, "/password/forgot")
		return
	}
	if err := h.userService.RequestPasswordReset(r.Context(), f.String("email")); err != nil {
		respond.Error(w, r, err, "/password/forgot")
		return
	}
	respond.Done(w, r, http.StatusOK, map[string]string{"message": resetRequested}, respond.LoginPath, resetRequested)
}

// ResetPassword serves POST /password/reset/{token}.
func (h *AuthHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	back := "/password/reset/" + token

	f, err := parseForm(r)
	if err != nil {
		respond.Error(w, r, err, back)
		return
	}
	if err := h.userService.ResetPassword(r.Context(), token, f.String("password"), f.String("confirmPassword")); err != nil {
		if errors.Is(err, user.ErrInvalidResetToken) {
			back = "/password/forgot"
		}
		respond.Error(w, r, err, back)
		return
	}
	const done = "Password has been reset. Please log in with your new password."
	respond.Done(w, r, http.StatusOK, map[string]string{"message": done}, respond.LoginPath, done)
}

// Helper methods

func (h *AuthHandlers) setAuthCookie(w http.ResponseWriter, u *user.User) error {
	accessToken, accessExpiry, err := h.jwtService.GenerateAccessToken(u.Principal())
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    accessToken,
		Path:     "/",
		Expires:  accessExpiry,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (h *AuthHandlers) clearAuthCookie(w http.ResponseWriter) {
	middleware.ClearAccessToken(w)
}
