// internal/app/features/accounts/handler.go
package accounts

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) that uniquely identifies a user record
//   - Email: the address users type to log in

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/casehub/internal/app/allocation"
	loginstore "github.com/dalemusser/casehub/internal/app/store/logins"
	userstore "github.com/dalemusser/casehub/internal/app/store/users"
	"github.com/dalemusser/casehub/internal/app/system/auth"
	"github.com/dalemusser/casehub/internal/app/system/timeouts"
	"github.com/dalemusser/casehub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves signup, login, logout, and profile endpoints.
type Handler struct {
	Users    *userstore.Store
	Logins   *loginstore.Store
	Engine   *allocation.Engine
	Sessions *auth.SessionManager
	Log      *zap.Logger
}

func NewHandler(users *userstore.Store, logins *loginstore.Store, engine *allocation.Engine, sessions *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{
		Users:    users,
		Logins:   logins,
		Engine:   engine,
		Sessions: sessions,
		Log:      logger,
	}
}

type signupRequest struct {
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	DOB        string `json:"dob,omitempty"`
	Bio        string `json:"bio,omitempty"`
	Background string `json:"background,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HandleSignup handles POST /api/auth/signup. New accounts get the
// reviewer role, a session cookie, and a best-effort initial case
// allocation: signup never fails because the allocation did.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" || strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "full_name and email are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.Create(ctx, models.User{
		FullName:   req.FullName,
		Email:      req.Email,
		Role:       "reviewer",
		DOB:        req.DOB,
		Bio:        req.Bio,
		Background: req.Background,
	}, req.Password)
	if err != nil {
		if errors.Is(err, userstore.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, "an account with this email already exists")
			return
		}
		h.Log.Error("signup: create user failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	if err := h.Sessions.SignIn(w, r, sessionUserFor(&user)); err != nil {
		h.Log.Error("signup: session sign-in failed",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
	}

	h.allocateBestEffort(r, user.ID, "signup")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(&user)
}

// HandleLogin handles POST /api/auth/login. A successful login records
// a login event and tops the user up best-effort, mirroring signup.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	user, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		h.Log.Error("login: lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if !h.Users.VerifyPassword(user, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if user.Status == "disabled" {
		writeError(w, http.StatusForbidden, "account is disabled")
		return
	}

	if err := h.Sessions.SignIn(w, r, sessionUserFor(user)); err != nil {
		h.Log.Error("login: session sign-in failed",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	if err := h.Logins.CreateFrom(ctx, r, user.ID, "password"); err != nil {
		h.Log.Warn("login: could not record login event",
			zap.String("user_id", user.ID.Hex()),
			zap.Error(err))
	}

	h.allocateBestEffort(r, user.ID, "login")

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("logout: sign-out failed", zap.Error(err))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ServeMe handles GET /api/users/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	user, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.Log.Error("me: lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}

type profileRequest struct {
	FullName   string `json:"full_name"`
	DOB        string `json:"dob,omitempty"`
	Bio        string `json:"bio,omitempty"`
	Background string `json:"background,omitempty"`
}

// HandleUpdateMe handles PUT /api/users/me.
func (h *Handler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	su, ok := auth.CurrentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(su.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.FullName) == "" {
		writeError(w, http.StatusBadRequest, "full_name is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	err = h.Users.UpdateProfile(ctx, id, userstore.ProfileUpdate{
		FullName:   req.FullName,
		DOB:        req.DOB,
		Bio:        req.Bio,
		Background: req.Background,
	})
	if err != nil {
		h.Log.Error("profile update failed",
			zap.String("user_id", id.Hex()),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	user, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.Log.Error("profile reload failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "update failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}

// allocateBestEffort tops the user up to the default target without
// letting allocation problems surface to the auth flow. It runs on a
// background context so a canceled request doesn't abort the write.
func (h *Handler) allocateBestEffort(r *http.Request, userID primitive.ObjectID, trigger string) {
	if h.Engine == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeouts.Long())
	defer cancel()

	n, err := h.Engine.TopUp(ctx, userID, 0)
	if err != nil {
		h.Log.Warn("case allocation failed",
			zap.String("trigger", trigger),
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return
	}
	if n > 0 {
		h.Log.Info("cases allocated",
			zap.String("trigger", trigger),
			zap.String("user_id", userID.Hex()),
			zap.Int("assigned", n))
	}
}

func sessionUserFor(u *models.User) auth.SessionUser {
	return auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
