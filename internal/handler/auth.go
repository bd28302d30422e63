package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/readingjourney/readingjourney/internal/account"
	"github.com/readingjourney/readingjourney/internal/middleware"
	"github.com/readingjourney/readingjourney/internal/model"
	"github.com/readingjourney/readingjourney/internal/store"
)

// sessionMaxAge keeps users signed in for a year; the session row carries the
// authoritative expiry.
const sessionMaxAge = 365 * 24 * 60 * 60

type AuthHandler struct {
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	workflow     *account.Workflow
	logger       *slog.Logger
}

func NewAuthHandler(us *store.UserStore, ss *store.SessionStore, wf *account.Workflow, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		userStore:    us,
		sessionStore: ss,
		workflow:     wf,
		logger:       logger,
	}
}

type signupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := validateName(req.Name); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := store.Run(h.logger, "user.get_by_email", func() (*model.User, error) {
		return h.userStore.GetByEmail(req.Email)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "an account with this email already exists")
		return
	}

	existing, err = store.Run(h.logger, "user.get_by_username", func() (*model.User, error) {
		return h.userStore.GetByUsername(req.Username)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil {
		writeError(w, http.StatusConflict, "this username is already taken")
		return
	}

	// Send the confirmation link before creating the account. If the mail
	// cannot go out the signup fails whole, rather than leaving an account
	// that can never verify.
	if err := h.workflow.RequestVerification(req.Email, req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "could not send verification email, please try again")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.logger.Error("hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	user, err := store.Run(h.logger, "user.create", func() (*model.User, error) {
		return h.userStore.Create(req.Username, req.Name, req.Email, string(hash))
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "account created, please check your email to verify your address",
		"user":    user,
	})
}

type loginRequest struct {
	Identity string `json:"identity"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Identity = strings.TrimSpace(req.Identity)
	if req.Identity == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username or email and password are required")
		return
	}

	var user *model.User
	var err error
	if strings.Contains(req.Identity, "@") {
		user, err = store.Run(h.logger, "user.get_by_email", func() (*model.User, error) {
			return h.userStore.GetByEmail(strings.ToLower(req.Identity))
		})
	} else {
		user, err = store.Run(h.logger, "user.get_by_username", func() (*model.User, error) {
			return h.userStore.GetByUsername(req.Identity)
		})
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Same response whether the account is missing or the password is
	// wrong.
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	if !user.IsVerified {
		writeError(w, http.StatusForbidden, "please verify your email address before logging in")
		return
	}

	sess, err := store.Run(h.logger, "session.create", func() (*model.Session, error) {
		return h.sessionStore.Create(user.ID)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   sessionMaxAge,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if sess, err := h.sessionStore.GetByToken(cookie.Value); err == nil && sess != nil {
			h.sessionStore.Delete(sess.ID)
		}
	}

	clearSessionCookie(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	tok := r.URL.Query().Get("token")
	if tok == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	user, err := h.workflow.ConfirmEmail(tok)
	switch {
	case errors.Is(err, account.ErrAlreadyVerified):
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "this email address is already verified",
			"user":    user,
		})
	case errors.Is(err, account.ErrTokenExpired):
		writeError(w, http.StatusGone, "this verification link has expired, please request a new one")
	case errors.Is(err, account.ErrTokenInvalid):
		writeError(w, http.StatusBadRequest, "this verification link is invalid")
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, "no account found for this verification link")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"message": "email verified, you can now log in",
			"user":    user,
		})
	}
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := store.Run(h.logger, "user.get_by_email", func() (*model.User, error) {
		return h.userStore.GetByEmail(req.Email)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Unknown addresses get the same response as successful dispatches.
	neutral := map[string]string{
		"message": "if an account exists for this address, a verification email has been sent",
	}
	if user == nil {
		writeJSON(w, http.StatusOK, neutral)
		return
	}
	if user.IsVerified {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "this email address is already verified",
		})
		return
	}

	if err := h.workflow.RequestVerification(user.Email, user.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "could not send verification email, please try again")
		return
	}
	writeJSON(w, http.StatusOK, neutral)
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateEmail(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.workflow.RequestPasswordReset(req.Email); err != nil {
		// Dispatch failures are logged inside the workflow. The response
		// stays identical either way so the endpoint cannot be used to
		// probe which addresses have accounts.
		h.logger.Error("password reset request", "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "if an account exists for this address, a password reset email has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.workflow.ConfirmPasswordReset(req.Token, req.Password)
	switch {
	case errors.Is(err, account.ErrTokenExpired):
		writeError(w, http.StatusGone, "this reset link has expired, please request a new one")
	case errors.Is(err, account.ErrTokenUsed):
		writeError(w, http.StatusGone, "this reset link has already been used")
	case errors.Is(err, account.ErrTokenInvalid):
		writeError(w, http.StatusBadRequest, "this reset link is invalid")
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, "no account found for this reset link")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		// Existing sessions were opened with the old password.
		if err := h.sessionStore.DeleteByUserID(user.ID); err != nil {
			h.logger.Error("revoke sessions after reset", "user_id", user.ID, "error", err)
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "password updated, you can now log in",
		})
	}
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
