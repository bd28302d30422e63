package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/readingjourney/readingjourney/internal/auth"
	"github.com/readingjourney/readingjourney/internal/cover"
	"github.com/readingjourney/readingjourney/internal/model"
	"github.com/readingjourney/readingjourney/internal/store"
)

var validThemes = map[string]bool{"light": true, "dark": true}

type UserHandler struct {
	userStore    *store.UserStore
	bookStore    *store.BookStore
	sessionStore *store.SessionStore
	covers       *cover.Storage
	logger       *slog.Logger
}

func NewUserHandler(us *store.UserStore, bs *store.BookStore, ss *store.SessionStore, cs *cover.Storage, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		userStore:    us,
		bookStore:    bs,
		sessionStore: ss,
		covers:       cs,
		logger:       logger,
	}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	user, err := store.Run(h.logger, "user.get_by_id", func() (*model.User, error) {
		return h.userStore.GetByID(ac.UserID)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type updateProfileRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updateProfileRequest
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
	if req.Password != "" {
		if err := validatePassword(req.Password); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	existing, err := store.Run(h.logger, "user.get_by_email", func() (*model.User, error) {
		return h.userStore.GetByEmail(req.Email)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing != nil && existing.ID != ac.UserID {
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
	if existing != nil && existing.ID != ac.UserID {
		writeError(w, http.StatusConflict, "this username is already taken")
		return
	}

	user, err := store.Run(h.logger, "user.update_profile", func() (*model.User, error) {
		return h.userStore.UpdateProfile(ac.UserID, req.Username, req.Name, req.Email)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			h.logger.Error("hash password", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		user, err = store.Run(h.logger, "user.update_password", func() (*model.User, error) {
			return h.userStore.UpdatePassword(ac.UserID, string(hash))
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	writeJSON(w, http.StatusOK, user)
}

type updateThemeRequest struct {
	Theme string `json:"theme"`
}

func (h *UserHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	var req updateThemeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !validThemes[req.Theme] {
		writeError(w, http.StatusBadRequest, "theme must be light or dark")
		return
	}

	user, err := store.Run(h.logger, "user.update_theme", func() (*model.User, error) {
		return h.userStore.UpdateTheme(ac.UserID, req.Theme)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// DeleteAccount removes the user together with their books, covers and
// sessions.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	ac, _ := auth.FromContext(r.Context())

	books, err := store.Run(h.logger, "book.list_by_user", func() ([]model.Book, error) {
		return h.bookStore.ListByUser(ac.UserID)
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	for _, b := range books {
		if b.CoverURL == "" {
			continue
		}
		if err := h.covers.Delete(r.Context(), b.CoverURL); err != nil {
			h.logger.Warn("delete cover", "book_id", b.ID, "error", err)
		}
	}

	if _, err := store.Run(h.logger, "book.delete_by_user", func() (int64, error) {
		return h.bookStore.DeleteByUser(ac.UserID)
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := h.sessionStore.DeleteByUserID(ac.UserID); err != nil {
		h.logger.Error("delete sessions", "user_id", ac.UserID, "error", err)
	}

	if _, err := store.Run(h.logger, "user.delete", func() (struct{}, error) {
		return struct{}{}, h.userStore.Delete(ac.UserID)
	}); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
