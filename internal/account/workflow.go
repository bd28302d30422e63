// Package account orchestrates the email verification and password reset
// flows: token issuance, notification dispatch, and token redemption against
// the user store.
package account

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/readingjourney/readingjourney/internal/model"
	"github.com/readingjourney/readingjourney/internal/store"
	"github.com/readingjourney/readingjourney/internal/token"
)

const (
	PurposeEmailConfirm  = "email-confirm"
	PurposePasswordReset = "password-reset"

	// TokenMaxAge bounds the life of verification and reset links.
	TokenMaxAge = 30 * time.Minute
)

var (
	ErrTokenInvalid       = errors.New("account: token invalid")
	ErrTokenExpired       = errors.New("account: token expired")
	ErrTokenUsed          = errors.New("account: token already used")
	ErrNotFound           = errors.New("account: not found")
	ErrNotificationFailed = errors.New("account: notification failed")

	// ErrAlreadyVerified is benign: redeeming a verification token for a
	// verified account is a no-op reported distinctly so the caller can
	// word the response accordingly.
	ErrAlreadyVerified = errors.New("account: already verified")
)

// Mailer dispatches workflow notifications. Failure here means "could not
// notify", distinct from "could not redeem".
type Mailer interface {
	SendVerification(toEmail, name, token string) error
	SendPasswordReset(toEmail, name, token string) error
}

type Workflow struct {
	tokens      *token.Service
	users       *store.UserStore
	redemptions *store.RedemptionStore
	mailer      Mailer
	logger      *slog.Logger
}

func NewWorkflow(tokens *token.Service, users *store.UserStore, redemptions *store.RedemptionStore, mailer Mailer, logger *slog.Logger) *Workflow {
	return &Workflow{
		tokens:      tokens,
		users:       users,
		redemptions: redemptions,
		mailer:      mailer,
		logger:      logger,
	}
}

// RequestVerification mints an email-confirm token for the given address and
// dispatches the confirmation link. It reports dispatch success, not eventual
// redemption.
func (w *Workflow) RequestVerification(emailAddr, name string) error {
	tok, err := w.tokens.Issue(emailAddr, PurposeEmailConfirm)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	if err := w.mailer.SendVerification(emailAddr, name, tok); err != nil {
		w.logger.Error("send verification email", "email", emailAddr, "error", err)
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	w.logger.Info("verification email sent", "email", emailAddr)
	return nil
}

// ConfirmEmail redeems a verification token and flips the account's verified
// flag. Redeeming for an already-verified account returns the user together
// with ErrAlreadyVerified.
func (w *Workflow) ConfirmEmail(tok string) (*model.User, error) {
	emailAddr, err := w.redeem(tok, PurposeEmailConfirm)
	if err != nil {
		return nil, err
	}

	u, err := store.Run(w.logger, "user.get_by_email", func() (*model.User, error) {
		return w.users.GetByEmail(emailAddr)
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}
	if u.IsVerified {
		return u, ErrAlreadyVerified
	}

	u, err = store.Run(w.logger, "user.mark_verified", func() (*model.User, error) {
		return w.users.MarkVerified(u.ID)
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("account verified", "email", emailAddr)
	return u, nil
}

// RequestPasswordReset dispatches a reset link if an account exists for the
// address. A nil return does not reveal whether it does: unknown addresses
// and successful dispatches are indistinguishable to the caller's user.
func (w *Workflow) RequestPasswordReset(emailAddr string) error {
	u, err := store.Run(w.logger, "user.get_by_email", func() (*model.User, error) {
		return w.users.GetByEmail(emailAddr)
	})
	if err != nil {
		return err
	}
	if u == nil {
		return nil
	}

	tok, err := w.tokens.Issue(u.Email, PurposePasswordReset)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := w.mailer.SendPasswordReset(u.Email, u.Name, tok); err != nil {
		w.logger.Error("send password reset email", "email", u.Email, "error", err)
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	w.logger.Info("password reset email sent", "email", u.Email)
	return nil
}

// ConfirmPasswordReset redeems a reset token and replaces the account's
// password. Reset tokens are single-use: a second redemption of the same
// token fails with ErrTokenUsed even inside the validity window.
func (w *Workflow) ConfirmPasswordReset(tok, newPassword string) (*model.User, error) {
	emailAddr, err := w.redeem(tok, PurposePasswordReset)
	if err != nil {
		return nil, err
	}

	first, err := store.Run(w.logger, "redemption.consume", func() (bool, error) {
		return w.redemptions.Consume(store.HashToken(tok), PurposePasswordReset, time.Now().UTC().Add(TokenMaxAge))
	})
	if err != nil {
		return nil, err
	}
	if !first {
		return nil, ErrTokenUsed
	}

	u, err := store.Run(w.logger, "user.get_by_email", func() (*model.User, error) {
		return w.users.GetByEmail(emailAddr)
	})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u, err = store.Run(w.logger, "user.update_password", func() (*model.User, error) {
		return w.users.UpdatePassword(u.ID, string(hash))
	})
	if err != nil {
		return nil, err
	}
	w.logger.Info("password reset", "email", emailAddr)
	return u, nil
}

func (w *Workflow) redeem(tok, purpose string) (string, error) {
	payload, err := w.tokens.Redeem(tok, purpose, TokenMaxAge)
	switch {
	case errors.Is(err, token.ErrExpired):
		return "", ErrTokenExpired
	case errors.Is(err, token.ErrInvalid):
		return "", ErrTokenInvalid
	case err != nil:
		return "", fmt.Errorf("redeem token: %w", err)
	}
	return payload, nil
}
