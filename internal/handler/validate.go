package handler

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/readingjourney/readingjourney/internal/model"
)

var (
	usernameRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	emailRe    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
)

func validateName(name string) error {
	if l := len(name); l < 2 || l > 50 {
		return fmt.Errorf("name must be between 2 and 50 characters")
	}
	return nil
}

func validateUsername(username string) error {
	if l := len(username); l < 2 || l > 20 {
		return fmt.Errorf("username must be between 2 and 20 characters")
	}
	if !usernameRe.MatchString(username) {
		return fmt.Errorf("username may only contain letters, numbers and underscores")
	}
	return nil
}

func validateEmail(emailAddr string) error {
	if emailAddr == "" || len(emailAddr) > 120 {
		return fmt.Errorf("a valid email address is required")
	}
	if !emailRe.MatchString(emailAddr) {
		return fmt.Errorf("a valid email address is required")
	}
	return nil
}

func validatePassword(password string) error {
	if l := len(password); l < 8 || l > 30 {
		return fmt.Errorf("password must be between 8 and 30 characters")
	}
	return nil
}

// validateISBN accepts ISBN-10 and ISBN-13 forms, ignoring hyphens and
// spaces. Empty is allowed; the field is optional.
func validateISBN(isbn string) error {
	if isbn == "" {
		return nil
	}
	cleaned := strings.NewReplacer("-", "", " ", "").Replace(isbn)
	switch len(cleaned) {
	case 10:
		for i, c := range cleaned {
			if c >= '0' && c <= '9' {
				continue
			}
			// The check digit of an ISBN-10 may be X
			if i == 9 && (c == 'X' || c == 'x') {
				continue
			}
			return fmt.Errorf("invalid ISBN")
		}
	case 13:
		for _, c := range cleaned {
			if c < '0' || c > '9' {
				return fmt.Errorf("invalid ISBN")
			}
		}
	default:
		return fmt.Errorf("ISBN must be 10 or 13 digits")
	}
	return nil
}

func validateBookParams(p model.BookParams) error {
	if p.Title == "" {
		return fmt.Errorf("title is required")
	}
	if len(p.Title) > 200 {
		return fmt.Errorf("title must be at most 200 characters")
	}
	if len(p.Author) > 100 {
		return fmt.Errorf("author must be at most 100 characters")
	}
	if len(p.Genre) > 50 {
		return fmt.Errorf("genre must be at most 50 characters")
	}
	if p.Rating < 0 || p.Rating > 5 {
		return fmt.Errorf("rating must be between 0 and 5")
	}
	if len(p.Description) > 2000 {
		return fmt.Errorf("description must be at most 2000 characters")
	}
	if err := validateISBN(p.ISBN); err != nil {
		return err
	}

	now := time.Now()
	if p.ReadingStarted != nil && p.ReadingStarted.After(now) {
		return fmt.Errorf("reading start date cannot be in the future")
	}
	if p.ReadingFinished != nil {
		if p.ReadingFinished.After(now) {
			return fmt.Errorf("reading finish date cannot be in the future")
		}
		if p.ReadingStarted != nil && p.ReadingFinished.Before(*p.ReadingStarted) {
			return fmt.Errorf("reading finish date cannot be before the start date")
		}
	}
	return nil
}
