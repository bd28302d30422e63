package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/readingjourney/readingjourney/internal/model"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		wantErr  bool
	}{
		{"alice", false},
		{"a_1", false},
		{"AB", false},
		{"a", true},
		{strings.Repeat("a", 21), true},
		{"bad name", true},
		{"bad-name", true},
		{"émile", true},
	}
	for _, tt := range tests {
		err := validateUsername(tt.username)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateUsername(%q) error = %v, wantErr %v", tt.username, err, tt.wantErr)
		}
	}
}

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		email   string
		wantErr bool
	}{
		{"a@b.co", false},
		{"reader@example.com", false},
		{"", true},
		{"not-an-email", true},
		{"a@b", true},
		{"a b@c.com", true},
		{strings.Repeat("a", 115) + "@b.com", true},
	}
	for _, tt := range tests {
		err := validateEmail(tt.email)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateEmail(%q) error = %v, wantErr %v", tt.email, err, tt.wantErr)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("short"); err == nil {
		t.Error("expected error for short password")
	}
	if err := validatePassword(strings.Repeat("a", 31)); err == nil {
		t.Error("expected error for long password")
	}
	if err := validatePassword("long enough"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateISBN(t *testing.T) {
	tests := []struct {
		isbn    string
		wantErr bool
	}{
		{"", false},
		{"0306406152", false},
		{"030640615X", false},
		{"978-0-306-40615-7", false},
		{"9780306406157", false},
		{"12345", true},
		{"030640615Y", true},
		{"97803064061 5X", true},
	}
	for _, tt := range tests {
		err := validateISBN(tt.isbn)
		if (err != nil) != tt.wantErr {
			t.Errorf("validateISBN(%q) error = %v, wantErr %v", tt.isbn, err, tt.wantErr)
		}
	}
}

func TestValidateBookParams(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	earlier := past.Add(-24 * time.Hour)
	future := time.Now().Add(48 * time.Hour)

	valid := model.BookParams{Title: "Dune", Author: "Frank Herbert", Rating: 4.5}
	if err := validateBookParams(valid); err != nil {
		t.Errorf("unexpected error for valid params: %v", err)
	}

	tests := []struct {
		name string
		p    model.BookParams
	}{
		{"missing title", model.BookParams{}},
		{"title too long", model.BookParams{Title: strings.Repeat("t", 201)}},
		{"rating too high", model.BookParams{Title: "t", Rating: 5.5}},
		{"rating negative", model.BookParams{Title: "t", Rating: -1}},
		{"description too long", model.BookParams{Title: "t", Description: strings.Repeat("d", 2001)}},
		{"started in future", model.BookParams{Title: "t", ReadingStarted: &future}},
		{"finished in future", model.BookParams{Title: "t", ReadingFinished: &future}},
		{"finished before started", model.BookParams{Title: "t", ReadingStarted: &past, ReadingFinished: &earlier}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validateBookParams(tt.p); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	ordered := model.BookParams{Title: "t", ReadingStarted: &earlier, ReadingFinished: &past}
	if err := validateBookParams(ordered); err != nil {
		t.Errorf("unexpected error for ordered dates: %v", err)
	}
}
