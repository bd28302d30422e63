package model

import "time"

type Book struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Title           string     `json:"title"`
	Author          string     `json:"author"`
	ISBN            string     `json:"isbn"`
	Genre           string     `json:"genre"`
	Rating          float64    `json:"rating"`
	Description     string     `json:"description"`
	CoverURL        string     `json:"cover_image"`
	ReadingStarted  *time.Time `json:"reading_started"`
	ReadingFinished *time.Time `json:"reading_finished"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// BookParams carries the caller-editable fields of a book.
type BookParams struct {
	Title           string
	Author          string
	ISBN            string
	Genre           string
	Rating          float64
	Description     string
	CoverURL        string
	ReadingStarted  *time.Time
	ReadingFinished *time.Time
}
