package store

import (
	"database/sql"
	"fmt"

	"github.com/readingjourney/readingjourney/internal/model"
)

type BookStore struct {
	db *sql.DB
}

func NewBookStore(db *sql.DB) *BookStore {
	return &BookStore{db: db}
}

func scanBook(scanner interface{ Scan(...any) error }) (*model.Book, error) {
	var b model.Book
	var started, finished sql.NullTime

	err := scanner.Scan(
		&b.ID, &b.UserID, &b.Title, &b.Author, &b.ISBN, &b.Genre,
		&b.Rating, &b.Description, &b.CoverURL,
		&started, &finished, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if started.Valid {
		b.ReadingStarted = &started.Time
	}
	if finished.Valid {
		b.ReadingFinished = &finished.Time
	}
	return &b, nil
}

const bookCols = `id, user_id, title, author, isbn, genre, rating, description, cover_url, reading_started, reading_finished, created_at, updated_at`

func paramTimes(p model.BookParams) (sql.NullTime, sql.NullTime) {
	var started, finished sql.NullTime
	if p.ReadingStarted != nil {
		started = sql.NullTime{Time: *p.ReadingStarted, Valid: true}
	}
	if p.ReadingFinished != nil {
		finished = sql.NullTime{Time: *p.ReadingFinished, Valid: true}
	}
	return started, finished
}

func (s *BookStore) Create(userID int64, p model.BookParams) (*model.Book, error) {
	started, finished := paramTimes(p)
	result, err := s.db.Exec(
		`INSERT INTO books (user_id, title, author, isbn, genre, rating, description, cover_url, reading_started, reading_finished)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, p.Title, p.Author, p.ISBN, p.Genre, p.Rating, p.Description, p.CoverURL, started, finished,
	)
	if err != nil {
		return nil, fmt.Errorf("insert book: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

// CreateMany inserts a batch of books in one transaction and returns the
// number inserted. Used by JSON import.
func (s *BookStore) CreateMany(userID int64, params []model.BookParams) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO books (user_id, title, author, isbn, genre, rating, description, cover_url, reading_started, reading_finished)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, p := range params {
		started, finished := paramTimes(p)
		if _, err := stmt.Exec(
			userID, p.Title, p.Author, p.ISBN, p.Genre, p.Rating, p.Description, p.CoverURL, started, finished,
		); err != nil {
			return 0, fmt.Errorf("insert imported book %q: %w", p.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(params), nil
}

func (s *BookStore) GetByID(id int64) (*model.Book, error) {
	row := s.db.QueryRow(`SELECT `+bookCols+` FROM books WHERE id = ?`, id)
	b, err := scanBook(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// ListByUser returns the user's books ordered by reading start date, books
// without one last.
func (s *BookStore) ListByUser(userID int64) ([]model.Book, error) {
	rows, err := s.db.Query(
		`SELECT `+bookCols+` FROM books WHERE user_id = ? ORDER BY reading_started IS NULL, reading_started ASC, created_at ASC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate books: %w", err)
	}
	return books, nil
}

func (s *BookStore) Update(id int64, p model.BookParams) (*model.Book, error) {
	started, finished := paramTimes(p)
	_, err := s.db.Exec(
		`UPDATE books SET title = ?, author = ?, isbn = ?, genre = ?, rating = ?, description = ?, cover_url = ?,
		 reading_started = ?, reading_finished = ?, updated_at = datetime('now') WHERE id = ?`,
		p.Title, p.Author, p.ISBN, p.Genre, p.Rating, p.Description, p.CoverURL, started, finished, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}
	return s.GetByID(id)
}

// UpdateCover replaces only the cover URL.
func (s *BookStore) UpdateCover(id int64, coverURL string) (*model.Book, error) {
	_, err := s.db.Exec(
		`UPDATE books SET cover_url = ?, updated_at = datetime('now') WHERE id = ?`,
		coverURL, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update cover: %w", err)
	}
	return s.GetByID(id)
}

func (s *BookStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM books WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}

func (s *BookStore) DeleteByUser(userID int64) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM books WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("delete books for user: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
