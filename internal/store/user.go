package store

import (
	"database/sql"
	"fmt"

	"github.com/readingjourney/readingjourney/internal/model"
)

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(
		&u.ID, &u.Username, &u.Name, &u.Email, &u.PasswordHash,
		&u.Theme, &u.IsVerified, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `id, username, name, email, password_hash, theme, is_verified, created_at, updated_at`

func (s *UserStore) Create(username, name, email, passwordHash string) (*model.User, error) {
	result, err := s.db.Exec(
		`INSERT INTO users (username, name, email, password_hash) VALUES (?, ?, ?, ?)`,
		username, name, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) GetByID(id int64) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(email string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

// MarkVerified flips the account's verified flag. Idempotent.
func (s *UserStore) MarkVerified(id int64) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET is_verified = 1, updated_at = datetime('now') WHERE id = ?`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("mark verified: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdateProfile(id int64, username, name, email string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET username = ?, name = ?, email = ?, updated_at = datetime('now') WHERE id = ?`,
		username, name, email, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdatePassword(id int64, passwordHash string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, updated_at = datetime('now') WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update password: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) UpdateTheme(id int64, theme string) (*model.User, error) {
	_, err := s.db.Exec(
		`UPDATE users SET theme = ?, updated_at = datetime('now') WHERE id = ?`,
		theme, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update theme: %w", err)
	}
	return s.GetByID(id)
}

func (s *UserStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}
