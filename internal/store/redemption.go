package store

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"
)

// RedemptionStore tracks consumed single-use tokens by hash. Rows become
// garbage once the underlying token would have expired anyway, so cleanup
// is aligned with token expiry.
type RedemptionStore struct {
	db *sql.DB
}

func NewRedemptionStore(db *sql.DB) *RedemptionStore {
	return &RedemptionStore{db: db}
}

// HashToken derives the stored key for a token. The raw token never touches
// the database.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Consume records a token as used. It returns true the first time a given
// token is consumed and false on any replay.
func (s *RedemptionStore) Consume(tokenHash, purpose string, expiresAt time.Time) (bool, error) {
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO token_redemptions (token_hash, purpose, expires_at) VALUES (?, ?, ?)`,
		tokenHash, purpose, expiresAt,
	)
	if err != nil {
		return false, fmt.Errorf("consume token: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return count == 1, nil
}

func (s *RedemptionStore) DeleteExpired() (int64, error) {
	result, err := s.db.Exec(`DELETE FROM token_redemptions WHERE expires_at <= datetime('now')`)
	if err != nil {
		return 0, fmt.Errorf("delete expired redemptions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
