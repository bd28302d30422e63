package store

import (
	"testing"
	"time"

	"github.com/readingjourney/readingjourney/internal/database"
)

func setupRedemptionTestDB(t *testing.T) *RedemptionStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewRedemptionStore(db)
}

func TestRedemptionConsumeFirstUse(t *testing.T) {
	rs := setupRedemptionTestDB(t)

	hash := HashToken("some-token")
	first, err := rs.Consume(hash, "password-reset", time.Now().UTC().Add(30*time.Minute))
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if !first {
		t.Error("expected first use to return true")
	}
}

func TestRedemptionConsumeReplay(t *testing.T) {
	rs := setupRedemptionTestDB(t)

	hash := HashToken("some-token")
	expires := time.Now().UTC().Add(30 * time.Minute)

	if _, err := rs.Consume(hash, "password-reset", expires); err != nil {
		t.Fatalf("consume: %v", err)
	}

	again, err := rs.Consume(hash, "password-reset", expires)
	if err != nil {
		t.Fatalf("consume replay: %v", err)
	}
	if again {
		t.Error("expected replay to return false")
	}
}

func TestRedemptionDistinctTokens(t *testing.T) {
	rs := setupRedemptionTestDB(t)

	expires := time.Now().UTC().Add(30 * time.Minute)
	first, err := rs.Consume(HashToken("token-a"), "password-reset", expires)
	if err != nil || !first {
		t.Fatalf("consume a: first=%v err=%v", first, err)
	}
	second, err := rs.Consume(HashToken("token-b"), "password-reset", expires)
	if err != nil || !second {
		t.Fatalf("consume b: first=%v err=%v", second, err)
	}
}

func TestRedemptionDeleteExpired(t *testing.T) {
	rs := setupRedemptionTestDB(t)

	if _, err := rs.Consume(HashToken("stale"), "password-reset", time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("consume: %v", err)
	}
	if _, err := rs.Consume(HashToken("fresh"), "password-reset", time.Now().UTC().Add(30*time.Minute)); err != nil {
		t.Fatalf("consume: %v", err)
	}

	count, err := rs.DeleteExpired()
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if count != 1 {
		t.Errorf("deleted = %d, want 1", count)
	}

	// The stale hash can be consumed again after cleanup; its token would
	// have expired anyway.
	first, err := rs.Consume(HashToken("stale"), "password-reset", time.Now().UTC().Add(30*time.Minute))
	if err != nil {
		t.Fatalf("consume after cleanup: %v", err)
	}
	if !first {
		t.Error("expected consume to succeed after cleanup")
	}
}

func TestHashTokenStable(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("expected identical hashes for identical tokens")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("expected different hashes for different tokens")
	}
	if len(HashToken("abc")) != 64 {
		t.Errorf("hash length = %d, want 64", len(HashToken("abc")))
	}
}
