package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedTestData resets the database and populates it with demo members,
// a few blocks, and yesterday's pairing history.
//
// Behavior:
//  1. Clears `pairings`, `member_blocks` and `members`.
//  2. Creates 20 members with hashed passwords; most recently active,
//     a couple stale or flaky so the eligibility filter has work to do.
//  3. Adds two block rows (one mutual, one one-way).
//  4. Creates four completed pairings dated yesterday so the no-rematch
//     window is observable on the first real run.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := db.Exec("DELETE FROM pairings").Error; err != nil {
		return fmt.Errorf("failed to clear pairings: %w", err)
	}
	if err := db.Exec("DELETE FROM member_blocks").Error; err != nil {
		return fmt.Errorf("failed to clear member_blocks: %w", err)
	}
	if err := db.Exec("DELETE FROM members").Error; err != nil {
		return fmt.Errorf("failed to clear members: %w", err)
	}

	log.Println("Cleared existing data")

	// --- Seed Members ---
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	ids := make([]string, 0, 20)
	for i := 1; i <= 20; i++ {
		m := Member{
			ID:           uuid.NewString(),
			DisplayName:  fmt.Sprintf("member%d", i),
			Email:        fmt.Sprintf("member%d@example.com", i),
			PasswordHash: string(hash),
			Active:       true,
			LastActiveAt: now.Add(-time.Duration(r.Intn(48)) * time.Hour),
		}

		// a couple of stale accounts
		if i%9 == 0 {
			m.LastActiveAt = now.Add(-120 * time.Hour)
		}
		// a couple of serial flakes
		if i%7 == 0 {
			m.FlakeStreak = 6
		}
		// one deactivated account
		if i == 20 {
			m.Active = false
		}

		if err := db.Create(&m).Error; err != nil {
			return fmt.Errorf("failed to seed member: %w", err)
		}
		ids = append(ids, m.ID)
	}
	log.Println("Seeded 20 members.")

	// --- Seed Blocks ---
	blocks := []MemberBlock{
		{MemberID: ids[0], BlockedID: ids[1]},
		{MemberID: ids[1], BlockedID: ids[0]},
		{MemberID: ids[2], BlockedID: ids[3]},
	}
	if err := db.Create(&blocks).Error; err != nil {
		return fmt.Errorf("failed to seed blocks: %w", err)
	}

	// --- Seed yesterday's history ---
	yesterday := DayOf(now.Add(-24 * time.Hour))
	for i := 0; i+1 < 8; i += 2 {
		photoA := fmt.Sprintf("photos/%s", uuid.NewString())
		photoB := fmt.Sprintf("photos/%s", uuid.NewString())
		subA := yesterday.Add(10 * time.Hour)
		subB := yesterday.Add(12 * time.Hour)
		done := subB

		p := Pairing{
			ID:             uuid.NewString(),
			Day:            yesterday,
			ExpiresAt:      ExpiryFor(yesterday, 22),
			MemberAID:      ids[i],
			MemberBID:      ids[i+1],
			Status:         StatusCompleted,
			PhotoA:         &photoA,
			PhotoB:         &photoB,
			SubmittedAtA:   &subA,
			SubmittedAtB:   &subB,
			CompletedAt:    &done,
			ConversationID: uuid.NewString(),
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("failed to seed pairing: %w", err)
		}
	}
	log.Println("Seeded yesterday's pairings.")

	return nil
}
