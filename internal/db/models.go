package db

import (
	"time"
)

// Member is the read-only projection of the identity subsystem's user,
// plus the two flags the pairing engine itself owns.
//
// Write discipline:
//   - WaitlistedYesterday / PriorityNextPairing: written only by the
//     daily matching run.
//   - FlakeStreak: written only by lifecycle transitions (reset on a
//     genuine submission, incremented on artificial completion).
//
// All remaining fields are owned by identity and never written here.
type Member struct {
	ID                  string `gorm:"primaryKey;size:36"`
	DisplayName         string `gorm:"size:64;not null"`
	Email               string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash        string `gorm:"size:255;not null"`
	Active              bool   `gorm:"not null;default:true"`
	LastActiveAt        time.Time
	FlakeStreak         int       `gorm:"not null;default:0"`
	WaitlistedYesterday bool      `gorm:"not null;default:false"`
	PriorityNextPairing bool      `gorm:"not null;default:false"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

// MemberBlock records that MemberID does not want to be paired with
// BlockedID. One row per direction; matching treats a block in either
// direction as mutual. Composite PK keeps a single row per direction.
type MemberBlock struct {
	MemberID  string    `gorm:"primaryKey;size:36"`
	BlockedID string    `gorm:"primaryKey;size:36"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Status is the closed set of pairing lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusASubmitted Status = "a_submitted"
	StatusBSubmitted Status = "b_submitted"
	StatusCompleted  Status = "completed"
)

// Valid reports whether s is one of the four lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusASubmitted, StatusBSubmitted, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool { return s == StatusCompleted }

// OneSided reports whether exactly one side has submitted.
func (s Status) OneSided() bool {
	return s == StatusASubmitted || s == StatusBSubmitted
}

// Side identifies one of the two fixed slots of a pairing.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Other returns the opposite slot.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Submitted returns the one-sided status reached when this side
// submits first.
func (s Side) Submitted() Status {
	if s == SideA {
		return StatusASubmitted
	}
	return StatusBSubmitted
}

// Pairing is one day's assignment of two members to produce a photo
// together. Created only by the daily matching batch, mutated only by
// guarded status transitions, never deleted.
//
// Indexes:
//   - idx_pairing_day_a / idx_pairing_day_b (day, member slot)
//     serve the "today's pairing for member X" lookup.
//   - idx_pairing_status_expires (status, expires_at)
//     serves the recovery scan for overdue one-sided pairings.
type Pairing struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Day       time.Time `gorm:"not null;index:idx_pairing_day_a,priority:1;index:idx_pairing_day_b,priority:1"`
	ExpiresAt time.Time `gorm:"not null;index:idx_pairing_status_expires,priority:2"`
	MemberAID string    `gorm:"size:36;not null;index:idx_pairing_day_a,priority:2"`
	MemberBID string    `gorm:"size:36;not null;index:idx_pairing_day_b,priority:2"`
	Status    Status    `gorm:"size:16;not null;index:idx_pairing_status_expires,priority:1"`

	PhotoA        *string `gorm:"size:255"`
	PhotoB        *string `gorm:"size:255"`
	PhotoAPrivate bool    `gorm:"not null;default:false"`
	PhotoBPrivate bool    `gorm:"not null;default:false"`

	SubmittedAtA *time.Time
	SubmittedAtB *time.Time
	CompletedAt  *time.Time

	ArtificialCompletion bool    `gorm:"not null;default:false"`
	ArtificialReason     *string `gorm:"size:255"`

	ConversationID string `gorm:"size:36;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// SideOf returns the slot memberID occupies, if any.
func (p *Pairing) SideOf(memberID string) (Side, bool) {
	switch memberID {
	case p.MemberAID:
		return SideA, true
	case p.MemberBID:
		return SideB, true
	}
	return "", false
}

// Photo returns the photo reference for the given slot.
func (p *Pairing) Photo(side Side) *string {
	if side == SideA {
		return p.PhotoA
	}
	return p.PhotoB
}

// SubmittedSide returns the slot that has already submitted for a
// one-sided pairing, and false for any other status.
func (p *Pairing) SubmittedSide() (Side, bool) {
	switch p.Status {
	case StatusASubmitted:
		return SideA, true
	case StatusBSubmitted:
		return SideB, true
	}
	return "", false
}

// DayOf normalizes t to midnight in its own location. Pairings are
// keyed by this value.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ExpiryFor returns the submission deadline for the pairing day: the
// configured local hour of that same day.
func ExpiryFor(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}
