package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/duosnap/backend/internal/db"
)

// MemberRepository reads the member projection and block rows for the
// matching run. The pairing engine never writes identity fields; flag
// and streak writes go through PairingRepository transactions.
type MemberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new repository bound to the given DB connection.
func NewMemberRepository(database *gorm.DB) *MemberRepository {
	return &MemberRepository{db: database}
}

// ListActive returns every active member. Recency and flake filtering
// happen in the matching package so the rules live in one place.
func (r *MemberRepository) ListActive(ctx context.Context) ([]db.Member, error) {
	var members []db.Member
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Find(&members).Error
	return members, err
}

// ListBlocks returns all block rows. The matcher treats a row in
// either direction as mutual.
func (r *MemberRepository) ListBlocks(ctx context.Context) ([]db.MemberBlock, error) {
	var blocks []db.MemberBlock
	err := r.db.WithContext(ctx).Find(&blocks).Error
	return blocks, err
}

// Get fetches one member by id.
func (r *MemberRepository) Get(ctx context.Context, id string) (*db.Member, error) {
	var m db.Member
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
