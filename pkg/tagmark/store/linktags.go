package store

import (
	"context"
	"fmt"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkTagStore manages link/tag association rows
type LinkTagStore struct {
	db         *gorm.DB
	paramLimit int
}

// Create associates tagIDs with linkID. Either every row is written or none.
// Associations that already exist are left in place.
func (s *LinkTagStore) Create(ctx context.Context, linkID uint, tagIDs ...uint) ([]models.LinkTag, error) {
	var rows []models.LinkTag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		rows, err = s.create(tx, linkID, tagIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *LinkTagStore) create(tx *gorm.DB, linkID uint, tagIDs []uint) ([]models.LinkTag, error) {
	rows := make([]models.LinkTag, 0, len(tagIDs))
	seen := make(map[uint]bool, len(tagIDs))
	for _, id := range tagIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		rows = append(rows, models.LinkTag{LinkID: linkID, TagID: id})
	}
	if len(rows) == 0 {
		return rows, nil
	}

	// Two bound parameters per row
	batchSize := s.paramLimit / 2
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, batchSize).Error; err != nil {
		return nil, fmt.Errorf("create link tags: %w", err)
	}
	return rows, nil
}

// GetByLinkID returns the associations of one link
func (s *LinkTagStore) GetByLinkID(ctx context.Context, linkID uint) ([]models.LinkTag, error) {
	rows := []models.LinkTag{}
	if err := s.db.WithContext(ctx).Where("link_id = ?", linkID).Order("tag_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("get link tags: %w", err)
	}
	return rows, nil
}

// DeleteByLinkID removes every association of a link
func (s *LinkTagStore) DeleteByLinkID(ctx context.Context, linkID uint) (bool, error) {
	res := s.db.WithContext(ctx).Where("link_id = ?", linkID).Delete(&models.LinkTag{})
	if res.Error != nil {
		return false, fmt.Errorf("delete link tags: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// ReplaceForLink swaps a link's whole tag set in one transaction
func (s *LinkTagStore) ReplaceForLink(ctx context.Context, linkID uint, tagIDs []uint) ([]models.LinkTag, error) {
	var rows []models.LinkTag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", linkID).Delete(&models.LinkTag{}).Error; err != nil {
			return fmt.Errorf("delete link tags: %w", err)
		}
		var err error
		rows, err = s.create(tx, linkID, tagIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}
