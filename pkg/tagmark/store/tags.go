package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"gorm.io/gorm"
)

// TagStore manages tag rows
type TagStore struct {
	db         *gorm.DB
	paramLimit int
}

// TagUpdate holds the mutable fields of a tag
type TagUpdate struct {
	Name *string
}

// TagSort selects the ordering of tag search results
type TagSort string

const (
	TagSortAlpha TagSort = "alpha"
	TagSortCount TagSort = "count"
)

// TagQuery selects tag names attached to links matching Links
type TagQuery struct {
	Links      Filter
	NameFilter string
	Sort       TagSort
}

// TagCount is a tag name with the number of matching links carrying it
type TagCount struct {
	Name      string `json:"name"`
	LinkCount int64  `json:"link_count"`
}

// CreateTag inserts a single tag
func (s *TagStore) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = NormalizeTagName(name)
	if name == "" {
		return nil, ErrEmptyTagName
	}

	tag := models.Tag{Name: name}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&tag).Error; err != nil {
			return fmt.Errorf("create tag: %w", err)
		}
		_, err := checkID(int64(tag.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &tag, nil
}

// CreateTags bulk-inserts tags and returns them with their ids, in the order
// of the normalized, deduplicated input.
func (s *TagStore) CreateTags(ctx context.Context, names []string) ([]models.Tag, error) {
	names = normalizeTagNames(names)
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	var tags []models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		tags, err = s.createTags(tx, names)
		return err
	})
	return tags, err
}

// createTags expects names already normalized and unique
func (s *TagStore) createTags(tx *gorm.DB, names []string) ([]models.Tag, error) {
	for _, batch := range chunk(names, s.paramLimit) {
		args := make([]interface{}, len(batch))
		for i, n := range batch {
			args[i] = n
		}
		sql := "INSERT INTO tags (name) VALUES " + valuesPlaceholder(len(batch), 1)
		if err := tx.Exec(sql, args...).Error; err != nil {
			return nil, fmt.Errorf("create tags: %w", err)
		}
	}

	byName, err := s.findByNames(tx, names)
	if err != nil {
		return nil, err
	}

	tags := make([]models.Tag, 0, len(names))
	for _, n := range names {
		tag, ok := byName[n]
		if !ok {
			return nil, fmt.Errorf("create tags: %q missing after insert", n)
		}
		if _, err := checkID(int64(tag.ID)); err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (s *TagStore) findByNames(tx *gorm.DB, names []string) (map[string]models.Tag, error) {
	byName := make(map[string]models.Tag, len(names))
	for _, batch := range chunk(names, s.paramLimit) {
		var found []models.Tag
		if err := tx.Where("name IN ?", batch).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find tags by name: %w", err)
		}
		for _, t := range found {
			byName[t.Name] = t
		}
	}
	return byName, nil
}

// GetTagByID returns the tag or nil if it does not exist
func (s *TagStore) GetTagByID(ctx context.Context, id uint) (*models.Tag, error) {
	var tag models.Tag
	err := s.db.WithContext(ctx).First(&tag, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// GetTagsByID returns the tags that exist among ids
func (s *TagStore) GetTagsByID(ctx context.Context, ids []uint) ([]models.Tag, error) {
	tags := []models.Tag{}
	for _, batch := range chunk(ids, s.paramLimit) {
		var found []models.Tag
		if err := s.db.WithContext(ctx).Where("id IN ?", batch).Order("id").Find(&found).Error; err != nil {
			return nil, fmt.Errorf("get tags: %w", err)
		}
		tags = append(tags, found...)
	}
	return tags, nil
}

// GetOrCreateTagsByName looks up all requested names at once and creates only
// the missing ones. Existing tags come first, then the new ones.
func (s *TagStore) GetOrCreateTagsByName(ctx context.Context, names []string) ([]models.Tag, error) {
	names = normalizeTagNames(names)
	if len(names) == 0 {
		return []models.Tag{}, nil
	}

	var tags []models.Tag
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		byName, err := s.findByNames(tx, names)
		if err != nil {
			return err
		}

		tags = make([]models.Tag, 0, len(names))
		var missing []string
		for _, n := range names {
			if tag, ok := byName[n]; ok {
				tags = append(tags, tag)
			} else {
				missing = append(missing, n)
			}
		}
		if len(missing) == 0 {
			return nil
		}

		created, err := s.createTags(tx, missing)
		if err != nil {
			return err
		}
		tags = append(tags, created...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tags, nil
}

// DeleteTag removes a tag and its associations
func (s *TagStore) DeleteTag(ctx context.Context, id uint) (bool, error) {
	n, err := s.DeleteTags(ctx, []uint{id})
	return n > 0, err
}

// DeleteTags removes tags and their associations, returning how many tags
// were deleted
func (s *TagStore) DeleteTags(ctx context.Context, ids []uint) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var deleted int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, batch := range chunk(ids, s.paramLimit) {
			if err := tx.Exec("DELETE FROM link_tags WHERE tag_id IN ?", batch).Error; err != nil {
				return err
			}
			res := tx.Exec("DELETE FROM tags WHERE id IN ?", batch)
			if res.Error != nil {
				return res.Error
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete tags: %w", err)
	}
	return deleted, nil
}

// UpdateTag renames a tag. It returns nil when there is nothing to update or
// the tag does not exist.
func (s *TagStore) UpdateTag(ctx context.Context, id uint, update TagUpdate) (*models.Tag, error) {
	if update.Name == nil {
		return nil, nil
	}
	name := NormalizeTagName(*update.Name)
	if name == "" {
		return nil, ErrEmptyTagName
	}

	res := s.db.WithContext(ctx).Model(&models.Tag{}).Where("id = ?", id).Update("name", name)
	if res.Error != nil {
		return nil, fmt.Errorf("update tag: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &models.Tag{ID: id, Name: name}, nil
}

// ListTags returns every tag ordered by name
func (s *TagStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags := []models.Tag{}
	if err := s.db.WithContext(ctx).Order("name").Find(&tags).Error; err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// SearchTagNames returns tag names containing q.NameFilter that are attached
// to at least one link matching q.Links.
func (s *TagStore) SearchTagNames(ctx context.Context, q TagQuery) ([]TagCount, error) {
	query := s.db.WithContext(ctx).Table("tags").
		Select("tags.name AS name, COUNT(DISTINCT links.id) AS link_count").
		Joins("JOIN link_tags ON link_tags.tag_id = tags.id").
		Joins("JOIN links ON links.id = link_tags.link_id").
		Scopes(q.Links.Scope)

	if q.NameFilter != "" {
		query = query.Where(`LOWER(tags.name) LIKE ? ESCAPE '\'`, likePattern(q.NameFilter))
	}

	query = query.Group("tags.id, tags.name")
	if q.Sort == TagSortCount {
		query = query.Order("link_count DESC").Order("LOWER(tags.name) ASC")
	} else {
		query = query.Order("LOWER(tags.name) ASC")
	}

	results := []TagCount{}
	if err := query.Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	return results, nil
}

// PurgeUnusedTags deletes every tag without associations
func (s *TagStore) PurgeUnusedTags(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Exec(
		"DELETE FROM tags WHERE NOT EXISTS (SELECT 1 FROM link_tags WHERE link_tags.tag_id = tags.id)",
	)
	if res.Error != nil {
		return 0, fmt.Errorf("purge tags: %w", res.Error)
	}
	return res.RowsAffected, nil
}
