package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"gorm.io/gorm"
)

// LinkStore manages link rows
type LinkStore struct {
	db         *gorm.DB
	paramLimit int
}

// LinkInput holds the fields supplied when saving a link
type LinkInput struct {
	URL         string `validate:"required,http_url"`
	Title       string `validate:"max=1024"`
	Description string
	IsPublic    bool
}

// LinkImport is one link of a bulk import. SavedAt comes from the imported
// file rather than the clock.
type LinkImport struct {
	UserID      uint
	URL         string
	Title       string
	Description string
	SavedAt     time.Time
	IsPublic    bool
}

// importColumns is the number of bound parameters per imported row
const importColumns = 6

// LinkPatch is a partial update. UserID and SavedAt exist only so callers
// that try to change them are rejected.
type LinkPatch struct {
	URL         *string
	Title       *string
	Description *string
	IsPublic    *bool
	UserID      *uint
	SavedAt     *time.Time
}

// LinkWithTags is a link together with its tag names
type LinkWithTags struct {
	models.Link
	Tags []string `json:"tags"`
}

// Create saves a new link for userID, stamped with the current time
func (s *LinkStore) Create(ctx context.Context, userID uint, in LinkInput) (*models.Link, error) {
	link := models.Link{
		URL:         in.URL,
		Title:       in.Title,
		Description: in.Description,
		SavedAt:     time.Now().UTC(),
		IsPublic:    in.IsPublic,
		UserID:      userID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&link).Error; err != nil {
			return fmt.Errorf("create link: %w", err)
		}
		_, err := checkID(int64(link.ID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &link, nil
}

// BatchSize is the number of rows per bulk insert statement
func (s *LinkStore) BatchSize() int {
	n := s.paramLimit / importColumns
	if n < 1 {
		return 1
	}
	return n
}

// ImportLinks bulk-inserts links and returns their ids in input order.
// Rows go in as multi-row inserts sized to the parameter ceiling, all inside
// one transaction, with ids taken from RETURNING.
func (s *LinkStore) ImportLinks(ctx context.Context, links []LinkImport) ([]uint, error) {
	ids := make([]uint, 0, len(links))
	if len(links) == 0 {
		return ids, nil
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, batch := range chunk(links, s.BatchSize()) {
			batchIDs, err := insertLinkBatch(tx, batch)
			if err != nil {
				return err
			}
			ids = append(ids, batchIDs...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func insertLinkBatch(tx *gorm.DB, batch []LinkImport) ([]uint, error) {
	args := make([]interface{}, 0, len(batch)*importColumns)
	for _, l := range batch {
		args = append(args, l.URL, l.Title, l.Description, l.SavedAt.UTC(), l.IsPublic, l.UserID)
	}
	sql := "INSERT INTO links (url, title, description, saved_at, is_public, user_id) VALUES " +
		valuesPlaceholder(len(batch), importColumns) + " RETURNING id"

	rows, err := tx.Raw(sql, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("import links: %w", err)
	}
	defer rows.Close()

	raw := make([]int64, 0, len(batch))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("import links: %w", err)
		}
		raw = append(raw, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("import links: %w", err)
	}
	if len(raw) != len(batch) {
		return nil, fmt.Errorf("import links: inserted %d rows, got %d ids", len(batch), len(raw))
	}

	// Rowids are assigned in VALUES order; RETURNING order is not guaranteed.
	sort.Slice(raw, func(i, j int) bool { return raw[i] < raw[j] })

	ids := make([]uint, len(raw))
	for i, id := range raw {
		checked, err := checkID(id)
		if err != nil {
			return nil, err
		}
		ids[i] = checked
	}
	return ids, nil
}

// GetLink returns the link or nil if it does not exist
func (s *LinkStore) GetLink(ctx context.Context, id uint) (*models.Link, error) {
	var link models.Link
	err := s.db.WithContext(ctx).First(&link, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// GetAllLinks returns the links of userID, or every public link when userID
// is nil, newest first
func (s *LinkStore) GetAllLinks(ctx context.Context, userID *uint) ([]models.Link, error) {
	query := s.db.WithContext(ctx).Order("saved_at DESC").Order("id DESC")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	} else {
		query = query.Where("is_public = ?", true)
	}

	links := []models.Link{}
	if err := query.Find(&links).Error; err != nil {
		return nil, fmt.Errorf("get links: %w", err)
	}
	return links, nil
}

// linkTagRow is one row of the links/tags left join
type linkTagRow struct {
	ID          uint
	URL         string
	Title       string
	Description string
	SavedAt     time.Time
	IsPublic    bool
	UserID      uint
	TagName     *string
}

// FindLinks returns one page of links matching f, newest first, each with
// its tags.
func (s *LinkStore) FindLinks(ctx context.Context, f Filter, offset, limit int) ([]LinkWithTags, error) {
	if offset < 0 {
		offset = 0
	}

	var ids []uint
	err := s.db.WithContext(ctx).Table("links").
		Scopes(f.Scope).
		Order("links.saved_at DESC").Order("links.id DESC").
		Offset(offset).Limit(limit).
		Pluck("links.id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("find links: %w", err)
	}
	if len(ids) == 0 {
		return []LinkWithTags{}, nil
	}

	return s.withTags(ctx, ids)
}

// withTags loads the links in ids with their tag names, newest first
func (s *LinkStore) withTags(ctx context.Context, ids []uint) ([]LinkWithTags, error) {
	var rows []linkTagRow
	for _, batch := range chunk(ids, s.paramLimit) {
		var part []linkTagRow
		err := s.db.WithContext(ctx).Table("links").
			Select("links.id, links.url, links.title, links.description, links.saved_at, " +
				"links.is_public, links.user_id, tags.name AS tag_name").
			Joins("LEFT JOIN link_tags ON link_tags.link_id = links.id").
			Joins("LEFT JOIN tags ON tags.id = link_tags.tag_id").
			Where("links.id IN ?", batch).
			Order("links.saved_at DESC").Order("links.id DESC").Order("tags.name ASC").
			Scan(&part).Error
		if err != nil {
			return nil, fmt.Errorf("load link tags: %w", err)
		}
		rows = append(rows, part...)
	}
	return foldLinkRows(rows), nil
}

// foldLinkRows collapses join rows into one entry per link, keeping the row
// order of links and the first-seen order of tags
func foldLinkRows(rows []linkTagRow) []LinkWithTags {
	out := []LinkWithTags{}
	index := make(map[uint]int)
	seenTags := make(map[uint]map[string]bool)

	for _, r := range rows {
		i, ok := index[r.ID]
		if !ok {
			i = len(out)
			index[r.ID] = i
			seenTags[r.ID] = make(map[string]bool)
			out = append(out, LinkWithTags{
				Link: models.Link{
					ID:          r.ID,
					URL:         r.URL,
					Title:       r.Title,
					Description: r.Description,
					SavedAt:     r.SavedAt,
					IsPublic:    r.IsPublic,
					UserID:      r.UserID,
				},
				Tags: []string{},
			})
		}
		if r.TagName == nil || seenTags[r.ID][*r.TagName] {
			continue
		}
		seenTags[r.ID][*r.TagName] = true
		out[i].Tags = append(out[i].Tags, *r.TagName)
	}
	return out
}

// FindLinksCount counts the links matching f
func (s *LinkStore) FindLinksCount(ctx context.Context, f Filter) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Table("links").
		Scopes(f.Scope).
		Distinct("links.id").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count links: %w", err)
	}
	return count, nil
}

// TagsForLinks returns the links of userID with their tags, newest first.
// Used by export, which needs every link rather than a page.
func (s *LinkStore) TagsForLinks(ctx context.Context, userID uint) ([]LinkWithTags, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Link{}).
		Where("user_id = ?", userID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list link ids: %w", err)
	}
	if len(ids) == 0 {
		return []LinkWithTags{}, nil
	}
	links, err := s.withTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Batches are ordered individually; restore global order.
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].SavedAt.Equal(links[j].SavedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].SavedAt.After(links[j].SavedAt)
	})
	return links, nil
}

// Update merges patch onto the stored link. It returns nil if the link does
// not exist and ErrImmutableField if the patch changes the owner or saved time.
// Tags are not touched.
func (s *LinkStore) Update(ctx context.Context, id uint, patch LinkPatch) (*models.Link, error) {
	link, err := s.GetLink(ctx, id)
	if err != nil || link == nil {
		return nil, err
	}

	if patch.UserID != nil && *patch.UserID != link.UserID {
		return nil, fmt.Errorf("%w: user_id", ErrImmutableField)
	}
	if patch.SavedAt != nil && !patch.SavedAt.Equal(link.SavedAt) {
		return nil, fmt.Errorf("%w: saved_at", ErrImmutableField)
	}

	updates := map[string]interface{}{}
	if patch.URL != nil {
		updates["url"] = *patch.URL
		link.URL = *patch.URL
	}
	if patch.Title != nil {
		updates["title"] = *patch.Title
		link.Title = *patch.Title
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
		link.Description = *patch.Description
	}
	if patch.IsPublic != nil {
		updates["is_public"] = *patch.IsPublic
		link.IsPublic = *patch.IsPublic
	}
	if len(updates) == 0 {
		return link, nil
	}

	if err := s.db.WithContext(ctx).Model(&models.Link{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update link: %w", err)
	}
	return link, nil
}

// Delete removes a link and its associations
func (s *LinkStore) Delete(ctx context.Context, id uint) (bool, error) {
	var deleted bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&models.LinkTag{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Link{}, id)
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete link: %w", err)
	}
	return deleted, nil
}
