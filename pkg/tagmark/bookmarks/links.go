package bookmarks

import (
	"context"
	"errors"
	"time"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
)

// LinkRequest holds the fields of a new link
type LinkRequest struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags"`
}

// LinkUpdate is a partial update. Owner and saved time are accepted only so
// attempts to change them can be refused.
type LinkUpdate struct {
	URL         *string    `json:"url"`
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	IsPublic    *bool      `json:"is_public"`
	UserID      *uint      `json:"user_id"`
	SavedAt     *time.Time `json:"saved_at"`
}

// CreateLink saves a link for userID and attaches its tags
func (s *Service) CreateLink(ctx context.Context, userID uint, req LinkRequest) (*LinkView, Result, error) {
	in := store.LinkInput{
		URL:         req.URL,
		Title:       req.Title,
		Description: req.Description,
		IsPublic:    req.IsPublic,
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, Result{Reason: ReasonInvalid, Detail: err.Error()}, nil
	}

	link, err := s.stores.Links.Create(ctx, userID, in)
	if err != nil {
		return nil, Result{}, err
	}

	tags, err := s.attachTags(ctx, link.ID, req.Tags)
	if err != nil {
		return nil, Result{}, err
	}

	view := newLinkView(*link, tags, &userID)
	return &view, succeeded, nil
}

// GetLink returns a link the viewer may see: their own, or any public link.
// viewer is nil for anonymous requests.
func (s *Service) GetLink(ctx context.Context, viewer *uint, id uint) (*LinkView, Result, error) {
	link, err := s.stores.Links.GetLink(ctx, id)
	if err != nil {
		return nil, Result{}, err
	}
	if link == nil {
		return nil, fail(ReasonNotFound), nil
	}
	isOwner := viewer != nil && *viewer == link.UserID
	if !isOwner && !link.IsPublic {
		// Private links are indistinguishable from missing ones
		return nil, fail(ReasonNotFound), nil
	}

	tags, err := s.linkTagNames(ctx, link.ID)
	if err != nil {
		return nil, Result{}, err
	}

	view := newLinkView(*link, tags, viewer)
	return &view, succeeded, nil
}

// UpdateLink applies update to a link owned by userID. Tags are unchanged.
func (s *Service) UpdateLink(ctx context.Context, userID, id uint, update LinkUpdate) (*LinkView, Result, error) {
	if update.URL != nil {
		if err := s.validate.Var(*update.URL, "required,http_url"); err != nil {
			return nil, Result{Reason: ReasonInvalid, Detail: "url: " + err.Error()}, nil
		}
	}
	if update.Title != nil {
		if err := s.validate.Var(*update.Title, "max=1024"); err != nil {
			return nil, Result{Reason: ReasonInvalid, Detail: "title: " + err.Error()}, nil
		}
	}

	_, res, err := s.ownedLink(ctx, userID, id)
	if err != nil || !res.Success {
		return nil, res, err
	}

	link, err := s.stores.Links.Update(ctx, id, store.LinkPatch{
		URL:         update.URL,
		Title:       update.Title,
		Description: update.Description,
		IsPublic:    update.IsPublic,
		UserID:      update.UserID,
		SavedAt:     update.SavedAt,
	})
	if errors.Is(err, store.ErrImmutableField) {
		return nil, Result{Reason: ReasonImmutable, Detail: err.Error()}, nil
	}
	if err != nil {
		return nil, Result{}, err
	}
	if link == nil {
		return nil, fail(ReasonNotFound), nil
	}

	tags, err := s.linkTagNames(ctx, id)
	if err != nil {
		return nil, Result{}, err
	}

	view := newLinkView(*link, tags, &userID)
	return &view, succeeded, nil
}

// DeleteLink removes a link owned by userID
func (s *Service) DeleteLink(ctx context.Context, userID, id uint) (Result, error) {
	_, res, err := s.ownedLink(ctx, userID, id)
	if err != nil || !res.Success {
		return res, err
	}

	deleted, err := s.stores.Links.Delete(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !deleted {
		return fail(ReasonNotFound), nil
	}
	return succeeded, nil
}

// SetLinkTags replaces the tags of a link owned by userID
func (s *Service) SetLinkTags(ctx context.Context, userID, id uint, names []string) ([]string, Result, error) {
	_, res, err := s.ownedLink(ctx, userID, id)
	if err != nil || !res.Success {
		return nil, res, err
	}

	tags, err := s.stores.Tags.GetOrCreateTagsByName(ctx, names)
	if err != nil {
		return nil, Result{}, err
	}

	ids := make([]uint, len(tags))
	tagNames := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
		tagNames[i] = t.Name
	}
	if _, err := s.stores.LinkTags.ReplaceForLink(ctx, id, ids); err != nil {
		return nil, Result{}, err
	}
	return tagNames, succeeded, nil
}

// ownedLink loads a link and checks that userID owns it
func (s *Service) ownedLink(ctx context.Context, userID, id uint) (*models.Link, Result, error) {
	link, err := s.stores.Links.GetLink(ctx, id)
	if err != nil {
		return nil, Result{}, err
	}
	if link == nil {
		return nil, fail(ReasonNotFound), nil
	}
	if link.UserID != userID {
		return nil, fail(ReasonNotOwner), nil
	}
	return link, succeeded, nil
}

func (s *Service) attachTags(ctx context.Context, linkID uint, names []string) ([]string, error) {
	tags, err := s.stores.Tags.GetOrCreateTagsByName(ctx, names)
	if err != nil || len(tags) == 0 {
		return []string{}, err
	}

	ids := make([]uint, len(tags))
	tagNames := make([]string, len(tags))
	for i, t := range tags {
		ids[i] = t.ID
		tagNames[i] = t.Name
	}
	if _, err := s.stores.LinkTags.Create(ctx, linkID, ids...); err != nil {
		return nil, err
	}
	return tagNames, nil
}

func (s *Service) linkTagNames(ctx context.Context, linkID uint) ([]string, error) {
	rows, err := s.stores.LinkTags.GetByLinkID(ctx, linkID)
	if err != nil || len(rows) == 0 {
		return []string{}, err
	}

	ids := make([]uint, len(rows))
	for i, r := range rows {
		ids[i] = r.TagID
	}
	tags, err := s.stores.Tags.GetTagsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return names, nil
}
