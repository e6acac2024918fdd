package bookmarks

import (
	"context"
	"strings"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
)

// SearchRequest is a raw search as entered by the user
type SearchRequest struct {
	Query  string
	Page   int
	Limit  int
	UserID *uint
}

// LinkPage is one page of search results
type LinkPage struct {
	Links      []LinkView `json:"links"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
	TotalLinks int64      `json:"total_links"`
	TotalPages int        `json:"total_pages"`
}

// SearchLinks runs a search. Anonymous searches see public links only; a
// signed-in user sees their own links.
func (s *Service) SearchLinks(ctx context.Context, req SearchRequest) (*LinkPage, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	limit := req.Limit
	if limit < 1 {
		limit = s.pageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	filter := store.NewFilter(req.Query, req.UserID)

	total, err := s.stores.Links.FindLinksCount(ctx, filter)
	if err != nil {
		return nil, err
	}
	found, err := s.stores.Links.FindLinks(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	links := make([]LinkView, 0, len(found))
	for _, l := range found {
		links = append(links, newLinkView(l.Link, l.Tags, req.UserID))
	}

	return &LinkPage{
		Links:      links,
		Page:       page,
		Limit:      limit,
		TotalLinks: total,
		TotalPages: int((total + int64(limit) - 1) / int64(limit)),
	}, nil
}

// TagSearchRequest asks for the tags of the links a query matches
type TagSearchRequest struct {
	Query  string
	Filter string
	Sort   store.TagSort
	UserID *uint
}

// SearchTags lists tag names on links matching the query, leaving out tags
// the query already filters on.
func (s *Service) SearchTags(ctx context.Context, req TagSearchRequest) ([]store.TagCount, error) {
	filter := store.NewFilter(req.Query, req.UserID)

	sort := req.Sort
	if sort != store.TagSortCount {
		sort = store.TagSortAlpha
	}

	found, err := s.stores.Tags.SearchTagNames(ctx, store.TagQuery{
		Links:      filter,
		NameFilter: strings.TrimSpace(req.Filter),
		Sort:       sort,
	})
	if err != nil {
		return nil, err
	}

	tags := make([]store.TagCount, 0, len(found))
	for _, t := range found {
		if isActiveTag(t.Name, filter.Tags) {
			continue
		}
		tags = append(tags, t)
	}
	return tags, nil
}

func isActiveTag(name string, active []string) bool {
	for _, a := range active {
		if strings.EqualFold(name, a) {
			return true
		}
	}
	return false
}

// PurgeUnusedTags deletes tags no link carries and returns how many went
func (s *Service) PurgeUnusedTags(ctx context.Context) (int64, error) {
	return s.stores.Tags.PurgeUnusedTags(ctx)
}

// ListTags returns every tag regardless of use
func (s *Service) ListTags(ctx context.Context) ([]models.Tag, error) {
	return s.stores.Tags.ListTags(ctx)
}

// DeleteTag removes a tag from every link and deletes it
func (s *Service) DeleteTag(ctx context.Context, id uint) (Result, error) {
	deleted, err := s.stores.Tags.DeleteTag(ctx, id)
	if err != nil {
		return Result{}, err
	}
	if !deleted {
		return fail(ReasonNotFound), nil
	}
	return succeeded, nil
}
