package bookmarks

import (
	"context"
	"fmt"
	"io"

	"github.com/mikepea/tagmark/pkg/tagmark/logger"
	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/mikepea/tagmark/pkg/tagmark/netscape"
	"github.com/mikepea/tagmark/pkg/tagmark/progress"
	"github.com/mikepea/tagmark/pkg/tagmark/store"
)

// progressInterval is how many links are processed between progress messages
const progressInterval = 10

// ImportResult summarizes an import
type ImportResult struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Import reads a Netscape bookmark file into userID's links. Entries whose URL
// is not http(s) are skipped. Progress goes to the user's live connection.
func (s *Service) Import(ctx context.Context, userID uint, r io.Reader) (*ImportResult, error) {
	parsed, err := netscape.Parse(r)
	if err != nil {
		return nil, err
	}

	imports := make([]store.LinkImport, 0, len(parsed))
	tagLists := make([][]string, 0, len(parsed))
	skipped := 0
	for _, bm := range parsed {
		if err := s.validate.Var(bm.URL, "required,http_url"); err != nil {
			skipped++
			continue
		}
		imports = append(imports, store.LinkImport{
			UserID:      userID,
			URL:         bm.URL,
			Title:       bm.Title,
			Description: bm.Description,
			SavedAt:     bm.AddDate.UTC(),
			IsPublic:    bm.IsPublic,
		})
		tagLists = append(tagLists, bm.Tags)
	}

	ids, err := s.stores.Links.ImportLinks(ctx, imports)
	if err != nil {
		return nil, err
	}

	cache := make(map[string]models.Tag)
	total := len(ids)
	for i, linkID := range ids {
		if i%progressInterval == 0 {
			s.notifier.Notify(userID, progress.NewImportProgress(float64(i)/float64(total)*100))
		}
		if len(tagLists[i]) == 0 {
			continue
		}

		tagIDs, err := s.resolveTags(ctx, cache, tagLists[i])
		if err != nil {
			return nil, fmt.Errorf("import tags for link %d: %w", linkID, err)
		}
		if _, err := s.stores.LinkTags.Create(ctx, linkID, tagIDs...); err != nil {
			return nil, fmt.Errorf("import tags for link %d: %w", linkID, err)
		}
	}
	s.notifier.Notify(userID, progress.NewImportProgress(100))

	logger.Log.Info().
		Uint("user_id", userID).
		Int("imported", total).
		Int("skipped", skipped).
		Int("tags", len(cache)).
		Msg("bookmarks imported")

	return &ImportResult{Imported: total, Skipped: skipped}, nil
}

// resolveTags maps names to tag ids, consulting the store only for names the
// import has not seen yet.
func (s *Service) resolveTags(ctx context.Context, cache map[string]models.Tag, names []string) ([]uint, error) {
	var missing []string
	for _, n := range names {
		n = store.NormalizeTagName(n)
		if n == "" {
			continue
		}
		if _, ok := cache[n]; !ok {
			missing = append(missing, n)
		}
	}

	if len(missing) > 0 {
		tags, err := s.stores.Tags.GetOrCreateTagsByName(ctx, missing)
		if err != nil {
			return nil, err
		}
		for _, t := range tags {
			cache[t.Name] = t
		}
	}

	ids := make([]uint, 0, len(names))
	for _, n := range names {
		if tag, ok := cache[store.NormalizeTagName(n)]; ok {
			ids = append(ids, tag.ID)
		}
	}
	return ids, nil
}

// Export renders every link of userID as a Netscape bookmark file
func (s *Service) Export(ctx context.Context, userID uint) (string, error) {
	links, err := s.stores.Links.TagsForLinks(ctx, userID)
	if err != nil {
		return "", err
	}

	bookmarks := make([]netscape.Bookmark, len(links))
	for i, l := range links {
		bookmarks[i] = netscape.Bookmark{
			URL:         l.URL,
			Title:       l.Title,
			Description: l.Description,
			Tags:        l.Tags,
			AddDate:     l.SavedAt,
			IsPublic:    l.IsPublic,
		}
	}
	return netscape.Render(bookmarks), nil
}
