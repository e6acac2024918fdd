package store

import (
	"context"
	"testing"

	"github.com/mikepea/tagmark/pkg/tagmark/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countTags(t *testing.T, s *Stores) int {
	tags, err := s.Tags.ListTags(context.Background())
	require.NoError(t, err)
	return len(tags)
}

func TestCreateTag(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	tag, err := s.Tags.CreateTag(ctx, " Golang ")
	require.NoError(t, err)
	assert.NotZero(t, tag.ID)
	assert.Equal(t, "golang", tag.Name)

	_, err = s.Tags.CreateTag(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyTagName)
}

func TestCreateTagIDOverflowLeavesNoRow(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Exec("INSERT INTO tags (id, name) VALUES (?, ?)", int64(MaxSafeID), "last").Error)

	tag, err := s.Tags.CreateTag(ctx, "overflow")
	assert.ErrorIs(t, err, ErrIDOverflow)
	assert.Nil(t, tag)

	var count int64
	db.Model(&models.Tag{}).Where("name = ?", "overflow").Count(&count)
	assert.Zero(t, count)
}

func TestSearchTagNamesFoldsNonASCIICase(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")

	createTaggedLink(t, s, alice.ID, LinkInput{URL: "https://pastry.example", Title: "Pastry"}, "Éclair", "bread")

	got, err := s.Tags.SearchTagNames(ctx, TagQuery{Links: Filter{UserID: &alice.ID}, NameFilter: "ÉCL", Sort: TagSortAlpha})
	require.NoError(t, err)
	assert.Equal(t, []TagCount{{Name: "éclair", LinkCount: 1}}, got)
}

func TestCreateTagsCollapsesDuplicates(t *testing.T) {
	_, s := setupTestDB(t)

	tags, err := s.Tags.CreateTags(context.Background(), []string{"go", "Go", "rust", " GO "})
	require.NoError(t, err)
	require.Len(t, tags, 2)
	assert.Equal(t, "go", tags[0].Name)
	assert.Equal(t, "rust", tags[1].Name)
	assert.NotEqual(t, tags[0].ID, tags[1].ID)
}

func TestGetOrCreateTagsByNameIsIdempotent(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	tags, err := s.Tags.GetOrCreateTagsByName(ctx, []string{"go", "rust", "go", "GO", "sql"})
	require.NoError(t, err)
	assert.Len(t, tags, 3)
	assert.Equal(t, 3, countTags(t, s))

	again, err := s.Tags.GetOrCreateTagsByName(ctx, []string{"sql", "go", "zig"})
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, 4, countTags(t, s))

	// Existing tags first, then created ones
	assert.Equal(t, "sql", again[0].Name)
	assert.Equal(t, "go", again[1].Name)
	assert.Equal(t, "zig", again[2].Name)

	third, err := s.Tags.GetOrCreateTagsByName(ctx, []string{"go", "rust", "sql", "zig"})
	require.NoError(t, err)
	assert.Len(t, third, 4)
	assert.Equal(t, 4, countTags(t, s))
}

func TestGetOrCreateTagsByNameManyNames(t *testing.T) {
	_, s := setupTestDB(t)

	names := make([]string, 1500)
	for i := range names {
		names[i] = "tag" + string(rune('a'+i%26)) + string(rune('a'+(i/26)%26)) + string(rune('a'+i/676))
	}
	tags, err := s.Tags.GetOrCreateTagsByName(context.Background(), names)
	require.NoError(t, err)
	assert.Len(t, tags, 1500)
	assert.Equal(t, 1500, countTags(t, s))
}

func TestGetTagsByID(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	created, err := s.Tags.CreateTags(ctx, []string{"a", "b"})
	require.NoError(t, err)

	tag, err := s.Tags.GetTagByID(ctx, created[0].ID)
	require.NoError(t, err)
	require.NotNil(t, tag)
	assert.Equal(t, "a", tag.Name)

	missing, err := s.Tags.GetTagByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)

	tags, err := s.Tags.GetTagsByID(ctx, []uint{created[1].ID, 9999, created[0].ID})
	require.NoError(t, err)
	assert.Len(t, tags, 2)
}

func TestUpdateTag(t *testing.T) {
	_, s := setupTestDB(t)
	ctx := context.Background()

	tag, err := s.Tags.CreateTag(ctx, "old")
	require.NoError(t, err)

	unchanged, err := s.Tags.UpdateTag(ctx, tag.ID, TagUpdate{})
	require.NoError(t, err)
	assert.Nil(t, unchanged)

	name := "New Name"
	updated, err := s.Tags.UpdateTag(ctx, tag.ID, TagUpdate{Name: &name})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "new-name", updated.Name)

	absent, err := s.Tags.UpdateTag(ctx, 9999, TagUpdate{Name: &name})
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestDeleteTags(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")

	link := createTaggedLink(t, s, user.ID, LinkInput{URL: "https://a.example"}, "a", "b", "c")
	tags, err := s.Tags.GetOrCreateTagsByName(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)

	ok, err := s.Tags.DeleteTag(ctx, tags[0].ID)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.Tags.DeleteTags(ctx, []uint{tags[1].ID, tags[2].ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	rows, err := s.LinkTags.GetByLinkID(ctx, link.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	ok, err = s.Tags.DeleteTag(ctx, 9999)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPurgeUnusedTags(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	user := createTestUser(t, db, "alice")

	keep := createTaggedLink(t, s, user.ID, LinkInput{URL: "https://keep.example"}, "keep", "shared")
	drop := createTaggedLink(t, s, user.ID, LinkInput{URL: "https://drop.example"}, "orphan", "shared")

	_, err := s.LinkTags.DeleteByLinkID(ctx, drop.ID)
	require.NoError(t, err)

	n, err := s.Tags.PurgeUnusedTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	tags, err := s.Tags.ListTags(ctx)
	require.NoError(t, err)
	names := []string{}
	for _, tag := range tags {
		names = append(names, tag.Name)
	}
	assert.ElementsMatch(t, []string{"keep", "shared"}, names)

	rows, err := s.LinkTags.GetByLinkID(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSearchTagNames(t *testing.T) {
	db, s := setupTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	createTaggedLink(t, s, alice.ID, LinkInput{URL: "https://go.dev", Title: "Go"}, "golang", "lang")
	createTaggedLink(t, s, alice.ID, LinkInput{URL: "https://rust-lang.org", Title: "Rust"}, "rust", "lang")
	createTaggedLink(t, s, alice.ID, LinkInput{URL: "https://ziglang.org", Title: "Zig"}, "Zig", "lang")
	createTaggedLink(t, s, bob.ID, LinkInput{URL: "https://bob.example", IsPublic: true}, "bobs")
	// A tag with no links at all
	_, err := s.Tags.CreateTag(ctx, "unused")
	require.NoError(t, err)

	t.Run("alpha", func(t *testing.T) {
		got, err := s.Tags.SearchTagNames(ctx, TagQuery{Links: Filter{UserID: &alice.ID}, Sort: TagSortAlpha})
		require.NoError(t, err)
		assert.Equal(t, []TagCount{
			{Name: "golang", LinkCount: 1},
			{Name: "lang", LinkCount: 3},
			{Name: "rust", LinkCount: 1},
			{Name: "zig", LinkCount: 1},
		}, got)
	})

	t.Run("count", func(t *testing.T) {
		got, err := s.Tags.SearchTagNames(ctx, TagQuery{Links: Filter{UserID: &alice.ID}, Sort: TagSortCount})
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Equal(t, "lang", got[0].Name)
		assert.Equal(t, "golang", got[1].Name)
	})

	t.Run("name filter", func(t *testing.T) {
		got, err := s.Tags.SearchTagNames(ctx, TagQuery{Links: Filter{UserID: &alice.ID}, NameFilter: "LANG"})
		require.NoError(t, err)
		assert.Equal(t, []TagCount{{Name: "golang", LinkCount: 1}, {Name: "lang", LinkCount: 3}}, got)
	})

	t.Run("link filter", func(t *testing.T) {
		got, err := s.Tags.SearchTagNames(ctx, TagQuery{Links: Filter{UserID: &alice.ID, Terms: []string{"rust"}}})
		require.NoError(t, err)
		assert.Equal(t, []TagCount{{Name: "lang", LinkCount: 1}, {Name: "rust", LinkCount: 1}}, got)
	})

	t.Run("public scope", func(t *testing.T) {
		got, err := s.Tags.SearchTagNames(ctx, TagQuery{})
		require.NoError(t, err)
		assert.Equal(t, []TagCount{{Name: "bobs", LinkCount: 1}}, got)
	})
}

