package services

import (
	"context"
	"fmt"
	"testing"

	"ficehub/internal/models"
	"ficehub/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSeesMutationsThroughCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	h.post(t, u, "First")

	got, err := h.search.Search(ctx, SearchCriteria{Text: "first"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// served from cache until a mutation purges it
	second := h.post(t, u, "First again")
	got, err = h.search.Search(ctx, SearchCriteria{Text: "FIRST"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, second.Slug, got[0].Slug)

	require.NoError(t, h.content.DeletePost(ctx, u, second.Slug))
	got, err = h.search.Search(ctx, SearchCriteria{Text: "first"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchCombinesFilters(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	for _, name := range []string{"go", "rust"} {
		_, err := h.taxonomy.CreateTag(ctx, u, name)
		require.NoError(t, err)
	}
	a := h.post(t, u, "Alpha", "go")
	b := h.post(t, u, "Beta", "go", "rust")
	h.post(t, u, "Gamma")

	_, err := h.content.Vote(ctx, h.user(t, "fan"), "post", a.ID, 1)
	require.NoError(t, err)

	got, err := h.search.Search(ctx, SearchCriteria{Tags: []string{"go", "rust"}, Sort: SortHighestRated})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a.Slug, got[0].Slug)
	assert.Equal(t, b.Slug, got[1].Slug)

	got, err = h.search.Search(ctx, SearchCriteria{Category: "lectures"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchFillsCommentCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	p := h.post(t, u, "Talked about")
	h.comment(t, u, p, "one", nil)
	h.comment(t, u, p, "two", nil)

	got, err := h.search.Search(ctx, SearchCriteria{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].CommentCount)
}

func TestSearchReturnsEveryMatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	general := testutil.Category(t, h.db, "general")

	const n = 250
	for i := range n {
		testutil.Post(t, h.db, models.Post{
			AuthorID:   u.ID,
			CategoryID: general.ID,
			Name:       fmt.Sprintf("Bulk post %d", i),
		})
	}

	got, err := h.search.Search(ctx, SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, got, n)

	got, err = h.search.Search(ctx, SearchCriteria{Text: "bulk"})
	require.NoError(t, err)
	assert.Len(t, got, n)
}

func TestSearchMatchesNonASCIIText(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	p := h.post(t, u, "Привет Мир")
	h.post(t, u, "Hello world")

	for _, text := range []string{"привет", "ПРИВЕТ", "мир"} {
		got, err := h.search.Search(ctx, SearchCriteria{Text: text})
		require.NoError(t, err, text)
		require.Len(t, got, 1, text)
		assert.Equal(t, p.Slug, got[0].Slug, text)
	}
}
