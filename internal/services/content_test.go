package services

import (
	"context"
	"testing"

	"ficehub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePostValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")

	tests := []struct {
		name string
		in   PostInput
		want error
	}{
		{"missing name", PostInput{Name: "  ", Body: "b", Category: "general"}, ErrInvalidInput},
		{"missing body", PostInput{Name: "n", Body: "\n", Category: "general"}, ErrInvalidInput},
		{"unknown category", PostInput{Name: "n", Body: "b", Category: "nope"}, ErrInvalidInput},
		{"unknown tag", PostInput{Name: "n", Body: "b", Category: "general", Tags: []string{"nope"}}, ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.content.CreatePost(ctx, u, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	blocked := h.user(t, "blocked")
	blocked.IsBlocked = true
	_, err := h.content.CreatePost(ctx, blocked, PostInput{Name: "n", Body: "b", Category: "general"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreatePostDefaults(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	_, err := h.taxonomy.CreateTag(ctx, u, "Go")
	require.NoError(t, err)

	p, err := h.content.CreatePost(ctx, u, PostInput{Name: "Hello World!", Body: "# hi", Category: "general", Tags: []string{"go", "go"}})
	require.NoError(t, err)

	got, err := h.content.Post(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, "hello-world", got.Slug)
	assert.Equal(t, 0, got.Score)
	assert.Equal(t, 1, got.Views)
	assert.Equal(t, []string{"go"}, got.TagSlugs())
	assert.Equal(t, "u", got.Author.Username)
}

func TestUpdatePostKeepsSlug(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	other := h.user(t, "other")
	for _, name := range []string{"go", "sql"} {
		_, err := h.taxonomy.CreateTag(ctx, u, name)
		require.NoError(t, err)
	}
	p := h.post(t, u, "Original", "go")

	name, category, tags := "Renamed", "projects", []string{"sql"}
	got, err := h.content.UpdatePost(ctx, u, p.Slug, PostUpdate{Name: &name, Category: &category, Tags: &tags})
	require.NoError(t, err)
	assert.Equal(t, "original", got.Slug)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "projects", got.Category.Slug)
	assert.Equal(t, []string{"sql"}, got.TagSlugs())

	none := []string{}
	got, err = h.content.UpdatePost(ctx, u, p.Slug, PostUpdate{Tags: &none})
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	_, err = h.content.UpdatePost(ctx, other, p.Slug, PostUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = h.content.UpdatePost(ctx, u, "missing", PostUpdate{Name: &name})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeletePostPermissions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u := h.user(t, "u")
	other := h.user(t, "other")
	admin := h.admin(t)

	p := h.post(t, u, "Mine")
	assert.ErrorIs(t, h.content.DeletePost(ctx, other, p.Slug), ErrForbidden)
	require.NoError(t, h.content.DeletePost(ctx, admin, p.Slug))
	assert.ErrorIs(t, h.content.DeletePost(ctx, u, p.Slug), ErrNotFound)
}

func TestViewPostCountsViews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	p := h.post(t, h.user(t, "u"), "Popular")

	got, err := h.content.ViewPost(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)
	got, err = h.content.ViewPost(ctx, p.Slug)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Views)
}

func TestVoteOncePerUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	author := h.user(t, "author")
	voter := h.user(t, "voter")
	p := h.post(t, author, "p")

	out, err := h.content.Vote(ctx, voter, models.KindPost, p.ID, 1)
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, 1, out.Score)

	out, err = h.content.Vote(ctx, voter, models.KindPost, p.ID, -1)
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, 1, out.Score)
	assert.Equal(t, 1.0, h.rated(t, author.ID))

	_, err = h.content.Vote(ctx, voter, models.KindPost, p.ID, 2)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = h.content.Vote(ctx, voter, models.KindComment, 999, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}
