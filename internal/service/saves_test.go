package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/store"
)

func TestSave_HasSavedAndIdempotent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")

	created, err := env.saves.Save(ctx, u, p, SaveOptions{})
	require.NoError(t, err)
	assert.True(t, created)

	saved, err := env.saves.HasSaved(ctx, u, p)
	require.NoError(t, err)
	assert.True(t, saved)

	created, err = env.saves.Save(ctx, u, p, SaveOptions{Metadata: domain.Metadata{"ignored": true}})
	require.NoError(t, err)
	assert.False(t, created)

	n, err := env.store.CountSaves(ctx, store.SaveFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sv, found, err := env.saves.Find(ctx, u, p)
	require.NoError(t, err)
	require.True(t, found)
	assert.Nil(t, sv.Metadata, "second save must not mutate the row")
}

func TestSave_PersistsAlias(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")
	v := env.create(t, env.videos, "Video")

	env.save(t, u, p, SaveOptions{})
	env.save(t, u, v, SaveOptions{})

	sv, found, err := env.saves.Find(ctx, u, p)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, domain.EntityRef{Type: "user", ID: u.ID}, sv.Saver)
	assert.Equal(t, domain.EntityRef{Type: "post", ID: p.ID}, sv.Saveable)

	sv, _, err = env.saves.Find(ctx, u, v)
	require.NoError(t, err)
	assert.Equal(t, "app.Video", sv.Saveable.Type, "types without alias keep the canonical tag")
}

func TestSave_Roles(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")
	tag := env.create(t, env.tags, "go")

	_, err := env.saves.Save(ctx, p, u, SaveOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation, "posts cannot save")

	_, err = env.saves.Save(ctx, u, tag, SaveOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrValidation, "tags are not saveable")

	unknown := &domain.Record{Type: "app.Gone", ID: "x"}
	_, err = env.saves.Save(ctx, u, unknown, SaveOptions{})
	assert.ErrorIs(t, err, domainerrors.ErrUnknownType)
}

func TestSave_CollectionMustBelongToSaver(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u1 := env.create(t, env.users, "Ada")
	u2 := env.create(t, env.users, "Grace")
	p := env.create(t, env.posts, "Post")
	c := env.collection(t, u2, "Theirs", nil)

	_, err := env.saves.Save(ctx, u1, p, SaveOptions{Collection: c})
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestUnsave(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")

	removed, err := env.saves.Unsave(ctx, u, p)
	require.NoError(t, err)
	assert.False(t, removed, "never saved")

	env.save(t, u, p, SaveOptions{})

	removed, err = env.saves.Unsave(ctx, u, p)
	require.NoError(t, err)
	assert.True(t, removed)

	saved, err := env.saves.HasSaved(ctx, u, p)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestToggle_TwiceRestoresState(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")

	for _, start := range []bool{false, true} {
		before, err := env.saves.HasSaved(ctx, u, p)
		require.NoError(t, err)
		require.Equal(t, start, before)

		first, err := env.saves.Toggle(ctx, u, p, SaveOptions{})
		require.NoError(t, err)
		assert.Equal(t, !start, first)

		second, err := env.saves.Toggle(ctx, u, p, SaveOptions{})
		require.NoError(t, err)
		assert.Equal(t, start, second)

		after, err := env.saves.HasSaved(ctx, u, p)
		require.NoError(t, err)
		assert.Equal(t, start, after)

		if !start {
			env.save(t, u, p, SaveOptions{})
		}
	}
}

func TestOrdering(t *testing.T) {
	tests := []struct {
		name      string
		auto      bool
		positions []int
	}{
		{"auto ordering", true, []int{1, 2, 3}},
		{"manual ordering", false, []int{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestEnv(t, func(c *config.SaveableConfig) { c.AutoOrdering = tt.auto })
			ctx := context.Background()
			u := env.create(t, env.users, "Ada")

			var got []int
			for i := range 3 {
				p := env.create(t, env.posts, "Post")
				env.save(t, u, p, SaveOptions{})
				sv, _, err := env.saves.Find(ctx, u, p)
				require.NoError(t, err, i)
				got = append(got, sv.OrderPosition)
			}
			assert.Equal(t, tt.positions, got)
		})
	}
}

func TestOrdering_ScopesAreIndependent(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	c1 := env.collection(t, u, "One", nil)
	c2 := env.collection(t, u, "Two", nil)
	p1 := env.create(t, env.posts, "P1")
	p2 := env.create(t, env.posts, "P2")

	env.save(t, u, p1, SaveOptions{Collection: c1})
	env.save(t, u, p2, SaveOptions{Collection: c2})

	for _, p := range []domain.Entity{p1, p2} {
		sv, _, err := env.saves.Find(ctx, u, p)
		require.NoError(t, err)
		assert.Equal(t, 1, sv.OrderPosition)
	}
}

func TestMoveToCollection(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")
	c := env.collection(t, u, "Reading List", nil)

	moved, err := env.saves.MoveToCollection(ctx, u, p, c)
	require.NoError(t, err)
	assert.False(t, moved, "nothing saved yet")

	env.save(t, u, p, SaveOptions{})

	moved, err = env.saves.MoveToCollection(ctx, u, p, c)
	require.NoError(t, err)
	assert.True(t, moved)

	sv, _, err := env.saves.Find(ctx, u, p)
	require.NoError(t, err)
	assert.True(t, sv.InCollection(c.ID))

	moved, err = env.saves.MoveToCollection(ctx, u, p, nil)
	require.NoError(t, err)
	assert.True(t, moved)

	sv, _, err = env.saves.Find(ctx, u, p)
	require.NoError(t, err)
	assert.True(t, sv.IsUnsorted())

	other := env.create(t, env.users, "Grace")
	theirs := env.collection(t, other, "Theirs", nil)
	_, err = env.saves.MoveToCollection(ctx, u, p, theirs)
	assert.ErrorIs(t, err, domainerrors.ErrForbidden)
}

func TestUpdateMetadata(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")

	updated, err := env.saves.UpdateMetadata(ctx, u, p, domain.Metadata{"note": "x"})
	require.NoError(t, err)
	assert.False(t, updated)

	env.save(t, u, p, SaveOptions{Metadata: domain.Metadata{"note": "read later", "stars": 2}})

	updated, err = env.saves.UpdateMetadata(ctx, u, p, domain.Metadata{"stars": 5})
	require.NoError(t, err)
	assert.True(t, updated)

	sv, _, err := env.saves.Find(ctx, u, p)
	require.NoError(t, err)
	assert.Equal(t, "read later", sv.Metadata["note"])
	assert.InDelta(t, 5.0, sv.Metadata["stars"], 0.0001)
}

func TestSavedRecords(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	c := env.collection(t, u, "List", nil)
	p1 := env.create(t, env.posts, "P1")
	p2 := env.create(t, env.posts, "P2")
	p3 := env.create(t, env.posts, "P3")

	env.save(t, u, p1, SaveOptions{})
	env.save(t, u, p2, SaveOptions{Collection: c})
	env.save(t, u, p3, SaveOptions{})

	all, err := env.saves.SavedRecords(ctx, u)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Positions: p1=1, p2=1 (own scope), p3=2; ties newest first.
	assert.Equal(t, []string{p2.ID, p1.ID, p3.ID}, []string{all[0].Saveable.ID, all[1].Saveable.ID, all[2].Saveable.ID})

	unsorted, err := env.saves.UnsortedSavedRecords(ctx, u)
	require.NoError(t, err)
	require.Len(t, unsorted, 2)
	assert.Equal(t, p1.ID, unsorted[0].Saveable.ID)
	assert.Equal(t, p3.ID, unsorted[1].Saveable.ID)
}

func TestCanceledContext(t *testing.T) {
	env := setupTestEnv(t)
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "Post")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.saves.Save(ctx, u, p, SaveOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = env.saves.SavedItems(ctx, u, "")
	assert.ErrorIs(t, err, context.Canceled)
}
