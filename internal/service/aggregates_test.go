package service

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
)

func TestWithSaveCount(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u1 := env.create(t, env.users, "Ada")
	u2 := env.create(t, env.users, "Grace")
	p1 := env.create(t, env.posts, "P1")
	p2 := env.create(t, env.posts, "P2")
	v := env.create(t, env.videos, "V")

	env.save(t, u1, p1, SaveOptions{})
	env.save(t, u2, p1, SaveOptions{})
	env.save(t, u1, v, SaveOptions{})

	counted, err := env.saves.WithSaveCount(ctx, []domain.Entity{p1, p2, v})
	require.NoError(t, err)
	require.Len(t, counted, 3)
	assert.Equal(t, p1.ID, counted[0].Entity.EntityID())
	assert.Equal(t, 2, counted[0].Count)
	assert.Equal(t, 0, counted[1].Count)
	assert.Equal(t, 1, counted[2].Count)
}

func TestWithSaveCount_Empty(t *testing.T) {
	env := setupTestEnv(t)

	counted, err := env.saves.WithSaveCount(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, counted)
}

func TestMostSaved(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	users := make([]*domain.Record, 3)
	for i := range users {
		users[i] = env.create(t, env.users, "U"+strconv.Itoa(i))
	}
	a := env.create(t, env.posts, "A")
	b := env.create(t, env.posts, "B")
	c := env.create(t, env.posts, "C")
	d := env.create(t, env.posts, "D")

	// c: 3, a: 1, d: 1, b: 0
	for _, u := range users {
		env.save(t, u, c, SaveOptions{})
	}
	env.save(t, users[0], a, SaveOptions{})
	env.save(t, users[1], d, SaveOptions{})

	top, err := env.saves.MostSaved(ctx, []domain.Entity{a, b, c, d}, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, c.ID, top[0].Entity.EntityID())
	assert.Equal(t, 3, top[0].Count)
	// Ties keep input order.
	assert.Equal(t, a.ID, top[1].Entity.EntityID())
	assert.Equal(t, d.ID, top[2].Entity.EntityID())
}

func TestMostSaved_DefaultLimit(t *testing.T) {
	env := setupTestEnv(t)
	posts := make([]domain.Entity, 12)
	for i := range posts {
		posts[i] = env.create(t, env.posts, "P"+strconv.Itoa(i))
	}

	top, err := env.saves.MostSaved(context.Background(), posts, 0)
	require.NoError(t, err)
	assert.Len(t, top, DefaultMostSavedLimit)
	assert.Equal(t, posts[0].EntityID(), top[0].Entity.EntityID())
}

func TestWithSaveStatus(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	other := env.create(t, env.users, "Grace")
	p1 := env.create(t, env.posts, "P1")
	p2 := env.create(t, env.posts, "P2")
	v := env.create(t, env.videos, "V")

	env.save(t, u, p1, SaveOptions{Metadata: domain.Metadata{"note": "later"}})
	env.save(t, u, v, SaveOptions{})
	env.save(t, other, p2, SaveOptions{})

	statuses, err := env.saves.WithSaveStatus(ctx, []domain.Entity{p1, p2, v, p1}, u)
	require.NoError(t, err)
	require.Len(t, statuses, 4)

	assert.True(t, statuses[0].IsSaved)
	assert.Equal(t, "later", statuses[0].Metadata["note"])
	assert.False(t, statuses[1].IsSaved)
	assert.Nil(t, statuses[1].Metadata)
	assert.True(t, statuses[2].IsSaved)
	assert.True(t, statuses[3].IsSaved)

	saved, err := env.saves.FilterSavedBy(ctx, []domain.Entity{p1, p2, v}, u)
	require.NoError(t, err)
	assert.Equal(t, []string{p1.ID, v.ID}, entityIDs(saved))
}

func TestAggregates_MaxMixedTypes(t *testing.T) {
	env := setupTestEnv(t, func(c *config.SaveableConfig) { c.MaxMixedTypes = 1 })
	ctx := context.Background()
	u := env.create(t, env.users, "Ada")
	p := env.create(t, env.posts, "P")
	v := env.create(t, env.videos, "V")

	_, err := env.saves.WithSaveCount(ctx, []domain.Entity{p, v})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)

	_, err = env.saves.WithSaveStatus(ctx, []domain.Entity{p, v}, u)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}
