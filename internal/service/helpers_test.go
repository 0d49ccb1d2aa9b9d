package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/store/sqlite"
)

type testEnv struct {
	store       *sqlite.Store
	registry    *morph.Registry
	saves       *SaveService
	collections *CollectionService

	users  *sqlite.EntityHandler
	posts  *sqlite.EntityHandler
	videos *sqlite.EntityHandler
	teams  *sqlite.EntityHandler
	tags   *sqlite.EntityHandler
}

func setupTestEnv(t *testing.T, mutate ...func(*config.SaveableConfig)) *testEnv {
	t.Helper()

	cfg := config.DefaultSaveableConfig()
	for _, m := range mutate {
		m(&cfg)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger, sqlite.WithSaveableConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	env := &testEnv{
		store:    st,
		registry: morph.New(),
		users:    st.EntityHandler("app.User"),
		posts:    st.EntityHandler("app.Post"),
		videos:   st.EntityHandler("app.Video"),
		teams:    st.EntityHandler("app.Team"),
		tags:     st.EntityHandler("app.Tag"),
	}
	env.registry.MustRegister("app.User", env.users, morph.WithAlias("user"), morph.AsSaver(), morph.AsSaveable(), morph.AsOwner())
	env.registry.MustRegister("app.Post", env.posts, morph.WithAlias("post"), morph.AsSaveable())
	env.registry.MustRegister("app.Video", env.videos, morph.AsSaveable())
	env.registry.MustRegister("app.Team", env.teams, morph.WithAlias("team"), morph.AsSaver(), morph.AsOwner())
	// Tags are registered without any role.
	env.registry.MustRegister("app.Tag", env.tags)

	env.saves = NewSaveService(st, env.registry, cfg, logger)
	env.collections = NewCollectionService(st, env.registry, cfg, logger)
	return env
}

func (e *testEnv) create(t *testing.T, h *sqlite.EntityHandler, title string) *domain.Record {
	t.Helper()
	r, err := h.Create(context.Background(), title)
	require.NoError(t, err)
	return r
}

func (e *testEnv) save(t *testing.T, saver, saveable domain.Entity, opts SaveOptions) {
	t.Helper()
	created, err := e.saves.Save(context.Background(), saver, saveable, opts)
	require.NoError(t, err)
	require.True(t, created)
}

func (e *testEnv) collection(t *testing.T, owner domain.Entity, name string, parentID *string) *domain.Collection {
	t.Helper()
	c, err := e.collections.CreateCollection(context.Background(), owner, name, "", parentID)
	require.NoError(t, err)
	return c
}

func entityIDs(entities []domain.Entity) []string {
	out := make([]string, len(entities))
	for i, e := range entities {
		out[i] = e.EntityID()
	}
	return out
}
