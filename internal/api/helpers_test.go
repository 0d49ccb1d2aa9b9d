package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/saveable/internal/auth"
	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/service"
	"github.com/listenupapp/saveable/internal/store/sqlite"
)

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api    humatest.TestAPI
	store  *sqlite.Store
	tokens *auth.TokenService

	users  *sqlite.EntityHandler
	posts  *sqlite.EntityHandler
	videos *sqlite.EntityHandler
	teams  *sqlite.EntityHandler
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.DefaultSaveableConfig()

	st, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger, sqlite.WithSaveableConfig(cfg))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	key, err := auth.LoadOrGenerateKey(filepath.Join(tmpDir, "auth.key"))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	ts := &testServer{
		store:  st,
		tokens: tokens,
		users:  st.EntityHandler("app.User"),
		posts:  st.EntityHandler("app.Post"),
		videos: st.EntityHandler("app.Video"),
		teams:  st.EntityHandler("app.Team"),
	}

	registry := morph.New()
	registry.MustRegister("app.User", ts.users, morph.WithAlias("user"), morph.AsSaver(), morph.AsSaveable(), morph.AsOwner())
	registry.MustRegister("app.Post", ts.posts, morph.WithAlias("post"), morph.AsSaveable())
	registry.MustRegister("app.Video", ts.videos, morph.AsSaveable())
	registry.MustRegister("app.Team", ts.teams, morph.WithAlias("team"), morph.AsSaver(), morph.AsOwner())

	services := &Services{
		Saves:       service.NewSaveService(st, registry, cfg, logger),
		Collections: service.NewCollectionService(st, registry, cfg, logger),
	}

	ts.Server = NewServer(st, registry, services, tokens, nil, Options{Name: "Test"}, logger)
	ts.api = humatest.Wrap(t, ts.Server.API())
	return ts
}

func (ts *testServer) create(t *testing.T, h *sqlite.EntityHandler, title string) *domain.Record {
	t.Helper()
	r, err := h.Create(context.Background(), title)
	require.NoError(t, err)
	return r
}

// bearer returns an Authorization header for actor.
func (ts *testServer) bearer(t *testing.T, actorType string, actor *domain.Record) string {
	t.Helper()
	token, _, err := ts.tokens.Issue(domain.EntityRef{Type: actorType, ID: actor.ID})
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out), resp.Body.String())
	return out
}

func itemIDs(items []EntityResponse) []string {
	out := make([]string, len(items))
	for i, e := range items {
		out[i] = e.ID
	}
	return out
}
