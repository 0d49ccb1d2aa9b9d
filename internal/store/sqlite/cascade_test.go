package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

func TestCascade_AsSaver(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1, u2 := ref("user", "u1"), ref("user", "u2")

	mustInsertSave(t, s, u1, ref("post", "p1"), nil)
	mustInsertSave(t, s, u1, ref("post", "p2"), nil)
	mustInsertSave(t, s, u2, ref("post", "p1"), nil)

	result, err := s.Cascade(ctx, domain.Cascade{Ref: u1, AsSaver: true})
	if err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	if result.SavesDeleted != 2 {
		t.Errorf("SavesDeleted: got %d, want 2", result.SavesDeleted)
	}

	n, _ := s.CountSaves(ctx, store.SaverSaves(u1, ""))
	if n != 0 {
		t.Errorf("u1 saves remaining: %d", n)
	}
	n, _ = s.CountSaves(ctx, store.SaverSaves(u2, ""))
	if n != 1 {
		t.Errorf("u2 saves: got %d, want 1", n)
	}
}

func TestCascade_AsSaveable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	p1 := ref("post", "p1")

	mustInsertSave(t, s, ref("user", "u1"), p1, nil)
	mustInsertSave(t, s, ref("user", "u2"), p1, nil)
	mustInsertSave(t, s, ref("user", "u2"), ref("post", "p2"), nil)

	result, err := s.Cascade(ctx, domain.Cascade{Ref: p1, AsSaveable: true})
	if err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	if result.SavesDeleted != 2 {
		t.Errorf("SavesDeleted: got %d, want 2", result.SavesDeleted)
	}
	if n, _ := s.CountSaves(ctx, store.SaveFilter{}); n != 1 {
		t.Errorf("remaining saves: got %d, want 1", n)
	}
}

func TestCascade_AsOwner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	team, u := ref("team", "t1"), ref("user", "u1")

	mustCreateCollection(t, s, "team-root", team, nil)
	mustCreateCollection(t, s, "team-child", team, ptr("team-root"))
	mustCreateCollection(t, s, "user-root", u, nil)

	// The team is only an owner here, so its own saves survive, unlinked.
	sv := mustInsertSave(t, s, team, ref("post", "p1"), ptr("team-child"))

	result, err := s.Cascade(ctx, domain.Cascade{Ref: team, AsOwner: true})
	if err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	if result.CollectionsDeleted != 2 {
		t.Errorf("CollectionsDeleted: got %d, want 2", result.CollectionsDeleted)
	}
	if result.SavesUnlinked != 1 {
		t.Errorf("SavesUnlinked: got %d, want 1", result.SavesUnlinked)
	}

	if _, err := s.GetCollection(ctx, "user-root"); err != nil {
		t.Errorf("other owner's collection removed: %v", err)
	}
	got, err := s.GetSave(ctx, sv.Saver, sv.Saveable)
	if err != nil {
		t.Fatalf("GetSave: %v", err)
	}
	if !got.IsUnsorted() {
		t.Error("expected save unlinked")
	}
}

func TestCascade_AllRolesInOneTransaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := ref("user", "u1")

	mustCreateCollection(t, s, "reading-list", u, nil)
	mustInsertSave(t, s, u, ref("post", "p1"), nil)
	mustInsertSave(t, s, u, ref("post", "p2"), ptr("reading-list"))
	mustInsertSave(t, s, ref("user", "u2"), u, nil)

	result, err := s.Cascade(ctx, domain.Cascade{Ref: u, AsSaver: true, AsSaveable: true, AsOwner: true})
	if err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	want := domain.CascadeResult{SavesDeleted: 3, CollectionsDeleted: 1}
	if result != want {
		t.Errorf("result: got %+v, want %+v", result, want)
	}
	if _, err := s.GetCollection(ctx, "reading-list"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected collection removed, got %v", err)
	}
}

func TestCascade_Noop(t *testing.T) {
	s := newTestStore(t)
	mustInsertSave(t, s, ref("user", "u1"), ref("post", "p1"), nil)

	result, err := s.Cascade(context.Background(), domain.Cascade{Ref: ref("user", "u1")})
	if err != nil {
		t.Fatalf("Cascade: %v", err)
	}
	if result != (domain.CascadeResult{}) {
		t.Errorf("expected empty result, got %+v", result)
	}
}
