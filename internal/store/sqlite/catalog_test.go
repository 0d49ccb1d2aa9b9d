package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

func TestEntityHandler_CreateAndFetch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	posts := s.EntityHandler("app.Post")

	p1, err := posts.Create(ctx, "First")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p2, err := posts.Create(ctx, "Second")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := uuid.Parse(p1.ID); err != nil {
		t.Errorf("expected UUID id, got %q", p1.ID)
	}
	if p1.MorphType() != "app.Post" {
		t.Errorf("MorphType: got %q", p1.MorphType())
	}

	got, err := posts.FetchByIDs(ctx, []string{p2.ID, "missing", p1.ID})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entities, want 2", len(got))
	}
	// Natural order, oldest first.
	if got[0].EntityID() != p1.ID || got[1].EntityID() != p2.ID {
		t.Errorf("order: got %s, %s", got[0].EntityID(), got[1].EntityID())
	}

	// Types are isolated.
	other, err := s.EntityHandler("app.Video").FetchByIDs(ctx, []string{p1.ID})
	if err != nil {
		t.Fatalf("FetchByIDs: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no videos, got %d", len(other))
	}

	all, err := posts.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].Title != "First" {
		t.Errorf("List: got %v", all)
	}
}

func TestCreateEntity_Duplicate(t *testing.T) {
	s := newTestStore(t)
	r := &domain.Record{Type: "app.Post", ID: "p1", Title: "x", CreatedAt: s.now()}

	if err := s.CreateEntity(context.Background(), r); err != nil {
		t.Fatalf("CreateEntity: %v", err)
	}
	if err := s.CreateEntity(context.Background(), r); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestEntityHandler_RemoveRunsHooksFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	users := s.EntityHandler("app.User")

	u, err := users.Create(ctx, "Ada")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	var seen []string
	users.OnBeforeRemove(func(ctx context.Context, e domain.Entity) error {
		// The row must still exist while hooks run.
		still, err := users.FetchByIDs(ctx, []string{e.EntityID()})
		if err != nil {
			return err
		}
		if len(still) != 1 {
			t.Error("entity already removed when hook ran")
		}
		seen = append(seen, "first:"+e.EntityID())
		return nil
	})
	users.OnBeforeRemove(func(_ context.Context, e domain.Entity) error {
		seen = append(seen, "second:"+e.EntityID())
		return nil
	})

	removed, err := users.Remove(ctx, u.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("expected removed")
	}
	if len(seen) != 2 || seen[0] != "first:"+u.ID || seen[1] != "second:"+u.ID {
		t.Errorf("hooks: got %v", seen)
	}

	removed, err = users.Remove(ctx, u.ID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if removed {
		t.Error("second remove should report false")
	}
	if len(seen) != 2 {
		t.Error("hooks must not run for a missing entity")
	}
}

func TestEntityHandler_FailingHookAbortsRemoval(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	users := s.EntityHandler("app.User")
	u, err := users.Create(ctx, "Ada")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	boom := errors.New("boom")
	users.OnBeforeRemove(func(context.Context, domain.Entity) error { return boom })

	if _, err := users.Remove(ctx, u.ID); !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}
	still, _ := users.FetchByIDs(ctx, []string{u.ID})
	if len(still) != 1 {
		t.Error("entity removed despite failing hook")
	}
}
