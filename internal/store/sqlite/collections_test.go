package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/listenupapp/saveable/internal/config"
	"github.com/listenupapp/saveable/internal/domain"
	"github.com/listenupapp/saveable/internal/store"
)

func TestCreateAndGetCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := ref("user", "u1")

	c := mustCreateCollection(t, s, "col-1", u, nil)

	got, err := s.GetCollection(ctx, "col-1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Owner != u {
		t.Errorf("Owner: got %v, want %v", got.Owner, u)
	}
	if got.Name != c.Name {
		t.Errorf("Name: got %q, want %q", got.Name, c.Name)
	}
	if !got.IsRoot() {
		t.Error("expected root collection")
	}
	if !got.CreatedAt.Equal(c.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", got.CreatedAt, c.CreatedAt)
	}

	if err := s.CreateCollection(ctx, c); !errors.Is(err, store.ErrAlreadyExists) {
		t.Errorf("duplicate create: expected ErrAlreadyExists, got %v", err)
	}

	if _, err := s.GetCollection(ctx, "col-missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateCollection_ParentRules(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1, u2 := ref("user", "u1"), ref("user", "u2")
	mustCreateCollection(t, s, "col-1", u1, nil)

	child := mustCreateCollection(t, s, "col-2", u1, ptr("col-1"))
	if child.ParentID == nil || *child.ParentID != "col-1" {
		t.Errorf("ParentID: got %v", child.ParentID)
	}

	foreign := &domain.Collection{ID: "col-3", Owner: u2, Name: "x", ParentID: ptr("col-1"), CreatedAt: s.now(), UpdatedAt: s.now()}
	if err := s.CreateCollection(ctx, foreign); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("foreign parent: expected ErrInvalidInput, got %v", err)
	}

	orphan := &domain.Collection{ID: "col-4", Owner: u1, Name: "x", ParentID: ptr("col-missing"), CreatedAt: s.now(), UpdatedAt: s.now()}
	if err := s.CreateCollection(ctx, orphan); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing parent: expected ErrNotFound, got %v", err)
	}
}

func TestCreateCollection_MaxDepth(t *testing.T) {
	cfg := config.DefaultSaveableConfig()
	cfg.MaxCollectionDepth = 3
	s := newTestStore(t, WithSaveableConfig(cfg))
	u := ref("user", "u1")

	mustCreateCollection(t, s, "d1", u, nil)
	mustCreateCollection(t, s, "d2", u, ptr("d1"))
	mustCreateCollection(t, s, "d3", u, ptr("d2"))

	tooDeep := &domain.Collection{ID: "d4", Owner: u, Name: "x", ParentID: ptr("d3"), CreatedAt: s.now(), UpdatedAt: s.now()}
	if err := s.CreateCollection(context.Background(), tooDeep); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestUpdateCollection(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	c := mustCreateCollection(t, s, "col-1", ref("user", "u1"), nil)

	c.Name = "Renamed"
	c.Description = "Things to read"
	c.UpdatedAt = s.now()
	if err := s.UpdateCollection(ctx, c); err != nil {
		t.Fatalf("UpdateCollection: %v", err)
	}

	got, err := s.GetCollection(ctx, "col-1")
	if err != nil {
		t.Fatalf("GetCollection: %v", err)
	}
	if got.Name != "Renamed" || got.Description != "Things to read" {
		t.Errorf("got %q / %q", got.Name, got.Description)
	}

	missing := &domain.Collection{ID: "col-missing", UpdatedAt: s.now()}
	if err := s.UpdateCollection(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSetCollectionParent_RejectsCycles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := ref("user", "u1")

	mustCreateCollection(t, s, "a", u, nil)
	mustCreateCollection(t, s, "b", u, ptr("a"))
	mustCreateCollection(t, s, "c", u, ptr("b"))

	tests := []struct {
		name   string
		id     string
		parent string
	}{
		{"self", "a", "a"},
		{"child", "a", "b"},
		{"grandchild", "a", "c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.SetCollectionParent(ctx, tt.id, ptr(tt.parent))
			if !errors.Is(err, store.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	// Moving c to the root and then under a is fine.
	if err := s.SetCollectionParent(ctx, "c", nil); err != nil {
		t.Fatalf("move to root: %v", err)
	}
	if err := s.SetCollectionParent(ctx, "c", ptr("a")); err != nil {
		t.Fatalf("move under a: %v", err)
	}
	got, _ := s.GetCollection(ctx, "c")
	if got.ParentID == nil || *got.ParentID != "a" {
		t.Errorf("ParentID: got %v, want a", got.ParentID)
	}
}

func TestSetCollectionParent_DepthCountsSubtree(t *testing.T) {
	cfg := config.DefaultSaveableConfig()
	cfg.MaxCollectionDepth = 3
	s := newTestStore(t, WithSaveableConfig(cfg))
	ctx := context.Background()
	u := ref("user", "u1")

	mustCreateCollection(t, s, "a", u, nil)
	mustCreateCollection(t, s, "b", u, ptr("a"))
	mustCreateCollection(t, s, "x", u, nil)
	mustCreateCollection(t, s, "y", u, ptr("x"))

	// b is at depth 2; x with its child y would reach depth 4.
	if err := s.SetCollectionParent(ctx, "x", ptr("b")); !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.SetCollectionParent(ctx, "x", ptr("a")); err != nil {
		t.Errorf("move to depth 3: %v", err)
	}
}

func TestSetCollectionParent_OtherOwner(t *testing.T) {
	s := newTestStore(t)
	mustCreateCollection(t, s, "a", ref("user", "u1"), nil)
	mustCreateCollection(t, s, "b", ref("user", "u2"), nil)

	err := s.SetCollectionParent(context.Background(), "b", ptr("a"))
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if err := s.SetCollectionParent(context.Background(), "missing", nil); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListCollections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u1, u2 := ref("user", "u1"), ref("user", "u2")

	mustCreateCollection(t, s, "a", u1, nil)
	mustCreateCollection(t, s, "b", u1, ptr("a"))
	mustCreateCollection(t, s, "c", u1, nil)
	mustCreateCollection(t, s, "d", u2, nil)

	all, err := s.ListCollections(ctx, store.CollectionFilter{Owner: &u1})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	assertCollectionIDs(t, "owner", all, "a", "b", "c")

	roots, err := s.ListCollections(ctx, store.CollectionFilter{Owner: &u1, RootOnly: true})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	assertCollectionIDs(t, "roots", roots, "a", "c")

	children, err := s.ListCollections(ctx, store.CollectionFilter{ParentID: ptr("a")})
	if err != nil {
		t.Fatalf("ListCollections: %v", err)
	}
	assertCollectionIDs(t, "children", children, "b")
}

func assertCollectionIDs(t *testing.T, label string, got []*domain.Collection, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: got %d collections, want %d", label, len(got), len(want))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("%s[%d]: got %s, want %s", label, i, got[i].ID, id)
		}
	}
}

func TestDeleteCollection_RemovesDescendantsAndUnlinksSaves(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := ref("user", "u1")

	mustCreateCollection(t, s, "c", u, nil)
	mustCreateCollection(t, s, "child", u, ptr("c"))
	mustCreateCollection(t, s, "grandchild", u, ptr("child"))
	mustCreateCollection(t, s, "sibling", u, nil)

	inC := mustInsertSave(t, s, u, ref("post", "p1"), ptr("c"))
	inGrand := mustInsertSave(t, s, u, ref("post", "p2"), ptr("grandchild"))
	inSibling := mustInsertSave(t, s, u, ref("post", "p3"), ptr("sibling"))

	result, err := s.DeleteCollection(ctx, "c")
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if result.CollectionsDeleted != 3 {
		t.Errorf("CollectionsDeleted: got %d, want 3", result.CollectionsDeleted)
	}
	if result.SavesUnlinked != 2 {
		t.Errorf("SavesUnlinked: got %d, want 2", result.SavesUnlinked)
	}

	for _, id := range []string{"c", "child", "grandchild"} {
		if _, err := s.GetCollection(ctx, id); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s: expected ErrNotFound, got %v", id, err)
		}
	}

	for _, sv := range []*domain.Save{inC, inGrand} {
		got, err := s.GetSave(ctx, sv.Saver, sv.Saveable)
		if err != nil {
			t.Fatalf("save %s should survive: %v", sv.ID, err)
		}
		if !got.IsUnsorted() {
			t.Errorf("save %s: expected null collection, got %v", sv.ID, *got.CollectionID)
		}
	}

	got, err := s.GetSave(ctx, inSibling.Saver, inSibling.Saveable)
	if err != nil {
		t.Fatalf("GetSave: %v", err)
	}
	if !got.InCollection("sibling") {
		t.Error("sibling save should be untouched")
	}

	if _, err := s.DeleteCollection(ctx, "c"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestDeleteCollection_CorruptCycleTerminates(t *testing.T) {
	s := newTestStore(t)
	u := ref("user", "u1")
	mustCreateCollection(t, s, "a", u, nil)
	mustCreateCollection(t, s, "b", u, ptr("a"))

	// Force a cycle a -> b -> a behind the store's back.
	if _, err := s.db.Exec(`UPDATE collections SET parent_id = 'b' WHERE id = 'a'`); err != nil {
		t.Fatalf("corrupt: %v", err)
	}

	result, err := s.DeleteCollection(context.Background(), "a")
	if err != nil {
		t.Fatalf("DeleteCollection: %v", err)
	}
	if result.CollectionsDeleted != 2 {
		t.Errorf("CollectionsDeleted: got %d, want 2", result.CollectionsDeleted)
	}
}
