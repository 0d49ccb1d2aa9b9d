package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
)

func (s *Server) registerCollectionRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createCollection",
		Method:      http.MethodPost,
		Path:        "/api/v1/collections",
		Summary:     "Create collection",
		Description: "Creates a collection owned by the caller, optionally under a parent",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollections",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections",
		Summary:     "List collections",
		Description: "Lists the caller's collections, oldest first",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollections)

	huma.Register(s.api, huma.Operation{
		OperationID: "getCollection",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Get collection",
		Description: "Returns a collection owned by the caller",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateCollection",
		Method:      http.MethodPatch,
		Path:        "/api/v1/collections/{id}",
		Summary:     "Update collection",
		Description: "Renames, re-describes or re-parents a collection",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateCollection)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteCollection",
		Method:        http.MethodDelete,
		Path:          "/api/v1/collections/{id}",
		Summary:       "Delete collection",
		Description:   "Deletes a collection and its descendants. Saves inside them become unsorted",
		Tags:          []string{"Collections"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteCollection)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollectionChildren",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}/children",
		Summary:     "List child collections",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListChildren)

	huma.Register(s.api, huma.Operation{
		OperationID: "listCollectionItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/collections/{id}/items",
		Summary:     "List collection items",
		Description: "Returns the saved entities filed in a collection, in position order",
		Tags:        []string{"Collections"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListCollectionItems)
}

// === DTOs ===

// CreateCollectionRequest is the request body for creating a collection.
type CreateCollectionRequest struct {
	Name        string  `json:"name" validate:"required,max=255" doc:"Collection name"`
	Description string  `json:"description,omitempty" validate:"max=4096" doc:"Collection description"`
	ParentID    *string `json:"parent_id,omitempty" doc:"Parent collection"`
}

// CreateCollectionInput wraps the create collection request for Huma.
type CreateCollectionInput struct {
	Authorization string `header:"Authorization"`
	Body          CreateCollectionRequest
}

// ListCollectionsInput contains parameters for listing collections.
type ListCollectionsInput struct {
	Authorization string `header:"Authorization"`
	Root          bool   `query:"root" doc:"Only top-level collections"`
}

// CollectionPathInput addresses one collection.
type CollectionPathInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
}

// UpdateCollectionRequest is the request body for updating a collection.
// Absent fields are left unchanged.
type UpdateCollectionRequest struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,max=255" doc:"New name"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=4096" doc:"New description"`
	ParentID    *string `json:"parent_id,omitempty" doc:"New parent collection"`
	MakeRoot    bool    `json:"make_root,omitempty" doc:"Detach the collection from its parent"`
}

// UpdateCollectionInput wraps the update collection request for Huma.
type UpdateCollectionInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Collection ID"`
	Body          UpdateCollectionRequest
}

// CollectionOutput wraps a collection for Huma.
type CollectionOutput struct {
	Body CollectionResponse
}

// CollectionListResponse contains a list of collections.
type CollectionListResponse struct {
	Collections []CollectionResponse `json:"collections" doc:"Collections"`
}

// CollectionListOutput wraps a collection list for Huma.
type CollectionListOutput struct {
	Body CollectionListResponse
}

// === Handlers ===

// ownedCollection loads a collection and checks that actor owns it.
func (s *Server) ownedCollection(ctx context.Context, actor domain.Entity, collectionID string) (*domain.Collection, error) {
	c, err := s.services.Collections.GetCollection(ctx, collectionID)
	if err != nil {
		return nil, err
	}
	if !c.OwnedBy(s.registry.Ref(actor)) {
		return nil, domainerrors.Forbidden("collection belongs to another owner")
	}
	return c, nil
}

func (s *Server) handleCreateCollection(ctx context.Context, input *CreateCollectionInput) (*CollectionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if input.Body.ParentID != nil {
		if _, err := s.ownedCollection(ctx, actor, *input.Body.ParentID); err != nil {
			return nil, err
		}
	}

	c, err := s.services.Collections.CreateCollection(ctx, actor, input.Body.Name, input.Body.Description, input.Body.ParentID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: collectionResponse(c)}, nil
}

func (s *Server) handleListCollections(ctx context.Context, input *ListCollectionsInput) (*CollectionListOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	list := s.services.Collections.Collections
	if input.Root {
		list = s.services.Collections.RootCollections
	}
	cs, err := list(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &CollectionListOutput{Body: CollectionListResponse{Collections: collectionResponses(cs)}}, nil
}

func (s *Server) handleGetCollection(ctx context.Context, input *CollectionPathInput) (*CollectionOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ownedCollection(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}
	return &CollectionOutput{Body: collectionResponse(c)}, nil
}

func (s *Server) handleUpdateCollection(ctx context.Context, input *UpdateCollectionInput) (*CollectionOutput, error) {
	req := input.Body
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.ParentID != nil && req.MakeRoot {
		return nil, domainerrors.Validation("parent_id and make_root are mutually exclusive")
	}
	rename := req.Name != nil || req.Description != nil
	move := req.ParentID != nil || req.MakeRoot
	if !rename && !move {
		return nil, domainerrors.Validation("nothing to update")
	}

	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	c, err := s.ownedCollection(ctx, actor, input.ID)
	if err != nil {
		return nil, err
	}

	if rename {
		name, description := c.Name, c.Description
		if req.Name != nil {
			name = *req.Name
		}
		if req.Description != nil {
			description = *req.Description
		}
		if c, err = s.services.Collections.UpdateCollection(ctx, c.ID, name, description); err != nil {
			return nil, err
		}
	}

	if move {
		if req.ParentID != nil {
			if _, err := s.ownedCollection(ctx, actor, *req.ParentID); err != nil {
				return nil, err
			}
		}
		if c, err = s.services.Collections.MoveCollection(ctx, c.ID, req.ParentID); err != nil {
			return nil, err
		}
	}

	return &CollectionOutput{Body: collectionResponse(c)}, nil
}

func (s *Server) handleDeleteCollection(ctx context.Context, input *CollectionPathInput) (*struct{}, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCollection(ctx, actor, input.ID); err != nil {
		return nil, err
	}

	deleted, err := s.services.Collections.DeleteCollection(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, domainerrors.NotFound("collection not found")
	}
	return nil, nil
}

func (s *Server) handleListChildren(ctx context.Context, input *CollectionPathInput) (*CollectionListOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCollection(ctx, actor, input.ID); err != nil {
		return nil, err
	}

	cs, err := s.services.Collections.Children(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &CollectionListOutput{Body: CollectionListResponse{Collections: collectionResponses(cs)}}, nil
}

func (s *Server) handleListCollectionItems(ctx context.Context, input *CollectionPathInput) (*EntityListOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedCollection(ctx, actor, input.ID); err != nil {
		return nil, err
	}

	items, err := s.services.Collections.CollectionItems(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntityListOutput{Body: EntityListResponse{Items: s.entityResponses(items)}}, nil
}
