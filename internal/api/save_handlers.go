package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/service"
)

func (s *Server) registerSaveRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "saveEntity",
		Method:      http.MethodPut,
		Path:        "/api/v1/saves/{type}/{id}",
		Summary:     "Save entity",
		Description: "Saves an entity for the caller. Saving an already saved entity changes nothing",
		Tags:        []string{"Saves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSave)

	huma.Register(s.api, huma.Operation{
		OperationID: "unsaveEntity",
		Method:      http.MethodDelete,
		Path:        "/api/v1/saves/{type}/{id}",
		Summary:     "Unsave entity",
		Description: "Removes the caller's save of an entity",
		Tags:        []string{"Saves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUnsave)

	huma.Register(s.api, huma.Operation{
		OperationID: "toggleSave",
		Method:      http.MethodPost,
		Path:        "/api/v1/saves/{type}/{id}/toggle",
		Summary:     "Toggle save",
		Description: "Saves the entity if the caller has not, otherwise removes the save",
		Tags:        []string{"Saves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleToggleSave)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateSave",
		Method:      http.MethodPatch,
		Path:        "/api/v1/saves/{type}/{id}",
		Summary:     "Update save",
		Description: "Moves the caller's save between collections and/or merges metadata into it",
		Tags:        []string{"Saves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateSave)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSave",
		Method:      http.MethodGet,
		Path:        "/api/v1/saves/{type}/{id}",
		Summary:     "Get save",
		Description: "Returns the caller's save of an entity",
		Tags:        []string{"Saves"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSave)
}

// === DTOs ===

// SaveRequest is the request body for saving an entity.
type SaveRequest struct {
	CollectionID *string        `json:"collection_id,omitempty" doc:"Collection to file the save in; omit for unsorted"`
	Metadata     map[string]any `json:"metadata,omitempty" doc:"Initial save metadata"`
}

// SaveInput wraps the save request for Huma.
type SaveInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias of the saved entity"`
	ID            string `path:"id" doc:"ID of the saved entity"`
	Body          SaveRequest `required:"false"`
}

// SaveResultResponse reports the outcome of a save.
type SaveResultResponse struct {
	Created bool         `json:"created" doc:"False when the entity was already saved"`
	Save    SaveResponse `json:"save" doc:"The caller's save"`
}

// SaveResultOutput wraps the save result for Huma.
type SaveResultOutput struct {
	Status int
	Body   SaveResultResponse
}

// RemovedResponse reports whether something was removed.
type RemovedResponse struct {
	Removed bool `json:"removed" doc:"False when there was nothing to remove"`
}

// RemovedOutput wraps a removal result for Huma.
type RemovedOutput struct {
	Body RemovedResponse
}

// ToggleResponse reports the state after a toggle.
type ToggleResponse struct {
	Saved bool `json:"saved" doc:"Whether the entity is saved after the toggle"`
}

// ToggleOutput wraps the toggle result for Huma.
type ToggleOutput struct {
	Body ToggleResponse
}

// UpdateSaveRequest is the request body for updating a save.
type UpdateSaveRequest struct {
	CollectionID *string        `json:"collection_id,omitempty" doc:"Collection to move the save to"`
	Unsorted     bool           `json:"unsorted,omitempty" doc:"Move the save out of its collection"`
	Metadata     map[string]any `json:"metadata,omitempty" doc:"Keys to merge into the save metadata"`
}

// UpdateSaveInput wraps the update save request for Huma.
type UpdateSaveInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias of the saved entity"`
	ID            string `path:"id" doc:"ID of the saved entity"`
	Body          UpdateSaveRequest
}

// SaveOutput wraps a save for Huma.
type SaveOutput struct {
	Body SaveResponse
}

// === Handlers ===

// saveParties resolves the caller and the addressed saveable.
func (s *Server) saveParties(ctx context.Context, tag, entityID string) (domain.Entity, domain.Entity, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, nil, err
	}
	target, err := s.registry.Load(ctx, tag, entityID)
	if err != nil {
		return nil, nil, err
	}
	return actor, target, nil
}

func (s *Server) saveOptions(ctx context.Context, actor domain.Entity, req SaveRequest) (service.SaveOptions, error) {
	opts := service.SaveOptions{Metadata: req.Metadata}
	if req.CollectionID != nil {
		c, err := s.ownedCollection(ctx, actor, *req.CollectionID)
		if err != nil {
			return opts, err
		}
		opts.Collection = c
	}
	return opts, nil
}

func (s *Server) findSave(ctx context.Context, actor, target domain.Entity) (*domain.Save, error) {
	sv, found, err := s.services.Saves.Find(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, domainerrors.NotFound("save not found")
	}
	return sv, nil
}

func (s *Server) handleSave(ctx context.Context, input *SaveInput) (*SaveResultOutput, error) {
	actor, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}
	opts, err := s.saveOptions(ctx, actor, input.Body)
	if err != nil {
		return nil, err
	}

	created, err := s.services.Saves.Save(ctx, actor, target, opts)
	if err != nil {
		return nil, err
	}
	sv, err := s.findSave(ctx, actor, target)
	if err != nil {
		return nil, err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return &SaveResultOutput{
		Status: status,
		Body:   SaveResultResponse{Created: created, Save: saveResponse(sv)},
	}, nil
}

func (s *Server) handleUnsave(ctx context.Context, input *EntityPathInput) (*RemovedOutput, error) {
	actor, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}

	removed, err := s.services.Saves.Unsave(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	return &RemovedOutput{Body: RemovedResponse{Removed: removed}}, nil
}

func (s *Server) handleToggleSave(ctx context.Context, input *SaveInput) (*ToggleOutput, error) {
	actor, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}
	opts, err := s.saveOptions(ctx, actor, input.Body)
	if err != nil {
		return nil, err
	}

	saved, err := s.services.Saves.Toggle(ctx, actor, target, opts)
	if err != nil {
		return nil, err
	}
	return &ToggleOutput{Body: ToggleResponse{Saved: saved}}, nil
}

func (s *Server) handleUpdateSave(ctx context.Context, input *UpdateSaveInput) (*SaveOutput, error) {
	req := input.Body
	if req.CollectionID != nil && req.Unsorted {
		return nil, domainerrors.Validation("collection_id and unsorted are mutually exclusive")
	}
	move := req.CollectionID != nil || req.Unsorted
	if !move && len(req.Metadata) == 0 {
		return nil, domainerrors.Validation("nothing to update")
	}

	actor, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}

	if move {
		var collection *domain.Collection
		if req.CollectionID != nil {
			if collection, err = s.ownedCollection(ctx, actor, *req.CollectionID); err != nil {
				return nil, err
			}
		}
		moved, err := s.services.Saves.MoveToCollection(ctx, actor, target, collection)
		if err != nil {
			return nil, err
		}
		if !moved {
			return nil, domainerrors.NotFound("save not found")
		}
	}

	if len(req.Metadata) > 0 {
		updated, err := s.services.Saves.UpdateMetadata(ctx, actor, target, req.Metadata)
		if err != nil {
			return nil, err
		}
		if !updated {
			return nil, domainerrors.NotFound("save not found")
		}
	}

	sv, err := s.findSave(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	return &SaveOutput{Body: saveResponse(sv)}, nil
}

func (s *Server) handleGetSave(ctx context.Context, input *EntityPathInput) (*SaveOutput, error) {
	actor, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}
	sv, err := s.findSave(ctx, actor, target)
	if err != nil {
		return nil, err
	}
	return &SaveOutput{Body: saveResponse(sv)}, nil
}
