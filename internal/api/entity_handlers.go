package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/saveable/internal/domain"
	domainerrors "github.com/listenupapp/saveable/internal/errors"
	"github.com/listenupapp/saveable/internal/morph"
	"github.com/listenupapp/saveable/internal/service"
)

func (s *Server) registerEntityRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createEntity",
		Method:      http.MethodPost,
		Path:        "/api/v1/entities/{type}",
		Summary:     "Create entity",
		Description: "Creates a catalog entity of the given type",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateEntity)

	huma.Register(s.api, huma.Operation{
		OperationID: "listEntities",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}",
		Summary:     "List entities",
		Description: "Lists catalog entities of a type, optionally annotated with save counts or the caller's save status",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListEntities)

	huma.Register(s.api, huma.Operation{
		OperationID: "getEntity",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/{id}",
		Summary:     "Get entity",
		Description: "Returns one entity through its registered handler",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetEntity)

	huma.Register(s.api, huma.Operation{
		OperationID:   "deleteEntity",
		Method:        http.MethodDelete,
		Path:          "/api/v1/entities/{type}/{id}",
		Summary:       "Delete entity",
		Description:   "Deletes a catalog entity after cascading its saves and collections",
		Tags:          []string{"Entities"},
		Security:      []map[string][]string{{"bearer": {}}},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteEntity)
}

// catalog is implemented by handlers that manage their own entity rows,
// such as the built-in SQLite catalog.
type catalog interface {
	Create(ctx context.Context, title string) (*domain.Record, error)
	List(ctx context.Context) ([]*domain.Record, error)
	Remove(ctx context.Context, entityID string) (bool, error)
}

func (s *Server) catalogFor(tag string) (catalog, error) {
	h, ok := s.registry.Resolve(tag)
	if !ok {
		return nil, domainerrors.UnknownType(tag)
	}
	c, ok := h.(catalog)
	if !ok {
		return nil, domainerrors.Validationf("type %q is not managed by the catalog", tag)
	}
	return c, nil
}

// === DTOs ===

// CreateEntityRequest is the request body for creating an entity.
type CreateEntityRequest struct {
	Title string `json:"title" validate:"required,min=1,max=255" doc:"Display title"`
}

// CreateEntityInput wraps the create entity request for Huma.
type CreateEntityInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias"`
	Body          CreateEntityRequest
}

// EntityOutput wraps an entity for Huma.
type EntityOutput struct {
	Body EntityResponse
}

// EntityPathInput addresses one entity.
type EntityPathInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias"`
	ID            string `path:"id" doc:"Entity ID"`
}

// ListEntitiesInput contains parameters for listing entities.
type ListEntitiesInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias"`
	With          string `query:"with" enum:"save_count,most_saved,save_status" doc:"Annotation to compute for each entity"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Maximum entities for most_saved (default 10)"`
}

// AnnotatedEntity is an entity with optional save annotations.
type AnnotatedEntity struct {
	EntityResponse
	SaveCount *int           `json:"save_count,omitempty" doc:"Times saved, for with=save_count and with=most_saved"`
	IsSaved   *bool          `json:"is_saved,omitempty" doc:"Whether the caller saved it, for with=save_status"`
	Metadata  map[string]any `json:"metadata,omitempty" doc:"The caller's save metadata, for with=save_status"`
}

// ListEntitiesResponse contains annotated entities.
type ListEntitiesResponse struct {
	Items []AnnotatedEntity `json:"items" doc:"Entities"`
}

// ListEntitiesOutput wraps the list entities response for Huma.
type ListEntitiesOutput struct {
	Body ListEntitiesResponse
}

// === Handlers ===

func (s *Server) handleCreateEntity(ctx context.Context, input *CreateEntityInput) (*EntityOutput, error) {
	if _, err := s.RequireActor(ctx); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	c, err := s.catalogFor(input.Type)
	if err != nil {
		return nil, err
	}

	rec, err := c.Create(ctx, input.Body.Title)
	if err != nil {
		return nil, err
	}
	return &EntityOutput{Body: s.entityResponse(rec)}, nil
}

func (s *Server) handleGetEntity(ctx context.Context, input *EntityPathInput) (*EntityOutput, error) {
	if _, err := s.RequireActor(ctx); err != nil {
		return nil, err
	}

	e, err := s.registry.Load(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}
	return &EntityOutput{Body: s.entityResponse(e)}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, input *EntityPathInput) (*struct{}, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.catalogFor(input.Type)
	if err != nil {
		return nil, err
	}

	// Savers and owners can only remove themselves.
	if s.registry.RolesOf(input.Type)&(morph.RoleSaver|morph.RoleOwner) != 0 {
		self := s.registry.Ref(actor)
		if self.Type != s.registry.StoredTag(input.Type) || self.ID != input.ID {
			return nil, domainerrors.Forbidden("only the entity itself can delete a saver or owner")
		}
	}

	removed, err := c.Remove(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if !removed {
		return nil, domainerrors.NotFoundf("%s %s not found", input.Type, input.ID)
	}

	s.logger.Info("entity deleted",
		"type", input.Type,
		"id", input.ID,
		"actor", s.registry.Ref(actor).String(),
	)
	return nil, nil
}

func (s *Server) handleListEntities(ctx context.Context, input *ListEntitiesInput) (*ListEntitiesOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	c, err := s.catalogFor(input.Type)
	if err != nil {
		return nil, err
	}
	records, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	entities := make([]domain.Entity, len(records))
	for i, r := range records {
		entities[i] = r
	}

	var items []AnnotatedEntity
	switch input.With {
	case "save_count":
		counted, err := s.services.Saves.WithSaveCount(ctx, entities)
		if err != nil {
			return nil, err
		}
		items = s.countedItems(counted)
	case "most_saved":
		limit := input.Limit
		if limit == 0 {
			limit = DefaultListLimit
		}
		counted, err := s.services.Saves.MostSaved(ctx, entities, limit)
		if err != nil {
			return nil, err
		}
		items = s.countedItems(counted)
	case "save_status":
		statuses, err := s.services.Saves.WithSaveStatus(ctx, entities, actor)
		if err != nil {
			return nil, err
		}
		items = make([]AnnotatedEntity, len(statuses))
		for i, st := range statuses {
			saved := st.IsSaved
			items[i] = AnnotatedEntity{
				EntityResponse: s.entityResponse(st.Entity),
				IsSaved:        &saved,
				Metadata:       st.Metadata,
			}
		}
	default:
		items = make([]AnnotatedEntity, len(entities))
		for i, e := range entities {
			items[i] = AnnotatedEntity{EntityResponse: s.entityResponse(e)}
		}
	}

	return &ListEntitiesOutput{Body: ListEntitiesResponse{Items: items}}, nil
}

func (s *Server) countedItems(counted []service.Counted) []AnnotatedEntity {
	items := make([]AnnotatedEntity, len(counted))
	for i, c := range counted {
		n := c.Count
		items[i] = AnnotatedEntity{
			EntityResponse: s.entityResponse(c.Entity),
			SaveCount:      &n,
		}
	}
	return items
}
