package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerSaverRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSavers",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/{id}/savers",
		Summary:     "List savers",
		Description: "Returns the entities that saved this entity, newest first",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSavers)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSaversGrouped",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/{id}/savers/grouped",
		Summary:     "List savers by type",
		Description: "Returns the savers of this entity keyed by stored type tag",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSaversGrouped)

	huma.Register(s.api, huma.Operation{
		OperationID: "countSavers",
		Method:      http.MethodGet,
		Path:        "/api/v1/entities/{type}/{id}/savers/count",
		Summary:     "Count savers",
		Description: "Counts how many times this entity was saved, optionally by one saver type",
		Tags:        []string{"Entities"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCountSavers)
}

// SaversInput addresses a saveable with an optional saver type filter.
type SaversInput struct {
	Authorization string `header:"Authorization"`
	Type          string `path:"type" doc:"Type identifier or alias"`
	ID            string `path:"id" doc:"Entity ID"`
	SaverType     string `query:"type" doc:"Restrict to one saver type identifier or alias"`
}

func (s *Server) handleListSavers(ctx context.Context, input *SaversInput) (*EntityListOutput, error) {
	_, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}

	savers, err := s.services.Saves.Savers(ctx, target, input.SaverType)
	if err != nil {
		return nil, err
	}
	return &EntityListOutput{Body: EntityListResponse{Items: s.entityResponses(savers)}}, nil
}

func (s *Server) handleListSaversGrouped(ctx context.Context, input *EntityPathInput) (*EntityGroupsOutput, error) {
	_, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}

	groups, err := s.services.Saves.SaversGrouped(ctx, target)
	if err != nil {
		return nil, err
	}
	return &EntityGroupsOutput{Body: EntityGroupsResponse{Groups: s.entityGroups(groups)}}, nil
}

func (s *Server) handleCountSavers(ctx context.Context, input *SaversInput) (*CountOutput, error) {
	_, target, err := s.saveParties(ctx, input.Type, input.ID)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Saves.SaversCount(ctx, target, input.SaverType)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: CountResponse{Count: n}}, nil
}
