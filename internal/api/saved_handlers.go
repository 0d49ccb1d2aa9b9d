package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/saveable/internal/store"
)

func (s *Server) registerSavedRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved",
		Summary:     "List saved items",
		Description: "Returns the entities the caller saved, by position and then newest first",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSavedItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedItemsGrouped",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved/grouped",
		Summary:     "List saved items by type",
		Description: "Returns the caller's saved entities keyed by stored type tag",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSavedItemsGrouped)

	huma.Register(s.api, huma.Operation{
		OperationID: "countSavedItems",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved/count",
		Summary:     "Count saved items",
		Description: "Counts the caller's saves, optionally of one type",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCountSavedItems)

	huma.Register(s.api, huma.Operation{
		OperationID: "listSavedRecords",
		Method:      http.MethodGet,
		Path:        "/api/v1/saved/records",
		Summary:     "List save records",
		Description: "Returns the caller's save rows in position order, one page at a time",
		Tags:        []string{"Saved"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListSavedRecords)
}

// === DTOs ===

// ListSavedItemsInput contains parameters for listing saved items.
type ListSavedItemsInput struct {
	Authorization string `header:"Authorization"`
	Type          string `query:"type" doc:"Restrict to one type identifier or alias"`
	Unsorted      bool   `query:"unsorted" doc:"Only saves outside any collection"`
}

// GroupedInput carries only authentication.
type GroupedInput struct {
	Authorization string `header:"Authorization"`
}

// TypeFilterInput contains an optional type filter.
type TypeFilterInput struct {
	Authorization string `header:"Authorization"`
	Type          string `query:"type" doc:"Restrict to one type identifier or alias"`
}

// ListSavedRecordsInput contains parameters for paging through save rows.
type ListSavedRecordsInput struct {
	Authorization string `header:"Authorization"`
	Unsorted      bool   `query:"unsorted" doc:"Only saves outside any collection"`
	Limit         int    `query:"limit" minimum:"0" maximum:"100" doc:"Page size (default 50)"`
	Cursor        string `query:"cursor" doc:"Cursor from the previous page"`
}

// SavedRecordsOutput wraps a page of saves for Huma.
type SavedRecordsOutput struct {
	Body store.PaginatedResult[SaveResponse]
}

// === Handlers ===

func (s *Server) handleListSavedItems(ctx context.Context, input *ListSavedItemsInput) (*EntityListOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	list := s.services.Saves.SavedItems
	if input.Unsorted {
		list = s.services.Saves.UnsortedSavedItems
	}
	items, err := list(ctx, actor, input.Type)
	if err != nil {
		return nil, err
	}
	return &EntityListOutput{Body: EntityListResponse{Items: s.entityResponses(items)}}, nil
}

func (s *Server) handleListSavedItemsGrouped(ctx context.Context, _ *GroupedInput) (*EntityGroupsOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	groups, err := s.services.Saves.SavedItemsGrouped(ctx, actor)
	if err != nil {
		return nil, err
	}
	return &EntityGroupsOutput{Body: EntityGroupsResponse{Groups: s.entityGroups(groups)}}, nil
}

func (s *Server) handleCountSavedItems(ctx context.Context, input *TypeFilterInput) (*CountOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.services.Saves.SavedItemsCount(ctx, actor, input.Type)
	if err != nil {
		return nil, err
	}
	return &CountOutput{Body: CountResponse{Count: n}}, nil
}

func (s *Server) handleListSavedRecords(ctx context.Context, input *ListSavedRecordsInput) (*SavedRecordsOutput, error) {
	actor, err := s.RequireActor(ctx)
	if err != nil {
		return nil, err
	}

	list := s.services.Saves.SavedRecords
	if input.Unsorted {
		list = s.services.Saves.UnsortedSavedRecords
	}
	saves, err := list(ctx, actor)
	if err != nil {
		return nil, err
	}

	responses := make([]SaveResponse, len(saves))
	for i, sv := range saves {
		responses[i] = saveResponse(sv)
	}
	page, err := store.Paginate(responses, store.PaginationParams{Limit: input.Limit, Cursor: input.Cursor})
	if err != nil {
		return nil, err
	}
	return &SavedRecordsOutput{Body: page}, nil
}
