package api

import (
	"time"

	"github.com/listenupapp/saveable/internal/domain"
)

// EntityRefResponse identifies an entity by stored type tag and ID.
type EntityRefResponse struct {
	Type string `json:"type" doc:"Stored type tag"`
	ID   string `json:"id" doc:"Entity ID"`
}

// EntityResponse contains entity data in API responses.
type EntityResponse struct {
	Type      string     `json:"type" doc:"Stored type tag"`
	ID        string     `json:"id" doc:"Entity ID"`
	Title     string     `json:"title,omitempty" doc:"Display title"`
	CreatedAt *time.Time `json:"created_at,omitempty" doc:"Creation time"`
}

// SaveResponse contains save data in API responses.
type SaveResponse struct {
	ID            string            `json:"id" doc:"Save ID"`
	Saver         EntityRefResponse `json:"saver" doc:"Entity that saved"`
	Saveable      EntityRefResponse `json:"saveable" doc:"Entity that was saved"`
	CollectionID  *string           `json:"collection_id,omitempty" doc:"Collection holding the save; absent when unsorted"`
	Metadata      map[string]any    `json:"metadata,omitempty" doc:"Arbitrary save metadata"`
	OrderPosition int               `json:"order_position" doc:"Manual position within the saver's collection scope"`
	CreatedAt     time.Time         `json:"created_at" doc:"Creation time"`
	UpdatedAt     time.Time         `json:"updated_at" doc:"Last update time"`
}

// CollectionResponse contains collection data in API responses.
type CollectionResponse struct {
	ID          string            `json:"id" doc:"Collection ID"`
	Owner       EntityRefResponse `json:"owner" doc:"Owning entity"`
	Name        string            `json:"name" doc:"Collection name"`
	Description string            `json:"description" doc:"Collection description"`
	ParentID    *string           `json:"parent_id,omitempty" doc:"Parent collection; absent for roots"`
	CreatedAt   time.Time         `json:"created_at" doc:"Creation time"`
	UpdatedAt   time.Time         `json:"updated_at" doc:"Last update time"`
}

// EntityListResponse contains a list of entities.
type EntityListResponse struct {
	Items []EntityResponse `json:"items" doc:"Entities in order"`
}

// EntityListOutput wraps an entity list for Huma.
type EntityListOutput struct {
	Body EntityListResponse
}

// EntityGroupsResponse contains entities keyed by stored type tag.
type EntityGroupsResponse struct {
	Groups map[string][]EntityResponse `json:"groups" doc:"Entities keyed by stored type tag"`
}

// EntityGroupsOutput wraps grouped entities for Huma.
type EntityGroupsOutput struct {
	Body EntityGroupsResponse
}

// CountResponse contains a single count.
type CountResponse struct {
	Count int `json:"count" doc:"Number of matching saves"`
}

// CountOutput wraps a count for Huma.
type CountOutput struct {
	Body CountResponse
}

func refResponse(r domain.EntityRef) EntityRefResponse {
	return EntityRefResponse{Type: r.Type, ID: r.ID}
}

func (s *Server) entityResponse(e domain.Entity) EntityResponse {
	ref := s.registry.Ref(e)
	out := EntityResponse{Type: ref.Type, ID: ref.ID}
	if r, ok := e.(*domain.Record); ok {
		out.Title = r.Title
		created := r.CreatedAt
		out.CreatedAt = &created
	}
	return out
}

func (s *Server) entityResponses(entities []domain.Entity) []EntityResponse {
	out := make([]EntityResponse, len(entities))
	for i, e := range entities {
		out[i] = s.entityResponse(e)
	}
	return out
}

func (s *Server) entityGroups(groups map[string][]domain.Entity) map[string][]EntityResponse {
	out := make(map[string][]EntityResponse, len(groups))
	for tag, entities := range groups {
		out[tag] = s.entityResponses(entities)
	}
	return out
}

func saveResponse(sv *domain.Save) SaveResponse {
	return SaveResponse{
		ID:            sv.ID,
		Saver:         refResponse(sv.Saver),
		Saveable:      refResponse(sv.Saveable),
		CollectionID:  sv.CollectionID,
		Metadata:      sv.Metadata,
		OrderPosition: sv.OrderPosition,
		CreatedAt:     sv.CreatedAt,
		UpdatedAt:     sv.UpdatedAt,
	}
}

func collectionResponse(c *domain.Collection) CollectionResponse {
	return CollectionResponse{
		ID:          c.ID,
		Owner:       refResponse(c.Owner),
		Name:        c.Name,
		Description: c.Description,
		ParentID:    c.ParentID,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func collectionResponses(cs []*domain.Collection) []CollectionResponse {
	out := make([]CollectionResponse, len(cs))
	for i, c := range cs {
		out[i] = collectionResponse(c)
	}
	return out
}
