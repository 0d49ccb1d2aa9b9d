package api

import "github.com/listenupapp/saveable/internal/service"

// Services groups the engine services used by the API server.
type Services struct {
	Saves       *service.SaveService
	Collections *service.CollectionService
}
