package server

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	v1 "github.com/muthuthevar/collabspace/internal/api/v1"
	"github.com/muthuthevar/collabspace/internal/api/ws"
	"github.com/muthuthevar/collabspace/internal/auth"
	"github.com/muthuthevar/collabspace/internal/store/postgres"
)

func registerAuthRoutes(api huma.API, authSvc *auth.Service) {
	v1.RegisterAuthRoutes(api, authSvc)
}

func registerAPIRoutes(api huma.API, store *postgres.Store, hub *ws.Hub) {
	v1.RegisterWorkspaceRoutes(api, store)
	v1.RegisterBoardRoutes(api, store, hub)
}

func registerWSRoutes(r chi.Router, hub *ws.Hub) {
	r.Get("/ws", hub.ServeWS)
}
