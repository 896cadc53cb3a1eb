package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	sceneHandler "github.com/svgstudio/server/internal/handler/scene"
	"github.com/svgstudio/server/internal/handler/viewer"
	middlewarePkg "github.com/svgstudio/server/internal/middleware"
	"github.com/svgstudio/server/internal/service/session"
	"github.com/svgstudio/server/internal/service/suggest"
	"github.com/svgstudio/server/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(store *session.Store, suggestSvc *suggest.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	sceneH := sceneHandler.New(store, suggestSvc)
	viewerH := viewer.New(store)

	r.Route("/api", func(api chi.Router) {
		sceneH.RegisterRoutes(api)
		viewerH.RegisterRoutes(api)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
