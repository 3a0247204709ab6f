package web

import (
	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/faceid/internal/web/handlers"
)

func (s *Server) setupRoutes() {
	facesHandler := handlers.NewFacesHandler(s.service)

	s.router.Get("/api/v1/health", handlers.HealthCheck)

	s.router.Route("/api/v1/faces", func(r chi.Router) {
		r.Post("/enroll", facesHandler.Enroll)
		r.Post("/enroll/batch", facesHandler.EnrollBatch)
		r.Post("/identify", facesHandler.Identify)
		r.Post("/identify/multi", facesHandler.IdentifyMulti)
		r.Post("/auto-enroll", facesHandler.AutoEnroll)
		r.Post("/detect", facesHandler.Detect)
		r.Get("/stats", facesHandler.Stats)
	})
}
