package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/fudoniten/pseudovision/internal/http/handlers"
)

// Handlers bundles every resource handler the router mounts. Built in
// cmd/server/main.go once all services are wired.
type Handlers struct {
	Channels      *handlers.ChannelHandler
	Schedules     *handlers.ScheduleHandler
	Collections   *handlers.CollectionHandler
	MediaItems    *handlers.MediaItemHandler
	MediaSources  *handlers.MediaSourceHandler
	FillerPresets *handlers.FillerPresetHandler
	Playouts      *handlers.PlayoutHandler
	Events        *handlers.EventHandler
}

// NewRouter creates and configures the HTTP router.
func NewRouter(h Handlers, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(RecoverMiddleware(logger))
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(CORSMiddleware)
	r.Use(middleware.Compress(5))

	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/channels", func(r chi.Router) {
			r.Get("/", h.Channels.List)
			r.Post("/", h.Channels.Create)
			r.Get("/{id}", h.Channels.Get)
			r.Put("/{id}", h.Channels.Update)
			r.Delete("/{id}", h.Channels.Delete)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Get("/", h.Schedules.List)
			r.Post("/", h.Schedules.Create)
			r.Get("/{id}", h.Schedules.Get)
			r.Put("/{id}", h.Schedules.Update)
			r.Delete("/{id}", h.Schedules.Delete)

			r.Get("/{id}/slots", h.Schedules.ListSlots)
			r.Post("/{id}/slots", h.Schedules.CreateSlot)
			r.Put("/{id}/slots/{slotID}", h.Schedules.UpdateSlot)
			r.Delete("/{id}/slots/{slotID}", h.Schedules.DeleteSlot)
		})

		r.Route("/collections", func(r chi.Router) {
			r.Get("/", h.Collections.List)
			r.Post("/", h.Collections.Create)
			r.Get("/{id}", h.Collections.Get)
			r.Put("/{id}", h.Collections.Update)
			r.Delete("/{id}", h.Collections.Delete)
			r.Get("/{id}/items", h.Collections.Items)
			r.Put("/{id}/manual-items", h.Collections.SetManualItems)
		})

		r.Route("/media-items", func(r chi.Router) {
			r.Get("/", h.MediaItems.List)
			r.Post("/", h.MediaItems.Create)
			r.Get("/{id}", h.MediaItems.Get)
			r.Put("/{id}", h.MediaItems.Update)
			r.Delete("/{id}", h.MediaItems.Delete)
		})

		r.Route("/media-sources", func(r chi.Router) {
			r.Get("/", h.MediaSources.List)
			r.Post("/", h.MediaSources.Create)
			r.Get("/{id}", h.MediaSources.Get)
			r.Delete("/{id}", h.MediaSources.Delete)

			r.Get("/{id}/libraries", h.MediaSources.ListLibraries)
			r.Post("/{id}/libraries", h.MediaSources.CreateLibrary)
		})
		r.Post("/libraries/{libraryID}/sync", h.MediaSources.SyncLibrary)

		r.Route("/filler-presets", func(r chi.Router) {
			r.Get("/", h.FillerPresets.List)
			r.Post("/", h.FillerPresets.Create)
			r.Get("/{id}", h.FillerPresets.Get)
			r.Put("/{id}", h.FillerPresets.Update)
			r.Delete("/{id}", h.FillerPresets.Delete)
		})

		r.Route("/playouts/{id}", func(r chi.Router) {
			r.Get("/", h.Playouts.Get)
			r.Get("/guide", h.Playouts.Guide)
			r.Post("/rebuild", h.Playouts.Rebuild)

			r.Get("/events", h.Events.List)
			r.Post("/events", h.Events.Create)
		})
		r.Put("/events/{eventID}", h.Events.Update)
		r.Delete("/events/{eventID}", h.Events.Delete)
	})

	return r
}
