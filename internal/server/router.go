package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

func NewRouter(handler *Handler, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(recoverMiddleware)
	r.Use(loggingMiddleware(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/code/{handle}", handler.getCodeProfile)
		r.Get("/channel/{handle}", handler.getChannelProfile)
		r.Get("/compare", handler.compare)
		r.Get("/compare/channels", handler.compareChannels)
		r.Get("/match", handler.findMatch)
		r.Get("/search/users", handler.searchUsers)
		r.Get("/leaderboard", handler.leaderboard)
		r.Get("/comparisons/recent", handler.recentComparisons)
	})
	return r
}
