package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	chathandler "github.com/soralis/avatarchat/internal/handler/chat"
	sessionhandler "github.com/soralis/avatarchat/internal/handler/session"
	speechhandler "github.com/soralis/avatarchat/internal/handler/speech"
	middlewarePkg "github.com/soralis/avatarchat/internal/middleware"
	"github.com/soralis/avatarchat/internal/service/pipeline"
	speechsvc "github.com/soralis/avatarchat/internal/service/speech"
	"github.com/soralis/avatarchat/pkg/utils"
)

// NewRouter wires the HTTP surface to the core services.
func NewRouter(pipelineSvc *pipeline.Service, speechClient *speechsvc.Client, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	// Liveness check.
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Avatar chat backend is running!"))
	})

	chathandler.New(pipelineSvc, logger).RegisterRoutes(r)
	sessionhandler.New(pipelineSvc, logger).RegisterRoutes(r)

	if speechClient != nil {
		speechhandler.New(speechClient, logger).RegisterRoutes(r)
	} else {
		r.Get("/voices", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondError(w, http.StatusServiceUnavailable, "speech provider not configured")
		})
		r.Post("/transcribe", func(w http.ResponseWriter, _ *http.Request) {
			utils.RespondError(w, http.StatusBadRequest, "speech provider not configured")
		})
	}

	return r
}
