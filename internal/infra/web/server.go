package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"enrollment-docgen/internal/usecase"
)

type Server struct {
	subUC   usecase.SubmissionUseCase
	queryUC usecase.JobQueryUseCase
	log     *zerolog.Logger
}

func NewServer(subUC usecase.SubmissionUseCase, queryUC usecase.JobQueryUseCase, logger *zerolog.Logger) *Server {
	return &Server{subUC: subUC, queryUC: queryUC, log: logger}
}

// Router builds the HTTP surface: submission, polling, artifact download,
// health and metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/request-document", s.submitHandler())
	r.Get("/request-document/{id}", s.getJobHandler())
	r.Get("/request-document/{id}/download", s.downloadHandler())

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
