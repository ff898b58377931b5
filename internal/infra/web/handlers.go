package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
)

type submitRequest struct {
	StudentID string `json:"studentId"`
}

type jobResponse struct {
	JobID        string     `json:"jobId"`
	StudentID    string     `json:"studentId"`
	Status       string     `json:"status"`
	ArtifactKey  string     `json:"artifactKey,omitempty"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	FailedAt     *time.Time `json:"failedAt,omitempty"`
}

func toJobResponse(j *model.DocumentJob) jobResponse {
	return jobResponse{
		JobID:        j.ID,
		StudentID:    j.StudentID,
		Status:       string(j.Status),
		ArtifactKey:  j.ArtifactKey,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		CompletedAt:  j.CompletedAt,
		FailedAt:     j.FailedAt,
	}
}

func (s *Server) submitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		job, err := s.subUC.Submit(r.Context(), req.StudentID)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				writeError(w, http.StatusBadRequest, "studentId is required")
				return
			}
			s.log.Error().Err(err).Msg("submission failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"jobId":  job.ID,
			"status": string(job.Status),
		})
	}
}

func (s *Server) getJobHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		job, err := s.queryUC.GetJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
				writeError(w, http.StatusNotFound, "job not found")
				return
			}
			s.log.Error().Err(err).Str("job_id", id).Msg("job lookup failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, toJobResponse(job))
	}
}

func (s *Server) downloadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		data, contentType, err := s.queryUC.GetArtifact(r.Context(), id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidArgument) {
				writeError(w, http.StatusNotFound, "document not available")
				return
			}
			s.log.Error().Err(err).Str("job_id", id).Msg("artifact fetch failed")
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
