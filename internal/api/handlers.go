// Package api implements the HTTP surface: job posting and interview data
// ingestion, candidate evaluation, and the MCP server for assistant access.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hireloop/hireloop/internal/analysis"
	"github.com/hireloop/hireloop/internal/evaluation"
	"github.com/hireloop/hireloop/internal/scoring"
	"github.com/hireloop/hireloop/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// CandidateEvaluator abstracts the evaluation engine for the API layer.
type CandidateEvaluator interface {
	EvaluateCandidates(ctx context.Context, jobID string) ([]evaluation.CandidateEvaluation, error)
}

type AppDeps struct {
	Store     *storage.Store
	Evaluator CandidateEvaluator
	Token     string
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/jobs", handleCreateJob(deps))
		r.Get("/jobs", handleListJobs(deps))
		r.Get("/jobs/{id}", handleGetJob(deps))
		r.Post("/jobs/{id}/questions", handleCreateQuestion(deps))
		r.Get("/jobs/{id}/questions", handleListQuestions(deps))
		r.Post("/jobs/{id}/sessions", handleCreateSession(deps))
		r.Get("/jobs/{id}/sessions", handleListSessions(deps))
		r.Post("/jobs/{id}/resume-evaluations", handleSaveResumeEvaluation(deps))
		r.Get("/jobs/{id}/resume-evaluations/current", handleGetCurrentResumeEvaluation(deps))
		r.Get("/jobs/{id}/evaluations", handleEvaluateCandidates(deps))
		r.Patch("/sessions/{id}/status", handleUpdateSessionStatus(deps))
		r.Post("/sessions/{id}/responses", handleCreateResponse(deps))
		r.Get("/sessions/{id}/responses", handleListResponses(deps))
		r.Put("/candidates", handleUpsertCandidate(deps))
		r.Get("/candidates/{contact}", handleGetCandidate(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type createJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func handleCreateJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req createJobRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title is required")
			return
		}

		job := storage.JobPosting{
			ID:          uuid.New().String(),
			Title:       req.Title,
			Description: req.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if err := deps.Store.CreateJobPosting(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save job posting: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, job)
	}
}

func handleListJobs(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs, err := deps.Store.ListJobPostings()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list job postings: %v", err)
			return
		}
		if jobs == nil {
			jobs = []storage.JobPosting{}
		}
		writeJSON(w, http.StatusOK, jobs)
	}
}

func handleGetJob(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := deps.Store.GetJobPosting(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job posting not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job posting: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

type createQuestionRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
	Order    int    `json:"order"`
}

func handleCreateQuestion(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		jobID := chi.URLParam(r, "id")
		if _, err := deps.Store.GetJobPosting(jobID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job posting not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job posting: %v", err)
			return
		}

		var req createQuestionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		q := storage.Question{
			ID:        uuid.New().String(),
			JobID:     jobID,
			Text:      req.Text,
			Category:  scoring.ParseCategory(req.Category).String(),
			Order:     req.Order,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.CreateQuestion(q); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save question: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, q)
	}
}

func handleListQuestions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		questions, err := deps.Store.GetQuestionsForJob(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list questions: %v", err)
			return
		}
		if questions == nil {
			questions = []storage.Question{}
		}
		writeJSON(w, http.StatusOK, questions)
	}
}

type createSessionRequest struct {
	CandidateContact string `json:"candidate_contact"`
}

func handleCreateSession(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		jobID := chi.URLParam(r, "id")
		if _, err := deps.Store.GetJobPosting(jobID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job posting not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job posting: %v", err)
			return
		}

		var req createSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.CandidateContact == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "candidate_contact is required")
			return
		}

		sess := storage.InterviewSession{
			ID:               uuid.New().String(),
			JobID:            jobID,
			CandidateContact: req.CandidateContact,
			Status:           storage.SessionScheduled,
			CreatedAt:        time.Now().UTC(),
		}
		if err := deps.Store.CreateSession(sess); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save session: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, sess)
	}
}

func handleListSessions(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := deps.Store.GetSessionsForJob(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list sessions: %v", err)
			return
		}
		if sessions == nil {
			sessions = []storage.InterviewSession{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

type updateSessionStatusRequest struct {
	Status string `json:"status"`
}

func handleUpdateSessionStatus(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req updateSessionStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		switch req.Status {
		case storage.SessionScheduled, storage.SessionInProgress, storage.SessionInReview, storage.SessionCompleted, storage.SessionFailed:
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown status %q", req.Status)
			return
		}

		var completedAt *time.Time
		if req.Status == storage.SessionCompleted {
			now := time.Now().UTC()
			completedAt = &now
		}

		err := deps.Store.UpdateSessionStatus(chi.URLParam(r, "id"), req.Status, completedAt)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to update session: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": req.Status})
	}
}

type createResponseRequest struct {
	QuestionID      string   `json:"question_id"`
	Transcript      string   `json:"transcript"`
	ContentScore    *float64 `json:"content_score"`
	ConfidenceScore *float64 `json:"confidence_score"`
}

func handleCreateResponse(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		sessionID := chi.URLParam(r, "id")
		if _, err := deps.Store.GetSession(sessionID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "session not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get session: %v", err)
			return
		}

		var req createResponseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.QuestionID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question_id is required")
			return
		}
		if req.ContentScore != nil && (*req.ContentScore < 0 || *req.ContentScore > 1) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content_score must be in [0,1]")
			return
		}
		if req.ConfidenceScore != nil && (*req.ConfidenceScore < 0 || *req.ConfidenceScore > 1) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "confidence_score must be in [0,1]")
			return
		}

		resp := storage.Response{
			ID:              uuid.New().String(),
			SessionID:       sessionID,
			QuestionID:      req.QuestionID,
			Transcript:      req.Transcript,
			ContentScore:    req.ContentScore,
			ConfidenceScore: req.ConfidenceScore,
			CreatedAt:       time.Now().UTC(),
		}
		if err := deps.Store.CreateResponse(resp); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save response: %v", err)
			return
		}

		// Final scores are computed asynchronously so the recording path
		// stays fast.
		payload, err := json.Marshal(map[string]string{"response_id": resp.ID})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create task payload: %v", err)
			return
		}
		task := storage.Task{
			ID:          uuid.New().String(),
			Type:        analysis.TaskTypeResponseScore,
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueTask(task); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue scoring task: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, resp)
	}
}

func handleListResponses(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses, err := deps.Store.GetResponsesForSession(chi.URLParam(r, "id"))
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list responses: %v", err)
			return
		}
		if responses == nil {
			responses = []storage.Response{}
		}
		writeJSON(w, http.StatusOK, responses)
	}
}

type resumeEvaluationRequest struct {
	Entries []resumeEntryRequest `json:"entries"`
}

type resumeEntryRequest struct {
	CandidateContact string   `json:"candidate_contact"`
	OverallScore     *float64 `json:"overall_score"`
}

func handleSaveResumeEvaluation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		jobID := chi.URLParam(r, "id")
		if _, err := deps.Store.GetJobPosting(jobID); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job posting not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get job posting: %v", err)
			return
		}

		var req resumeEvaluationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		for _, e := range req.Entries {
			if e.CandidateContact == "" {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "entry candidate_contact is required")
				return
			}
			if e.OverallScore != nil && (*e.OverallScore < 0 || *e.OverallScore > 100) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "overall_score must be in [0,100]")
				return
			}
		}

		ev := storage.ResumeEvaluation{
			ID:        uuid.New().String(),
			JobID:     jobID,
			CreatedAt: time.Now().UTC(),
		}
		for _, e := range req.Entries {
			ev.Entries = append(ev.Entries, storage.ResumeEntry{
				CandidateContact: e.CandidateContact,
				OverallScore:     e.OverallScore,
			})
		}
		if err := deps.Store.SaveResumeEvaluation(ev); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save resume evaluation: %v", err)
			return
		}

		writeJSON(w, http.StatusCreated, ev)
	}
}

func handleGetCurrentResumeEvaluation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ev, err := deps.Store.GetCurrentResumeEvaluation(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "no resume evaluation on file")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get resume evaluation: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	}
}

type upsertCandidateRequest struct {
	Contact    string `json:"contact"`
	Name       string `json:"name"`
	ResumeText string `json:"resume_text"`
}

func handleUpsertCandidate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req upsertCandidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Contact == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "contact is required")
			return
		}

		p := storage.CandidateProfile{
			ID:         uuid.New().String(),
			Contact:    req.Contact,
			Name:       req.Name,
			ResumeText: req.ResumeText,
			CreatedAt:  time.Now().UTC(),
		}
		if err := deps.Store.UpsertCandidateProfile(p); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save candidate profile: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "saved", "contact": req.Contact})
	}
}

func handleGetCandidate(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := deps.Store.GetCandidateProfileByContact(chi.URLParam(r, "contact"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "candidate not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get candidate: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleEvaluateCandidates(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, err := deps.Evaluator.EvaluateCandidates(r.Context(), chi.URLParam(r, "id"))
		if errors.Is(err, evaluation.ErrJobNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "job posting not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "evaluation failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, results)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
