// Package evaluation turns a job posting's stored interview and resume data
// into ranked candidate evaluations. The evaluator reads an immutable
// snapshot per run, scores each completed session independently, and blends
// in the posting's current resume evaluation when one exists.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/hireloop/hireloop/internal/scoring"
	"github.com/hireloop/hireloop/internal/storage"
)

// ErrJobNotFound is returned when the requested job posting does not exist.
// Unlike missing profiles or resume scores, this is not a degraded state;
// there is nothing meaningful to evaluate.
var ErrJobNotFound = errors.New("job posting not found")

// DefaultConcurrency bounds how many sessions are scored at once.
const DefaultConcurrency = 4

// DataSource is the read surface the evaluator needs. *storage.Store
// satisfies it; tests substitute a mock.
type DataSource interface {
	GetJobPosting(id string) (storage.JobPosting, error)
	GetQuestionsForJob(jobID string) ([]storage.Question, error)
	GetSessionsForJob(jobID string) ([]storage.InterviewSession, error)
	GetResponsesForSession(sessionID string) ([]storage.Response, error)
	GetCurrentResumeEvaluation(jobID string) (storage.ResumeEvaluation, error)
	GetCandidateProfileByContact(contact string) (storage.CandidateProfile, error)
}

// CandidateEvaluation is one candidate's scored outcome for a job posting.
type CandidateEvaluation struct {
	SessionID        string              `json:"session_id"`
	CandidateContact string              `json:"candidate_contact"`
	DisplayName      string              `json:"display_name"`
	ResumeScore      *float64            `json:"resume_score,omitempty"`
	InterviewScore   float64             `json:"interview_score"`
	ContentScore     float64             `json:"content_score"`
	ConfidenceScore  float64             `json:"confidence_score"`
	IntegratedScore  float64             `json:"integrated_score"`
	Verdict          scoring.Verdict     `json:"verdict"`
	QuestionCount    int                 `json:"question_count"`
	AnsweredCount    int                 `json:"answered_count"`
	Questions        []QuestionBreakdown `json:"questions,omitempty"`
}

// QuestionBreakdown is the per-question detail behind an evaluation.
type QuestionBreakdown struct {
	QuestionID string  `json:"question_id"`
	Category   string  `json:"category"`
	Weight     int     `json:"weight"`
	Final      float64 `json:"final_score"`
	Content    float64 `json:"content_score"`
	Confidence float64 `json:"confidence_score"`
}

// Evaluator scores candidates for job postings.
type Evaluator struct {
	source      DataSource
	logger      *slog.Logger
	concurrency int
}

// NewEvaluator creates an evaluator reading from source. concurrency <= 0
// falls back to DefaultConcurrency.
func NewEvaluator(source DataSource, logger *slog.Logger, concurrency int) *Evaluator {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Evaluator{
		source:      source,
		logger:      logger,
		concurrency: concurrency,
	}
}

// EvaluateCandidates scores every completed interview session for the given
// job posting and returns evaluations ordered by integrated score descending,
// session id ascending. A posting with no completed sessions yields an empty
// slice, not an error.
func (e *Evaluator) EvaluateCandidates(ctx context.Context, jobID string) ([]CandidateEvaluation, error) {
	if _, err := e.source.GetJobPosting(jobID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
		}
		return nil, fmt.Errorf("loading job posting %s: %w", jobID, err)
	}

	questions, err := e.source.GetQuestionsForJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("loading questions for job %s: %w", jobID, err)
	}
	categories := make(map[string]scoring.Category, len(questions))
	for _, q := range questions {
		categories[q.ID] = scoring.ParseCategory(q.Category)
	}

	sessions, err := e.source.GetSessionsForJob(jobID)
	if err != nil {
		return nil, fmt.Errorf("loading sessions for job %s: %w", jobID, err)
	}

	var completed []storage.InterviewSession
	for _, sess := range sessions {
		if sess.Status == storage.SessionCompleted {
			completed = append(completed, sess)
		}
	}
	if len(completed) == 0 {
		e.logger.Info("no completed sessions to evaluate", "job_id", jobID)
		return []CandidateEvaluation{}, nil
	}

	resumeScores, err := e.loadResumeScores(jobID)
	if err != nil {
		return nil, err
	}

	// Sessions are independent: score them concurrently, then sort. Each
	// goroutine writes only its own slot.
	results := make([]CandidateEvaluation, len(completed))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, sess := range completed {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ev, err := e.evaluateSession(sess, categories, resumeScores)
			if err != nil {
				return err
			}
			results[i] = ev
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].IntegratedScore != results[j].IntegratedScore {
			return results[i].IntegratedScore > results[j].IntegratedScore
		}
		return results[i].SessionID < results[j].SessionID
	})

	e.logger.Info("evaluated candidates",
		"job_id", jobID,
		"sessions", len(completed),
		"questions", len(questions))

	return results, nil
}

// loadResumeScores returns the current resume evaluation's per-candidate
// scores normalized to [0,1]. No evaluation on file means every candidate
// goes resume-less, which is a valid degraded state.
func (e *Evaluator) loadResumeScores(jobID string) (map[string]*float64, error) {
	ev, err := e.source.GetCurrentResumeEvaluation(jobID)
	if errors.Is(err, storage.ErrNotFound) {
		return map[string]*float64{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading resume evaluation for job %s: %w", jobID, err)
	}

	scores := make(map[string]*float64, len(ev.Entries))
	for _, entry := range ev.Entries {
		if entry.OverallScore == nil {
			scores[entry.CandidateContact] = nil
			continue
		}
		normalized := *entry.OverallScore / 100.0
		scores[entry.CandidateContact] = &normalized
	}
	return scores, nil
}

func (e *Evaluator) evaluateSession(sess storage.InterviewSession, categories map[string]scoring.Category, resumeScores map[string]*float64) (CandidateEvaluation, error) {
	responses, err := e.source.GetResponsesForSession(sess.ID)
	if err != nil {
		return CandidateEvaluation{}, fmt.Errorf("loading responses for session %s: %w", sess.ID, err)
	}

	answers := make([]scoring.Answer, 0, len(responses))
	for _, r := range responses {
		answers = append(answers, scoring.Answer{
			QuestionID: r.QuestionID,
			Content:    deref(r.ContentScore),
			Confidence: deref(r.ConfidenceScore),
			Final:      r.FinalScore,
		})
	}
	deduped := scoring.Dedupe(answers)

	items := make([]scoring.QuestionScore, 0, len(deduped))
	breakdown := make([]QuestionBreakdown, 0, len(deduped))
	for _, a := range deduped {
		cat := categories[a.QuestionID]
		items = append(items, scoring.QuestionScore{
			Category:   cat,
			Final:      *a.Final,
			Content:    a.Content,
			Confidence: a.Confidence,
		})
		breakdown = append(breakdown, QuestionBreakdown{
			QuestionID: a.QuestionID,
			Category:   cat.String(),
			Weight:     cat.Weight(),
			Final:      *a.Final,
			Content:    a.Content,
			Confidence: a.Confidence,
		})
	}

	weighted := scoring.Aggregate(items)
	resumeScore := resumeScores[sess.CandidateContact]
	integrated := scoring.Blend(resumeScore, weighted.Final)

	return CandidateEvaluation{
		SessionID:        sess.ID,
		CandidateContact: sess.CandidateContact,
		DisplayName:      e.displayName(sess.CandidateContact),
		ResumeScore:      resumeScore,
		InterviewScore:   weighted.Final,
		ContentScore:     weighted.Content,
		ConfidenceScore:  weighted.Confidence,
		IntegratedScore:  integrated,
		Verdict:          scoring.Classify(integrated),
		QuestionCount:    len(categories),
		AnsweredCount:    len(deduped),
		Questions:        breakdown,
	}, nil
}

// displayName prefers the stored profile name; a missing profile degrades to
// a name derived from the contact rather than failing the evaluation.
func (e *Evaluator) displayName(contact string) string {
	profile, err := e.source.GetCandidateProfileByContact(contact)
	if err == nil && profile.Name != "" {
		return profile.Name
	}
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		e.logger.Warn("profile lookup failed, deriving display name", "contact", contact, "error", err)
	}
	return DeriveDisplayName(contact)
}

// DeriveDisplayName builds a readable name from a contact address: the local
// part of an email, otherwise the contact verbatim.
func DeriveDisplayName(contact string) string {
	if at := strings.Index(contact, "@"); at > 0 {
		return contact[:at]
	}
	return contact
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
