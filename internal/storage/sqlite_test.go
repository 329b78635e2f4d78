package storage

import (
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMigrationsApplied(t *testing.T) {
	s := openTestStore(t)

	versions, err := s.AppliedMigrations()
	if err != nil {
		t.Fatalf("AppliedMigrations: %v", err)
	}
	if len(versions) == 0 {
		t.Fatal("no migrations applied")
	}
	if versions[0] != 1 {
		t.Errorf("first migration version = %d, want 1", versions[0])
	}
}

func TestJobPostingRoundTrip(t *testing.T) {
	s := openTestStore(t)

	job := JobPosting{
		ID:          "job-1",
		Title:       "Backend Engineer",
		Description: "Builds services.",
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}
	if err := s.CreateJobPosting(job); err != nil {
		t.Fatalf("CreateJobPosting: %v", err)
	}

	got, err := s.GetJobPosting("job-1")
	if err != nil {
		t.Fatalf("GetJobPosting: %v", err)
	}
	if got.Title != job.Title || got.Description != job.Description {
		t.Errorf("got %+v, want %+v", got, job)
	}
	if !got.CreatedAt.Equal(job.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, job.CreatedAt)
	}
}

func TestGetJobPostingNotFound(t *testing.T) {
	s := openTestStore(t)

	_, err := s.GetJobPosting("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestQuestionsOrderedByPosition(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	questions := []Question{
		{ID: "q-c", JobID: "job-1", Text: "third", Category: "vision", Order: 3, CreatedAt: now},
		{ID: "q-a", JobID: "job-1", Text: "first", Category: "intro", Order: 1, CreatedAt: now},
		{ID: "q-b", JobID: "job-1", Text: "second", Category: "challenge", Order: 2, CreatedAt: now},
	}
	for _, q := range questions {
		if err := s.CreateQuestion(q); err != nil {
			t.Fatalf("CreateQuestion(%s): %v", q.ID, err)
		}
	}

	got, err := s.GetQuestionsForJob("job-1")
	if err != nil {
		t.Fatalf("GetQuestionsForJob: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d questions, want 3", len(got))
	}
	for i, wantID := range []string{"q-a", "q-b", "q-c"} {
		if got[i].ID != wantID {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, wantID)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	sess := InterviewSession{
		ID:               "sess-1",
		JobID:            "job-1",
		CandidateContact: "alice@example.com",
		CreatedAt:        now,
	}
	if err := s.CreateSession(sess); err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	got, err := s.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Status != SessionScheduled {
		t.Errorf("fresh session status = %q, want %q", got.Status, SessionScheduled)
	}
	if got.CompletedAt != nil {
		t.Errorf("fresh session has CompletedAt = %v, want nil", got.CompletedAt)
	}

	done := now.Add(30 * time.Minute)
	if err := s.UpdateSessionStatus("sess-1", SessionCompleted, &done); err != nil {
		t.Fatalf("UpdateSessionStatus: %v", err)
	}

	got, err = s.GetSession("sess-1")
	if err != nil {
		t.Fatalf("GetSession after update: %v", err)
	}
	if got.Status != SessionCompleted {
		t.Errorf("status = %q, want %q", got.Status, SessionCompleted)
	}
	if got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, done)
	}
}

func TestGetSessionsForJobIsolatesJobs(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	mustCreateJob(t, s, "job-2")
	sessions := []InterviewSession{
		{ID: "s-1", JobID: "job-1", CandidateContact: "a@x.com", CreatedAt: now},
		{ID: "s-2", JobID: "job-2", CandidateContact: "b@x.com", CreatedAt: now},
		{ID: "s-3", JobID: "job-1", CandidateContact: "c@x.com", CreatedAt: now.Add(time.Second)},
	}
	for _, sess := range sessions {
		if err := s.CreateSession(sess); err != nil {
			t.Fatalf("CreateSession(%s): %v", sess.ID, err)
		}
	}

	got, err := s.GetSessionsForJob("job-1")
	if err != nil {
		t.Fatalf("GetSessionsForJob: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d sessions, want 2", len(got))
	}
	if got[0].ID != "s-1" || got[1].ID != "s-3" {
		t.Errorf("session order = [%s %s], want [s-1 s-3]", got[0].ID, got[1].ID)
	}
}

func TestResponseNullableScores(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	mustCreateSession(t, s, "sess-1", "job-1", now)

	content := 0.9
	resp := Response{
		ID:           "r-1",
		SessionID:    "sess-1",
		QuestionID:   "q-1",
		Transcript:   "I led the migration.",
		ContentScore: &content,
		CreatedAt:    now,
	}
	if err := s.CreateResponse(resp); err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}

	got, err := s.GetResponse("r-1")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if got.ContentScore == nil || *got.ContentScore != 0.9 {
		t.Errorf("ContentScore = %v, want 0.9", got.ContentScore)
	}
	if got.ConfidenceScore != nil {
		t.Errorf("ConfidenceScore = %v, want nil", got.ConfidenceScore)
	}
	if got.FinalScore != nil {
		t.Errorf("FinalScore = %v, want nil", got.FinalScore)
	}
}

func TestGetResponsesForSessionStableOrder(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	mustCreateSession(t, s, "sess-1", "job-1", now)

	// Same created_at for r-b and r-a: id breaks the tie.
	responses := []Response{
		{ID: "r-b", SessionID: "sess-1", QuestionID: "q-1", CreatedAt: now},
		{ID: "r-a", SessionID: "sess-1", QuestionID: "q-1", CreatedAt: now},
		{ID: "r-c", SessionID: "sess-1", QuestionID: "q-2", CreatedAt: now.Add(time.Second)},
	}
	for _, r := range responses {
		if err := s.CreateResponse(r); err != nil {
			t.Fatalf("CreateResponse(%s): %v", r.ID, err)
		}
	}

	got, err := s.GetResponsesForSession("sess-1")
	if err != nil {
		t.Fatalf("GetResponsesForSession: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d responses, want 3", len(got))
	}
	for i, wantID := range []string{"r-a", "r-b", "r-c"} {
		if got[i].ID != wantID {
			t.Errorf("position %d = %s, want %s", i, got[i].ID, wantID)
		}
	}
}

func TestSetResponseFinalScoreOnlyBackfillsOnce(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")
	mustCreateSession(t, s, "sess-1", "job-1", now)
	if err := s.CreateResponse(Response{ID: "r-1", SessionID: "sess-1", QuestionID: "q-1", CreatedAt: now}); err != nil {
		t.Fatalf("CreateResponse: %v", err)
	}

	if err := s.SetResponseFinalScore("r-1", 0.72); err != nil {
		t.Fatalf("SetResponseFinalScore: %v", err)
	}

	// A second write must not overwrite the stored score.
	if err := s.SetResponseFinalScore("r-1", 0.1); !errors.Is(err, ErrNotFound) {
		t.Errorf("second backfill err = %v, want ErrNotFound", err)
	}

	got, err := s.GetResponse("r-1")
	if err != nil {
		t.Fatalf("GetResponse: %v", err)
	}
	if got.FinalScore == nil || *got.FinalScore != 0.72 {
		t.Errorf("FinalScore = %v, want 0.72", got.FinalScore)
	}
}

func TestGetCurrentResumeEvaluationPicksLatest(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	mustCreateJob(t, s, "job-1")

	older := 55.0
	newer := 81.0
	evals := []ResumeEvaluation{
		{ID: "ev-1", JobID: "job-1", CreatedAt: now, Entries: []ResumeEntry{
			{CandidateContact: "alice@example.com", OverallScore: &older},
		}},
		{ID: "ev-2", JobID: "job-1", CreatedAt: now.Add(time.Minute), Entries: []ResumeEntry{
			{CandidateContact: "alice@example.com", OverallScore: &newer},
			{CandidateContact: "bob@example.com", OverallScore: nil},
		}},
	}
	for _, ev := range evals {
		if err := s.SaveResumeEvaluation(ev); err != nil {
			t.Fatalf("SaveResumeEvaluation(%s): %v", ev.ID, err)
		}
	}

	got, err := s.GetCurrentResumeEvaluation("job-1")
	if err != nil {
		t.Fatalf("GetCurrentResumeEvaluation: %v", err)
	}
	if got.ID != "ev-2" {
		t.Fatalf("current evaluation = %s, want ev-2", got.ID)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(got.Entries))
	}
	if got.Entries[0].OverallScore == nil || *got.Entries[0].OverallScore != 81.0 {
		t.Errorf("alice score = %v, want 81", got.Entries[0].OverallScore)
	}
	if got.Entries[1].OverallScore != nil {
		t.Errorf("bob score = %v, want nil", got.Entries[1].OverallScore)
	}
}

func TestGetCurrentResumeEvaluationNone(t *testing.T) {
	s := openTestStore(t)
	mustCreateJob(t, s, "job-1")

	_, err := s.GetCurrentResumeEvaluation("job-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpsertCandidateProfileByContact(t *testing.T) {
	s := openTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	p := CandidateProfile{ID: "p-1", Contact: "alice@example.com", Name: "Alice", CreatedAt: now}
	if err := s.UpsertCandidateProfile(p); err != nil {
		t.Fatalf("UpsertCandidateProfile: %v", err)
	}

	p.ID = "p-2"
	p.Name = "Alice Liddell"
	p.ResumeText = "Ten years of Go."
	if err := s.UpsertCandidateProfile(p); err != nil {
		t.Fatalf("second UpsertCandidateProfile: %v", err)
	}

	got, err := s.GetCandidateProfileByContact("alice@example.com")
	if err != nil {
		t.Fatalf("GetCandidateProfileByContact: %v", err)
	}
	if got.ID != "p-1" {
		t.Errorf("upsert replaced row id: got %s, want p-1", got.ID)
	}
	if got.Name != "Alice Liddell" || got.ResumeText != "Ten years of Go." {
		t.Errorf("got %+v, want updated name and resume text", got)
	}
}

func TestTaskQueueClaimAndComplete(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-1", Type: "response_score", PayloadJSON: `{"response_id":"r-1"}`}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}

	task, err := s.ClaimNextTask([]string{"response_score"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if task == nil {
		t.Fatal("ClaimNextTask returned nil, want the enqueued task")
	}
	if task.ID != "t-1" || task.Status != "running" {
		t.Errorf("claimed %+v, want t-1 running", task)
	}

	// A second claim finds nothing while the task is running.
	again, err := s.ClaimNextTask([]string{"response_score"})
	if err != nil {
		t.Fatalf("second ClaimNextTask: %v", err)
	}
	if again != nil {
		t.Errorf("second claim returned %+v, want nil", again)
	}

	if err := s.CompleteTask("t-1"); err != nil {
		t.Fatalf("CompleteTask: %v", err)
	}
}

func TestTaskQueueIgnoresOtherTypes(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-1", Type: "resume_ingest", PayloadJSON: "{}"}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}

	task, err := s.ClaimNextTask([]string{"response_score"})
	if err != nil {
		t.Fatalf("ClaimNextTask: %v", err)
	}
	if task != nil {
		t.Errorf("claimed %+v, want nil for unmatched type", task)
	}
}

func TestFailTaskRetriesThenFails(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueTask(Task{ID: "t-1", Type: "response_score", PayloadJSON: "{}", MaxAttempts: 2}); err != nil {
		t.Fatalf("EnqueueTask: %v", err)
	}

	task, err := s.ClaimNextTask([]string{"response_score"})
	if err != nil || task == nil {
		t.Fatalf("ClaimNextTask: task=%v err=%v", task, err)
	}

	// First failure reschedules with backoff, so nothing is immediately due.
	if err := s.FailTask("t-1", "scorer unavailable"); err != nil {
		t.Fatalf("FailTask: %v", err)
	}
	task, err = s.ClaimNextTask([]string{"response_score"})
	if err != nil {
		t.Fatalf("ClaimNextTask after failure: %v", err)
	}
	if task != nil {
		t.Errorf("claimed %+v right after failure, want nil (backoff pending)", task)
	}

	// Second failure exhausts max attempts.
	if err := s.FailTask("t-1", "scorer unavailable"); err != nil {
		t.Fatalf("second FailTask: %v", err)
	}
	var status string
	var attempts int
	if err := s.db.QueryRow("SELECT status, attempts FROM tasks WHERE id = 't-1'").Scan(&status, &attempts); err != nil {
		t.Fatalf("querying task: %v", err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func mustCreateJob(t *testing.T, s *Store, id string) {
	t.Helper()
	job := JobPosting{ID: id, Title: "Job " + id, CreatedAt: time.Now().UTC()}
	if err := s.CreateJobPosting(job); err != nil {
		t.Fatalf("creating job %s: %v", id, err)
	}
}

func mustCreateSession(t *testing.T, s *Store, id, jobID string, at time.Time) {
	t.Helper()
	sess := InterviewSession{ID: id, JobID: jobID, CandidateContact: id + "@example.com", CreatedAt: at}
	if err := s.CreateSession(sess); err != nil {
		t.Fatalf("creating session %s: %v", id, err)
	}
}
