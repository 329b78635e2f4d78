package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database holding job postings, questions, sessions,
// responses, resume evaluations, candidate profiles, and the task queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "hireloop.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for tests and maintenance tooling.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Job postings ---

func (s *Store) CreateJobPosting(j JobPosting) error {
	_, err := s.db.Exec(`
		INSERT INTO job_postings (id, title, description, created_at)
		VALUES (?, ?, ?, ?)`,
		j.ID, j.Title, j.Description, j.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetJobPosting(id string) (JobPosting, error) {
	var j JobPosting
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, title, description, created_at FROM job_postings WHERE id = ?`, id,
	).Scan(&j.ID, &j.Title, &j.Description, &createdAt)
	if err == sql.ErrNoRows {
		return JobPosting{}, ErrNotFound
	}
	if err != nil {
		return JobPosting{}, err
	}
	if j.CreatedAt, err = parseTime(createdAt); err != nil {
		return JobPosting{}, err
	}
	return j, nil
}

func (s *Store) ListJobPostings() ([]JobPosting, error) {
	rows, err := s.db.Query(`
		SELECT id, title, description, created_at FROM job_postings ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []JobPosting
	for rows.Next() {
		var j JobPosting
		var createdAt string
		if err := rows.Scan(&j.ID, &j.Title, &j.Description, &createdAt); err != nil {
			return nil, err
		}
		if j.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, j)
	}
	return results, rows.Err()
}

// --- Questions ---

func (s *Store) CreateQuestion(q Question) error {
	_, err := s.db.Exec(`
		INSERT INTO questions (id, job_id, text, category, ord, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		q.ID, q.JobID, q.Text, q.Category, q.Order, q.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// GetQuestionsForJob returns a posting's questions in interview order.
func (s *Store) GetQuestionsForJob(jobID string) ([]Question, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, text, category, ord, created_at
		FROM questions WHERE job_id = ? ORDER BY ord ASC, created_at ASC, id ASC`, jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Question
	for rows.Next() {
		var q Question
		var createdAt string
		if err := rows.Scan(&q.ID, &q.JobID, &q.Text, &q.Category, &q.Order, &createdAt); err != nil {
			return nil, err
		}
		if q.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}

// --- Interview sessions ---

func (s *Store) CreateSession(sess InterviewSession) error {
	status := sess.Status
	if status == "" {
		status = SessionScheduled
	}
	_, err := s.db.Exec(`
		INSERT INTO interview_sessions (id, job_id, candidate_contact, status, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.JobID, sess.CandidateContact, status,
		sess.CreatedAt.UTC().Format(time.RFC3339), nullableTime(sess.CompletedAt),
	)
	return err
}

func (s *Store) GetSession(id string) (InterviewSession, error) {
	row := s.db.QueryRow(`
		SELECT id, job_id, candidate_contact, status, created_at, completed_at
		FROM interview_sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return InterviewSession{}, ErrNotFound
	}
	return sess, err
}

func (s *Store) GetSessionsForJob(jobID string) ([]InterviewSession, error) {
	rows, err := s.db.Query(`
		SELECT id, job_id, candidate_contact, status, created_at, completed_at
		FROM interview_sessions WHERE job_id = ? ORDER BY created_at ASC, id ASC`, jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []InterviewSession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

// UpdateSessionStatus moves a session to a new lifecycle state. Entering
// "completed" records the completion timestamp.
func (s *Store) UpdateSessionStatus(id, status string, completedAt *time.Time) error {
	res, err := s.db.Exec(`
		UPDATE interview_sessions SET status = ?, completed_at = ? WHERE id = ?`,
		status, nullableTime(completedAt), id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (InterviewSession, error) {
	var sess InterviewSession
	var createdAt string
	var completedAt sql.NullString
	if err := row.Scan(&sess.ID, &sess.JobID, &sess.CandidateContact, &sess.Status, &createdAt, &completedAt); err != nil {
		return InterviewSession{}, err
	}
	var err error
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return InterviewSession{}, err
	}
	if completedAt.Valid && completedAt.String != "" {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return InterviewSession{}, err
		}
		sess.CompletedAt = &t
	}
	return sess, nil
}

// --- Responses ---

func (s *Store) CreateResponse(r Response) error {
	_, err := s.db.Exec(`
		INSERT INTO responses (id, session_id, question_id, transcript, content_score, confidence_score, final_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.SessionID, r.QuestionID, r.Transcript,
		nullableFloat(r.ContentScore), nullableFloat(r.ConfidenceScore), nullableFloat(r.FinalScore),
		r.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetResponse(id string) (Response, error) {
	row := s.db.QueryRow(`
		SELECT id, session_id, question_id, transcript, content_score, confidence_score, final_score, created_at
		FROM responses WHERE id = ?`, id)
	r, err := scanResponse(row)
	if err == sql.ErrNoRows {
		return Response{}, ErrNotFound
	}
	return r, err
}

// GetResponsesForSession returns all of a session's responses, retries
// included, in recording order. The order is stable (creation time, then
// id) because downstream deduplication breaks score ties by input order.
func (s *Store) GetResponsesForSession(sessionID string) ([]Response, error) {
	rows, err := s.db.Query(`
		SELECT id, session_id, question_id, transcript, content_score, confidence_score, final_score, created_at
		FROM responses WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Response
	for rows.Next() {
		r, err := scanResponse(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// SetResponseFinalScore backfills a response's final score. Used by the
// analysis worker; only responses still missing a final score are updated.
func (s *Store) SetResponseFinalScore(id string, score float64) error {
	res, err := s.db.Exec(`
		UPDATE responses SET final_score = ? WHERE id = ? AND final_score IS NULL`,
		score, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanResponse(row rowScanner) (Response, error) {
	var r Response
	var createdAt string
	var content, confidence, final sql.NullFloat64
	if err := row.Scan(&r.ID, &r.SessionID, &r.QuestionID, &r.Transcript, &content, &confidence, &final, &createdAt); err != nil {
		return Response{}, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return Response{}, err
	}
	r.ContentScore = floatPtr(content)
	r.ConfidenceScore = floatPtr(confidence)
	r.FinalScore = floatPtr(final)
	return r, nil
}

// --- Resume evaluations ---

// SaveResumeEvaluation stores an evaluation and its per-candidate entries
// atomically.
func (s *Store) SaveResumeEvaluation(ev ResumeEvaluation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`
		INSERT INTO resume_evaluations (id, job_id, created_at) VALUES (?, ?, ?)`,
		ev.ID, ev.JobID, ev.CreatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return err
	}

	for _, e := range ev.Entries {
		if _, err := tx.Exec(`
			INSERT INTO resume_evaluation_entries (evaluation_id, candidate_contact, overall_score)
			VALUES (?, ?, ?)`,
			ev.ID, e.CandidateContact, nullableFloat(e.OverallScore),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetCurrentResumeEvaluation returns the most recently created evaluation
// for a job posting, entries included. Ties on created_at break by id
// descending so the "current" pick is deterministic. Returns ErrNotFound
// when the posting has no evaluation at all.
func (s *Store) GetCurrentResumeEvaluation(jobID string) (ResumeEvaluation, error) {
	var ev ResumeEvaluation
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, job_id, created_at FROM resume_evaluations
		WHERE job_id = ? ORDER BY created_at DESC, id DESC LIMIT 1`, jobID,
	).Scan(&ev.ID, &ev.JobID, &createdAt)
	if err == sql.ErrNoRows {
		return ResumeEvaluation{}, ErrNotFound
	}
	if err != nil {
		return ResumeEvaluation{}, err
	}
	if ev.CreatedAt, err = parseTime(createdAt); err != nil {
		return ResumeEvaluation{}, err
	}

	rows, err := s.db.Query(`
		SELECT candidate_contact, overall_score FROM resume_evaluation_entries
		WHERE evaluation_id = ? ORDER BY candidate_contact ASC`, ev.ID,
	)
	if err != nil {
		return ResumeEvaluation{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var e ResumeEntry
		var score sql.NullFloat64
		if err := rows.Scan(&e.CandidateContact, &score); err != nil {
			return ResumeEvaluation{}, err
		}
		e.OverallScore = floatPtr(score)
		ev.Entries = append(ev.Entries, e)
	}
	return ev, rows.Err()
}

// --- Candidate profiles ---

// UpsertCandidateProfile creates a profile or refreshes an existing one
// matched by contact.
func (s *Store) UpsertCandidateProfile(p CandidateProfile) error {
	_, err := s.db.Exec(`
		INSERT INTO candidate_profiles (id, contact, name, resume_text, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(contact) DO UPDATE SET name = excluded.name, resume_text = excluded.resume_text`,
		p.ID, p.Contact, p.Name, p.ResumeText, p.CreatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetCandidateProfileByContact(contact string) (CandidateProfile, error) {
	var p CandidateProfile
	var createdAt string
	err := s.db.QueryRow(`
		SELECT id, contact, name, resume_text, created_at
		FROM candidate_profiles WHERE contact = ?`, contact,
	).Scan(&p.ID, &p.Contact, &p.Name, &p.ResumeText, &createdAt)
	if err == sql.ErrNoRows {
		return CandidateProfile{}, ErrNotFound
	}
	if err != nil {
		return CandidateProfile{}, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return CandidateProfile{}, err
	}
	return p, nil
}

// --- Task queue ---

func (s *Store) EnqueueTask(task Task) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !task.RunAfter.IsZero() {
		runAfter = task.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := task.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO tasks (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		task.ID, task.Type, task.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

// ClaimNextTask atomically claims the oldest runnable pending task of one of
// the given types, marking it running. Returns nil when nothing is due.
func (s *Store) ClaimNextTask(types []string) (*Task, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM tasks
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]interface{}, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var task Task
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&task.ID, &task.Type, &task.PayloadJSON, &task.Status, &task.Attempts, &task.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next task: %w", err)
	}

	res, err := tx.Exec(`UPDATE tasks SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, task.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating task status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated task rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	task.Status = "running"
	task.LastError = lastError.String
	if task.RunAfter, err = parseTime(runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for task %s: %w", task.ID, err)
	}
	if task.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for task %s: %w", task.ID, err)
	}
	if task.UpdatedAt, err = parseTime(now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for task %s: %w", task.ID, err)
	}
	return &task, nil
}

func (s *Store) CompleteTask(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE tasks SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailTask records a failure, rescheduling with exponential backoff until
// max attempts is reached, at which point the task is marked failed.
func (s *Store) FailTask(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM tasks WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE tasks SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE tasks SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}

// --- helpers ---

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
