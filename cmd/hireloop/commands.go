package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/hireloop/hireloop/internal/config"
	"github.com/hireloop/hireloop/internal/resume"
)

// --- jobs ---

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage job postings",
}

var jobsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a job posting",
	RunE: func(cmd *cobra.Command, args []string) error {
		title, _ := cmd.Flags().GetString("title")
		description, _ := cmd.Flags().GetString("description")
		if title == "" {
			return fmt.Errorf("--title is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/jobs", map[string]string{
			"title":       title,
			"description": description,
		})
		if err != nil {
			return err
		}

		var job struct {
			ID    string `json:"ID"`
			Title string `json:"Title"`
		}
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		printSuccess("Created job posting %s (%s)", job.ID, job.Title)
		return nil
	},
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List job postings",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs")
		if err != nil {
			return err
		}

		var jobs []struct {
			ID        string    `json:"ID"`
			Title     string    `json:"Title"`
			CreatedAt time.Time `json:"CreatedAt"`
		}
		if err := decodeJSON(resp, &jobs); err != nil {
			return err
		}

		if len(jobs) == 0 {
			fmt.Println("No job postings found.")
			return nil
		}

		for _, j := range jobs {
			fmt.Printf("%s  %s  %s\n",
				colorize(colorCyan, shortID(j.ID)),
				j.CreatedAt.Format("2006-01-02"),
				j.Title,
			)
		}
		return nil
	},
}

func init() {
	jobsAddCmd.Flags().String("title", "", "job posting title")
	jobsAddCmd.Flags().String("description", "", "job posting description")
	jobsCmd.AddCommand(jobsAddCmd)
	jobsCmd.AddCommand(jobsListCmd)
}

// --- questions ---

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Manage interview questions",
}

var questionsAddCmd = &cobra.Command{
	Use:   "add <job-id>",
	Short: "Add a question to a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		category, _ := cmd.Flags().GetString("category")
		order, _ := cmd.Flags().GetInt("order")
		if text == "" {
			return fmt.Errorf("--text is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/jobs/"+args[0]+"/questions", map[string]any{
			"text":     text,
			"category": category,
			"order":    order,
		})
		if err != nil {
			return err
		}

		var q struct {
			ID       string `json:"ID"`
			Category string `json:"Category"`
		}
		if err := decodeJSON(resp, &q); err != nil {
			return err
		}

		printSuccess("Added question %s (category %s)", q.ID, q.Category)
		return nil
	},
}

var questionsListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List a job posting's questions in interview order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs/"+args[0]+"/questions")
		if err != nil {
			return err
		}

		var questions []struct {
			ID       string `json:"ID"`
			Text     string `json:"Text"`
			Category string `json:"Category"`
			Order    int    `json:"Order"`
		}
		if err := decodeJSON(resp, &questions); err != nil {
			return err
		}

		if len(questions) == 0 {
			fmt.Println("No questions found.")
			return nil
		}

		for _, q := range questions {
			fmt.Printf("%2d. [%s] %s  %s\n",
				q.Order,
				q.Category,
				colorize(colorCyan, shortID(q.ID)),
				q.Text,
			)
		}
		return nil
	},
}

func init() {
	questionsAddCmd.Flags().String("text", "", "question text")
	questionsAddCmd.Flags().String("category", "", "question category (intro, motivation, challenge, vision)")
	questionsAddCmd.Flags().Int("order", 0, "position within the interview")
	questionsCmd.AddCommand(questionsAddCmd)
	questionsCmd.AddCommand(questionsListCmd)
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage interview sessions",
}

var sessionsAddCmd = &cobra.Command{
	Use:   "add <job-id>",
	Short: "Schedule an interview session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		contact, _ := cmd.Flags().GetString("contact")
		if contact == "" {
			return fmt.Errorf("--contact is required")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/jobs/"+args[0]+"/sessions", map[string]string{
			"candidate_contact": contact,
		})
		if err != nil {
			return err
		}

		var sess struct {
			ID string `json:"ID"`
		}
		if err := decodeJSON(resp, &sess); err != nil {
			return err
		}

		printSuccess("Scheduled session %s for %s", sess.ID, contact)
		return nil
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list <job-id>",
	Short: "List a job posting's interview sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs/"+args[0]+"/sessions")
		if err != nil {
			return err
		}

		var sessions []struct {
			ID               string `json:"ID"`
			CandidateContact string `json:"CandidateContact"`
			Status           string `json:"Status"`
		}
		if err := decodeJSON(resp, &sessions); err != nil {
			return err
		}

		if len(sessions) == 0 {
			fmt.Println("No sessions found.")
			return nil
		}

		for _, s := range sessions {
			fmt.Printf("%s  %-12s  %s\n",
				colorize(colorCyan, shortID(s.ID)),
				s.Status,
				s.CandidateContact,
			)
		}
		return nil
	},
}

var sessionsSetStatusCmd = &cobra.Command{
	Use:   "set-status <session-id> <status>",
	Short: "Move a session to a new lifecycle state",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.patch(cmd.Context(), "/sessions/"+args[0]+"/status", map[string]string{
			"status": args[1],
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Session %s is now %s", args[0], result["status"])
		return nil
	},
}

func init() {
	sessionsAddCmd.Flags().String("contact", "", "candidate contact (email or phone)")
	sessionsCmd.AddCommand(sessionsAddCmd)
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsSetStatusCmd)
}

// --- evaluate ---

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <job-id>",
	Short: "Score and rank candidates for a job posting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/jobs/"+args[0]+"/evaluations")
		if err != nil {
			return err
		}

		var results []struct {
			SessionID       string   `json:"session_id"`
			DisplayName     string   `json:"display_name"`
			ResumeScore     *float64 `json:"resume_score"`
			InterviewScore  float64  `json:"interview_score"`
			IntegratedScore float64  `json:"integrated_score"`
			Verdict         string   `json:"verdict"`
			AnsweredCount   int      `json:"answered_count"`
		}
		if err := decodeJSON(resp, &results); err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}

		if len(results) == 0 {
			fmt.Println("No completed sessions to evaluate.")
			return nil
		}

		for i, r := range results {
			fmt.Printf("%2d. %s  %s  interview %.3f  resume %s  %s (%d answered)\n",
				i+1,
				colorize(colorBold, fmt.Sprintf("%.3f", r.IntegratedScore)),
				r.DisplayName,
				r.InterviewScore,
				scoreCell(r.ResumeScore),
				verdictLabel(r.Verdict),
				r.AnsweredCount,
			)
		}
		return nil
	},
}

func init() {
	evaluateCmd.Flags().Bool("json", false, "print raw JSON evaluations")
}

// --- candidates ---

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage candidate profiles",
}

var candidatesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create or update a candidate profile",
	Long: `Create or update a candidate profile.

Examples:
  hireloop candidates add --contact alice@example.com --name "Alice Liddell"
  hireloop candidates add --contact alice@example.com --resume ./alice.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		contact, _ := cmd.Flags().GetString("contact")
		name, _ := cmd.Flags().GetString("name")
		resumePath, _ := cmd.Flags().GetString("resume")
		if contact == "" {
			return fmt.Errorf("--contact is required")
		}

		var resumeText string
		if resumePath != "" {
			text, err := resume.ExtractText(resumePath)
			if err != nil {
				return fmt.Errorf("importing resume: %w", err)
			}
			resumeText = text
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/candidates", map[string]string{
			"contact":     contact,
			"name":        name,
			"resume_text": resumeText,
		})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Saved candidate %s", contact)
		return nil
	},
}

var candidatesShowCmd = &cobra.Command{
	Use:   "show <contact>",
	Short: "Show a candidate profile as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/candidates/"+args[0])
		if err != nil {
			return err
		}

		var profile any
		if err := decodeJSON(resp, &profile); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	candidatesAddCmd.Flags().String("contact", "", "candidate contact (email or phone)")
	candidatesAddCmd.Flags().String("name", "", "candidate display name")
	candidatesAddCmd.Flags().String("resume", "", "path to a resume PDF to import")
	candidatesCmd.AddCommand(candidatesAddCmd)
	candidatesCmd.AddCommand(candidatesShowCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
