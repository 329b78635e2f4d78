package scoring

// Answer is one recorded response to a question, as seen by the scoring
// core. Content and Confidence carry 0 for absent values; Final is nil when
// no final score has been recorded yet, which makes the answer ineligible
// for aggregation.
type Answer struct {
	QuestionID string
	Content    float64
	Confidence float64
	Final      *float64
}

// Dedupe reduces a session's answers to at most one per question. Answers
// without a final score are dropped entirely (they never contribute a
// zero). Among eligible answers for the same question the one with the
// strictly greatest final score wins; on ties the first encountered in
// input order is kept. Output preserves first-encounter question order, so
// deduplicating an already-deduplicated slice is a no-op.
func Dedupe(answers []Answer) []Answer {
	best := make(map[string]int, len(answers))
	var order []string

	for i, a := range answers {
		if a.Final == nil {
			continue
		}
		prev, seen := best[a.QuestionID]
		if !seen {
			best[a.QuestionID] = i
			order = append(order, a.QuestionID)
			continue
		}
		if *a.Final > *answers[prev].Final {
			best[a.QuestionID] = i
		}
	}

	out := make([]Answer, 0, len(order))
	for _, qid := range order {
		out = append(out, answers[best[qid]])
	}
	return out
}
