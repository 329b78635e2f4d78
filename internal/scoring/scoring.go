// Package scoring implements the pure candidate scoring math: the
// per-question veto rule, category complexity weights, response
// deduplication, weighted aggregation, resume/interview blending, and the
// final verdict classification. Everything here is deterministic and
// side-effect-free so results are reproducible from the same input snapshot.
package scoring

// Veto rule constants. Confidence alone must never rescue a factually wrong
// answer: below ContentVetoThreshold the per-question score is a hard 0.
const (
	ContentVetoThreshold = 0.4
	ContentWeight        = 0.8
	ConfidenceWeight     = 0.2
)

// Blend constants. When a resume score is present it contributes 30% of the
// integrated score, the weighted interview score the remaining 70%.
const (
	ResumeBlendWeight    = 0.3
	InterviewBlendWeight = 0.7
)

// Classification band lower bounds, inclusive.
const (
	StrongHireThreshold = 0.85
	PotentialThreshold  = 0.60
)

// Verdict is the discrete hiring category derived from the integrated score.
type Verdict string

const (
	VerdictStrongHire Verdict = "strong_hire"
	VerdictPotential  Verdict = "potential"
	VerdictRejected   Verdict = "rejected"
)

// FinalScore applies the veto rule to a single response. Inputs are clamped
// to [0,1]; callers pass 0 for absent scores. Below the veto threshold the
// result is exactly 0 regardless of confidence; above it the result is the
// 80/20 content/confidence mix.
func FinalScore(contentScore, confidenceScore float64) float64 {
	content := clamp01(contentScore)
	confidence := clamp01(confidenceScore)

	if content < ContentVetoThreshold {
		return 0
	}
	return clamp01(ContentWeight*content + ConfidenceWeight*confidence)
}

// Blend combines an optional resume score with the weighted interview score.
// A nil resume score means the candidate has no resume evaluation on file,
// which is a valid state: the interview score stands alone.
func Blend(resumeScore *float64, weightedFinal float64) float64 {
	if resumeScore == nil {
		return weightedFinal
	}
	return *resumeScore*ResumeBlendWeight + weightedFinal*InterviewBlendWeight
}

// Classify maps an integrated score to a verdict. Band boundaries are
// inclusive on the lower bound: Classify(0.85) is strong_hire and
// Classify(0.60) is potential.
func Classify(integratedScore float64) Verdict {
	switch {
	case integratedScore >= StrongHireThreshold:
		return VerdictStrongHire
	case integratedScore >= PotentialThreshold:
		return VerdictPotential
	default:
		return VerdictRejected
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
