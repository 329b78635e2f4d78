package scoring

// QuestionScore is one deduplicated, weighted scoring tuple: the answer's
// scores paired with its question's category.
type QuestionScore struct {
	Category   Category
	Final      float64
	Content    float64
	Confidence float64
}

// WeightedScores holds the three weighted means over a session's scored
// questions.
type WeightedScores struct {
	Final      float64
	Content    float64
	Confidence float64
}

// Aggregate computes the complexity-weighted means of final, content, and
// confidence scores. With no scored questions (total weight 0) all three
// means are exactly 0.0, never NaN. This is the only division in the
// scoring core; no intermediate rounding is applied.
func Aggregate(items []QuestionScore) WeightedScores {
	var sumFinal, sumContent, sumConfidence float64
	var totalWeight int

	for _, it := range items {
		w := float64(it.Category.Weight())
		sumFinal += it.Final * w
		sumContent += it.Content * w
		sumConfidence += it.Confidence * w
		totalWeight += it.Category.Weight()
	}

	if totalWeight == 0 {
		return WeightedScores{}
	}

	tw := float64(totalWeight)
	return WeightedScores{
		Final:      sumFinal / tw,
		Content:    sumContent / tw,
		Confidence: sumConfidence / tw,
	}
}
