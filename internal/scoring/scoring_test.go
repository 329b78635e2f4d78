package scoring

import (
	"math"
	"testing"
)

func TestFinalScore_VetoBelowThreshold(t *testing.T) {
	// Below the content threshold confidence must not matter at all.
	for _, confidence := range []float64{0, 0.5, 0.95, 1} {
		got := FinalScore(0.3, confidence)
		if got != 0 {
			t.Errorf("FinalScore(0.3, %g) = %g, want exactly 0", confidence, got)
		}
	}
	if got := FinalScore(0.39999, 1); got != 0 {
		t.Errorf("FinalScore(0.39999, 1) = %g, want exactly 0", got)
	}
}

func TestFinalScore_AboveThreshold(t *testing.T) {
	got := FinalScore(0.9, 0.8)
	want := 0.8*0.9 + 0.2*0.8 // 0.88
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("FinalScore(0.9, 0.8) = %g, want %g", got, want)
	}
}

func TestFinalScore_ThresholdBoundaryInclusive(t *testing.T) {
	// contentScore exactly at the threshold is not vetoed.
	got := FinalScore(0.4, 0)
	want := 0.8 * 0.4
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("FinalScore(0.4, 0) = %g, want %g", got, want)
	}
}

func TestFinalScore_Monotonic(t *testing.T) {
	// Above the threshold the score is non-decreasing in both inputs.
	prev := -1.0
	for c := 0.4; c <= 1.0; c += 0.05 {
		got := FinalScore(c, 0.5)
		if got < prev {
			t.Fatalf("FinalScore not monotonic in content: FinalScore(%g, 0.5) = %g < %g", c, got, prev)
		}
		prev = got
	}
	prev = -1.0
	for conf := 0.0; conf <= 1.0; conf += 0.05 {
		got := FinalScore(0.7, conf)
		if got < prev {
			t.Fatalf("FinalScore not monotonic in confidence: FinalScore(0.7, %g) = %g < %g", conf, got, prev)
		}
		prev = got
	}
}

func TestFinalScore_ClampsOutOfRangeInputs(t *testing.T) {
	if got := FinalScore(1.5, 2.0); got != 1 {
		t.Errorf("FinalScore(1.5, 2.0) = %g, want 1 (inputs clamped)", got)
	}
	if got := FinalScore(-0.2, 0.9); got != 0 {
		t.Errorf("FinalScore(-0.2, 0.9) = %g, want 0 (negative content clamps to 0, vetoed)", got)
	}
}

func TestBlend_WithResumeScore(t *testing.T) {
	resume := 0.9
	got := Blend(&resume, 0.22)
	want := 0.9*0.3 + 0.22*0.7 // 0.424
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Blend(0.9, 0.22) = %g, want %g", got, want)
	}
}

func TestBlend_NilResumeFallsBackToInterview(t *testing.T) {
	for _, x := range []float64{0, 0.22, 0.5, 0.85, 1} {
		if got := Blend(nil, x); got != x {
			t.Errorf("Blend(nil, %g) = %g, want %g", x, got, x)
		}
	}
}

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Verdict
	}{
		{1.0, VerdictStrongHire},
		{0.85, VerdictStrongHire},
		{0.8499999, VerdictPotential},
		{0.7, VerdictPotential},
		{0.6, VerdictPotential},
		{0.5999999, VerdictRejected},
		{0.22, VerdictRejected},
		{0, VerdictRejected},
	}
	for _, tc := range tests {
		if got := Classify(tc.score); got != tc.want {
			t.Errorf("Classify(%g) = %q, want %q", tc.score, got, tc.want)
		}
	}
}

func TestParseCategory_KnownValues(t *testing.T) {
	tests := map[string]Category{
		"intro":      CategoryIntro,
		"motivation": CategoryMotivation,
		"challenge":  CategoryChallenge,
		"vision":     CategoryVision,
	}
	for raw, want := range tests {
		if got := ParseCategory(raw); got != want {
			t.Errorf("ParseCategory(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestParseCategory_UnknownFallsBackToGeneral(t *testing.T) {
	// Case-sensitive: "Intro" is not canonical and lands on the default.
	for _, raw := range []string{"", "Intro", "technical", "INTRO", "closing"} {
		if got := ParseCategory(raw); got != CategoryGeneral {
			t.Errorf("ParseCategory(%q) = %v, want CategoryGeneral", raw, got)
		}
	}
}

func TestCategoryWeight_Totality(t *testing.T) {
	tests := []struct {
		cat  Category
		want int
	}{
		{CategoryIntro, 1},
		{CategoryMotivation, 1},
		{CategoryChallenge, 3},
		{CategoryVision, 3},
		{CategoryGeneral, 2},
	}
	for _, tc := range tests {
		if got := tc.cat.Weight(); got != tc.want {
			t.Errorf("%v.Weight() = %d, want %d", tc.cat, got, tc.want)
		}
	}

	// Every raw string, known or not, resolves to a weight in {1,2,3}.
	for _, raw := range []string{"intro", "motivation", "challenge", "vision", "", "whatever"} {
		w := ParseCategory(raw).Weight()
		if w < 1 || w > 3 {
			t.Errorf("ParseCategory(%q).Weight() = %d, want value in {1,2,3}", raw, w)
		}
	}
}
