package scoring

// Category is the closed set of question categories. Free-form category
// strings from upstream are canonicalized through ParseCategory; anything
// unrecognized (including empty) lands on CategoryGeneral rather than
// erroring, so the weight lookup is total.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryIntro
	CategoryMotivation
	CategoryChallenge
	CategoryVision
)

// ParseCategory canonicalizes a raw category string. Matching is
// case-sensitive on the canonical names; unknown values map to
// CategoryGeneral.
func ParseCategory(raw string) Category {
	switch raw {
	case "intro":
		return CategoryIntro
	case "motivation":
		return CategoryMotivation
	case "challenge":
		return CategoryChallenge
	case "vision":
		return CategoryVision
	default:
		return CategoryGeneral
	}
}

func (c Category) String() string {
	switch c {
	case CategoryIntro:
		return "intro"
	case CategoryMotivation:
		return "motivation"
	case CategoryChallenge:
		return "challenge"
	case CategoryVision:
		return "vision"
	default:
		return "general"
	}
}

// Weight returns the complexity weight λ for the category: warm-up
// categories count once, the demanding ones three times, everything else
// twice.
func (c Category) Weight() int {
	switch c {
	case CategoryIntro, CategoryMotivation:
		return 1
	case CategoryChallenge, CategoryVision:
		return 3
	default:
		return 2
	}
}
