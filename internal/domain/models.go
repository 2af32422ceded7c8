package domain

import "strings"

type (
	WordID  string
	TierID  int
	BadgeID string
)

// Category is one of a fixed set of word groupings.
type Category string

const (
	CategoryBasic       Category = "basic"
	CategoryGreetings   Category = "greetings"
	CategoryCuteTease   Category = "cute_tease"
	CategoryCompliments Category = "compliments"
	CategoryDeepTalk    Category = "deep_talk"
)

// Categories lists every known category in display order.
var Categories = []Category{
	CategoryBasic,
	CategoryGreetings,
	CategoryCuteTease,
	CategoryCompliments,
	CategoryDeepTalk,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Title is the human-readable category name ("cute_tease" -> "Cute Tease").
func (c Category) Title() string {
	parts := strings.Split(string(c), "_")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// TipPolarity classifies a cultural tip by its DO / DON'T prefix.
type TipPolarity string

const (
	TipNeutral TipPolarity = ""
	TipDo      TipPolarity = "DO"
	TipDont    TipPolarity = "DON'T"
)

// Word is a catalog phrase.
type Word struct {
	ID             WordID   `json:"id" yaml:"id"`
	Somali         string   `json:"somali" yaml:"somali"`
	English        string   `json:"english" yaml:"english"`
	Phonetic       string   `json:"phonetic" yaml:"phonetic"`
	Category       Category `json:"category" yaml:"category"`
	Tier           TierID   `json:"tier" yaml:"tier"`
	ExampleSomali  string   `json:"exampleSomali" yaml:"example_somali"`
	ExampleEnglish string   `json:"exampleEnglish" yaml:"example_english"`
	CulturalTip    string   `json:"culturalTip" yaml:"cultural_tip"`
	Difficulty     string   `json:"difficulty" yaml:"difficulty"`
	Points         int      `json:"points" yaml:"points"`
	Tags           []string `json:"tags" yaml:"tags"`
}

// TipPolarity parses the optional "DO:" or "DON'T:" marker of the cultural tip.
func (w Word) TipPolarity() TipPolarity {
	tip := strings.ToUpper(strings.TrimSpace(w.CulturalTip))
	switch {
	case strings.HasPrefix(tip, "DON'T:"), strings.HasPrefix(tip, "DONT:"):
		return TipDont
	case strings.HasPrefix(tip, "DO:"):
		return TipDo
	}
	return TipNeutral
}

// TipText returns the cultural tip without its polarity marker.
func (w Word) TipText() string {
	tip := strings.TrimSpace(w.CulturalTip)
	if i := strings.Index(tip, ":"); i >= 0 && w.TipPolarity() != TipNeutral {
		return strings.TrimSpace(tip[i+1:])
	}
	return tip
}

func (w Word) HasTag(tag string) bool {
	for _, t := range w.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// RequirementKind names a tier unlock predicate.
type RequirementKind string

const (
	RequireMinPoints              RequirementKind = "min_points"
	RequireTierCompleted          RequirementKind = "tier_completed"
	RequireCulturalAcknowledgment RequirementKind = "cultural_acknowledgment"
)

// Requirement is one unlock predicate of a tier. MinPoints is set for
// min_points, Tier for tier_completed.
type Requirement struct {
	Kind      RequirementKind `json:"kind" yaml:"kind"`
	MinPoints int             `json:"minPoints,omitempty" yaml:"min_points,omitempty"`
	Tier      TierID          `json:"tier,omitempty" yaml:"tier,omitempty"`
}

func MinPoints(n int) Requirement {
	return Requirement{Kind: RequireMinPoints, MinPoints: n}
}

func TierCompleted(id TierID) Requirement {
	return Requirement{Kind: RequireTierCompleted, Tier: id}
}

func CulturalAcknowledgment() Requirement {
	return Requirement{Kind: RequireCulturalAcknowledgment}
}

// Guidelines is the cultural respect message shown before acknowledging a sensitive tier.
type Guidelines struct {
	Title   string `json:"title" yaml:"title"`
	Content string `json:"content" yaml:"content"`
	Warning string `json:"warning" yaml:"warning"`
}

// Tier is an ordered content bucket gated by requirements.
type Tier struct {
	ID                             TierID        `json:"id" yaml:"id"`
	Name                           string        `json:"name" yaml:"name"`
	Description                    string        `json:"description" yaml:"description"`
	RequiresCulturalAcknowledgment bool          `json:"requiresCulturalAcknowledgment" yaml:"requires_cultural_acknowledgment"`
	Requirements                   []Requirement `json:"requirements" yaml:"requirements"`
	CulturalLevel                  string        `json:"culturalLevel" yaml:"cultural_level"`
	ColorTheme                     string        `json:"colorTheme" yaml:"color_theme"`
	Guidelines                     *Guidelines   `json:"guidelines,omitempty" yaml:"guidelines,omitempty"`
}

// BadgeRuleKind names a badge predicate over the ledger.
type BadgeRuleKind string

const (
	RuleAlways            BadgeRuleKind = "always"
	RuleMinPoints         BadgeRuleKind = "min_points"
	RuleMinCompleted      BadgeRuleKind = "min_completed"
	RuleMinFavorites      BadgeRuleKind = "min_favorites"
	RuleMinLongestStreak  BadgeRuleKind = "min_longest_streak"
	RuleMinQuizzes        BadgeRuleKind = "min_quizzes"
	RuleTierMastered      BadgeRuleKind = "tier_mastered"
	RuleCategoryMastered  BadgeRuleKind = "category_mastered"
	RuleTierUnlockedAbove BadgeRuleKind = "tier_unlocked_above"
)

// BadgeRule is a data-driven badge predicate. N is the threshold for the min_*
// kinds, Tier and Category select the mastered or unlocked content.
type BadgeRule struct {
	Kind     BadgeRuleKind `json:"kind" yaml:"kind"`
	N        int           `json:"n,omitempty" yaml:"n,omitempty"`
	Tier     TierID        `json:"tier,omitempty" yaml:"tier,omitempty"`
	Category Category      `json:"category,omitempty" yaml:"category,omitempty"`
}

// Badge is an achievement derived from ledger state.
type Badge struct {
	ID          BadgeID   `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Icon        string    `json:"icon" yaml:"icon"`
	Description string    `json:"description" yaml:"description"`
	Rule        BadgeRule `json:"rule" yaml:"rule"`
}
