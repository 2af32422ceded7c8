package progress

import (
	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// DeriveBadges recomputes the earned badge set from scratch. Every rule is
// monotonic in the ledger fields it reads except min_favorites: favorites can
// be toggled off, which drops the badge again.
func DeriveBadges(cat *catalog.Catalog, l domain.Ledger) domain.Set[domain.BadgeID] {
	earned := domain.NewSet[domain.BadgeID]()
	for _, b := range cat.Badges() {
		if holds(cat, l, b.Rule) {
			earned.Add(b.ID)
		}
	}
	return earned
}

func holds(cat *catalog.Catalog, l domain.Ledger, rule domain.BadgeRule) bool {
	switch rule.Kind {
	case domain.RuleAlways:
		return true
	case domain.RuleMinPoints:
		return l.TotalPoints >= rule.N
	case domain.RuleMinCompleted:
		return l.CompletedWordIDs.Len() >= rule.N
	case domain.RuleMinFavorites:
		return l.FavoriteWordIDs.Len() >= rule.N
	case domain.RuleMinLongestStreak:
		return l.LongestStreak >= rule.N
	case domain.RuleMinQuizzes:
		return len(l.QuizHistory) >= rule.N
	case domain.RuleTierMastered:
		return len(cat.TierWordIDs(rule.Tier)) > 0 && TierCompleted(cat, l, rule.Tier)
	case domain.RuleCategoryMastered:
		words := cat.Words(catalog.Filter{Category: rule.Category})
		if len(words) == 0 {
			return false
		}
		for _, w := range words {
			if !l.CompletedWordIDs.Has(w.ID) {
				return false
			}
		}
		return true
	case domain.RuleTierUnlockedAbove:
		for _, tier := range cat.Tiers() {
			if tier.ID <= rule.Tier {
				continue
			}
			if d, err := Evaluate(cat, l, tier.ID); err == nil && d.Unlocked {
				return true
			}
		}
	}
	return false
}

// BadgeStatus pairs a badge definition with whether the ledger has earned it.
type BadgeStatus struct {
	domain.Badge
	Earned bool `json:"earned"`
}

// Badges lists every catalog badge with its earned flag, earned first.
func Badges(cat *catalog.Catalog, l domain.Ledger) []BadgeStatus {
	all := cat.Badges()
	out := make([]BadgeStatus, 0, len(all))
	for _, b := range all {
		if l.EarnedBadgeIDs.Has(b.ID) {
			out = append(out, BadgeStatus{Badge: b, Earned: true})
		}
	}
	for _, b := range all {
		if !l.EarnedBadgeIDs.Has(b.ID) {
			out = append(out, BadgeStatus{Badge: b})
		}
	}
	return out
}
