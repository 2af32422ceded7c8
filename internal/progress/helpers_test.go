package progress

import (
	"testing"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// testCatalog has two plain tiers and one sensitive tier:
//
//	tier 1: a(10) b(10)          no requirements
//	tier 2: c(15)                20 points, tier 1 completed
//	tier 3: d(20)                30 points, cultural acknowledgment
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New(
		[]domain.Word{
			{ID: "a", English: "A", Category: domain.CategoryBasic, Tier: 1, Points: 10},
			{ID: "b", English: "B", Category: domain.CategoryCompliments, Tier: 1, Points: 10},
			{ID: "c", English: "C", Category: domain.CategoryCompliments, Tier: 2, Points: 15},
			{ID: "d", English: "D", Category: domain.CategoryDeepTalk, Tier: 3, Points: 20},
		},
		[]domain.Tier{
			{ID: 1},
			{ID: 2, Requirements: []domain.Requirement{domain.MinPoints(20), domain.TierCompleted(1)}},
			{ID: 3, RequiresCulturalAcknowledgment: true, Requirements: []domain.Requirement{domain.MinPoints(30), domain.CulturalAcknowledgment()}},
		},
		[]domain.Badge{
			{ID: "newcomer", Rule: domain.BadgeRule{Kind: domain.RuleAlways}},
			{ID: "first_favorite", Rule: domain.BadgeRule{Kind: domain.RuleMinFavorites, N: 1}},
			{ID: "first_quiz", Rule: domain.BadgeRule{Kind: domain.RuleMinQuizzes, N: 1}},
			{ID: "level_2", Rule: domain.BadgeRule{Kind: domain.RuleMinPoints, N: 100}},
			{ID: "tier_one", Rule: domain.BadgeRule{Kind: domain.RuleTierMastered, Tier: 1}},
			{ID: "climber", Rule: domain.BadgeRule{Kind: domain.RuleTierUnlockedAbove, Tier: 1}},
			{ID: "charmer", Rule: domain.BadgeRule{Kind: domain.RuleCategoryMastered, Category: domain.CategoryCompliments}},
			{ID: "week", Rule: domain.BadgeRule{Kind: domain.RuleMinLongestStreak, N: 2}},
			{ID: "two_words", Rule: domain.BadgeRule{Kind: domain.RuleMinCompleted, N: 2}},
		},
	)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	return cat
}

func mustApply(t *testing.T, cat *catalog.Catalog, l domain.Ledger, events ...domain.Event) domain.Ledger {
	t.Helper()
	next, err := ApplyAll(cat, l, events...)
	if err != nil {
		t.Fatalf("apply %v: %v", events, err)
	}
	return next
}
