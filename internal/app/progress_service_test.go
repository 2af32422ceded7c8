package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vocab-tiers-service/internal/app"
	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
	"vocab-tiers-service/internal/infra/memory"
)

var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestCompleteWordStampsActivity(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)

	l, err := svc.CompleteWord(ctx, "u1", "word_1")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if l.TotalPoints != 10 || !l.LastActivity.Equal(testNow) || !l.UpdatedAt.Equal(testNow) {
		t.Fatalf("unexpected ledger %+v", l)
	}

	stored, _ := svc.Progress(ctx, "u1")
	if stored.TotalPoints != 10 || !stored.EarnedBadgeIDs.Has("newcomer") {
		t.Fatalf("ledger not stored: %+v", stored)
	}
}

func TestApplyUnknownWordKeepsLedger(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)
	_, _ = svc.CompleteWord(ctx, "u1", "word_1")

	if _, err := svc.Apply(ctx, "u1", domain.WordCompleted{WordID: "word_2"}, domain.WordCompleted{WordID: "nope"}); !errors.Is(err, domain.ErrUnknownWord) {
		t.Fatalf("expected ErrUnknownWord, got %v", err)
	}
	l, _ := svc.Progress(ctx, "u1")
	if l.TotalPoints != 10 || l.HasCompleted("word_2") {
		t.Fatalf("failed batch leaked: %+v", l)
	}
}

func TestQuizHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)
	for _, id := range []string{"q1", "q2", "q3"} {
		if _, err := svc.Apply(ctx, "u1", domain.QuizRecorded{Result: domain.QuizResult{SessionID: id, Total: 5}}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}

	all, err := svc.QuizHistory(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 3 || all[0].SessionID != "q3" || all[2].SessionID != "q1" {
		t.Fatalf("unexpected history %+v", all)
	}
	two, _ := svc.QuizHistory(ctx, "u1", 2)
	if len(two) != 2 || two[1].SessionID != "q2" {
		t.Fatalf("unexpected limited history %+v", two)
	}
	none, _ := svc.QuizHistory(ctx, "nobody", 0)
	if len(none) != 0 {
		t.Fatalf("expected empty history, got %+v", none)
	}
}

func TestSelectTierLocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)

	words, err := svc.SelectTier(ctx, "u1", 1)
	if err != nil || len(words) != 8 {
		t.Fatalf("expected tier 1 words, got %d %v", len(words), err)
	}

	_, err = svc.SelectTier(ctx, "u1", 2)
	if !errors.Is(err, domain.ErrTierLocked) {
		t.Fatalf("expected ErrTierLocked, got %v", err)
	}
	var locked *app.LockedError
	if !errors.As(err, &locked) || locked.Decision.TierID != 2 || len(locked.Decision.Missing) != 2 {
		t.Fatalf("expected decision with two missing requirements, got %+v", locked)
	}

	if _, err := svc.SelectTier(ctx, "u1", 99); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestTierFourNeedsAcknowledgment(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)
	cat, _ := svc.Catalog(ctx)

	var events []domain.Event
	for _, tier := range []domain.TierID{1, 2, 3} {
		for _, id := range cat.TierWordIDs(tier) {
			events = append(events, domain.WordCompleted{WordID: id})
		}
	}
	if _, err := svc.Apply(ctx, "u1", events...); err != nil {
		t.Fatalf("apply: %v", err)
	}

	d, err := svc.CheckTier(ctx, "u1", 4)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.Unlocked || len(d.Missing) != 1 || d.Missing[0].Kind != domain.RequireCulturalAcknowledgment {
		t.Fatalf("expected only acknowledgment missing, got %+v", d)
	}

	if _, err := svc.AcknowledgeTier(ctx, "u1", 1); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if _, err := svc.AcknowledgeTier(ctx, "u1", 4); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if _, err := svc.SelectTier(ctx, "u1", 4); err != nil {
		t.Fatalf("expected tier 4 open, got %v", err)
	}

	tiers, _ := svc.Tiers(ctx, "u1")
	if len(tiers) != 5 || !tiers[3].Unlocked || !tiers[3].Acknowledged || tiers[4].Unlocked {
		t.Fatalf("unexpected tier listing %+v", tiers)
	}
}

func TestFavoritesAndBadges(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)

	_, _ = svc.ToggleFavorite(ctx, "u1", "word_3")
	_, _ = svc.ToggleFavorite(ctx, "u1", "word_1")
	favs, err := svc.Favorites(ctx, "u1")
	if err != nil {
		t.Fatalf("favorites: %v", err)
	}
	if len(favs) != 2 || favs[0].ID != "word_1" || favs[1].ID != "word_3" {
		t.Fatalf("expected catalog order, got %+v", favs)
	}

	badges, _ := svc.Badges(ctx, "u1")
	earned := 0
	for _, b := range badges {
		if b.Earned {
			earned++
		}
	}
	if earned != 2 {
		t.Fatalf("expected newcomer and first_favorite, got %d earned", earned)
	}
}

func TestCloseDay(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)
	_, _ = svc.CompleteWord(ctx, "active", "word_1")
	_, _ = svc.ToggleFavorite(ctx, "idle", "word_1")
	_, _ = svc.Apply(ctx, "idle", domain.DayClosed{Since: testNow.Add(-48 * time.Hour)})

	n, err := svc.CloseDay(ctx, testNow.Add(-time.Hour))
	if err != nil || n != 2 {
		t.Fatalf("expected 2 ledgers closed, got %d %v", n, err)
	}
	active, _ := svc.Progress(ctx, "active")
	if active.CurrentStreak != 1 {
		t.Fatalf("expected streak 1, got %d", active.CurrentStreak)
	}

	n, _ = svc.CloseDay(ctx, testNow.Add(time.Hour))
	active, _ = svc.Progress(ctx, "active")
	idle, _ := svc.Progress(ctx, "idle")
	if n != 2 || active.CurrentStreak != 0 || active.LongestStreak != 1 || idle.LongestStreak != 2 {
		t.Fatalf("unexpected streaks active=%d/%d idle=%d", active.CurrentStreak, active.LongestStreak, idle.LongestStreak)
	}
	if !active.LastActivity.Equal(testNow) {
		t.Fatalf("streak tick must not stamp activity")
	}
}

func TestConcurrentEventsAreSerialized(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)
	cat, _ := svc.Catalog(ctx)
	words := cat.WordsInTier(1)

	var wg sync.WaitGroup
	for _, w := range words {
		wg.Add(1)
		go func(id domain.WordID) {
			defer wg.Done()
			if _, err := svc.CompleteWord(ctx, "u1", id); err != nil {
				t.Errorf("complete %s: %v", id, err)
			}
		}(w.ID)
	}
	wg.Wait()

	l, _ := svc.Progress(ctx, "u1")
	want := 0
	for _, w := range words {
		want += w.Points
	}
	if l.CompletedWordIDs.Len() != len(words) || l.TotalPoints != want {
		t.Fatalf("lost updates: %d words %d points", l.CompletedWordIDs.Len(), l.TotalPoints)
	}
}

func TestWordsAndCategories(t *testing.T) {
	ctx := context.Background()
	svc, _ := newProgressService(t)

	words, err := svc.Words(ctx, catalog.Filter{Tier: 1, Category: domain.CategoryGreetings})
	if err != nil || len(words) == 0 {
		t.Fatalf("expected tier 1 greetings, got %d %v", len(words), err)
	}
	if _, err := svc.Word(ctx, "missing"); !errors.Is(err, domain.ErrUnknownWord) {
		t.Fatalf("expected ErrUnknownWord, got %v", err)
	}
	cats, _ := svc.Categories(ctx)
	if len(cats) == 0 {
		t.Fatalf("expected categories")
	}
}

func newProgressService(t *testing.T) (*app.ProgressService, *memory.LedgerStore) {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	ledgers := memory.NewLedgerStore()
	catalogs := memory.NewCatalogRepository(memory.NewStaticCatalogLoader(cat), 0)
	return app.NewProgressServiceWithClock(catalogs, ledgers, nil, func() time.Time { return testNow }), ledgers
}
