package progress

import (
	"fmt"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// Apply returns the ledger after ev. The input is never modified; on error it is
// returned as-is. Badges are re-derived after every successful event.
func Apply(cat *catalog.Catalog, l domain.Ledger, ev domain.Event) (domain.Ledger, error) {
	l.Normalize()
	next, err := apply(cat, l, ev)
	if err != nil {
		return l, err
	}
	next.EarnedBadgeIDs = DeriveBadges(cat, next)
	return next, nil
}

// ApplyAll applies events in order, all or nothing.
func ApplyAll(cat *catalog.Catalog, l domain.Ledger, events ...domain.Event) (domain.Ledger, error) {
	next := l
	for _, ev := range events {
		var err error
		next, err = Apply(cat, next, ev)
		if err != nil {
			return l, err
		}
	}
	return next, nil
}

func apply(cat *catalog.Catalog, l domain.Ledger, ev domain.Event) (domain.Ledger, error) {
	switch e := ev.(type) {
	case domain.WordCompleted:
		word, ok := cat.Word(e.WordID)
		if !ok {
			return l, fmt.Errorf("%w: %s", domain.ErrUnknownWord, e.WordID)
		}
		next := l.Clone()
		if next.CompletedWordIDs.Has(word.ID) {
			return next, nil
		}
		next.CompletedWordIDs.Add(word.ID)
		next.TotalPoints += word.Points
		return next, nil

	case domain.FavoriteToggled:
		if !cat.Has(e.WordID) {
			return l, fmt.Errorf("%w: %s", domain.ErrUnknownWord, e.WordID)
		}
		next := l.Clone()
		if next.FavoriteWordIDs.Has(e.WordID) {
			next.FavoriteWordIDs.Remove(e.WordID)
		} else {
			next.FavoriteWordIDs.Add(e.WordID)
		}
		return next, nil

	case domain.TierAcknowledged:
		return AcknowledgeTier(cat, l, e.TierID)

	case domain.QuizRecorded:
		next := l.Clone()
		if e.Result.SessionID == "" || next.HasQuiz(e.Result.SessionID) {
			return next, nil
		}
		next.QuizHistory = append(next.QuizHistory, e.Result)
		return next, nil

	case domain.DayClosed:
		next := l.Clone()
		if !next.LastActivity.IsZero() && !next.LastActivity.Before(e.Since) {
			next.CurrentStreak++
			if next.CurrentStreak > next.LongestStreak {
				next.LongestStreak = next.CurrentStreak
			}
		} else {
			next.CurrentStreak = 0
		}
		return next, nil
	}
	return l, fmt.Errorf("unsupported event %T", ev)
}

// Verify checks the ledger against the catalog: every referenced id exists,
// points match the completed words and only sensitive tiers are acknowledged.
func Verify(cat *catalog.Catalog, l domain.Ledger) error {
	sum := 0
	for id := range l.CompletedWordIDs {
		w, ok := cat.Word(id)
		if !ok {
			return fmt.Errorf("completed %w: %s", domain.ErrUnknownWord, id)
		}
		sum += w.Points
	}
	for id := range l.FavoriteWordIDs {
		if !cat.Has(id) {
			return fmt.Errorf("favorite %w: %s", domain.ErrUnknownWord, id)
		}
	}
	for id := range l.AcknowledgedTierIDs {
		tier, ok := cat.Tier(id)
		if !ok {
			return fmt.Errorf("acknowledged %w: %d", domain.ErrUnknownTier, id)
		}
		if !tier.RequiresCulturalAcknowledgment {
			return fmt.Errorf("acknowledged %w: %d", domain.ErrInvalidTier, id)
		}
	}
	if sum != l.TotalPoints {
		return fmt.Errorf("ledger %s: total points %d, completed words sum to %d", l.UserID, l.TotalPoints, sum)
	}
	return nil
}
