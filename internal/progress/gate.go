// Package progress owns every rule that reads or writes a user's ledger: the
// tier unlock gate, ledger event application and badge derivation. All
// functions are pure; storage and locking live in the app layer.
package progress

import (
	"fmt"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// Decision is the outcome of evaluating a tier's requirements.
type Decision struct {
	TierID   domain.TierID        `json:"tierId"`
	Unlocked bool                 `json:"unlocked"`
	Missing  []domain.Requirement `json:"missing"`
}

// Evaluate checks every requirement of the tier in declared order and reports
// all unmet ones. It never mutates the ledger; acknowledgment is a separate
// event.
func Evaluate(cat *catalog.Catalog, l domain.Ledger, id domain.TierID) (Decision, error) {
	tier, ok := cat.Tier(id)
	if !ok {
		return Decision{}, fmt.Errorf("%w: %d", domain.ErrUnknownTier, id)
	}
	d := Decision{TierID: id, Missing: []domain.Requirement{}}
	for _, req := range tier.Requirements {
		if !satisfied(cat, l, tier, req) {
			d.Missing = append(d.Missing, req)
		}
	}
	d.Unlocked = len(d.Missing) == 0
	return d, nil
}

// EvaluateAll evaluates every tier in ascending order.
func EvaluateAll(cat *catalog.Catalog, l domain.Ledger) []Decision {
	tiers := cat.Tiers()
	out := make([]Decision, 0, len(tiers))
	for _, tier := range tiers {
		d, _ := Evaluate(cat, l, tier.ID)
		out = append(out, d)
	}
	return out
}

func satisfied(cat *catalog.Catalog, l domain.Ledger, tier domain.Tier, req domain.Requirement) bool {
	switch req.Kind {
	case domain.RequireMinPoints:
		return l.TotalPoints >= req.MinPoints
	case domain.RequireTierCompleted:
		return TierCompleted(cat, l, req.Tier)
	case domain.RequireCulturalAcknowledgment:
		// Always the tier under evaluation, never a prior one.
		return l.AcknowledgedTierIDs.Has(tier.ID)
	}
	return false
}

// TierCompleted reports whether every word of the tier is completed.
func TierCompleted(cat *catalog.Catalog, l domain.Ledger, id domain.TierID) bool {
	for _, wordID := range cat.TierWordIDs(id) {
		if !l.CompletedWordIDs.Has(wordID) {
			return false
		}
	}
	return true
}

// AcknowledgeTier records the cultural acknowledgment for a sensitive tier.
// Acknowledging twice is a no-op.
func AcknowledgeTier(cat *catalog.Catalog, l domain.Ledger, id domain.TierID) (domain.Ledger, error) {
	tier, ok := cat.Tier(id)
	if !ok {
		return l, fmt.Errorf("%w: %d", domain.ErrUnknownTier, id)
	}
	if !tier.RequiresCulturalAcknowledgment {
		return l, fmt.Errorf("%w: %d", domain.ErrInvalidTier, id)
	}
	if l.AcknowledgedTierIDs.Has(id) {
		return l, nil
	}
	next := l.Clone()
	next.AcknowledgedTierIDs.Add(id)
	return next, nil
}
