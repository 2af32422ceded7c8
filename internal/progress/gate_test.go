package progress

import (
	"errors"
	"reflect"
	"testing"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

func TestFirstTierUnlockedForFreshLedger(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	d, err := Evaluate(cat, domain.NewLedger("u1"), 1)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !d.Unlocked || len(d.Missing) != 0 {
		t.Fatalf("expected tier 1 unlocked, got %+v", d)
	}
}

func TestEvaluateReportsEveryMissingRequirement(t *testing.T) {
	cat := testCatalog(t)
	d, err := Evaluate(cat, domain.NewLedger("u1"), 2)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	want := []domain.Requirement{domain.MinPoints(20), domain.TierCompleted(1)}
	if d.Unlocked || !reflect.DeepEqual(d.Missing, want) {
		t.Fatalf("expected both requirements missing, got %+v", d)
	}

	l := mustApply(t, cat, domain.NewLedger("u1"), domain.WordCompleted{WordID: "a"})
	d, _ = Evaluate(cat, l, 2)
	if len(d.Missing) != 2 {
		t.Fatalf("10 points and half of tier 1 should still miss both, got %+v", d)
	}

	l = mustApply(t, cat, l, domain.WordCompleted{WordID: "b"})
	d, _ = Evaluate(cat, l, 2)
	if !d.Unlocked {
		t.Fatalf("expected tier 2 unlocked, got %+v", d)
	}
}

func TestEvaluateIsPure(t *testing.T) {
	cat := testCatalog(t)
	l := mustApply(t, cat, domain.NewLedger("u1"), domain.WordCompleted{WordID: "a"})
	before := l.Clone()

	first, _ := Evaluate(cat, l, 3)
	second, _ := Evaluate(cat, l, 3)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("evaluate not deterministic: %+v vs %+v", first, second)
	}
	if !reflect.DeepEqual(before, l) {
		t.Fatalf("evaluate mutated ledger")
	}
}

func TestCulturalAcknowledgmentScenario(t *testing.T) {
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	l := domain.NewLedger("u1")

	d, _ := Evaluate(cat, l, 4)
	if d.Unlocked || !containsKind(d.Missing, domain.RequireCulturalAcknowledgment) {
		t.Fatalf("expected acknowledgment missing, got %+v", d)
	}

	// Meet every other requirement of tier 4 first.
	var events []domain.Event
	for _, tier := range []domain.TierID{1, 2, 3} {
		for _, id := range cat.TierWordIDs(tier) {
			events = append(events, domain.WordCompleted{WordID: id})
		}
	}
	l = mustApply(t, cat, l, events...)
	d, _ = Evaluate(cat, l, 4)
	if d.Unlocked || len(d.Missing) != 1 {
		t.Fatalf("expected only acknowledgment missing, got %+v", d)
	}

	l, err = AcknowledgeTier(cat, l, 4)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	d, _ = Evaluate(cat, l, 4)
	if !d.Unlocked {
		t.Fatalf("expected tier 4 unlocked after acknowledgment, got %+v", d)
	}
}

func TestAcknowledgeTier(t *testing.T) {
	cat := testCatalog(t)
	l := domain.NewLedger("u1")

	if _, err := AcknowledgeTier(cat, l, 1); !errors.Is(err, domain.ErrInvalidTier) {
		t.Fatalf("expected ErrInvalidTier, got %v", err)
	}
	if _, err := AcknowledgeTier(cat, l, 42); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}

	acked, err := AcknowledgeTier(cat, l, 3)
	if err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	if l.AcknowledgedTierIDs.Has(3) {
		t.Fatalf("acknowledge mutated its input")
	}
	again, err := AcknowledgeTier(cat, acked, 3)
	if err != nil || !again.AcknowledgedTierIDs.Equal(acked.AcknowledgedTierIDs) {
		t.Fatalf("second acknowledgment should be a no-op, got %v %+v", err, again.AcknowledgedTierIDs)
	}

	// Acknowledgment alone does not waive the point requirement.
	d, _ := Evaluate(cat, acked, 3)
	want := []domain.Requirement{domain.MinPoints(30)}
	if d.Unlocked || !reflect.DeepEqual(d.Missing, want) {
		t.Fatalf("expected points still missing, got %+v", d)
	}
}

func TestEvaluateUnknownTier(t *testing.T) {
	if _, err := Evaluate(testCatalog(t), domain.NewLedger("u1"), 9); !errors.Is(err, domain.ErrUnknownTier) {
		t.Fatalf("expected ErrUnknownTier, got %v", err)
	}
}

func TestEvaluateAll(t *testing.T) {
	decisions := EvaluateAll(testCatalog(t), domain.NewLedger("u1"))
	if len(decisions) != 3 {
		t.Fatalf("expected 3 decisions, got %d", len(decisions))
	}
	if !decisions[0].Unlocked || decisions[1].Unlocked || decisions[2].Unlocked {
		t.Fatalf("unexpected decisions %+v", decisions)
	}
}

func containsKind(reqs []domain.Requirement, kind domain.RequirementKind) bool {
	for _, r := range reqs {
		if r.Kind == kind {
			return true
		}
	}
	return false
}
