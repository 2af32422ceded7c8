package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
	"vocab-tiers-service/internal/progress"
)

// LockedError carries the gate decision that refused a tier.
type LockedError struct {
	Decision progress.Decision
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("%s: tier %d has %d unmet requirements", domain.ErrTierLocked, e.Decision.TierID, len(e.Decision.Missing))
}

func (e *LockedError) Unwrap() error {
	return domain.ErrTierLocked
}

// TierView is a tier as listed for one user.
type TierView struct {
	domain.Tier
	Unlocked     bool                 `json:"unlocked"`
	Missing      []domain.Requirement `json:"missing"`
	Acknowledged bool                 `json:"acknowledged"`
	Completed    bool                 `json:"completed"`
	WordCount    int                  `json:"wordCount"`
}

// ProgressService contains the ledger and tier use cases.
type ProgressService struct {
	catalog CatalogRepository
	ledgers LedgerRepository
	logger  *slog.Logger
	now     func() time.Time
}

func NewProgressService(catalogs CatalogRepository, ledgers LedgerRepository, logger *slog.Logger) *ProgressService {
	return NewProgressServiceWithClock(catalogs, ledgers, logger, time.Now)
}

// NewProgressServiceWithClock is test-only for deterministic timestamps.
func NewProgressServiceWithClock(catalogs CatalogRepository, ledgers LedgerRepository, logger *slog.Logger, now func() time.Time) *ProgressService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProgressService{catalog: catalogs, ledgers: ledgers, logger: logger, now: now}
}

// Catalog exposes the current reference data.
func (s *ProgressService) Catalog(ctx context.Context) (*catalog.Catalog, error) {
	return s.catalog.Catalog(ctx)
}

// Progress returns the user's ledger, a fresh one for unknown users.
func (s *ProgressService) Progress(ctx context.Context, userID string) (domain.Ledger, error) {
	return s.ledgers.Load(ctx, userID)
}

// Apply applies events to the user's ledger atomically. User-driven events
// stamp LastActivity; the streak tick does not.
func (s *ProgressService) Apply(ctx context.Context, userID string, events ...domain.Event) (domain.Ledger, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return domain.Ledger{}, err
	}
	now := s.now()
	return s.ledgers.Update(ctx, userID, func(l domain.Ledger) (domain.Ledger, error) {
		next, err := progress.ApplyAll(cat, l, events...)
		if err != nil {
			return l, err
		}
		for _, ev := range events {
			if _, tick := ev.(domain.DayClosed); !tick {
				next.LastActivity = now
				break
			}
		}
		next.UpdatedAt = now
		return next, nil
	})
}

func (s *ProgressService) CompleteWord(ctx context.Context, userID string, id domain.WordID) (domain.Ledger, error) {
	return s.Apply(ctx, userID, domain.WordCompleted{WordID: id})
}

func (s *ProgressService) ToggleFavorite(ctx context.Context, userID string, id domain.WordID) (domain.Ledger, error) {
	return s.Apply(ctx, userID, domain.FavoriteToggled{WordID: id})
}

func (s *ProgressService) AcknowledgeTier(ctx context.Context, userID string, id domain.TierID) (domain.Ledger, error) {
	return s.Apply(ctx, userID, domain.TierAcknowledged{TierID: id})
}

// CheckTier evaluates the gate without side effects.
func (s *ProgressService) CheckTier(ctx context.Context, userID string, id domain.TierID) (progress.Decision, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return progress.Decision{}, err
	}
	return progress.Evaluate(cat, l, id)
}

// Tiers lists every tier with the user's unlock state.
func (s *ProgressService) Tiers(ctx context.Context, userID string) ([]TierView, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	decisions := progress.EvaluateAll(cat, l)
	out := make([]TierView, 0, len(decisions))
	for i, tier := range cat.Tiers() {
		out = append(out, TierView{
			Tier:         tier,
			Unlocked:     decisions[i].Unlocked,
			Missing:      decisions[i].Missing,
			Acknowledged: l.AcknowledgedTierIDs.Has(tier.ID),
			Completed:    progress.TierCompleted(cat, l, tier.ID),
			WordCount:    len(cat.TierWordIDs(tier.ID)),
		})
	}
	return out, nil
}

// SelectTier returns the words of an unlocked tier. A locked tier yields a
// *LockedError wrapping domain.ErrTierLocked.
func (s *ProgressService) SelectTier(ctx context.Context, userID string, id domain.TierID) ([]domain.Word, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	d, err := progress.Evaluate(cat, l, id)
	if err != nil {
		return nil, err
	}
	if !d.Unlocked {
		return nil, &LockedError{Decision: d}
	}
	return cat.WordsInTier(id), nil
}

// Favorites lists the user's favorite words in catalog order.
func (s *ProgressService) Favorites(ctx context.Context, userID string) ([]domain.Word, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return cat.Words(catalog.Filter{IDs: l.FavoriteWordIDs}), nil
}

func (s *ProgressService) Badges(ctx context.Context, userID string) ([]progress.BadgeStatus, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return progress.Badges(cat, l), nil
}

func (s *ProgressService) Stats(ctx context.Context, userID string) (progress.Stats, error) {
	cat, l, err := s.load(ctx, userID)
	if err != nil {
		return progress.Stats{}, err
	}
	return progress.Summarize(cat, l), nil
}

// DefaultHistoryLimit caps QuizHistory when the caller gives no limit.
const DefaultHistoryLimit = 20

// QuizHistory returns up to limit recorded quizzes, most recent first.
func (s *ProgressService) QuizHistory(ctx context.Context, userID string, limit int) ([]domain.QuizResult, error) {
	l, err := s.ledgers.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	out := make([]domain.QuizResult, 0, min(limit, len(l.QuizHistory)))
	for i := len(l.QuizHistory) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.QuizHistory[i])
	}
	return out, nil
}

func (s *ProgressService) Words(ctx context.Context, f catalog.Filter) ([]domain.Word, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Words(f), nil
}

func (s *ProgressService) Word(ctx context.Context, id domain.WordID) (domain.Word, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return domain.Word{}, err
	}
	w, ok := cat.Word(id)
	if !ok {
		return domain.Word{}, fmt.Errorf("%w: %s", domain.ErrUnknownWord, id)
	}
	return w, nil
}

func (s *ProgressService) Categories(ctx context.Context) ([]catalog.CategorySummary, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return cat.Categories(), nil
}

// CloseDay applies the streak tick to every known user. A failing user is
// logged and skipped; the joined errors are returned with the count of
// ledgers updated.
func (s *ProgressService) CloseDay(ctx context.Context, since time.Time) (int, error) {
	users, err := s.ledgers.UserIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}
	var (
		errs    []error
		updated int
	)
	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := s.Apply(ctx, userID, domain.DayClosed{Since: since}); err != nil {
			s.logger.Error("close day failed", "user", userID, "err", err)
			errs = append(errs, fmt.Errorf("user %s: %w", userID, err))
			continue
		}
		updated++
	}
	return updated, errors.Join(errs...)
}

func (s *ProgressService) load(ctx context.Context, userID string) (*catalog.Catalog, domain.Ledger, error) {
	cat, err := s.catalog.Catalog(ctx)
	if err != nil {
		return nil, domain.Ledger{}, err
	}
	l, err := s.ledgers.Load(ctx, userID)
	if err != nil {
		return nil, domain.Ledger{}, err
	}
	return cat, l, nil
}
