package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
	"vocab-tiers-service/internal/progress"
	"vocab-tiers-service/internal/quiz"
)

// Mode selects the word pool a quiz draws from.
type Mode string

const (
	ModeUnlocked  Mode = "unlocked"
	ModeTier      Mode = "tier"
	ModeFavorites Mode = "favorites"
	ModeWords     Mode = "words"
)

// StartRequest describes a quiz to build. Count 0 uses the service default,
// a negative Count asks for the whole pool.
type StartRequest struct {
	Mode    Mode            `json:"mode"`
	TierID  domain.TierID   `json:"tierId"`
	WordIDs []domain.WordID `json:"wordIds"`
	Count   int             `json:"count"`
}

// Finished is the outcome of Finish.
type Finished struct {
	Report quiz.Report   `json:"report"`
	Ledger domain.Ledger `json:"ledger"`
}

// QuizService contains the quiz session use cases.
type QuizService struct {
	progress     *ProgressService
	sessions     SessionRepository
	defaultCount int
	newRand      func() quiz.Rand
	logger       *slog.Logger
}

func NewQuizService(progressSvc *ProgressService, sessions SessionRepository, defaultCount int, logger *slog.Logger) *QuizService {
	return NewQuizServiceWithRand(progressSvc, sessions, defaultCount, logger, func() quiz.Rand {
		return quiz.NewRand(time.Now().UnixNano())
	})
}

// NewQuizServiceWithRand is test-only for deterministic sessions.
func NewQuizServiceWithRand(progressSvc *ProgressService, sessions SessionRepository, defaultCount int, logger *slog.Logger, newRand func() quiz.Rand) *QuizService {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuizService{
		progress:     progressSvc,
		sessions:     sessions,
		defaultCount: defaultCount,
		newRand:      newRand,
		logger:       logger,
	}
}

// Start builds a session for the user. Tier mode goes through the unlock gate.
func (s *QuizService) Start(ctx context.Context, userID string, req StartRequest) (quiz.Snapshot, error) {
	cat, l, err := s.progress.load(ctx, userID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	pool, err := s.pool(cat, l, req)
	if err != nil {
		return quiz.Snapshot{}, err
	}

	count := req.Count
	if count == 0 {
		count = s.defaultCount
	}
	session, err := quiz.New(uuid.NewString(), pool, count, s.newRand())
	if err != nil {
		return quiz.Snapshot{}, err
	}
	live := NewLiveSession(userID, session)
	if err := s.sessions.Save(ctx, live); err != nil {
		return quiz.Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	s.logger.Info("quiz started", "session", session.ID(), "user", userID, "mode", req.Mode, "questions", session.Len())
	return live.Snapshot(), nil
}

func (s *QuizService) pool(cat *catalog.Catalog, l domain.Ledger, req StartRequest) ([]domain.Word, error) {
	switch req.Mode {
	case ModeTier:
		d, err := progress.Evaluate(cat, l, req.TierID)
		if err != nil {
			return nil, err
		}
		if !d.Unlocked {
			return nil, &LockedError{Decision: d}
		}
		return cat.WordsInTier(req.TierID), nil
	case ModeFavorites:
		return cat.Words(catalog.Filter{IDs: l.FavoriteWordIDs}), nil
	case ModeWords:
		ids := domain.NewSet(req.WordIDs...)
		for id := range ids {
			if !cat.Has(id) {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnknownWord, id)
			}
		}
		return cat.Words(catalog.Filter{IDs: ids}), nil
	case ModeUnlocked, "":
		var pool []domain.Word
		for _, d := range progress.EvaluateAll(cat, l) {
			if d.Unlocked {
				pool = append(pool, cat.WordsInTier(d.TierID)...)
			}
		}
		return pool, nil
	}
	return nil, fmt.Errorf("unknown quiz mode %q", req.Mode)
}

// Current returns the session view.
func (s *QuizService) Current(ctx context.Context, userID, sessionID string) (quiz.Snapshot, error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return live.Snapshot(), nil
}

// Answer records an answer for the current question.
func (s *QuizService) Answer(ctx context.Context, userID, sessionID, selected string) (quiz.Answer, error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return quiz.Answer{}, err
	}
	return live.answer(selected)
}

// Advance moves to the next question.
func (s *QuizService) Advance(ctx context.Context, userID, sessionID string) (quiz.Snapshot, error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	return live.advance()
}

// Finish reports a completed session and applies its events plus the quiz
// record to the ledger. Repeated calls return the same report and do not
// apply anything twice.
func (s *QuizService) Finish(ctx context.Context, userID, sessionID string) (Finished, error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return Finished{}, err
	}
	report, err := live.finish(func(r quiz.Report) error {
		events := append(slices.Clone(r.Events), domain.QuizRecorded{Result: r.Result()})
		_, err := s.progress.Apply(ctx, userID, events...)
		return err
	})
	if err != nil {
		return Finished{}, err
	}
	l, err := s.progress.Progress(ctx, userID)
	if err != nil {
		return Finished{}, err
	}
	s.logger.Info("quiz finished", "session", sessionID, "user", userID, "score", report.Score, "total", report.Total)
	return Finished{Report: report, Ledger: l}, nil
}

// Restart replaces the session with a fresh one over the same words.
func (s *QuizService) Restart(ctx context.Context, userID, sessionID string) (quiz.Snapshot, error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return quiz.Snapshot{}, err
	}
	next := NewLiveSession(userID, live.restart(uuid.NewString(), s.newRand()))
	if err := s.sessions.Save(ctx, next); err != nil {
		return quiz.Snapshot{}, fmt.Errorf("save session: %w", err)
	}
	s.sessions.Delete(ctx, sessionID)
	live.close()
	return next.Snapshot(), nil
}

// Abandon drops the session without touching the ledger.
func (s *QuizService) Abandon(ctx context.Context, userID, sessionID string) error {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return err
	}
	s.sessions.Delete(ctx, sessionID)
	live.close()
	return nil
}

// Subscribe returns a channel that receives session snapshots after every
// change. The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(ctx context.Context, userID, sessionID string) (<-chan quiz.Snapshot, func(), error) {
	live, err := s.get(ctx, userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := live.subscribe()
	return ch, cancel, nil
}

func (s *QuizService) get(ctx context.Context, userID, sessionID string) (*LiveSession, error) {
	live, ok := s.sessions.Get(ctx, sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if live.UserID() != userID {
		return nil, domain.ErrSessionOwner
	}
	return live, nil
}

// LiveSession is a quiz session owned by one user. Every call is serialized
// by its mutex; subscribers receive a snapshot after each change. Once closed
// it accepts no new subscribers.
type LiveSession struct {
	mu          sync.Mutex
	userID      string
	session     *quiz.Session
	report      *quiz.Report
	closed      bool
	subscribers map[chan quiz.Snapshot]struct{}
}

func NewLiveSession(userID string, session *quiz.Session) *LiveSession {
	return &LiveSession{
		userID:      userID,
		session:     session,
		subscribers: make(map[chan quiz.Snapshot]struct{}),
	}
}

func (l *LiveSession) ID() string {
	return l.session.ID()
}

func (l *LiveSession) UserID() string {
	return l.userID
}

func (l *LiveSession) Snapshot() quiz.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.Snapshot()
}

func (l *LiveSession) answer(selected string) (quiz.Answer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	a, err := l.session.Answer(selected)
	if err != nil {
		return quiz.Answer{}, err
	}
	l.broadcastLocked()
	return a, nil
}

func (l *LiveSession) advance() (quiz.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.session.Advance(); err != nil {
		return quiz.Snapshot{}, err
	}
	return l.broadcastLocked(), nil
}

// finish runs record once per session; a failed record is retried on the next call.
func (l *LiveSession) finish(record func(quiz.Report) error) (quiz.Report, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.report != nil {
		return *l.report, nil
	}
	r, err := l.session.Report()
	if err != nil {
		return quiz.Report{}, err
	}
	if err := record(r); err != nil {
		return quiz.Report{}, err
	}
	l.report = &r
	return r, nil
}

func (l *LiveSession) restart(id string, rnd quiz.Rand) *quiz.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.session.Restart(id, rnd)
}

// subscribe on a closed session returns an already closed channel. Sends and
// closes both happen under the mutex.
func (l *LiveSession) subscribe() (<-chan quiz.Snapshot, func()) {
	ch := make(chan quiz.Snapshot, 8)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		close(ch)
		return ch, func() {}
	}
	l.subscribers[ch] = struct{}{}
	ch <- l.session.Snapshot()

	cancel := func() {
		l.mu.Lock()
		if _, ok := l.subscribers[ch]; ok {
			delete(l.subscribers, ch)
			close(ch)
		}
		l.mu.Unlock()
	}
	return ch, cancel
}

// close ends every subscription.
func (l *LiveSession) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	for ch := range l.subscribers {
		delete(l.subscribers, ch)
		close(ch)
	}
}

func (l *LiveSession) broadcastLocked() quiz.Snapshot {
	snap := l.session.Snapshot()
	for ch := range l.subscribers {
		select {
		case ch <- snap:
		default:
			// Slow subscriber: drop its oldest snapshot instead of blocking.
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	return snap
}
