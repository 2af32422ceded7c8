// Package quiz implements multiple-choice quiz sessions over a word pool.
//
// A Session is built once from a pool: the question sequence, each question's
// distractors and its option order are all drawn at creation and stay fixed
// for the session's lifetime. Sessions never touch a ledger; a finished
// session reports the completion events for the caller to apply.
package quiz

import (
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"vocab-tiers-service/internal/domain"
)

// OptionsPerQuestion is the target option count: the answer plus three distractors.
const OptionsPerQuestion = 4

// Rand is the randomness a session draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a seeded source; equal seeds give equal sessions.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

type State string

const (
	StateCreated    State = "created"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// Question is one prompt with its fixed option order.
type Question struct {
	WordID   domain.WordID `json:"wordId"`
	Prompt   string        `json:"prompt"`
	Phonetic string        `json:"phonetic"`
	Options  []string      `json:"options"`
	answer   string
}

// Answer is a recorded response to a question.
type Answer struct {
	WordID    domain.WordID `json:"wordId"`
	Selected  string        `json:"selected"`
	Correct   string        `json:"correct"`
	IsCorrect bool          `json:"isCorrect"`
	// TimeTakenMs is measured from when the question became current.
	TimeTakenMs int64 `json:"timeTakenMs"`
}

// Session is a single run through a fixed question sequence. It is not safe for
// concurrent use; callers serialize access.
type Session struct {
	id        string
	pool      []domain.Word
	sourceIDs []domain.WordID
	questions []Question
	current   int
	answers   []Answer
	createdAt time.Time
	askedAt   time.Time
	now       func() time.Time
	doneAt    time.Time
}

// New builds a session of questionCount questions drawn from pool. A
// non-positive or oversized count is clamped to the pool size.
func New(id string, pool []domain.Word, questionCount int, rnd Rand) (*Session, error) {
	return NewWithClock(id, pool, questionCount, rnd, time.Now)
}

// NewWithClock is New with a deterministic clock for tests.
func NewWithClock(id string, pool []domain.Word, questionCount int, rnd Rand, now func() time.Time) (*Session, error) {
	distinct := dedupe(pool)
	if len(distinct) < 2 || len(translations(distinct, "")) < 2 {
		return nil, domain.ErrInsufficientPool
	}
	if questionCount <= 0 || questionCount > len(distinct) {
		questionCount = len(distinct)
	}

	// distinct is sorted by id, so the draw depends only on the seed and not
	// on the order the caller listed the pool in.
	order := slices.Clone(distinct)
	rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

	ids := make([]domain.WordID, 0, questionCount)
	for _, w := range order[:questionCount] {
		ids = append(ids, w.ID)
	}
	return build(id, distinct, ids, rnd, now), nil
}

// build draws options for each word of ids from the full pool.
func build(id string, pool []domain.Word, ids []domain.WordID, rnd Rand, now func() time.Time) *Session {
	byID := make(map[domain.WordID]domain.Word, len(pool))
	for _, w := range pool {
		byID[w.ID] = w
	}
	s := &Session{
		id:        id,
		pool:      pool,
		sourceIDs: ids,
		questions: make([]Question, 0, len(ids)),
		createdAt: now(),
		now:       now,
	}
	s.askedAt = s.createdAt
	for _, wordID := range ids {
		w := byID[wordID]
		s.questions = append(s.questions, Question{
			WordID:   w.ID,
			Prompt:   w.Somali,
			Phonetic: w.Phonetic,
			Options:  options(w, pool, rnd),
			answer:   w.English,
		})
	}
	return s
}

// options returns the correct translation plus up to three distinct
// distractors from other pool words, shuffled.
func options(target domain.Word, pool []domain.Word, rnd Rand) []string {
	candidates := translations(pool, target.English)
	n := min(OptionsPerQuestion-1, len(candidates))
	// Partial Fisher-Yates: the first n slots become a uniform sample.
	for i := 0; i < n; i++ {
		j := i + rnd.Intn(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	opts := append([]string{target.English}, candidates[:n]...)
	rnd.Shuffle(len(opts), func(i, j int) { opts[i], opts[j] = opts[j], opts[i] })
	return opts
}

// translations lists the distinct English texts of pool, skipping exclude,
// in pool order.
func translations(pool []domain.Word, exclude string) []string {
	seen := make(map[string]bool, len(pool))
	out := make([]string, 0, len(pool))
	for _, w := range pool {
		if w.English == exclude || seen[w.English] {
			continue
		}
		seen[w.English] = true
		out = append(out, w.English)
	}
	return out
}

// dedupe drops repeated word ids and sorts by id.
func dedupe(pool []domain.Word) []domain.Word {
	seen := make(map[domain.WordID]bool, len(pool))
	out := make([]domain.Word, 0, len(pool))
	for _, w := range pool {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true
		out = append(out, w)
	}
	slices.SortFunc(out, func(a, b domain.Word) int { return strings.Compare(string(a.ID), string(b.ID)) })
	return out
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Len() int {
	return len(s.questions)
}

// SourceWordIDs is the fixed question sequence.
func (s *Session) SourceWordIDs() []domain.WordID {
	return slices.Clone(s.sourceIDs)
}

// CurrentIndex is the 0-based index of the question being asked; it equals Len
// once the session is completed.
func (s *Session) CurrentIndex() int {
	return s.current
}

func (s *Session) State() State {
	switch {
	case s.current >= len(s.questions):
		return StateCompleted
	case len(s.answers) == 0:
		return StateCreated
	default:
		return StateInProgress
	}
}

// Question returns the i-th question.
func (s *Session) Question(i int) (Question, bool) {
	if i < 0 || i >= len(s.questions) {
		return Question{}, false
	}
	q := s.questions[i]
	q.Options = slices.Clone(q.Options)
	return q, true
}

// Current returns the question being asked.
func (s *Session) Current() (Question, error) {
	if s.State() == StateCompleted {
		return Question{}, domain.ErrAlreadyCompleted
	}
	q, _ := s.Question(s.current)
	return q, nil
}

// Answers returns the recorded answers in order.
func (s *Session) Answers() []Answer {
	return slices.Clone(s.answers)
}

func (s *Session) answered() bool {
	return len(s.answers) > s.current
}

// Answer records selected for the current question without advancing.
func (s *Session) Answer(selected string) (Answer, error) {
	if s.State() == StateCompleted {
		return Answer{}, domain.ErrAlreadyCompleted
	}
	if s.answered() {
		return Answer{}, domain.ErrAlreadyAnswered
	}
	q := s.questions[s.current]
	a := Answer{
		WordID:    q.WordID,
		Selected:  selected,
		Correct:   q.answer,
		IsCorrect: selected == q.answer,
	}
	if took := s.now().Sub(s.askedAt); took > 0 {
		a.TimeTakenMs = took.Milliseconds()
	}
	s.answers = append(s.answers, a)
	return a, nil
}

// Advance moves to the next question once the current one is answered.
func (s *Session) Advance() error {
	if s.State() == StateCompleted {
		return domain.ErrAlreadyCompleted
	}
	if !s.answered() {
		return domain.ErrNotYetAnswered
	}
	s.current++
	s.askedAt = s.now()
	if s.current == len(s.questions) {
		s.doneAt = s.askedAt
	}
	return nil
}

// Score counts correct answers so far.
func (s *Session) Score() int {
	score := 0
	for _, a := range s.answers {
		if a.IsCorrect {
			score++
		}
	}
	return score
}

// Restart builds a fresh session over the same question sequence with new
// distractors and option order.
func (s *Session) Restart(id string, rnd Rand) *Session {
	return build(id, s.pool, slices.Clone(s.sourceIDs), rnd, s.now)
}

// Percentage is round(100 * score / total), 0 for an empty total.
func Percentage(score, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(score) / float64(total)))
}
