package quiz

import (
	"time"

	"vocab-tiers-service/internal/domain"
)

// Performance is the coarse grade of a finished quiz.
type Performance string

const (
	Excellent        Performance = "excellent"
	Good             Performance = "good"
	Fair             Performance = "fair"
	NeedsImprovement Performance = "needs_improvement"
)

// Grade maps a percentage onto a Performance band.
func Grade(percentage int) Performance {
	switch {
	case percentage >= 90:
		return Excellent
	case percentage >= 75:
		return Good
	case percentage >= 60:
		return Fair
	default:
		return NeedsImprovement
	}
}

// Report is the outcome of a completed session.
type Report struct {
	SessionID          string                  `json:"sessionId"`
	Score              int                     `json:"score"`
	Total              int                     `json:"total"`
	Percentage         int                     `json:"percentage"`
	Performance        Performance             `json:"performance"`
	Breakdown          []Answer                `json:"breakdown"`
	MistakesByCategory map[domain.Category]int `json:"mistakesByCategory"`
	AverageAnswerMs    int64                   `json:"averageAnswerMs"`
	CompletedAt        time.Time               `json:"completedAt"`

	// Events holds one WordCompleted per correctly answered word, in question
	// order. The session never applies them itself.
	Events []domain.Event `json:"-"`
}

// Result is the ledger entry for this report.
func (r Report) Result() domain.QuizResult {
	return domain.QuizResult{
		SessionID:       r.SessionID,
		Score:           r.Score,
		Total:           r.Total,
		Percentage:      r.Percentage,
		AverageAnswerMs: r.AverageAnswerMs,
		CompletedAt:     r.CompletedAt,
	}
}

// Report summarizes a completed session.
func (s *Session) Report() (Report, error) {
	if s.State() != StateCompleted {
		return Report{}, domain.ErrQuizNotCompleted
	}

	categories := make(map[domain.WordID]domain.Category, len(s.pool))
	for _, w := range s.pool {
		categories[w.ID] = w.Category
	}

	score := s.Score()
	r := Report{
		SessionID:          s.id,
		Score:              score,
		Total:              len(s.questions),
		Percentage:         Percentage(score, len(s.questions)),
		Breakdown:          s.Answers(),
		MistakesByCategory: make(map[domain.Category]int),
		CompletedAt:        s.doneAt,
	}
	r.Performance = Grade(r.Percentage)
	var took int64
	for _, a := range s.answers {
		took += a.TimeTakenMs
	}
	if len(s.answers) > 0 {
		r.AverageAnswerMs = took / int64(len(s.answers))
	}
	for _, a := range s.answers {
		if a.IsCorrect {
			r.Events = append(r.Events, domain.WordCompleted{WordID: a.WordID})
			continue
		}
		r.MistakesByCategory[categories[a.WordID]]++
	}
	return r, nil
}

// Snapshot is the client view of a session. It never carries the correct
// answer of an unanswered question.
type Snapshot struct {
	ID        string    `json:"id"`
	State     State     `json:"state"`
	Index     int       `json:"index"`
	Total     int       `json:"total"`
	Score     int       `json:"score"`
	Question  *Question `json:"question,omitempty"`
	Answered  bool      `json:"answered"`
	Answers   []Answer  `json:"answers"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:        s.id,
		State:     s.State(),
		Index:     s.current,
		Total:     len(s.questions),
		Score:     s.Score(),
		Answered:  s.answered(),
		Answers:   s.Answers(),
		CreatedAt: s.createdAt,
	}
	if q, err := s.Current(); err == nil {
		snap.Question = &q
	}
	return snap
}
