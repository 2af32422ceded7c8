package domain

import (
	"slices"
	"time"
)

// QuizResult is a finished quiz as recorded on the ledger.
type QuizResult struct {
	SessionID       string    `json:"sessionId"`
	Score           int       `json:"score"`
	Total           int       `json:"total"`
	Percentage      int       `json:"percentage"`
	AverageAnswerMs int64     `json:"averageAnswerMs"`
	CompletedAt     time.Time `json:"completedAt"`
}

// Ledger is the per-user progress record. Only the progress package mutates it;
// EarnedBadgeIDs is always derived.
type Ledger struct {
	UserID              string       `json:"userId"`
	TotalPoints         int          `json:"totalPoints"`
	CurrentStreak       int          `json:"currentStreak"`
	LongestStreak       int          `json:"longestStreak"`
	CompletedWordIDs    Set[WordID]  `json:"completedWordIds"`
	FavoriteWordIDs     Set[WordID]  `json:"favoriteWordIds"`
	AcknowledgedTierIDs Set[TierID]  `json:"acknowledgedTierIds"`
	EarnedBadgeIDs      Set[BadgeID] `json:"earnedBadgeIds"`
	QuizHistory         []QuizResult `json:"quizHistory"`
	LastActivity        time.Time    `json:"lastActivity"`
	UpdatedAt           time.Time    `json:"updatedAt"`
}

// NewLedger returns a zero-progress ledger for userID.
func NewLedger(userID string) Ledger {
	l := Ledger{UserID: userID}
	l.Normalize()
	return l
}

// Normalize replaces nil sets so a decoded snapshot is safe to mutate.
func (l *Ledger) Normalize() {
	if l.CompletedWordIDs == nil {
		l.CompletedWordIDs = NewSet[WordID]()
	}
	if l.FavoriteWordIDs == nil {
		l.FavoriteWordIDs = NewSet[WordID]()
	}
	if l.AcknowledgedTierIDs == nil {
		l.AcknowledgedTierIDs = NewSet[TierID]()
	}
	if l.EarnedBadgeIDs == nil {
		l.EarnedBadgeIDs = NewSet[BadgeID]()
	}
}

// Clone returns a deep copy.
func (l Ledger) Clone() Ledger {
	out := l
	out.CompletedWordIDs = l.CompletedWordIDs.Clone()
	out.FavoriteWordIDs = l.FavoriteWordIDs.Clone()
	out.AcknowledgedTierIDs = l.AcknowledgedTierIDs.Clone()
	out.EarnedBadgeIDs = l.EarnedBadgeIDs.Clone()
	out.QuizHistory = slices.Clone(l.QuizHistory)
	return out
}

// Level is derived from points: one level per 100 points, starting at 1.
func (l Ledger) Level() int {
	return l.TotalPoints/100 + 1
}

func (l Ledger) IsFavorite(id WordID) bool {
	return l.FavoriteWordIDs.Has(id)
}

func (l Ledger) HasCompleted(id WordID) bool {
	return l.CompletedWordIDs.Has(id)
}

func (l Ledger) HasQuiz(sessionID string) bool {
	for _, r := range l.QuizHistory {
		if r.SessionID == sessionID {
			return true
		}
	}
	return false
}
