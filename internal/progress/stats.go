package progress

import (
	"math"
	"strconv"

	"vocab-tiers-service/internal/catalog"
	"vocab-tiers-service/internal/domain"
)

// minutesPerWord is the rough study time credited for each completed word.
const minutesPerWord = 2

// Stats is a read-only summary of a ledger.
type Stats struct {
	UserID             string         `json:"userId"`
	Level              int            `json:"level"`
	TotalPoints        int            `json:"totalPoints"`
	WordsLearned       int            `json:"wordsLearned"`
	WordsByCategory    map[string]int `json:"wordsByCategory"`
	WordsByTier        map[string]int `json:"wordsByTier"`
	QuizzesTaken       int            `json:"quizzesTaken"`
	AverageQuizPercent float64        `json:"averageQuizPercent"`
	AverageAnswerMs    int64          `json:"averageAnswerMs"`
	MinutesLearning    int            `json:"minutesLearning"`
	CurrentStreak      int            `json:"currentStreak"`
	LongestStreak      int            `json:"longestStreak"`
}

func Summarize(cat *catalog.Catalog, l domain.Ledger) Stats {
	s := Stats{
		UserID:          l.UserID,
		Level:           l.Level(),
		TotalPoints:     l.TotalPoints,
		WordsLearned:    l.CompletedWordIDs.Len(),
		WordsByCategory: make(map[string]int),
		WordsByTier:     make(map[string]int),
		QuizzesTaken:    len(l.QuizHistory),
		MinutesLearning: l.CompletedWordIDs.Len() * minutesPerWord,
		CurrentStreak:   l.CurrentStreak,
		LongestStreak:   l.LongestStreak,
	}
	for id := range l.CompletedWordIDs {
		w, ok := cat.Word(id)
		if !ok {
			continue
		}
		s.WordsByCategory[string(w.Category)]++
		s.WordsByTier[strconv.Itoa(int(w.Tier))]++
	}
	if len(l.QuizHistory) > 0 {
		total := 0
		var answerMs int64
		for _, r := range l.QuizHistory {
			total += r.Percentage
			answerMs += r.AverageAnswerMs
		}
		s.AverageAnswerMs = answerMs / int64(len(l.QuizHistory))
		avg := float64(total) / float64(len(l.QuizHistory))
		s.AverageQuizPercent = math.Round(avg*100) / 100
	}
	return s
}
