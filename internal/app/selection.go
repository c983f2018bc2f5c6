package app

import (
	"math/rand"
	"strings"

	"opening-lines-quiz/internal/domain"
)

// DefaultQuestionCount is the length of a full session.
const DefaultQuestionCount = 10

// FilterQuestions returns the questions eligible for sel in corpus order:
// exact level match in level mode, exact trimmed author match in author mode.
// sel is expected to be normalized.
func FilterQuestions(corpus []domain.Question, sel domain.Selection) []domain.Question {
	out := make([]domain.Question, 0)
	for _, q := range corpus {
		switch sel.Mode {
		case domain.ModeLevel:
			if string(q.Level) == sel.Value {
				out = append(out, q)
			}
		case domain.ModeAuthor:
			if q.Author != "" && strings.TrimSpace(q.Author) == sel.Value {
				out = append(out, q)
			}
		}
	}
	return out
}

// SelectQuestions filters the corpus for sel, shuffles the matches and keeps
// the first limit. A pool smaller than limit yields a shorter session.
func SelectQuestions(corpus []domain.Question, sel domain.Selection, limit int, rng *rand.Rand) []domain.Question {
	if limit <= 0 {
		limit = DefaultQuestionCount
	}
	picked := FilterQuestions(corpus, sel)
	rng.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	if len(picked) > limit {
		picked = picked[:limit]
	}
	return picked
}
