package app

import (
	"math/rand"

	"opening-lines-quiz/internal/domain"
)

// DefaultOptionCount is the number of choices shown per question.
const DefaultOptionCount = 4

// GenerateOptions returns up to count shuffled answer choices for q. The
// correct answer appears exactly once; distractors are distinct and drawn
// from questions by the same author (when q has one or forceAuthor is set) or
// of the same level. When that pool is short, the remainder is drawn at
// random from the rest of the corpus.
// Fewer than count choices are returned only if the corpus runs out of
// distinct titles.
func GenerateOptions(q domain.Question, corpus []domain.Question, count int, forceAuthor bool, rng *rand.Rand) []string {
	if count <= 0 {
		count = DefaultOptionCount
	}
	want := count - 1

	seen := map[string]struct{}{q.CorrectAnswer: {}}
	pool := make([]string, 0, len(corpus))
	add := func(answer string) {
		if _, ok := seen[answer]; ok {
			return
		}
		seen[answer] = struct{}{}
		pool = append(pool, answer)
	}

	byAuthor := forceAuthor || q.Author != ""
	for _, candidate := range corpus {
		if byAuthor && candidate.Author != q.Author {
			continue
		}
		if !byAuthor && candidate.Level != q.Level {
			continue
		}
		add(candidate.CorrectAnswer)
	}

	rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	if len(pool) > want {
		pool = pool[:want]
	}

	if short := want - len(pool); short > 0 {
		var rest []string
		for _, candidate := range corpus {
			if _, ok := seen[candidate.CorrectAnswer]; ok {
				continue
			}
			seen[candidate.CorrectAnswer] = struct{}{}
			rest = append(rest, candidate.CorrectAnswer)
		}
		rng.Shuffle(len(rest), func(i, j int) { rest[i], rest[j] = rest[j], rest[i] })
		if len(rest) > short {
			rest = rest[:short]
		}
		pool = append(pool, rest...)
	}

	options := append(pool, q.CorrectAnswer)
	rng.Shuffle(len(options), func(i, j int) { options[i], options[j] = options[j], options[i] })
	return options
}
