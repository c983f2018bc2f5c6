package app

import (
	"math/rand"

	"opening-lines-quiz/internal/domain"
)

// LookupTitle picks a random title for score, using the score-0 entry when
// the table has no entry for that exact score.
func LookupTitle(entries []domain.TitleEntry, score int, rng *rand.Rand) (domain.Title, error) {
	var match, fallback *domain.TitleEntry
	for i := range entries {
		if entries[i].Score == score && match == nil {
			match = &entries[i]
		}
		if entries[i].Score == 0 && fallback == nil {
			fallback = &entries[i]
		}
	}
	if match == nil {
		match = fallback
	}
	if match == nil || len(match.Titles) == 0 {
		return domain.Title{}, domain.ErrTitleNotFound
	}
	return match.Titles[rng.Intn(len(match.Titles))], nil
}
