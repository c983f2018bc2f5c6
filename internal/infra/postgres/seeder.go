package postgres

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"opening-lines-quiz/internal/domain"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID            int    `bun:"id,pk"`
	Text          string `bun:"text,notnull"`
	Level         string `bun:"level,notnull"`
	Author        string `bun:"author,notnull"`
	CorrectAnswer string `bun:"correct_answer,notnull"`
}

type titleRow struct {
	bun.BaseModel `bun:"table:titles"`

	Score       int    `bun:"score,pk"`
	Position    int    `bun:"position,pk"`
	Title       string `bun:"title,notnull"`
	Description string `bun:"description,notnull"`
}

// Seed upserts the corpus into the questions and titles tables in one
// transaction. Title entries are replaced wholesale so removed candidates
// do not linger.
func Seed(ctx context.Context, db *bun.DB, c domain.Corpus) error {
	questions := make([]questionRow, 0, len(c.Questions))
	for _, q := range c.Questions {
		questions = append(questions, questionRow{
			ID:            q.ID,
			Text:          q.Text,
			Level:         string(q.Level),
			Author:        q.Author,
			CorrectAnswer: q.CorrectAnswer,
		})
	}
	var titles []titleRow
	for _, entry := range c.Titles {
		for i, t := range entry.Titles {
			titles = append(titles, titleRow{Score: entry.Score, Position: i, Title: t.Title, Description: t.Description})
		}
	}

	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(questions) > 0 {
			_, err := tx.NewInsert().
				Model(&questions).
				On("CONFLICT (id) DO UPDATE").
				Set("text = EXCLUDED.text").
				Set("level = EXCLUDED.level").
				Set("author = EXCLUDED.author").
				Set("correct_answer = EXCLUDED.correct_answer").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("seed questions: %w", err)
			}
		}
		if _, err := tx.NewDelete().Model((*titleRow)(nil)).Where("TRUE").Exec(ctx); err != nil {
			return fmt.Errorf("clear titles: %w", err)
		}
		if len(titles) > 0 {
			if _, err := tx.NewInsert().Model(&titles).Exec(ctx); err != nil {
				return fmt.Errorf("seed titles: %w", err)
			}
		}
		return nil
	})
}
